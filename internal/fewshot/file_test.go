package fewshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreLoadMissingFileReturnsEmpty(t *testing.T) {
	store := newTestStore(t)
	examples, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(examples) != 0 {
		t.Fatalf("Load() = %d examples, want 0", len(examples))
	}
}

func TestFileStoreAddThenLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	example := Example{
		Name: "show me the number of transactions in the last 30 days",
		SQL:  "SELECT COUNT(*) AS tx_count FROM transactions",
		ExpectedResult: ResultPreview{
			Columns: []string{"tx_count"},
			Rows:    [][]string{{"42"}},
			Notes:   "42 transactions",
		},
	}

	inserted, err := store.Add(context.Background(), example)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if !inserted {
		t.Fatal("Add() inserted = false, want true")
	}

	examples, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(examples) != 1 {
		t.Fatalf("Load() = %d examples, want 1", len(examples))
	}
	got := examples[0]
	if got.Name != example.Name || got.SQL != example.SQL {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.ExpectedResult.Notes != "42 transactions" {
		t.Fatalf("Notes = %q", got.ExpectedResult.Notes)
	}
	if len(got.ExpectedResult.Rows) != 1 || got.ExpectedResult.Rows[0][0] != "42" {
		t.Fatalf("Rows = %#v", got.ExpectedResult.Rows)
	}
}

func TestFileStoreDedupKeepsFirstWrite(t *testing.T) {
	store := newTestStore(t)
	first := Example{Name: "daily gas", SQL: "SELECT 1"}
	second := Example{Name: "daily gas", SQL: "SELECT 2"}

	if _, err := store.Add(context.Background(), first); err != nil {
		t.Fatalf("Add(first) error = %v", err)
	}
	inserted, err := store.Add(context.Background(), second)
	if err != nil {
		t.Fatalf("Add(second) error = %v", err)
	}
	if inserted {
		t.Fatal("Add(second) inserted = true, want false")
	}

	examples, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(examples) != 1 {
		t.Fatalf("Load() = %d examples, want 1", len(examples))
	}
	if examples[0].SQL != "SELECT 1" {
		t.Fatalf("SQL = %q, want the first write retained", examples[0].SQL)
	}
}

func TestFileStorePreservesInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	names := []string{"first", "second", "third"}
	for _, name := range names {
		if _, err := store.Add(context.Background(), Example{Name: name, SQL: "SELECT 1"}); err != nil {
			t.Fatalf("Add(%q) error = %v", name, err)
		}
	}
	examples, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for i, name := range names {
		if examples[i].Name != name {
			t.Fatalf("examples[%d].Name = %q, want %q", i, examples[i].Name, name)
		}
	}
}

func TestFileStoreRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fewshots.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if _, err := store.Load(context.Background()); err == nil {
		t.Fatal("Load() expected error for malformed file")
	}
	if _, err := store.Add(context.Background(), Example{Name: "q", SQL: "SELECT 1"}); err == nil {
		t.Fatal("Add() expected error for malformed file")
	}
	// The malformed file must survive the failed insert untouched.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(raw) != "{not json" {
		t.Fatalf("file was rewritten: %q", raw)
	}
}

func TestFileStorePersistedJSONKeys(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Add(context.Background(), Example{
		Name:           "top blocks",
		SQL:            "SELECT block_number FROM blocks",
		ExpectedResult: ResultPreview{Columns: []string{"block_number"}, Rows: [][]string{{"19000000"}}},
	}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	raw, err := os.ReadFile(store.path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode persisted file: %v", err)
	}
	entry := decoded[0]
	for _, key := range []string{"query_name", "query_sql", "expected_result"} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("persisted entry missing key %q: %#v", key, entry)
		}
	}
}

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "fewshots.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return store
}

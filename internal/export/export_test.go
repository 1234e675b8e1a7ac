package export

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/chainquery/chainquery/internal/storage"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func newTestExporter(t *testing.T, store storage.ObjectStore) *Exporter {
	t.Helper()
	exporter, err := New(Options{
		Dir:    t.TempDir(),
		Store:  store,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    fixedClock,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return exporter
}

func TestExportCSVWritesTimestampedFile(t *testing.T) {
	exporter := newTestExporter(t, nil)

	artifact, err := exporter.Export(context.Background(), FormatCSV,
		[]string{"day", "tx_count"},
		[][]any{{"2024-04-30", int64(10)}, {"2024-05-01", nil}},
	)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if artifact.Filename != "results_20240501_120000.csv" {
		t.Fatalf("Filename = %q", artifact.Filename)
	}
	if artifact.Uploaded {
		t.Fatal("no store configured, nothing should be uploaded")
	}

	file, err := os.Open(artifact.Path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer func() { _ = file.Close() }()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want header plus two rows", len(records))
	}
	if records[0][0] != "day" || records[0][1] != "tx_count" {
		t.Fatalf("header = %v", records[0])
	}
	if records[1][1] != "10" {
		t.Fatalf("row value = %q, want display string", records[1][1])
	}
	if records[2][1] != "" {
		t.Fatalf("nil cell = %q, want empty", records[2][1])
	}
}

func TestExportParquetRoundTrips(t *testing.T) {
	exporter := newTestExporter(t, nil)

	artifact, err := exporter.Export(context.Background(), FormatParquet,
		[]string{"address", "balance"},
		[][]any{{"0xabc", int64(7)}, {"0xdef", nil}},
	)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if artifact.Filename != "results_20240501_120000.parquet" {
		t.Fatalf("Filename = %q", artifact.Filename)
	}

	schema := parquet.NewSchema("results", parquet.Group{
		"address": parquet.Optional(parquet.String()),
		"balance": parquet.Optional(parquet.String()),
	})
	// parquet.ReadFile cannot infer a schema for map rows and does not
	// forward reader options in v0.27.0, so read via a GenericReader with
	// the writer's schema and pre-initialized maps.
	file, err := os.Open(artifact.Path)
	if err != nil {
		t.Fatalf("open parquet: %v", err)
	}
	defer func() { _ = file.Close() }()
	reader := parquet.NewGenericReader[map[string]any](file, schema)
	defer func() { _ = reader.Close() }()
	rows := make([]map[string]any, int(reader.NumRows()))
	for i := range rows {
		rows[i] = map[string]any{}
	}
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		t.Fatalf("read parquet: %v", err)
	}
	rows = rows[:n]
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if got := rows[0]["balance"]; got != "7" {
		t.Fatalf("balance = %#v, want display string", got)
	}
	if got := rows[1]["balance"]; got != nil {
		t.Fatalf("nil cell = %#v, want null", got)
	}
}

func TestExportRejectsEmptyResult(t *testing.T) {
	exporter := newTestExporter(t, nil)
	if _, err := exporter.Export(context.Background(), FormatCSV, nil, nil); err == nil {
		t.Fatal("Export() expected error for empty column set")
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	exporter := newTestExporter(t, nil)
	if _, err := exporter.Export(context.Background(), Format("xlsx"), []string{"a"}, nil); err == nil {
		t.Fatal("Export() expected error for unknown format")
	}
}

type fakeObjectStore struct {
	puts map[string]int64
	err  error
}

func (f *fakeObjectStore) Put(_ context.Context, key string, body io.Reader, size int64, _ string) (storage.ObjectInfo, error) {
	if f.err != nil {
		return storage.ObjectInfo{}, f.err
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return storage.ObjectInfo{}, err
	}
	if f.puts == nil {
		f.puts = map[string]int64{}
	}
	f.puts[key] = size
	return storage.ObjectInfo{Key: "exports/" + key, Size: size}, nil
}

func (f *fakeObjectStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	size, ok := f.puts[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: size}, nil
}

func TestExportUploadsWhenStoreConfigured(t *testing.T) {
	store := &fakeObjectStore{}
	exporter := newTestExporter(t, store)

	artifact, err := exporter.Export(context.Background(), FormatCSV, []string{"a"}, [][]any{{"1"}})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !artifact.Uploaded {
		t.Fatal("artifact not marked uploaded")
	}
	if !strings.HasPrefix(artifact.ObjectKey, "exports/") {
		t.Fatalf("ObjectKey = %q", artifact.ObjectKey)
	}
	if _, ok := store.puts[artifact.Filename]; !ok {
		t.Fatalf("uploaded keys = %v", store.puts)
	}
}

func TestExportSurfacesUploadFailure(t *testing.T) {
	store := &fakeObjectStore{err: io.ErrUnexpectedEOF}
	exporter := newTestExporter(t, store)

	artifact, err := exporter.Export(context.Background(), FormatCSV, []string{"a"}, [][]any{{"1"}})
	if err == nil {
		t.Fatal("Export() expected upload error")
	}
	if artifact.Path == "" {
		t.Fatal("local file should still have been written")
	}
	if _, statErr := os.Stat(artifact.Path); statErr != nil {
		t.Fatalf("local export missing: %v", statErr)
	}
}

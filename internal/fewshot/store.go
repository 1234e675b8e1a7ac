package fewshot

import "context"

// Example is one accepted (question, SQL, sample result) triple, persisted
// for reuse as in-context guidance on later generations. Row values are
// stored in their display-string form because the consuming prompt is
// textual.
type Example struct {
	Name           string        `json:"query_name"`
	SQL            string        `json:"query_sql"`
	ExpectedResult ResultPreview `json:"expected_result"`
}

type ResultPreview struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Notes   string     `json:"notes"`
}

// Store is an append-only, name-deduplicated collection of examples.
// Entries are never mutated, reordered, or deleted; insertion order is
// preserved across loads.
type Store interface {
	// Load returns the full collection in insertion order.
	Load(ctx context.Context) ([]Example, error)
	// Add appends the example unless one with the same name already
	// exists. It reports whether an insert happened; a duplicate name is
	// a silent no-op, keeping the first write.
	Add(ctx context.Context, example Example) (bool, error)
}

package nl2sql

import "context"

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Generator turns an assembled prompt into a single SQL statement.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Result, error)
}

type SummaryRequest struct {
	Question string     `json:"question"`
	Columns  []string   `json:"columns"`
	Rows     [][]string `json:"rows"`
}

// Summarizer produces a short natural-language answer over a question and
// the rows it returned.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

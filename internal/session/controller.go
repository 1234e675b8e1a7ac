package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chainquery/chainquery/internal/fewshot"
	"github.com/chainquery/chainquery/internal/nl2sql"
	"github.com/chainquery/chainquery/internal/observability"
	"github.com/chainquery/chainquery/internal/warehouse"
)

// previewRows caps how many result rows a saved example carries. The
// preview exists to show the model what a correct answer looks like, not to
// replay the full result set.
const previewRows = 5

type Options struct {
	Logger      *slog.Logger
	Schema      string
	Generator   nl2sql.Generator
	Summarizer  nl2sql.Summarizer
	Executor    warehouse.Executor
	Examples    fewshot.Store
	MaxExamples int
	RowLimit    int
}

// Controller owns one session and serializes all operations on it. The
// mutex is held across collaborator calls, so at most one generation or
// execution is in flight at a time.
type Controller struct {
	mu          sync.Mutex
	logger      *slog.Logger
	schema      string
	generator   nl2sql.Generator
	summarizer  nl2sql.Summarizer
	executor    warehouse.Executor
	examples    fewshot.Store
	maxExamples int
	rowLimit    int
	session     Session
}

func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		logger:      logger,
		schema:      opts.Schema,
		generator:   opts.Generator,
		summarizer:  opts.Summarizer,
		executor:    opts.Executor,
		examples:    opts.Examples,
		maxExamples: opts.MaxExamples,
		rowLimit:    opts.RowLimit,
		session:     Session{State: StateIdle},
	}
}

func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

// Submit starts a new query lifecycle: it resets the session, assembles the
// prompt from the schema and stored examples, and runs generation
// synchronously. An empty query is rejected without touching state or
// calling any collaborator.
func (c *Controller) Submit(ctx context.Context, nlQuery string) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	question := strings.TrimSpace(nlQuery)
	if question == "" {
		return c.session.clone(), newError(ValidationFailure, "query text is empty")
	}

	c.session = Session{State: StateAwaitingGeneration, NLQuery: question}

	prompt, err := nl2sql.BuildSQLPrompt(c.schema, c.loadExamples(ctx), question)
	if err != nil {
		return c.failGeneration(GenerationFailure, "assemble prompt: %v", err)
	}

	if c.generator == nil {
		return c.failGeneration(GenerationFailure, "no generation backend configured")
	}

	start := time.Now()
	result, err := c.generator.Generate(ctx, prompt)
	observability.ObserveGeneration(err == nil, time.Since(start))
	if err != nil {
		return c.failGeneration(GenerationFailure, "generate query: %v", err)
	}

	c.logger.Info("query_generated",
		slog.String("model", result.Model),
		slog.Int("sql_length", len(result.SQL)),
	)
	c.session.GeneratedSQL = result.SQL
	c.session.State = StateAwaitingExecution
	return c.session.clone(), nil
}

// Run executes sqlText against the warehouse. The text may be the generated
// statement or a user-edited variant; the session records what actually ran.
// Repeated runs are allowed after success or failure.
func (c *Controller) Run(ctx context.Context, sqlText string) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.session.State {
	case StateAwaitingExecution, StateExecutionFailed, StateCompleted:
	default:
		return c.session.clone(), newError(ValidationFailure, "no executable query in state %q", c.session.State)
	}

	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return c.session.clone(), newError(ValidationFailure, "sql text is empty")
	}

	c.session.Err = nil

	start := time.Now()
	result, err := c.executor.Execute(ctx, warehouse.Request{SQL: trimmed, RowLimit: c.rowLimit})
	if err != nil {
		observability.ObserveExecution(false, 0, false, time.Since(start))
		c.session.Result = nil
		c.session.Err = &ErrorRecord{Kind: ExecutionFailure, Message: err.Error()}
		c.session.State = StateExecutionFailed
		return c.session.clone(), newError(ExecutionFailure, "execute query: %v", err)
	}
	observability.ObserveExecution(true, result.BytesScanned, result.CacheHit, result.Elapsed)
	warehouse.LogJobDetails(c.logger, trimmed, result)

	c.session.Result = &TabularResult{
		Columns:  result.Columns,
		Rows:     result.Rows,
		RowCount: result.RowCount,
	}
	c.session.ExecutedSQL = trimmed
	c.session.FeedbackGiven = false
	c.session.Summary = ""
	c.session.State = StateCompleted
	return c.session.clone(), nil
}

// RecordFeedback accepts one verdict on the completed result. A positive
// verdict persists the (question, SQL, preview) triple as a few-shot
// example; a negative one only marks the session. Either way feedback is
// accepted at most once per completed result, and a second call is a no-op.
// A storage failure leaves the feedback flag clear so the caller can retry.
func (c *Controller) RecordFeedback(ctx context.Context, positive bool, notes string) (Session, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.State != StateCompleted {
		return c.session.clone(), false, newError(ValidationFailure, "no completed result to rate in state %q", c.session.State)
	}
	if c.session.FeedbackGiven {
		return c.session.clone(), false, nil
	}
	if !positive {
		c.session.FeedbackGiven = true
		c.logger.Info("feedback_recorded", slog.Bool("positive", false))
		return c.session.clone(), false, nil
	}

	example := fewshot.Example{
		Name:           c.session.NLQuery,
		SQL:            c.session.ExecutedSQL,
		ExpectedResult: c.previewResult(notes),
	}
	inserted, err := c.examples.Add(ctx, example)
	if err != nil {
		observability.IncrementExampleStoreFailures()
		return c.session.clone(), false, newError(StorageFailure, "save example: %v", err)
	}

	c.session.FeedbackGiven = true
	if inserted {
		observability.IncrementExamplesSaved()
	}
	c.logger.Info("feedback_recorded",
		slog.Bool("positive", true),
		slog.Bool("example_saved", inserted),
	)
	return c.session.clone(), inserted, nil
}

// Summarize asks the model for a natural-language answer over the completed
// result. Failures surface to the caller without disturbing the session.
func (c *Controller) Summarize(ctx context.Context) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.State != StateCompleted {
		return c.session.clone(), newError(ValidationFailure, "no completed result to summarize in state %q", c.session.State)
	}
	if c.summarizer == nil {
		return c.session.clone(), newError(GenerationFailure, "no summary backend configured")
	}

	summary, err := c.summarizer.Summarize(ctx, nl2sql.SummaryRequest{
		Question: c.session.NLQuery,
		Columns:  c.session.Result.Columns,
		Rows:     warehouse.FormatRows(c.session.Result.Rows),
	})
	if err != nil {
		return c.session.clone(), newError(GenerationFailure, "summarize result: %v", err)
	}
	c.session.Summary = summary
	return c.session.clone(), nil
}

// loadExamples fetches the stored examples for prompt assembly. A broken
// store degrades to generating without examples instead of blocking the
// query.
func (c *Controller) loadExamples(ctx context.Context) []fewshot.Example {
	if c.examples == nil {
		return nil
	}
	examples, err := c.examples.Load(ctx)
	if err != nil {
		observability.IncrementExampleStoreFailures()
		c.logger.Warn("example_store_unavailable", slog.String("error", err.Error()))
		return nil
	}
	if c.maxExamples > 0 && len(examples) > c.maxExamples {
		examples = examples[:c.maxExamples]
	}
	return examples
}

func (c *Controller) failGeneration(kind ErrorKind, format string, args ...any) (Session, error) {
	failure := newError(kind, format, args...)
	c.session.Err = &ErrorRecord{Kind: failure.Kind, Message: failure.Message}
	c.session.State = StateGenerationFailed
	c.logger.Warn("query_generation_failed", slog.String("error", failure.Message))
	return c.session.clone(), failure
}

func (c *Controller) previewResult(notes string) fewshot.ResultPreview {
	rows := c.session.Result.Rows
	if len(rows) > previewRows {
		rows = rows[:previewRows]
	}
	return fewshot.ResultPreview{
		Columns: append([]string(nil), c.session.Result.Columns...),
		Rows:    warehouse.FormatRows(rows),
		Notes:   strings.TrimSpace(notes),
	}
}

package warehouse

import (
	"context"
	"time"
)

type Request struct {
	SQL      string
	RowLimit int
}

// Result carries the tabular outcome plus job telemetry. The telemetry
// fields (JobID, BytesScanned, BytesBilled, CacheHit, Elapsed) are
// diagnostic only and never enter the session data model; backends that
// cannot report a field leave it zero.
type Result struct {
	Columns      []string
	Rows         [][]any
	RowCount     int
	JobID        string
	BytesScanned int64
	BytesBilled  int64
	CacheHit     bool
	Elapsed      time.Duration
}

// Executor runs one read-only SQL statement against the warehouse and
// returns the full result set, capped by the request row limit.
type Executor interface {
	Execute(ctx context.Context, request Request) (Result, error)
}

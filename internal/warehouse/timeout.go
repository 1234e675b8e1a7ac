package warehouse

import (
	"context"
	"time"
)

type timeoutExecutor struct {
	inner   Executor
	timeout time.Duration
}

// WithTimeout caps every execution at timeout. A zero timeout returns the
// executor unchanged.
func WithTimeout(inner Executor, timeout time.Duration) Executor {
	if timeout <= 0 {
		return inner
	}
	return &timeoutExecutor{inner: inner, timeout: timeout}
}

func (e *timeoutExecutor) Execute(ctx context.Context, request Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.inner.Execute(ctx, request)
}

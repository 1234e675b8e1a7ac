package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chainquery/chainquery/internal/config"
	"github.com/chainquery/chainquery/internal/export"
	"github.com/chainquery/chainquery/internal/fewshot"
	"github.com/chainquery/chainquery/internal/observability"
	"github.com/chainquery/chainquery/internal/session"
)

type ReadinessCheck func(ctx context.Context) error

// SessionController is the slice of the session controller the API needs.
type SessionController interface {
	Submit(ctx context.Context, nlQuery string) (session.Session, error)
	Run(ctx context.Context, sqlText string) (session.Session, error)
	RecordFeedback(ctx context.Context, positive bool, notes string) (session.Session, bool, error)
	Summarize(ctx context.Context) (session.Session, error)
	Snapshot() session.Session
}

// Exporter writes a completed result to a file artifact.
type Exporter interface {
	Export(ctx context.Context, format export.Format, columns []string, rows [][]any) (export.Artifact, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Controller        SessionController
	Examples          fewshot.Store
	Exporter          Exporter
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("GET /v1/session", func(w http.ResponseWriter, r *http.Request) {
		handleGetSession(deps, w, r)
	})
	protected.HandleFunc("POST /v1/session/query", func(w http.ResponseWriter, r *http.Request) {
		handleSubmitQuery(deps, w, r)
	})
	protected.HandleFunc("POST /v1/session/run", func(w http.ResponseWriter, r *http.Request) {
		handleRunQuery(deps, w, r)
	})
	protected.HandleFunc("POST /v1/session/feedback", func(w http.ResponseWriter, r *http.Request) {
		handleFeedback(deps, w, r)
	})
	protected.HandleFunc("POST /v1/session/summary", func(w http.ResponseWriter, r *http.Request) {
		handleSummarize(deps, w, r)
	})
	protected.HandleFunc("GET /v1/examples", func(w http.ResponseWriter, r *http.Request) {
		handleListExamples(deps, w, r)
	})
	protected.HandleFunc("POST /v1/export", func(w http.ResponseWriter, r *http.Request) {
		handleExport(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("GET /v1/session", protectedHandler)
	mux.Handle("POST /v1/session/query", protectedHandler)
	mux.Handle("POST /v1/session/run", protectedHandler)
	mux.Handle("POST /v1/session/feedback", protectedHandler)
	mux.Handle("POST /v1/session/summary", protectedHandler)
	mux.Handle("GET /v1/examples", protectedHandler)
	mux.Handle("POST /v1/export", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckWarehouseConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		switch cfg.Warehouse.Driver {
		case "postgres":
			if cfg.Warehouse.DSN == "" {
				return errors.New("warehouse dsn is not configured")
			}
		case "duckdb":
			if cfg.Warehouse.DatabasePath == "" {
				return errors.New("warehouse database path is not configured")
			}
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}

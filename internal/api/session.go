package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/chainquery/chainquery/internal/observability"
	"github.com/chainquery/chainquery/internal/session"
)

type submitRequest struct {
	Query string `json:"query"`
}

type runRequest struct {
	SQL string `json:"sql"`
}

type feedbackRequest struct {
	Positive bool   `json:"positive"`
	Notes    string `json:"notes"`
}

func handleGetSession(deps Dependencies, w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"session": deps.Controller.Snapshot()})
}

func handleSubmitQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	state, err := deps.Controller.Submit(r.Context(), req.Query)
	if err != nil {
		writeSessionError(r.Context(), w, err, state)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": state})
}

func handleRunQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sqlText := req.SQL
	if strings.TrimSpace(sqlText) == "" {
		// Running without a body executes the generated statement as-is.
		sqlText = deps.Controller.Snapshot().GeneratedSQL
	}
	state, err := deps.Controller.Run(r.Context(), sqlText)
	if err != nil {
		writeSessionError(r.Context(), w, err, state)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": state})
}

func handleFeedback(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	state, saved, err := deps.Controller.RecordFeedback(r.Context(), req.Positive, req.Notes)
	if err != nil {
		writeSessionError(r.Context(), w, err, state)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": state, "example_saved": saved})
}

func handleSummarize(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	state, err := deps.Controller.Summarize(r.Context())
	if err != nil {
		writeSessionError(r.Context(), w, err, state)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": state})
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := decoder.Decode(target); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON: "+err.Error(), false)
		return false
	}
	return true
}

// writeSessionError maps the typed session error onto the HTTP envelope.
// The session snapshot rides along so clients see the state the failure
// left behind.
func writeSessionError(ctx context.Context, w http.ResponseWriter, err error, state session.Session) {
	var typed *session.Error
	if !errors.As(err, &typed) {
		writeError(ctx, w, http.StatusInternalServerError, "INTERNAL", err.Error(), false)
		return
	}

	status := http.StatusInternalServerError
	retryable := false
	switch typed.Kind {
	case session.ValidationFailure:
		status = http.StatusBadRequest
	case session.AuthenticationFailure:
		status = http.StatusUnauthorized
	case session.GenerationFailure:
		status = http.StatusBadGateway
		retryable = true
	case session.ExecutionFailure:
		status = http.StatusBadRequest
	case session.StorageFailure:
		status = http.StatusInternalServerError
		retryable = true
	}

	writeJSON(w, status, map[string]any{
		"error_code": strings.ToUpper(string(typed.Kind)),
		"message":    typed.Message,
		"retryable":  retryable,
		"trace_id":   observability.TraceIDFromContext(ctx),
		"session":    state,
	})
}

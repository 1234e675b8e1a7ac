package api

import (
	"net/http"
	"strings"

	"github.com/chainquery/chainquery/internal/export"
	"github.com/chainquery/chainquery/internal/session"
)

type exportRequest struct {
	Format string `json:"format"`
}

func handleListExamples(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Examples == nil {
		writeJSON(w, http.StatusOK, map[string]any{"examples": []any{}, "count": 0})
		return
	}
	examples, err := deps.Examples.Load(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "STORAGE_FAILURE", err.Error(), true)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"examples": examples, "count": len(examples)})
}

func handleExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Exporter == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXPORT_DISABLED", "export is not configured", false)
		return
	}

	var req exportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	format := export.Format(strings.ToLower(strings.TrimSpace(req.Format)))
	if format == "" {
		format = export.FormatCSV
	}
	if format != export.FormatCSV && format != export.FormatParquet {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or parquet", false)
		return
	}

	state := deps.Controller.Snapshot()
	if state.State != session.StateCompleted || state.Result == nil {
		writeError(r.Context(), w, http.StatusBadRequest, "NO_COMPLETED_RESULT", "there is no completed result to export", false)
		return
	}

	artifact, err := deps.Exporter.Export(r.Context(), format, state.Result.Columns, state.Result.Rows)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error(), true)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifact": artifact})
}

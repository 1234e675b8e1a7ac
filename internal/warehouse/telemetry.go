package warehouse

import "log/slog"

// LogJobDetails records the cost and performance telemetry of one
// execution. None of this feeds back into session state.
func LogJobDetails(logger *slog.Logger, sqlText string, result Result) {
	if logger == nil {
		return
	}
	logger.Info("warehouse_job",
		slog.String("job_id", result.JobID),
		slog.String("sql", sqlText),
		slog.Int("rows", result.RowCount),
		slog.Any("columns", result.Columns),
		slog.Int64("bytes_scanned", result.BytesScanned),
		slog.Int64("bytes_billed", result.BytesBilled),
		slog.Bool("cache_hit", result.CacheHit),
		slog.String("elapsed", result.Elapsed.String()),
	)
}

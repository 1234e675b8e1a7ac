package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chainquery/chainquery/internal/storage"
)

// Format selects the on-disk encoding of an exported result.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// Artifact describes one written export file.
type Artifact struct {
	Path      string `json:"path"`
	Filename  string `json:"filename"`
	Format    Format `json:"format"`
	Size      int64  `json:"size"`
	Uploaded  bool   `json:"uploaded"`
	ObjectKey string `json:"object_key,omitempty"`
}

type Options struct {
	Dir    string
	Store  storage.ObjectStore
	Logger *slog.Logger
	Now    func() time.Time
}

// Exporter writes completed results to timestamped files under a local
// directory and, when an object store is configured, mirrors them there.
type Exporter struct {
	dir    string
	store  storage.ObjectStore
	logger *slog.Logger
	now    func() time.Time
}

func New(opts Options) (*Exporter, error) {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		return nil, fmt.Errorf("export directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Exporter{dir: dir, store: opts.Store, logger: logger, now: now}, nil
}

// Export writes columns and rows in the requested format. Filenames carry
// the wall-clock second so successive exports never collide.
func (e *Exporter) Export(ctx context.Context, format Format, columns []string, rows [][]any) (Artifact, error) {
	if len(columns) == 0 {
		return Artifact{}, fmt.Errorf("nothing to export: result has no columns")
	}

	filename := fmt.Sprintf("results_%s.%s", e.now().UTC().Format("20060102_150405"), format)
	path := filepath.Join(e.dir, filename)

	var err error
	switch format {
	case FormatCSV:
		err = writeCSV(path, columns, rows)
	case FormatParquet:
		err = writeParquet(path, columns, rows)
	default:
		return Artifact{}, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return Artifact{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat export file: %w", err)
	}
	artifact := Artifact{
		Path:     path,
		Filename: filename,
		Format:   format,
		Size:     info.Size(),
	}

	if e.store != nil {
		if err := e.upload(ctx, &artifact); err != nil {
			return artifact, err
		}
	}

	e.logger.Info("result_exported",
		slog.String("file", filename),
		slog.String("format", string(format)),
		slog.Int64("bytes", artifact.Size),
		slog.Bool("uploaded", artifact.Uploaded),
	)
	return artifact, nil
}

func (e *Exporter) upload(ctx context.Context, artifact *Artifact) error {
	file, err := os.Open(artifact.Path)
	if err != nil {
		return fmt.Errorf("open export for upload: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := e.store.Put(ctx, artifact.Filename, file, artifact.Size, contentType(artifact.Format))
	if err != nil {
		return fmt.Errorf("upload export %q: %w", artifact.Filename, err)
	}
	artifact.Uploaded = true
	artifact.ObjectKey = info.Key
	return nil
}

func contentType(format Format) string {
	if format == FormatParquet {
		return "application/vnd.apache.parquet"
	}
	return "text/csv"
}

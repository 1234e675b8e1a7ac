package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/chainquery/chainquery/internal/warehouse"
)

type Config struct {
	// Path to the dataset database file, e.g. a local extract of the
	// Ethereum mainnet public tables.
	Path string
}

type Executor struct {
	db *sql.DB
}

// Open attaches the dataset file read-only so a generated query can never
// mutate it, whatever the read-only guard misses.
func Open(ctx context.Context, cfg Config) (*Executor, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("warehouse database path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("warehouse database %q: %w", path, err)
	}

	db, err := sql.Open("duckdb", path+"?access_mode=read_only")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	return &Executor{db: db}, nil
}

func NewWithDB(db *sql.DB) *Executor {
	return &Executor{db: db}
}

func (e *Executor) Execute(ctx context.Context, request warehouse.Request) (warehouse.Result, error) {
	return warehouse.Query(ctx, e.db, request)
}

func (e *Executor) HealthCheck(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

func (e *Executor) Close() error {
	return e.db.Close()
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chainquery/chainquery/internal/api"
	"github.com/chainquery/chainquery/internal/auth"
	"github.com/chainquery/chainquery/internal/config"
	"github.com/chainquery/chainquery/internal/export"
	"github.com/chainquery/chainquery/internal/fewshot"
	"github.com/chainquery/chainquery/internal/nl2sql"
	"github.com/chainquery/chainquery/internal/observability"
	"github.com/chainquery/chainquery/internal/schemactx"
	"github.com/chainquery/chainquery/internal/session"
	"github.com/chainquery/chainquery/internal/storage"
	s3store "github.com/chainquery/chainquery/internal/storage/s3"
	"github.com/chainquery/chainquery/internal/warehouse"
	duckdbwarehouse "github.com/chainquery/chainquery/internal/warehouse/duckdb"
	postgreswarehouse "github.com/chainquery/chainquery/internal/warehouse/postgres"
)

func main() {
	// A missing .env file is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("chainquery-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	schema, err := schemactx.LoadFile(cfg.Prompt.SchemaFile)
	if err != nil {
		logger.Error("failed to load warehouse schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("warehouse schema loaded",
		slog.String("file", cfg.Prompt.SchemaFile),
		slog.Int("tables", schema.Tables),
	)

	examples, err := fewshot.NewFileStore(cfg.Prompt.ExamplesFile)
	if err != nil {
		logger.Error("failed to open example store", slog.Any("error", err))
		os.Exit(1)
	}

	executor, closeExecutor, err := openWarehouse(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeExecutor()

	var generator nl2sql.Generator
	var summarizer nl2sql.Summarizer
	if cfg.AI.APIKey != "" {
		clients := nl2sql.NewClientCache(cfg.AI.BaseURL, cfg.AI.Temperature, cfg.AI.Timeout, cfg.AI.ClientCacheTTL)
		defer clients.Stop()

		generationClient, err := clients.Get(cfg.AI.Model, cfg.AI.APIKey)
		if err != nil {
			logger.Error("failed to initialize generation client", slog.Any("error", err))
			os.Exit(1)
		}
		generator = generationClient

		summaryClient, err := clients.Get(cfg.AI.SummaryModel, cfg.AI.APIKey)
		if err != nil {
			logger.Error("failed to initialize summary client", slog.Any("error", err))
			os.Exit(1)
		}
		summarizer = summaryClient
	} else {
		logger.Warn("no AI api key configured, query generation is disabled")
	}

	var objectStore storage.ObjectStore
	if cfg.Export.Upload {
		objectStore, err = s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
	}

	exporter, err := export.New(export.Options{
		Dir:    cfg.Export.Dir,
		Store:  objectStore,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to initialize exporter", slog.Any("error", err))
		os.Exit(1)
	}

	controller := session.NewController(session.Options{
		Logger:      logger,
		Schema:      schema.Text,
		Generator:   generator,
		Summarizer:  summarizer,
		Executor:    warehouse.WithTimeout(executor, cfg.Warehouse.QueryTimeout),
		Examples:    examples,
		MaxExamples: cfg.Prompt.MaxExamples,
		RowLimit:    cfg.Warehouse.MaxResultRows,
	})

	deps := api.Dependencies{
		Logger:            logger,
		Controller:        controller,
		Examples:          examples,
		Exporter:          exporter,
		Readiness:         api.CheckWarehouseConfig(cfg),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func openWarehouse(ctx context.Context, cfg config.Config) (warehouse.Executor, func(), error) {
	switch cfg.Warehouse.Driver {
	case "postgres":
		executor, err := postgreswarehouse.Open(ctx, postgreswarehouse.Config{
			DSN:             cfg.Warehouse.DSN,
			MaxOpenConns:    cfg.Warehouse.MaxOpenConns,
			MaxIdleConns:    cfg.Warehouse.MaxIdleConns,
			ConnMaxIdleTime: cfg.Warehouse.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Warehouse.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return executor, func() { _ = executor.Close() }, nil
	default:
		executor, err := duckdbwarehouse.Open(ctx, duckdbwarehouse.Config{
			Path: cfg.Warehouse.DatabasePath,
		})
		if err != nil {
			return nil, nil, err
		}
		return executor, func() { _ = executor.Close() }, nil
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/sheetsearch/internal/config"
	"github.com/JonMunkholm/sheetsearch/internal/core"
	"github.com/JonMunkholm/sheetsearch/internal/history"
	"github.com/JonMunkholm/sheetsearch/internal/logging"
	"github.com/JonMunkholm/sheetsearch/internal/storage"
	"github.com/JonMunkholm/sheetsearch/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"upload_max_size", cfg.Upload.MaxFileSize,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"export_backend", cfg.Export.Backend,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	if err := cfg.EnsureDirs(); err != nil {
		slog.Error("failed to create data directories", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	recorder, err := openHistory(ctx, cfg)
	if err != nil {
		slog.Error("failed to open load history", "error", err)
		os.Exit(1)
	}
	defer recorder.Close()

	exports, err := storage.New(ctx, storage.Config{
		Backend:   cfg.Export.Backend,
		Dir:       cfg.Export.Dir,
		Bucket:    cfg.Export.Bucket,
		Prefix:    cfg.Export.Prefix,
		Region:    cfg.Export.Region,
		Endpoint:  cfg.Export.Endpoint,
		AccessKey: cfg.Export.AccessKey,
		SecretKey: cfg.Export.SecretKey,
		UseSSL:    cfg.Export.UseSSL,
	})
	if err != nil {
		slog.Error("failed to open export storage", "backend", cfg.Export.Backend, "error", err)
		os.Exit(1)
	}

	service := core.NewService(core.ServiceOptions{
		Ingest: core.IngestOptions{
			MaxFileSize:        cfg.Upload.MaxFileSize,
			MaxCells:           cfg.Upload.MaxCells,
			RawCellValues:      cfg.Upload.RawCellValues,
			KeepMissingMarkers: cfg.Upload.KeepMissingMarkers,
		},
		SearchWorkers:   cfg.Search.Workers,
		SearchChunkRows: cfg.Search.ChunkRows,
		Pages: core.PageLimits{
			Default: cfg.Pagination.DefaultPerPage,
			Max:     cfg.Pagination.MaxPerPage,
		},
		MaxConcurrentUploads: cfg.Upload.MaxConcurrent,
		MaxUploadWait:        cfg.Upload.MaxWaitTime,
		UploadsDir:           cfg.Upload.Dir,
		KeepUploads:          cfg.Upload.KeepFiles,
		DatasetFiles:         cfg.Dataset.Files,
		DatasetDirs:          cfg.Dataset.Dirs,
		Exports:              exports,
		History:              recorder,
	})

	if info, ok := service.LoadDefaults(ctx); ok {
		slog.Info("default dataset ready", "filename", info.Filename, "rows", info.Rows)
	}

	server := web.NewServer(service, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartExportJanitor(jobCtx, core.JanitorConfig{
		ExportRetention:  cfg.Export.Retention,
		HistoryRetention: cfg.History.Retention,
		Interval:         cfg.Export.JanitorInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if st := service.Status().Ingest; st.Active > 0 {
			slog.Info("waiting for uploads to finish parsing", "active", st.Active)
			if err := service.WaitForIngest(shutdownCtx); err != nil {
				slog.Warn("uploads did not finish in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openHistory returns the Postgres recorder when a database URL is set and
// the in-memory recorder otherwise.
func openHistory(ctx context.Context, cfg *config.Config) (history.Recorder, error) {
	if cfg.Database.URL == "" {
		slog.Info("load history kept in memory", "capacity", cfg.History.Capacity)
		return history.NewMemory(cfg.History.Capacity), nil
	}

	pool, err := history.Connect(ctx, cfg.Database.URL, history.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return nil, err
	}
	rec, err := history.NewPostgres(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("load history in database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("load history in database")
	}
	return rec, nil
}

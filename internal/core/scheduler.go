package core

// scheduler.go runs background maintenance for the export area.
//
// Each cycle:
//  1. Deletes exports older than the export retention
//  2. Prunes load history older than the history retention
//
// Only names carrying ExportPrefix are considered, so an EXPORT_DIR pointed
// at the upload directory never loses uploads or default datasets. Failures
// are logged and retried on the next cycle.

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// JanitorConfig holds configuration for the export janitor.
type JanitorConfig struct {
	ExportRetention  time.Duration // Age after which exports are deleted (default: 24h)
	HistoryRetention time.Duration // Age after which history is pruned (0 disables)
	Interval         time.Duration // How often to run (default: 1h)
}

// StartExportJanitor purges expired exports and history. It runs
// immediately, then every Interval, until ctx is cancelled.
func (s *Service) StartExportJanitor(ctx context.Context, cfg JanitorConfig) {
	if cfg.ExportRetention <= 0 {
		cfg.ExportRetention = 24 * time.Hour
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}

	slog.Info("export janitor started",
		"export_retention", cfg.ExportRetention,
		"history_retention", cfg.HistoryRetention,
		"interval", cfg.Interval,
	)

	s.runJanitor(ctx, cfg, time.Now())

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("export janitor stopped")
			return
		case now := <-ticker.C:
			s.runJanitor(ctx, cfg, now)
		}
	}
}

// runJanitor performs one purge cycle as of now.
func (s *Service) runJanitor(ctx context.Context, cfg JanitorConfig, now time.Time) {
	start := time.Now()

	purged, err := s.purgeExports(ctx, now.Add(-cfg.ExportRetention))
	if err != nil {
		slog.Error("export purge failed", "error", err)
	} else if purged > 0 {
		slog.Info("purged expired exports", "exports_purged", purged)
	}

	if s.history != nil && cfg.HistoryRetention > 0 {
		pruned, err := s.history.Prune(ctx, now.Add(-cfg.HistoryRetention))
		if err != nil {
			slog.Error("history prune failed", "error", err)
		} else if pruned > 0 {
			slog.Info("pruned load history", "entries_pruned", pruned)
		}
	}

	slog.Debug("janitor cycle completed", "duration_ms", time.Since(start).Milliseconds())
}

// purgeExports deletes exports last modified before cutoff.
func (s *Service) purgeExports(ctx context.Context, cutoff time.Time) (int, error) {
	if s.exports == nil {
		return 0, nil
	}
	objects, err := s.exports.List(ctx)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Name, ExportPrefix) || !obj.ModTime.Before(cutoff) {
			continue
		}
		if err := s.exports.Delete(ctx, obj.Name); err != nil {
			slog.Warn("delete export failed", "name", obj.Name, "error", err)
			continue
		}
		purged++
	}
	return purged, nil
}

package core

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/sheetsearch/internal/history"
)

// recordLoad writes a history entry for snap. Failures are logged and never
// undo the load.
func (s *Service) recordLoad(ctx context.Context, snap *Snapshot) {
	if s.history == nil {
		return
	}
	client := ClientFromContext(ctx)
	err := s.history.Record(ctx, history.Event{
		ID:        snap.ID,
		Filename:  snap.Filename,
		Source:    snap.Source,
		Rows:      snap.Table.Len(),
		Columns:   len(snap.Table.Columns),
		ClientIP:  client.IP,
		UserAgent: client.UserAgent,
		LoadedAt:  snap.LoadedAt,
	})
	if err != nil {
		slog.Warn("record load history failed", "filename", snap.Filename, "error", err)
	}
}

// History returns recent loads, newest first. source filters by
// SourceUpload or SourceDefault when not empty.
func (s *Service) History(ctx context.Context, limit int, source string) ([]history.Event, error) {
	if s.history == nil {
		return []history.Event{}, nil
	}
	events, err := s.history.List(ctx, history.ListOptions{Limit: limit, Source: source})
	if err != nil {
		return nil, InternalFailure("history", "History error", err)
	}
	if events == nil {
		events = []history.Event{}
	}
	return events, nil
}

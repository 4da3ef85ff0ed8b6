package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/sheetsearch/internal/history"
	"github.com/JonMunkholm/sheetsearch/internal/logging"
	"github.com/JonMunkholm/sheetsearch/internal/storage"
)

// ServiceOptions configures a Service. Zero values fall back to package
// defaults.
type ServiceOptions struct {
	Ingest IngestOptions

	SearchWorkers   int
	SearchChunkRows int

	Pages PageLimits

	MaxConcurrentUploads int
	MaxUploadWait        time.Duration

	// UploadsDir receives a copy of each accepted upload when KeepUploads is set.
	UploadsDir  string
	KeepUploads bool

	// DatasetFiles are tried in order by LoadDefaults, each in every
	// DatasetDirs entry in order.
	DatasetFiles []string
	DatasetDirs  []string

	// Exports is where Export writes files. Nil disables persistence.
	Exports storage.Store
	// History records loads. Nil disables recording.
	History history.Recorder
}

// Service is the entry point for every table operation: loading,
// searching, paging and exporting. It is safe for concurrent use.
type Service struct {
	store    *Store
	ingestor *Ingestor
	datasets *Ingestor
	searcher *Searcher
	pages    PageLimits
	limiter  *IngestLimiter

	uploadsDir   string
	keepUploads  bool
	datasetFiles []string
	datasetDirs  []string

	exports storage.Store
	history history.Recorder
}

// NewService creates a Service with an empty store.
func NewService(opts ServiceOptions) *Service {
	pages := opts.Pages
	if pages.Default <= 0 && pages.Max <= 0 {
		pages = DefaultPageLimits
	}
	// Dataset files are operator-provided and not bound by the upload size cap.
	datasetOpts := opts.Ingest
	datasetOpts.MaxFileSize = 0

	return &Service{
		store:        NewStore(),
		ingestor:     NewIngestor(opts.Ingest),
		datasets:     NewIngestor(datasetOpts),
		searcher:     NewSearcher(opts.SearchWorkers, opts.SearchChunkRows),
		pages:        pages,
		limiter:      NewIngestLimiter(opts.MaxConcurrentUploads, opts.MaxUploadWait),
		uploadsDir:   opts.UploadsDir,
		keepUploads:  opts.KeepUploads,
		datasetFiles: opts.DatasetFiles,
		datasetDirs:  opts.DatasetDirs,
		exports:      opts.Exports,
		history:      opts.History,
	}
}

// Current returns the active snapshot, if any.
func (s *Service) Current() (*Snapshot, bool) {
	return s.store.Current()
}

// Upload parses r as the file name and, on success, makes it the active
// table. size is the declared length, or -1. On failure the previous table
// stays active.
func (s *Service) Upload(ctx context.Context, name string, r io.Reader, size int64) (FileInfo, error) {
	if strings.TrimSpace(name) == "" {
		return FileInfo{}, InvalidInput("upload", ErrNoFile)
	}
	format, err := FormatFromName(name)
	if err != nil {
		return FileInfo{}, InvalidInput("upload", ErrFileType)
	}
	if max := s.ingestor.opts.MaxFileSize; max > 0 && size > max {
		return FileInfo{}, fileTooLarge("upload")
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return FileInfo{}, err
	}
	data, table, err := s.readAndParse(r, format)
	s.limiter.Release()
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return FileInfo{}, fileTooLarge("upload")
		}
		logging.WithFields(ctx, "filename", name).Warn("upload rejected", "error", err)
		return FileInfo{}, IngestionFailure("upload", err)
	}

	filename := SecureFilename(name)
	if !AllowedFile(filename) {
		filename = "upload." + string(format)
	}
	if s.keepUploads {
		s.saveUpload(filename, data)
	}

	snap := NewSnapshot(table, filename, SourceUpload)
	s.store.Load(snap)
	s.recordLoad(ctx, snap)

	logging.WithFields(ctx, "filename", filename, "source", SourceUpload).Info("table loaded",
		"rows", table.Len(),
		"columns", len(table.Columns),
	)
	return snap.Info(), nil
}

func (s *Service) readAndParse(r io.Reader, format Format) ([]byte, *Table, error) {
	data, err := ReadLimited(r, s.ingestor.opts.MaxFileSize)
	if err != nil {
		return nil, nil, err
	}
	table, err := s.ingestor.ParseBytes(data, format)
	if err != nil {
		return nil, nil, err
	}
	return data, table, nil
}

// saveUpload keeps a copy of an accepted upload. A failed write is logged;
// the table is already parsed and stays usable.
func (s *Service) saveUpload(filename string, data []byte) {
	dir := s.uploadsDir
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("create uploads dir failed", "dir", dir, "error", err)
		return
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Warn("save upload failed", "path", path, "error", err)
	}
}

func fileTooLarge(op string) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Message: "File too large", Err: ErrFileTooLarge}
}

// LoadDefaults loads the first readable dataset file. Each name in
// DatasetFiles is tried in every DatasetDirs entry before moving on to the
// next name. Unreadable files are logged and skipped. It reports whether a
// table was loaded.
func (s *Service) LoadDefaults(ctx context.Context) (FileInfo, bool) {
	for _, name := range s.datasetFiles {
		for _, dir := range s.datasetDirs {
			if ctx.Err() != nil {
				return FileInfo{}, false
			}
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}

			table, err := s.datasets.ParseFile(path)
			if err != nil {
				slog.Warn("default dataset unreadable", "path", path, "error", err)
				continue
			}

			snap := NewSnapshot(table, filepath.Base(name), SourceDefault)
			s.store.Load(snap)
			s.recordLoad(ctx, snap)
			slog.Info("default dataset loaded",
				"path", path,
				"rows", table.Len(),
				"columns", len(table.Columns),
			)
			return snap.Info(), true
		}
	}
	slog.Warn("no default dataset found", "files", s.datasetFiles, "dirs", s.datasetDirs)
	return FileInfo{}, false
}

// Search filters the active table.
func (s *Service) Search(ctx context.Context, query, column string) (*SearchResult, error) {
	snap, ok := s.store.Current()
	if !ok {
		return nil, InvalidInput("search", ErrNoData)
	}
	res, err := s.searcher.Search(ctx, snap.Table, query, column)
	if err != nil {
		if KindOf(err) == KindInvalidInput {
			return nil, err
		}
		return nil, InternalFailure("search", "Search error", err)
	}
	return res, nil
}

// PageResult is one page of the active table or of a search over it.
type PageResult struct {
	Records  []Record
	Page     Page
	Columns  []string
	Filename string
	Query    string
	Column   string
}

// Page returns one page of rows. When query is blank the whole table is
// paged; otherwise the search matches are.
func (s *Service) Page(ctx context.Context, page, perPage int, query, column string) (*PageResult, error) {
	snap, ok := s.store.Current()
	if !ok {
		return nil, InvalidInput("get data", ErrNoData)
	}
	t := snap.Table
	cols := t.Columns
	if cols == nil {
		cols = []string{}
	}

	if strings.TrimSpace(query) == "" {
		p := s.pages.Paginate(t.Len(), page, perPage)
		return &PageResult{
			Records:  t.RowRecords(PageRows(t.Rows, p)),
			Page:     p,
			Columns:  cols,
			Filename: snap.Filename,
		}, nil
	}

	res, err := s.searcher.Search(ctx, t, query, column)
	if err != nil {
		if KindOf(err) == KindInvalidInput {
			return nil, err
		}
		return nil, InternalFailure("get data", "Search error", err)
	}
	p := s.pages.Paginate(res.Len(), page, perPage)
	return &PageResult{
		Records:  t.RowRecords(PageRows(res.Rows, p)),
		Page:     p,
		Columns:  cols,
		Filename: snap.Filename,
		Query:    res.Query,
		Column:   res.Column,
	}, nil
}

// ExportFile is an encoded export ready to send.
type ExportFile struct {
	Name        string
	ContentType string
	Rows        int
	Data        []byte
}

// Export encodes rows and writes them to the export store. The file is
// named after filename, or after the active table when filename is blank.
// A table must be loaded even though its rows are not read.
func (s *Service) Export(ctx context.Context, rows ExportRows, filename string) (*ExportFile, error) {
	snap, ok := s.store.Current()
	if !ok {
		return nil, InvalidInput("export", ErrNoData)
	}
	if rows.Len() == 0 {
		return nil, InvalidInput("export", ErrNoResults)
	}

	source := strings.TrimSpace(filename)
	if source == "" {
		source = snap.Filename
	}
	name := ExportFilename(source)

	data, err := EncodeExport(rows, ExportFormat(name))
	if err != nil {
		if KindOf(err) == KindInvalidInput {
			return nil, err
		}
		return nil, InternalFailure("export", "Export error", err)
	}

	if s.exports != nil {
		if err := s.exports.Put(ctx, name, bytes.NewReader(data), int64(len(data))); err != nil {
			return nil, InternalFailure("export", "Export error", err)
		}
	}

	logging.WithFields(ctx, "name", name).Info("export written", "rows", rows.Len(), "bytes", len(data))
	return &ExportFile{
		Name:        name,
		ContentType: storage.ContentType(name),
		Rows:        rows.Len(),
		Data:        data,
	}, nil
}

// OpenExport returns a previously written export. Only names produced by
// Export are served.
func (s *Service) OpenExport(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	if s.exports == nil || !strings.HasPrefix(name, ExportPrefix) || storage.ValidateName(name) != nil {
		return nil, storage.ObjectInfo{}, exportNotFound(name)
	}
	rc, info, err := s.exports.Open(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ObjectInfo{}, exportNotFound(name)
		}
		return nil, storage.ObjectInfo{}, InternalFailure("open export", "Export error", err)
	}
	return rc, info, nil
}

func exportNotFound(name string) *Error {
	return &Error{Kind: KindInvalidInput, Op: "open export", Message: "Export not found", Err: fmt.Errorf("%w: %s", storage.ErrNotFound, name)}
}

// ServiceStatus reports the active table and ingestion slots.
type ServiceStatus struct {
	Loaded   bool          `json:"loaded"`
	Filename string        `json:"filename,omitempty"`
	Source   string        `json:"source,omitempty"`
	Rows     int           `json:"rows"`
	Columns  int           `json:"columns"`
	LoadedAt *time.Time    `json:"loaded_at,omitempty"`
	Ingest   LimiterStatus `json:"ingest"`
}

// Status returns the current service state.
func (s *Service) Status() ServiceStatus {
	st := ServiceStatus{Ingest: s.limiter.Status()}
	if snap, ok := s.store.Current(); ok {
		loadedAt := snap.LoadedAt
		st.Loaded = true
		st.Filename = snap.Filename
		st.Source = snap.Source
		st.Rows = snap.Table.Len()
		st.Columns = len(snap.Table.Columns)
		st.LoadedAt = &loadedAt
	}
	return st
}

// WaitForIngest blocks until no upload is being parsed or ctx is done.
func (s *Service) WaitForIngest(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

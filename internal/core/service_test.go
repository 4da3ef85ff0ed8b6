package core

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/sheetsearch/internal/history"
	"github.com/JonMunkholm/sheetsearch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testService struct {
	*Service
	uploads string
	exports *storage.Local
	history *history.Memory
}

func newTestService(t *testing.T, mutate ...func(*ServiceOptions)) *testService {
	t.Helper()
	uploads := t.TempDir()
	exports, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	rec := history.NewMemory(10)

	opts := ServiceOptions{
		UploadsDir:  uploads,
		KeepUploads: true,
		Exports:     exports,
		History:     rec,
	}
	for _, m := range mutate {
		m(&opts)
	}
	return &testService{Service: NewService(opts), uploads: uploads, exports: exports, history: rec}
}

const cityCSV = "Name,City\nAsha,Anand\nBhavin,ANANDNAGAR\nChirag,Surat\n"

func TestService_Upload(t *testing.T) {
	s := newTestService(t)
	ctx := ContextWithClient(context.Background(), ClientInfo{IP: "10.1.2.3", UserAgent: "test"})

	info, err := s.Upload(ctx, "../my cities.csv", strings.NewReader(cityCSV), int64(len(cityCSV)))
	require.NoError(t, err)
	assert.Equal(t, FileInfo{Filename: "my_cities.csv", Rows: 3, Columns: 2, ColumnNames: []string{"Name", "City"}}, info)

	snap, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "my_cities.csv", snap.Filename)
	assert.Equal(t, SourceUpload, snap.Source)

	saved, err := os.ReadFile(filepath.Join(s.uploads, "my_cities.csv"))
	require.NoError(t, err)
	assert.Equal(t, cityCSV, string(saved))

	events, err := s.History(context.Background(), 0, "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, snap.ID, events[0].ID)
	assert.Equal(t, "10.1.2.3", events[0].ClientIP)
	assert.Equal(t, "test", events[0].UserAgent)
	assert.Equal(t, 3, events[0].Rows)
}

func TestService_UploadRejections(t *testing.T) {
	s := newTestService(t, func(o *ServiceOptions) { o.Ingest.MaxFileSize = 64 })
	ctx := context.Background()

	_, err := s.Upload(ctx, "", strings.NewReader(cityCSV), -1)
	assert.ErrorIs(t, err, ErrNoFile)
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = s.Upload(ctx, "notes.txt", strings.NewReader(cityCSV), -1)
	assert.ErrorIs(t, err, ErrFileType)
	assert.Equal(t, "Invalid file type", MessageOf(err))

	big := strings.Repeat("a,b\n", 100)
	_, err = s.Upload(ctx, "big.csv", strings.NewReader(big), int64(len(big)))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	// Undeclared size is caught while reading.
	_, err = s.Upload(ctx, "big.csv", strings.NewReader(big), -1)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = s.Upload(ctx, "bad.xlsx", strings.NewReader("not a workbook"), -1)
	require.Error(t, err)
	assert.Equal(t, KindIngestion, KindOf(err))
	assert.Equal(t, "Error reading file", MessageOf(err))

	_, ok := s.Current()
	assert.False(t, ok, "failed uploads must not load a table")
}

func TestService_FailedUploadKeepsPreviousTable(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Upload(ctx, "cities.csv", strings.NewReader(cityCSV), -1)
	require.NoError(t, err)
	before, _ := s.Current()

	_, err = s.Upload(ctx, "broken.csv", strings.NewReader("a,b\n1,2,3\n"), -1)
	require.Error(t, err)

	after, _ := s.Current()
	assert.Same(t, before, after)
}

func TestService_UploadNonASCIIName(t *testing.T) {
	s := newTestService(t, func(o *ServiceOptions) { o.KeepUploads = false })

	info, err := s.Upload(context.Background(), "中文.csv", strings.NewReader(cityCSV), -1)
	require.NoError(t, err)
	assert.Equal(t, "upload.csv", info.Filename)

	entries, err := os.ReadDir(s.uploads)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_MissingDataGuards(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Search(ctx, "anand", "City")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = s.Page(ctx, 1, 50, "", "")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = s.Export(ctx, ExportRows{Columns: []string{"a"}, Rows: [][]string{{"1"}}}, "x.csv")
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, "No file uploaded", MessageOf(err))
	assert.Equal(t, "DATA001", MapError(err).Code)
}

func TestService_Search(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	_, err := s.Upload(ctx, "cities.csv", strings.NewReader(cityCSV), -1)
	require.NoError(t, err)

	res, err := s.Search(ctx, "anand", "City")
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{"Name": "Asha", "City": "Anand"},
		{"Name": "Bhavin", "City": "ANANDNAGAR"},
	}, res.Records())

	_, err = s.Search(ctx, "anand", "Town")
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = s.Search(ctx, "", "City")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestService_Page(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	var b strings.Builder
	b.WriteString("n\n")
	for i := 0; i < 105; i++ {
		b.WriteString("r\n")
	}
	_, err := s.Upload(ctx, "rows.csv", strings.NewReader(b.String()), -1)
	require.NoError(t, err)

	res, err := s.Page(ctx, 3, 50, "", "")
	require.NoError(t, err)
	assert.Len(t, res.Records, 5)
	assert.Equal(t, 3, res.Page.TotalPages)
	assert.Equal(t, 105, res.Page.TotalRows)
	assert.Equal(t, "rows.csv", res.Filename)
	assert.Equal(t, []string{"n"}, res.Columns)

	res, err = s.Page(ctx, 4, 50, "", "")
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.NotNil(t, res.Records)

	res, err = s.Page(ctx, 1, 500, "", "")
	require.NoError(t, err)
	assert.Equal(t, 100, res.Page.PerPage)
	assert.Len(t, res.Records, 100)
}

func TestService_PageSearchResults(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	_, err := s.Upload(ctx, "cities.csv", strings.NewReader(cityCSV), -1)
	require.NoError(t, err)

	res, err := s.Page(ctx, 2, 1, "anand", "City")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Page.TotalRows)
	assert.Equal(t, []Record{{"Name": "Bhavin", "City": "ANANDNAGAR"}}, res.Records)
	assert.Equal(t, "anand", res.Query)
	assert.Equal(t, "City", res.Column)
}

func TestService_Export(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	_, err := s.Upload(ctx, "cities.csv", strings.NewReader(cityCSV), -1)
	require.NoError(t, err)

	var rows ExportRows
	require.NoError(t, json.Unmarshal([]byte(`[{"Name":"Asha","City":"Anand"}]`), &rows))

	file, err := s.Export(ctx, rows, "")
	require.NoError(t, err)
	assert.Equal(t, "search_results_cities.csv", file.Name)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.Equal(t, "Name,City\nAsha,Anand\n", string(file.Data))

	rc, info, err := s.OpenExport(ctx, file.Name)
	require.NoError(t, err)
	defer rc.Close()
	stored, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, file.Data, stored)
	assert.Equal(t, int64(len(file.Data)), info.Size)

	named, err := s.Export(ctx, rows, "report.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "search_results_report.xlsx", named.Name)

	back, err := NewIngestor(IngestOptions{}).ParseBytes(named.Data, FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Asha", "Anand"}}, back.Rows)
}

func TestService_ExportEmpty(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	_, err := s.Upload(ctx, "cities.csv", strings.NewReader(cityCSV), -1)
	require.NoError(t, err)

	_, err = s.Export(ctx, ExportRows{}, "")
	assert.ErrorIs(t, err, ErrNoResults)
	assert.Equal(t, "EXP001", MapError(err).Code)
}

func TestService_OpenExportOnlyServesExports(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.exports.Put(ctx, "cities.csv", strings.NewReader(cityCSV), -1))

	for _, name := range []string{"cities.csv", "search_results_missing.csv", "search_results_../x.csv", ""} {
		_, _, err := s.OpenExport(ctx, name)
		assert.ErrorIs(t, err, storage.ErrNotFound, name)
		assert.Equal(t, "EXP002", MapError(err).Code, name)
	}
}

func TestService_LoadDefaults(t *testing.T) {
	root := t.TempDir()
	uploads := filepath.Join(root, "uploads")
	require.NoError(t, os.MkdirAll(uploads, 0o755))

	// The full dataset is only in uploads; the sample is in the root.
	require.NoError(t, os.WriteFile(filepath.Join(uploads, "full.csv"), []byte("a\n1\n2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sample.csv"), []byte("a\n1\n"), 0o644))

	s := newTestService(t, func(o *ServiceOptions) {
		o.DatasetFiles = []string{"full.csv", "sample.csv"}
		o.DatasetDirs = []string{root, uploads}
		o.Ingest.MaxFileSize = 1
	})

	info, ok := s.LoadDefaults(context.Background())
	require.True(t, ok)
	assert.Equal(t, "full.csv", info.Filename)
	assert.Equal(t, 2, info.Rows)

	snap, _ := s.Current()
	assert.Equal(t, SourceDefault, snap.Source)

	events, err := s.History(context.Background(), 0, SourceDefault)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestService_LoadDefaultsSkipsUnreadable(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "full.xlsx"), []byte("corrupt"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sample.csv"), []byte("a\n1\n"), 0o644))

	s := newTestService(t, func(o *ServiceOptions) {
		o.DatasetFiles = []string{"full.xlsx", "sample.csv"}
		o.DatasetDirs = []string{root}
	})

	info, ok := s.LoadDefaults(context.Background())
	require.True(t, ok)
	assert.Equal(t, "sample.csv", info.Filename)
}

func TestService_LoadDefaultsNone(t *testing.T) {
	s := newTestService(t, func(o *ServiceOptions) {
		o.DatasetFiles = []string{"missing.xlsx"}
		o.DatasetDirs = []string{t.TempDir()}
	})

	_, ok := s.LoadDefaults(context.Background())
	assert.False(t, ok)
	assert.False(t, s.Status().Loaded)
}

func TestService_Status(t *testing.T) {
	s := newTestService(t, func(o *ServiceOptions) { o.MaxConcurrentUploads = 3 })

	st := s.Status()
	assert.False(t, st.Loaded)
	assert.Nil(t, st.LoadedAt)
	assert.Equal(t, LimiterStatus{Active: 0, Available: 3, MaxConcurrent: 3}, st.Ingest)

	_, err := s.Upload(context.Background(), "cities.csv", strings.NewReader(cityCSV), -1)
	require.NoError(t, err)

	st = s.Status()
	assert.True(t, st.Loaded)
	assert.Equal(t, "cities.csv", st.Filename)
	assert.Equal(t, 3, st.Rows)
	assert.Equal(t, 2, st.Columns)
	require.NotNil(t, st.LoadedAt)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.WaitForIngest(ctx))
}

func TestService_UploadBusy(t *testing.T) {
	s := newTestService(t, func(o *ServiceOptions) {
		o.MaxConcurrentUploads = 1
		o.MaxUploadWait = 20 * time.Millisecond
	})
	require.NoError(t, s.limiter.Acquire(context.Background()))
	defer s.limiter.Release()

	_, err := s.Upload(context.Background(), "cities.csv", strings.NewReader(cityCSV), -1)
	assert.ErrorIs(t, err, ErrTooManyUploads)
	assert.Equal(t, "UPL002", MapError(err).Code)
}

func TestService_UploadLogsRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	s := newTestService(t)
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	_, err := s.Upload(ctx, "cities.csv", strings.NewReader(cityCSV), -1)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry), buf.String())
	assert.Equal(t, "table loaded", entry["msg"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "cities.csv", entry["filename"])
	assert.EqualValues(t, 3, entry["rows"])
}

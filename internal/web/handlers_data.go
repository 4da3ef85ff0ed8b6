package web

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/sheetsearch/internal/core"
	"github.com/JonMunkholm/sheetsearch/internal/history"
	"github.com/JonMunkholm/sheetsearch/internal/web/templates"
)

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query  string `json:"query"`
	Column string `json:"column"`
}

// SearchResponse lists every matching row.
type SearchResponse struct {
	Success      bool          `json:"success"`
	Results      []core.Record `json:"results"`
	TotalResults int           `json:"total_results"`
	Query        string        `json:"query"`
	Column       string        `json:"column"`
}

// PageResponse is one page of the table or of a search over it.
type PageResponse struct {
	Data       []core.Record `json:"data"`
	TotalRows  int           `json:"total_rows"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
	Columns    []string      `json:"columns"`
	Filename   string        `json:"filename"`
	Query      string        `json:"query,omitempty"`
	Column     string        `json:"column,omitempty"`
}

// handleIndex renders the single page UI with the active file, if any.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := templates.IndexData{
		MaxUploadSize: s.cfg.Upload.MaxFileSize,
		PerPage:       s.cfg.Pagination.DefaultPerPage,
	}
	if snap, ok := s.service.Current(); ok {
		info := snap.Info()
		data.File = &templates.FileInfo{
			Filename:    info.Filename,
			Rows:        info.Rows,
			Columns:     info.Columns,
			ColumnNames: info.ColumnNames,
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Index(data).Render(r.Context(), w); err != nil {
		s.respondError(w, r, core.InternalFailure("index", "Render error", err))
	}
}

// handleHealth reports liveness. It does not require a loaded table.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSearch returns every row of the active table matching the query.
// A blank column searches all columns.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := s.decodeJSON(w, r, "search", &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	// Header names may carry spaces, so the column is matched as sent.
	column := req.Column
	if column == "" {
		column = core.ColumnAll
	}

	res, err := s.service.Search(r.Context(), req.Query, column)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, SearchResponse{
		Success:      true,
		Results:      res.Records(),
		TotalResults: res.Len(),
		Query:        res.Query,
		Column:       res.Column,
	})
}

// handleGetData returns one page of the active table. With a query
// parameter the page is taken from the search matches instead.
func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parseIntParam(r, "page", 1)
	perPage := parseIntParam(r, "per_page", 0)

	res, err := s.service.Page(r.Context(), page, perPage, q.Get("query"), q.Get("column"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, PageResponse{
		Data:       res.Records,
		TotalRows:  res.Page.TotalRows,
		Page:       res.Page.Page,
		PerPage:    res.Page.PerPage,
		TotalPages: res.Page.TotalPages,
		Columns:    res.Columns,
		Filename:   res.Filename,
		Query:      res.Query,
		Column:     res.Column,
	})
}

// handleStatus reports the active table and ingestion slot usage.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.Status())
}

// handleHistory lists recent table loads, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", history.DefaultLimit)
	source := strings.TrimSpace(r.URL.Query().Get("source"))

	events, err := s.service.History(r.Context(), limit, source)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

package web

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sheetsearch/internal/core"
	"github.com/JonMunkholm/sheetsearch/internal/logging"
	"github.com/JonMunkholm/sheetsearch/internal/storage"
)

// ExportRequest is the body of POST /export. Results are the records to
// write, usually the rows returned by /search.
type ExportRequest struct {
	Results  core.ExportRows `json:"results"`
	Filename string          `json:"filename"`
}

// handleExport writes the posted records to a spreadsheet and sends it
// back as a download. The file is also kept in the export store.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := s.decodeJSON(w, r, "export", &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	file, err := s.service.Export(r.Context(), req.Results, req.Filename)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	setAttachment(w, file.Name, file.ContentType, int64(len(file.Data)))
	w.Header().Set("X-Export-Rows", strconv.Itoa(file.Rows))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "name", file.Name, "error", err)
	}
}

// handleOpenExport downloads an export written earlier.
func (s *Server) handleOpenExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	rc, info, err := s.service.OpenExport(r.Context(), name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer rc.Close()

	setAttachment(w, info.Name, storage.ContentType(info.Name), info.Size)
	if !info.ModTime.IsZero() {
		w.Header().Set("Last-Modified", info.ModTime.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		logging.FromContext(r.Context()).Warn("export download failed", "name", name, "error", err)
	}
}

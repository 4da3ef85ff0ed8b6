package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/sheetsearch/internal/core"
)

// multipartMemory is how much of a multipart form is held in memory before
// parts spill to temporary files.
const multipartMemory = 32 << 20

// UploadResponse is the body of a successful upload.
type UploadResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    core.FileInfo `json:"data"`
}

// handleUpload replaces the active table with the uploaded file. On any
// failure the previous table stays active.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if maxSize := s.cfg.Upload.MaxFileSize; maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartSlack)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, r, err)
			return
		}
		s.respondError(w, r, core.InvalidInput("upload", core.ErrNoFile))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.InvalidInput("upload", core.ErrNoFile))
		return
	}
	defer file.Close()

	r = withClient(r)
	info, err := s.service.Upload(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, UploadResponse{
		Success: true,
		Message: "File uploaded successfully",
		Data:    info,
	})
}

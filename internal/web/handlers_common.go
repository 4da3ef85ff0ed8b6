package web

// handlers_common.go contains helpers shared by the handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/sheetsearch/internal/core"
)

// minJSONBody is the smallest body limit for JSON requests. Export bodies
// carry whole result sets, so the limit otherwise scales with the upload
// limit.
const minJSONBody = 8 << 20

// parseIntParam parses an integer query parameter with a default value.
// Missing, malformed and non-positive values all give the default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// untouched.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	limit := int64(minJSONBody)
	if n := 4 * s.cfg.Upload.MaxFileSize; n > limit {
		limit = n
	}
	body := http.MaxBytesReader(w, r.Body, limit)

	err := json.NewDecoder(body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return err
	}
	return core.InvalidInput(op, fmt.Errorf("invalid request body: %w", err))
}

// setAttachment marks the response as a download named name.
func setAttachment(w http.ResponseWriter, name, contentType string, size int64) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
}

package web

// errors.go turns service errors into HTTP responses.
//
// Every error is logged with its full chain and the request id. The client
// gets a short message, a support code from core.MapError and, when known,
// a suggested action. Browser page loads get an HTML page; everything else
// gets JSON.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/sheetsearch/internal/core"
	"github.com/JonMunkholm/sheetsearch/internal/logging"
	"github.com/JonMunkholm/sheetsearch/internal/storage"
	"github.com/JonMunkholm/sheetsearch/internal/web/templates"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyUploads), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	}
	switch core.KindOf(err) {
	case core.KindInvalidInput, core.KindIngestion:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage is the text shown for err. Internal failures show only
// their category label unless exposeErrors is set.
func clientMessage(err error, exposeErrors bool) string {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return "File too large"
	}
	switch core.KindOf(err) {
	case core.KindInvalidInput:
		return core.MessageOf(err)
	case core.KindIngestion:
		return err.Error()
	}
	if exposeErrors {
		return err.Error()
	}
	var e *core.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return core.MapError(err).Message
}

// respondError logs err and writes the matching error response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		userMsg = core.MapError(core.ErrFileTooLarge)
	}

	logger := logging.FromContext(r.Context())
	log := logger.Warn
	if status >= http.StatusInternalServerError {
		log = logger.Error
	}
	log("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	s.respondStatus(w, r, status, clientMessage(err, s.cfg.Security.ExposeErrors), userMsg.Action, userMsg.Code)
}

// respondStatus writes an error body in the format the client expects.
func (s *Server) respondStatus(w http.ResponseWriter, r *http.Request, status int, message, action, code string) {
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		templates.ErrorPage(status, message, action, code).Render(r.Context(), w)
		return
	}
	writeJSON(w, r, status, ErrorResponse{Error: message, Action: action, Code: code})
}

// wantsHTML reports whether the request is a browser page load rather
// than a script call.
func wantsHTML(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/get_data" {
		return false
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

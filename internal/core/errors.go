package core

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for the transport boundary.
type Kind int

const (
	// KindInternal is any fault not otherwise classified.
	KindInternal Kind = iota
	// KindInvalidInput is a rejected request; no state changed.
	KindInvalidInput
	// KindIngestion is a file that could not be turned into a table.
	KindIngestion
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindIngestion:
		return "ingestion_failure"
	default:
		return "internal_failure"
	}
}

// Error is the error type returned by Service operations.
// Message is safe to show to a user; Err carries the technical cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "" && !strings.EqualFold(e.Message, e.Err.Error()):
		return e.Message + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Sentinel errors for invalid input. Their text is the user-facing message.
var (
	ErrNoData       = errors.New("No file uploaded")
	ErrNoFile       = errors.New("No file selected")
	ErrFileType     = errors.New("Invalid file type")
	ErrEmptyQuery   = errors.New("Search query cannot be empty")
	ErrNoResults    = errors.New("No results to export")
	ErrTableTooBig  = errors.New("table too large")
	ErrFileTooLarge = errors.New("file too large")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// InvalidInput builds a KindInvalidInput error. The cause's text becomes
// the message when message is empty.
func InvalidInput(op string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Message: err.Error(), Err: err}
}

// InvalidInputf builds a KindInvalidInput error from a format string.
func InvalidInputf(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Message: fmt.Sprintf(format, args...)}
}

// IngestionFailure wraps a parse failure. Message matches what callers see
// for unreadable uploads.
func IngestionFailure(op string, err error) *Error {
	return &Error{Kind: KindIngestion, Op: op, Message: "Error reading file", Err: err}
}

// InternalFailure wraps an unexpected fault under a short category label,
// e.g. "Search error".
func InternalFailure(op, label string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Message: label, Err: err}
}

// KindOf returns the Kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message carried by err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

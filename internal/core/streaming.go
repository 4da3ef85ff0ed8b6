package core

// streaming.go holds the reader wrappers applied to uploaded bytes before
// they reach a codec:
//
//   - NewTextReader: strips a UTF-8/UTF-16 BOM and replaces invalid UTF-8
//     with U+FFFD, so CSV cells are always valid text
//   - CountingReader: tracks bytes read and fails once a size cap is passed
//
// Use ReadLimited to buffer an upload under the size cap.

import (
	"bytes"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewTextReader decodes r as UTF-8 text. A leading BOM selects UTF-8 or
// UTF-16 and is dropped; without one the input is read as UTF-8 and any
// invalid byte sequence is replaced with the replacement character.
func NewTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// CountingReader wraps an io.Reader to track bytes read. When Limit is
// positive, reading past it returns ErrFileTooLarge.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Limit     int64
}

// NewCountingReader creates a counting reader with an optional byte limit.
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, ErrFileTooLarge
	}
	return n, err
}

// ReadLimited reads all of r into memory, failing with ErrFileTooLarge if
// it holds more than limit bytes. A limit of zero or less means no cap.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(NewCountingReader(r, limit)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

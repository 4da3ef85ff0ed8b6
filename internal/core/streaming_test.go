package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestNewTextReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "utf-8 with BOM",
			input:    []byte{0xEF, 0xBB, 0xBF, 'a', ',', 'b'},
			expected: "a,b",
		},
		{
			name:     "utf-8 without BOM",
			input:    []byte("a,b"),
			expected: "a,b",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "invalid byte is replaced",
			input:    []byte{'h', 'e', 0x80, 'l', 'o'},
			expected: "he�lo",
		},
		{
			name:     "utf-16 little endian with BOM",
			input:    []byte{0xFF, 0xFE, 'h', 0x00, 'i', 0x00},
			expected: "hi",
		},
		{
			name:     "multibyte text untouched",
			input:    []byte("café,naïve"),
			expected: "café,naïve",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewTextReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("got %q, want %q", string(got), tt.expected)
			}
		})
	}
}

func TestCountingReader(t *testing.T) {
	input := "hello world"
	reader := NewCountingReader(strings.NewReader(input), 0)

	if _, err := io.ReadAll(reader); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reader.BytesRead != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", reader.BytesRead, len(input))
	}
}

func TestReadLimited(t *testing.T) {
	data, err := ReadLimited(strings.NewReader("12345"), 5)
	if err != nil {
		t.Fatalf("at limit: unexpected error: %v", err)
	}
	if string(data) != "12345" {
		t.Errorf("got %q", data)
	}

	if _, err := ReadLimited(strings.NewReader("123456"), 5); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("over limit: err = %v, want ErrFileTooLarge", err)
	}

	if _, err := ReadLimited(strings.NewReader(strings.Repeat("x", 1<<16)), 0); err != nil {
		t.Errorf("no limit: unexpected error: %v", err)
	}
}

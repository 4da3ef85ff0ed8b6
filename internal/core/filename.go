package core

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ExportPrefix is prepended to the source filename to name an export.
const ExportPrefix = "search_results_"

// FormatFromName returns the codec for a filename's extension.
// Only csv, xlsx and xls are accepted.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	case "xls":
		return FormatXLS, nil
	default:
		return "", ErrFileType
	}
}

// AllowedFile reports whether name has a supported extension.
func AllowedFile(name string) bool {
	_, err := FormatFromName(name)
	return err == nil
}

var windowsDeviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"LPT1": true, "LPT2": true, "LPT3": true,
}

// SecureFilename reduces a client-supplied name to a flat ASCII filename
// that is safe to join onto a storage directory. Accents are folded
// (NFKD, non-ASCII dropped), path separators and whitespace runs become
// underscores, anything outside [A-Za-z0-9_.-] is removed and leading or
// trailing dots and underscores are stripped. The result may be empty.
func SecureFilename(name string) string {
	decomposed := norm.NFKD.String(name)

	var ascii strings.Builder
	for _, r := range decomposed {
		if r < 0x80 {
			ascii.WriteRune(r)
		}
	}

	s := strings.NewReplacer("/", " ", "\\", " ").Replace(ascii.String())
	s = strings.Join(strings.Fields(s), "_")

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	s = strings.Trim(b.String(), "._")

	if s != "" {
		stem := strings.ToUpper(strings.SplitN(s, ".", 2)[0])
		if windowsDeviceNames[stem] {
			s = "_" + s
		}
	}
	return s
}

// ExportFilename derives the download name for an export of rows that came
// from source. A source without a spreadsheet extension is exported as xlsx.
func ExportFilename(source string) string {
	base := SecureFilename(filepath.Base(source))
	if base == "" {
		base = "export"
	}
	if !AllowedFile(base) {
		base += ".xlsx"
	}
	return ExportPrefix + base
}

// ExportFormat picks the writer for an export filename: CSV for .csv,
// an xlsx workbook for everything else.
func ExportFormat(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return FormatCSV
	}
	return FormatXLSX
}

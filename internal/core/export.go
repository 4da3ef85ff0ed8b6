package core

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportSheet is the worksheet name used for xlsx exports.
const ExportSheet = "Sheet1"

// ExportRows is a caller-supplied row set. Columns is the union of keys
// across all records in first-seen order; each row holds one text cell per
// column, empty where the record had no such key.
type ExportRows struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows.
func (r ExportRows) Len() int {
	return len(r.Rows)
}

// ExportRowsFromResult copies the shape of a search result.
func ExportRowsFromResult(res *SearchResult) ExportRows {
	return ExportRows{Columns: res.Columns, Rows: res.Rows}
}

// UnmarshalJSON decodes an array of JSON objects, keeping key order.
// null decodes to an empty row set.
func (r *ExportRows) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("results: %w", err)
	}
	if tok == nil {
		*r = ExportRows{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return errors.New("results: expected a list of records")
	}

	index := make(map[string]int)
	var columns []string
	var records []map[int]string

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("results: %w", err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return fmt.Errorf("results[%d]: expected an object", len(records))
		}

		rec := make(map[int]string)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("results[%d]: %w", len(records), err)
			}
			key := keyTok.(string)

			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return fmt.Errorf("results[%d].%s: %w", len(records), key, err)
			}
			text, err := cellText(raw)
			if err != nil {
				return fmt.Errorf("results[%d].%s: %w", len(records), key, err)
			}

			col, ok := index[key]
			if !ok {
				col = len(columns)
				index[key] = col
				columns = append(columns, key)
			}
			rec[col] = text
		}
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("results[%d]: %w", len(records), err)
		}
		records = append(records, rec)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("results: %w", err)
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(columns))
		for col, text := range rec {
			row[col] = text
		}
		rows[i] = row
	}
	*r = ExportRows{Columns: columns, Rows: rows}
	return nil
}

// cellText renders one JSON value as cell text: null is empty, strings are
// unquoted, numbers keep their literal form, booleans are True/False and
// arrays or objects stay compact JSON.
func cellText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, string(raw) == "null":
		return "", nil
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case string(raw) == "true":
		return "True", nil
	case string(raw) == "false":
		return "False", nil
	case raw[0] == '{' || raw[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		return string(raw), nil
	}
}

// WriteExport encodes rows to w as format. Rows must not be empty.
func WriteExport(w io.Writer, rows ExportRows, format Format) error {
	if rows.Len() == 0 {
		return InvalidInput("export", ErrNoResults)
	}
	switch format {
	case FormatCSV:
		return writeCSV(w, rows)
	default:
		return writeXLSX(w, rows)
	}
}

// EncodeExport returns the encoded bytes of rows.
func EncodeExport(rows ExportRows, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteExport(&buf, rows, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCSV(w io.Writer, rows ExportRows) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rows.Columns); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if err := cw.WriteAll(rows.Rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, rows ExportRows) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(ExportSheet)
	if err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}

	if err := sw.SetRow("A1", toCells(rows.Columns)); err != nil {
		return fmt.Errorf("write xlsx: header: %w", err)
	}
	for i, row := range rows.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		if err := sw.SetRow(cell, toCells(row)); err != nil {
			return fmt.Errorf("write xlsx: row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}

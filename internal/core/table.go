package core

import (
	"time"

	"github.com/google/uuid"
)

// Format identifies the codec used to read or write a tabular file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// Record is one row keyed by column name. It is the JSON shape of a row.
type Record map[string]string

// Table is an ordered set of text rows. Every row has exactly len(Columns)
// cells, in column order. Tables are never mutated after construction.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of name in Columns, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// RowRecords converts rows that share the table's column shape into Records.
// The result is never nil so that it encodes as [] rather than null.
func (t *Table) RowRecords(rows [][]string) []Record {
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = rowRecord(t.Columns, row)
	}
	return out
}

func rowRecord(columns, row []string) Record {
	rec := make(Record, len(columns))
	for i, col := range columns {
		if i < len(row) {
			rec[col] = row[i]
		} else {
			rec[col] = ""
		}
	}
	return rec
}

// Snapshot is the unit of whole-table replacement held by the Store.
type Snapshot struct {
	ID       uuid.UUID
	Table    *Table
	Filename string // display name, e.g. "customers.xlsx"
	Source   string // "upload" or "default"
	LoadedAt time.Time
}

// Load sources recorded on snapshots and in the load history.
const (
	SourceUpload  = "upload"
	SourceDefault = "default"
)

// NewSnapshot wraps a freshly ingested table.
func NewSnapshot(t *Table, filename, source string) *Snapshot {
	return &Snapshot{
		ID:       uuid.New(),
		Table:    t,
		Filename: filename,
		Source:   source,
		LoadedAt: time.Now().UTC(),
	}
}

// FileInfo summarizes a snapshot for the upload response and index page.
type FileInfo struct {
	Filename    string   `json:"filename"`
	Rows        int      `json:"rows"`
	Columns     int      `json:"columns"`
	ColumnNames []string `json:"column_names"`
}

// Info returns the FileInfo for the snapshot.
func (s *Snapshot) Info() FileInfo {
	cols := s.Table.Columns
	if cols == nil {
		cols = []string{}
	}
	return FileInfo{
		Filename:    s.Filename,
		Rows:        s.Table.Len(),
		Columns:     len(cols),
		ColumnNames: cols,
	}
}

package core

// ingest.go turns an uploaded file into a Table.
//
// The codec is chosen by extension, except that a ZIP container is always
// read as xlsx (some tools save xlsx content under a .xls name). Every codec
// produces a header row plus data rows, which buildTable normalizes:
//
//   - blank header cells become "Unnamed: <index>"
//   - repeated names get ".1", ".2", ... suffixes
//   - short rows are padded with empty cells
//   - CSV rows longer than the header are an error; spreadsheet rows widen
//     the header with more unnamed columns
//   - data cells holding a missing-value marker such as "NA" or "null"
//     become empty unless KeepMissingMarkers is set
//
// Codec panics on malformed input are recovered and reported as errors.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// DefaultMaxCells caps rows*columns for one table.
const DefaultMaxCells = 20_000_000

// IngestOptions bound what a single file may cost.
type IngestOptions struct {
	MaxFileSize   int64 // bytes; <= 0 means no cap
	MaxCells      int   // rows*columns; <= 0 means DefaultMaxCells
	RawCellValues bool  // xlsx: stored values instead of number-formatted text

	// KeepMissingMarkers keeps cells such as "NA" or "null" as text
	// instead of reading them as empty.
	KeepMissingMarkers bool
}

// missingMarkers are the cell values read as empty. Matching is exact, so
// "na" or " NULL" stay as text.
var missingMarkers = map[string]bool{
	"#N/A": true, "#N/A N/A": true, "#NA": true,
	"-1.#IND": true, "-1.#QNAN": true, "-NaN": true, "-nan": true,
	"1.#IND": true, "1.#QNAN": true, "<NA>": true,
	"N/A": true, "NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

// Ingestor parses csv, xlsx and xls files.
type Ingestor struct {
	opts IngestOptions
}

// NewIngestor returns an Ingestor with the given limits.
func NewIngestor(opts IngestOptions) *Ingestor {
	if opts.MaxCells <= 0 {
		opts.MaxCells = DefaultMaxCells
	}
	return &Ingestor{opts: opts}
}

var zipMagic = []byte("PK\x03\x04")

// Parse reads r fully and decodes it with the codec implied by name.
func (in *Ingestor) Parse(r io.Reader, name string) (*Table, error) {
	format, err := FormatFromName(name)
	if err != nil {
		return nil, err
	}
	data, err := ReadLimited(r, in.opts.MaxFileSize)
	if err != nil {
		return nil, err
	}
	return in.ParseBytes(data, format)
}

// ParseFile reads a table from disk.
func (in *Ingestor) ParseFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return in.Parse(f, filepath.Base(path))
}

// ParseBytes decodes data as format. ZIP content is read as xlsx whatever
// format says.
func (in *Ingestor) ParseBytes(data []byte, format Format) (t *Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			t = nil
			err = fmt.Errorf("open workbook: codec panic: %v", r)
		}
	}()

	if bytes.HasPrefix(data, zipMagic) {
		format = FormatXLSX
	}

	switch format {
	case FormatCSV:
		return in.parseCSV(data)
	case FormatXLSX:
		return in.parseXLSX(data)
	case FormatXLS:
		return in.parseXLS(data)
	default:
		return nil, ErrFileType
	}
}

func (in *Ingestor) parseCSV(data []byte) (*Table, error) {
	r := csv.NewReader(NewTextReader(bytes.NewReader(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("parse csv: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	b := in.newTableBuilder(header, true)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if err := b.add(rec); err != nil {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("parse csv: line %d: %w", line, err)
		}
	}
	return b.table(), nil
}

func (in *Ingestor) parseXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("open workbook: no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: in.opts.RawCellValues})
	if err != nil {
		return nil, fmt.Errorf("open workbook: sheet %q: %w", sheets[0], err)
	}
	return in.buildSheet(rows)
}

func (in *Ingestor) parseXLS(data []byte) (*Table, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("open workbook: no sheets")
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		// Cells written without a ROW record leave LastCol at zero.
		last := row.LastCol()
		if last == 0 {
			last = xlsMaxCols
		}
		cells := make([]string, 0, last)
		for c := 0; c < last; c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, trimTrailingEmpty(cells))
	}
	return in.buildSheet(trimTrailingEmptyRows(rows))
}

// xlsMaxCols is the BIFF8 column limit.
const xlsMaxCols = 256

// xlsRow returns row i, or nil when the sheet has no record for it.
// WorkSheet.Row panics on a missing index.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// buildSheet treats the first row of a worksheet as the header.
func (in *Ingestor) buildSheet(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, errors.New("open workbook: no header row")
	}
	b := in.newTableBuilder(rows[0], false)
	for _, row := range rows[1:] {
		if err := b.add(row); err != nil {
			return nil, err
		}
	}
	return b.table(), nil
}

func trimTrailingEmpty(cells []string) []string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}

func trimTrailingEmptyRows(rows [][]string) [][]string {
	n := len(rows)
	for n > 0 && len(rows[n-1]) == 0 {
		n--
	}
	return rows[:n]
}

// tableBuilder accumulates rows under a normalized header.
type tableBuilder struct {
	columns     []string
	rows        [][]string
	maxCells    int
	strict      bool
	keepMarkers bool
	cells       int
}

func (in *Ingestor) newTableBuilder(header []string, strict bool) *tableBuilder {
	cols := make([]string, len(header))
	copy(cols, header)
	return &tableBuilder{
		columns:     NormalizeHeader(cols),
		maxCells:    in.opts.MaxCells,
		strict:      strict,
		keepMarkers: in.opts.KeepMissingMarkers,
	}
}

func (b *tableBuilder) add(rec []string) error {
	if len(rec) > len(b.columns) {
		if b.strict {
			return fmt.Errorf("expected %d fields, saw %d", len(b.columns), len(rec))
		}
		b.widen(len(rec))
	}

	row := make([]string, len(b.columns))
	copy(row, rec)
	if !b.keepMarkers {
		for i, cell := range row {
			if missingMarkers[cell] {
				row[i] = ""
			}
		}
	}
	b.cells += len(row)
	if b.cells > b.maxCells {
		return ErrTableTooBig
	}
	b.rows = append(b.rows, row)
	return nil
}

// widen appends unnamed columns and pads the rows already collected.
func (b *tableBuilder) widen(n int) {
	raw := make([]string, n)
	copy(raw, b.columns)
	b.columns = NormalizeHeader(raw)

	for i, row := range b.rows {
		padded := make([]string, n)
		copy(padded, row)
		b.cells += n - len(row)
		b.rows[i] = padded
	}
}

func (b *tableBuilder) table() *Table {
	rows := b.rows
	if rows == nil {
		rows = [][]string{}
	}
	return &Table{Columns: b.columns, Rows: rows}
}

// NormalizeHeader makes every column name non-empty and unique. A blank
// name at position i becomes "Unnamed: i"; the second and later uses of a
// name become "name.1", "name.2" and so on, skipping any suffix already
// taken. The slice is modified in place and returned.
func NormalizeHeader(header []string) []string {
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			header[i] = "Unnamed: " + strconv.Itoa(i)
		}
	}

	taken := make(map[string]bool, len(header))
	for _, h := range header {
		taken[h] = true
	}
	seen := make(map[string]int, len(header))
	for i, h := range header {
		n, dup := seen[h]
		if !dup {
			seen[h] = 0
			continue
		}
		for {
			n++
			candidate := h + "." + strconv.Itoa(n)
			if !taken[candidate] {
				header[i] = candidate
				taken[candidate] = true
				break
			}
		}
		seen[h] = n
	}
	return header
}

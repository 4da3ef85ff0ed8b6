package core

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// xlsxBytes builds a one-sheet workbook from rows.
func xlsxBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseCSV(t *testing.T) {
	in := NewIngestor(IngestOptions{})

	table, err := in.ParseBytes([]byte("Name,City\nA,Anand\nB,Surat\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "City"}, table.Columns)
	assert.Equal(t, [][]string{{"A", "Anand"}, {"B", "Surat"}}, table.Rows)
}

func TestParse_MissingMarkersReadAsEmpty(t *testing.T) {
	data := []byte("id,city,note\n7,NA,ok\n,null,None\n8,N/A,na\n9,nan, NULL\n")

	table, err := NewIngestor(IngestOptions{}).ParseBytes(data, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"7", "", "ok"},
		{"", "", ""},
		{"8", "", "na"},
		{"9", "", " NULL"},
	}, table.Rows)

	// Nothing matches the marker text once it is read as empty.
	res, err := NewSearcher(1, 0).Search(t.Context(), table, "null", ColumnAll)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Len())

	kept, err := NewIngestor(IngestOptions{KeepMissingMarkers: true}).ParseBytes(data, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "NA", "ok"}, kept.Rows[0])
	assert.Equal(t, []string{"", "null", "None"}, kept.Rows[1])

	// Header names are never treated as markers.
	header, err := NewIngestor(IngestOptions{}).ParseBytes([]byte("NA,null\n1,2\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"NA", "null"}, header.Columns)

	sheet, err := NewIngestor(IngestOptions{}).ParseBytes(xlsxBytes(t, [][]any{{"a", "b"}, {"#N/A", "x"}}), FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"", "x"}}, sheet.Rows)
}

func TestParseCSV_Encodings(t *testing.T) {
	in := NewIngestor(IngestOptions{})

	tests := []struct {
		name string
		data []byte
		want [][]string
	}{
		{"utf8 bom", []byte("\xEF\xBB\xBFName\nÅse\n"), [][]string{{"Åse"}}},
		{"utf16le bom", []byte("\xFF\xFEN\x00\n\x00x\x00\n\x00"), [][]string{{"x"}}},
		{"invalid utf8", []byte("Name\nab\xffc\n"), [][]string{{"ab\uFFFDc"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := in.ParseBytes(tt.data, FormatCSV)
			require.NoError(t, err)
			assert.Equal(t, tt.want, table.Rows)
			assert.Len(t, table.Columns, 1)
			assert.NotContains(t, table.Columns[0], "\uFEFF")
		})
	}
}

func TestParseCSV_ShortRowsPadded(t *testing.T) {
	in := NewIngestor(IngestOptions{})

	table, err := in.ParseBytes([]byte("a,b,c\n1\n1,2,3\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "", ""}, {"1", "2", "3"}}, table.Rows)
}

func TestParseCSV_LongRowRejected(t *testing.T) {
	in := NewIngestor(IngestOptions{})

	_, err := in.ParseBytes([]byte("a,b\n1,2\n1,2,3\n"), FormatCSV)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse csv: line 3: expected 2 fields, saw 3")
	assert.Equal(t, "FILE002", MapError(err).Code)
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	in := NewIngestor(IngestOptions{})

	table, err := in.ParseBytes([]byte("a,b\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, table.Columns)
	assert.Equal(t, 0, table.Len())
	assert.NotNil(t, table.Rows)
}

func TestParseCSV_Empty(t *testing.T) {
	in := NewIngestor(IngestOptions{})

	_, err := in.ParseBytes(nil, FormatCSV)
	require.Error(t, err)
	assert.Equal(t, "FILE005", MapError(err).Code)
}

func TestParse_MaxCells(t *testing.T) {
	in := NewIngestor(IngestOptions{MaxCells: 4})

	_, err := in.ParseBytes([]byte("a,b\n1,2\n3,4\n5,6\n"), FormatCSV)
	require.ErrorIs(t, err, ErrTableTooBig)
}

func TestParse_MaxFileSize(t *testing.T) {
	in := NewIngestor(IngestOptions{MaxFileSize: 8})

	_, err := in.Parse(strings.NewReader("a,b\n1,2\n3,4\n"), "big.csv")
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestParse_UnknownExtension(t *testing.T) {
	in := NewIngestor(IngestOptions{})

	_, err := in.Parse(strings.NewReader("a\n1\n"), "notes.txt")
	require.ErrorIs(t, err, ErrFileType)
}

func TestParseXLSX(t *testing.T) {
	in := NewIngestor(IngestOptions{})
	data := xlsxBytes(t, [][]any{
		{"Name", "City", "Name"},
		{"A", "Anand", "x"},
		{"B"},
	})

	table, err := in.ParseBytes(data, FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "City", "Name.1"}, table.Columns)
	assert.Equal(t, [][]string{{"A", "Anand", "x"}, {"B", "", ""}}, table.Rows)
}

func TestParseXLSX_WideRowWidensHeader(t *testing.T) {
	in := NewIngestor(IngestOptions{})
	data := xlsxBytes(t, [][]any{
		{"a"},
		{"1"},
		{"2", "extra"},
	})

	table, err := in.ParseBytes(data, FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "Unnamed: 1"}, table.Columns)
	assert.Equal(t, [][]string{{"1", ""}, {"2", "extra"}}, table.Rows)
}

// testdata/people.xls is a BIFF8 workbook with one sheet:
//
//	row 0: Name | City | Name
//	row 1: Asha | Anand
//	row 2: (no record)
//	row 3: Chirag | Surat | x | 42 (number cell)
func TestParseXLS(t *testing.T) {
	table, err := NewIngestor(IngestOptions{}).ParseFile(filepath.Join("testdata", "people.xls"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "City", "Name.1", "Unnamed: 3"}, table.Columns)
	assert.Equal(t, [][]string{
		{"Asha", "Anand", "", ""},
		{"", "", "", ""},
		{"Chirag", "Surat", "x", "42"},
	}, table.Rows)
}

func TestParseXLS_UploadedByName(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "people.xls"))
	require.NoError(t, err)

	table, err := NewIngestor(IngestOptions{}).Parse(bytes.NewReader(data), "people.XLS")
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())

	res, err := NewSearcher(1, 0).Search(t.Context(), table, "surat", "City")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Chirag", "Surat", "x", "42"}}, res.Rows)
}

func TestParse_ZipSniffedAsXLSX(t *testing.T) {
	in := NewIngestor(IngestOptions{})
	data := xlsxBytes(t, [][]any{{"a"}, {"1"}})

	// A workbook saved under a legacy .xls name still opens.
	table, err := in.ParseBytes(data, FormatXLS)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, table.Columns)
	assert.Equal(t, 1, table.Len())
}

func TestParse_CorruptWorkbook(t *testing.T) {
	in := NewIngestor(IngestOptions{})

	for _, format := range []Format{FormatXLSX, FormatXLS} {
		_, err := in.ParseBytes([]byte("definitely not a workbook"), format)
		require.Error(t, err, format)
		assert.Equal(t, "FILE007", MapError(err).Code, format)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("n\nx\n"), 0o644))

	table, err := NewIngestor(IngestOptions{}).ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x"}}, table.Rows)
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"unchanged", []string{"a", "b"}, []string{"a", "b"}},
		{"blank", []string{"a", "", " "}, []string{"a", "Unnamed: 1", "Unnamed: 2"}},
		{"duplicates", []string{"a", "a", "a"}, []string{"a", "a.1", "a.2"}},
		{"suffix taken", []string{"a", "a.1", "a"}, []string{"a", "a.1", "a.2"}},
		{"whitespace kept", []string{" a", "a"}, []string{" a", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHeader(tt.in))
		})
	}
}

func TestParse_Idempotent(t *testing.T) {
	in := NewIngestor(IngestOptions{})
	data := []byte("a,b\n1,2\n3,4\n")

	first, err := in.ParseBytes(data, FormatCSV)
	require.NoError(t, err)
	second, err := in.ParseBytes(data, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

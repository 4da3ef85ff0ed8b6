package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cityTable() *Table {
	return &Table{
		Columns: []string{"Name", "City"},
		Rows: [][]string{
			{"Asha", "Anand"},
			{"Bhavin", "ANANDNAGAR"},
			{"Chirag", "Surat"},
		},
	}
}

func TestSearch_ColumnCaseInsensitive(t *testing.T) {
	s := NewSearcher(0, 0)

	res, err := s.Search(context.Background(), cityTable(), "anand", "City")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Len())
	assert.Equal(t, []string{"Asha", "Anand"}, res.Rows[0])
	assert.Equal(t, []string{"Bhavin", "ANANDNAGAR"}, res.Rows[1])
	assert.Equal(t, "anand", res.Query)
	assert.Equal(t, "City", res.Column)
}

func TestSearch_AllColumns(t *testing.T) {
	s := NewSearcher(0, 0)

	for _, column := range []string{"", ColumnAll} {
		res, err := s.Search(context.Background(), cityTable(), "  i  ", column)
		require.NoError(t, err)
		assert.Equal(t, ColumnAll, res.Column)
		assert.Equal(t, "i", res.Query)
		// Bhavin and Chirag contain "i"; Asha does not.
		require.Equal(t, 2, res.Len())
		assert.Equal(t, "Bhavin", res.Rows[0][0])
		assert.Equal(t, "Chirag", res.Rows[1][0])
	}
}

func TestSearch_LiteralText(t *testing.T) {
	table := &Table{
		Columns: []string{"v"},
		Rows:    [][]string{{"a.c"}, {"abc"}, {"(x)"}},
	}
	s := NewSearcher(0, 0)

	res, err := s.Search(context.Background(), table, "a.c", "v")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a.c"}}, res.Rows)

	res, err = s.Search(context.Background(), table, "(x", "v")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"(x)"}}, res.Rows)
}

func TestSearch_UnicodeFold(t *testing.T) {
	table := &Table{
		Columns: []string{"v"},
		Rows:    [][]string{{"ÅSE"}, {"ase"}},
	}

	res, err := NewSearcher(0, 0).Search(context.Background(), table, "åse", "v")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ÅSE"}}, res.Rows)
}

func TestSearch_NoMatches(t *testing.T) {
	res, err := NewSearcher(0, 0).Search(context.Background(), cityTable(), "zzz", ColumnAll)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
	assert.NotNil(t, res.Rows)
	assert.Equal(t, []Record{}, res.Records())
}

func TestSearch_Validation(t *testing.T) {
	s := NewSearcher(0, 0)

	_, err := s.Search(context.Background(), cityTable(), "   ", "City")
	require.ErrorIs(t, err, ErrEmptyQuery)
	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.Equal(t, "Search query cannot be empty", MessageOf(err))

	_, err = s.Search(context.Background(), cityTable(), "x", "Town")
	require.Error(t, err)
	assert.Equal(t, KindInvalidInput, KindOf(err))
	assert.Equal(t, `Column "Town" not found`, MessageOf(err))
	assert.Equal(t, "SRCH002", MapError(err).Code)
}

func TestSearch_ChunkedPreservesOrder(t *testing.T) {
	table := &Table{Columns: []string{"n"}}
	for i := 0; i < 1000; i++ {
		table.Rows = append(table.Rows, []string{fmt.Sprintf("row-%d", i)})
	}
	s := NewSearcher(4, 7)

	res, err := s.Search(context.Background(), table, "row-1", "n")
	require.NoError(t, err)
	// row-1, row-10..19, row-100..199
	require.Equal(t, 1+10+100, res.Len())
	assert.Equal(t, "row-1", res.Rows[0][0])
	assert.Equal(t, "row-10", res.Rows[1][0])
	assert.Equal(t, "row-199", res.Rows[res.Len()-1][0])

	again, err := s.Search(context.Background(), table, "row-1", "n")
	require.NoError(t, err)
	assert.Equal(t, res.Rows, again.Rows)
}

func TestSearch_Cancelled(t *testing.T) {
	table := &Table{Columns: []string{"n"}}
	for i := 0; i < 100; i++ {
		table.Rows = append(table.Rows, []string{"x"})
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSearcher(1, 10).Search(ctx, table, "x", "n")
	require.ErrorIs(t, err, context.Canceled)
}

func TestSearchResult_Records(t *testing.T) {
	res, err := NewSearcher(0, 0).Search(context.Background(), cityTable(), "surat", "City")
	require.NoError(t, err)
	assert.Equal(t, []Record{{"Name": "Chirag", "City": "Surat"}}, res.Records())
}

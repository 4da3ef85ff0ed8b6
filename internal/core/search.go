package core

import (
	"context"
	"runtime"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"
)

// ColumnAll selects every column. An empty column name means the same.
const ColumnAll = "all"

// DefaultSearchChunkRows is the number of rows one search task scans.
const DefaultSearchChunkRows = 4096

// SearchResult is the ordered subset of a table's rows that matched.
type SearchResult struct {
	Query   string
	Column  string
	Columns []string
	Rows    [][]string
}

// Len returns the number of matching rows.
func (r *SearchResult) Len() int {
	return len(r.Rows)
}

// Records returns the matches as column-keyed records.
func (r *SearchResult) Records() []Record {
	out := make([]Record, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = rowRecord(r.Columns, row)
	}
	return out
}

// Searcher filters tables by case-insensitive substring. Rows are split into
// chunks scanned concurrently; each chunk's hits land in a roaring bitmap and
// the union is read back in ascending row order.
type Searcher struct {
	workers   int
	chunkRows int
}

// NewSearcher returns a Searcher. workers <= 0 uses GOMAXPROCS and
// chunkRows <= 0 uses DefaultSearchChunkRows.
func NewSearcher(workers, chunkRows int) *Searcher {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if chunkRows <= 0 {
		chunkRows = DefaultSearchChunkRows
	}
	return &Searcher{workers: workers, chunkRows: chunkRows}
}

// ValidateQuery trims query and checks column against t. It returns the
// trimmed query and the column index, or -1 for all columns.
func ValidateQuery(t *Table, query, column string) (string, int, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", 0, InvalidInput("search", ErrEmptyQuery)
	}
	if column == "" || column == ColumnAll {
		return q, -1, nil
	}
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return "", 0, InvalidInputf("search", "Column %q not found", column)
	}
	return q, idx, nil
}

// Search returns the rows of t containing query in the selected column, or
// in any column for ColumnAll. Matching ignores case and treats query as
// literal text. Row order is preserved.
func (s *Searcher) Search(ctx context.Context, t *Table, query, column string) (*SearchResult, error) {
	q, col, err := ValidateQuery(t, query, column)
	if err != nil {
		return nil, err
	}
	if column == "" {
		column = ColumnAll
	}

	hits, err := s.match(ctx, t, strings.ToLower(q), col)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, hits.GetCardinality())
	it := hits.Iterator()
	for it.HasNext() {
		rows = append(rows, t.Rows[it.Next()])
	}
	return &SearchResult{
		Query:   q,
		Column:  column,
		Columns: t.Columns,
		Rows:    rows,
	}, nil
}

// match scans t in chunks and returns the set of matching row indices.
func (s *Searcher) match(ctx context.Context, t *Table, lowerQuery string, col int) (*roaring.Bitmap, error) {
	n := t.Len()
	chunks := (n + s.chunkRows - 1) / s.chunkRows
	parts := make([]*roaring.Bitmap, chunks)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for c := 0; c < chunks; c++ {
		start := c * s.chunkRows
		end := min(start+s.chunkRows, n)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bm := roaring.New()
			for i := start; i < end; i++ {
				if rowMatches(t.Rows[i], lowerQuery, col) {
					bm.Add(uint32(i))
				}
			}
			parts[c] = bm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return roaring.New(), nil
	}
	return roaring.FastOr(parts...), nil
}

func rowMatches(row []string, lowerQuery string, col int) bool {
	if col >= 0 {
		return col < len(row) && containsFold(row[col], lowerQuery)
	}
	for _, cell := range row {
		if containsFold(cell, lowerQuery) {
			return true
		}
	}
	return false
}

// containsFold reports whether s contains lowerSub ignoring case.
// lowerSub must already be lower-cased.
func containsFold(s, lowerSub string) bool {
	if len(s) < len(lowerSub) && isASCII(s) {
		return false
	}
	return strings.Contains(strings.ToLower(s), lowerSub)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

package core

// Page size defaults.
const (
	DefaultPerPage = 50
	MaxPerPage     = 100
)

// PageLimits holds the default and maximum page size.
type PageLimits struct {
	Default int
	Max     int
}

// DefaultPageLimits is 50 rows per page, at most 100.
var DefaultPageLimits = PageLimits{Default: DefaultPerPage, Max: MaxPerPage}

// Page describes one slice of a row sequence. Start and End are the
// half-open index range of the slice; they are equal for an empty page.
type Page struct {
	Page       int
	PerPage    int
	TotalRows  int
	TotalPages int
	Start      int
	End        int
}

// Len returns the number of rows on the page.
func (p Page) Len() int {
	return p.End - p.Start
}

// Paginate computes page bounds with DefaultPageLimits.
func Paginate(total, page, perPage int) Page {
	return DefaultPageLimits.Paginate(total, page, perPage)
}

// Paginate computes the bounds of page (1-based) over total rows. A page
// size that is missing or not positive becomes the default and one above
// the maximum is clamped. Pages below 1 are treated as page 1; pages past
// the end are empty.
func (l PageLimits) Paginate(total, page, perPage int) Page {
	if l.Default <= 0 {
		l.Default = DefaultPerPage
	}
	if l.Max <= 0 {
		l.Max = MaxPerPage
	}
	if perPage <= 0 {
		perPage = l.Default
	}
	if perPage > l.Max {
		perPage = l.Max
	}
	if page < 1 {
		page = 1
	}
	if total < 0 {
		total = 0
	}

	p := Page{
		Page:       page,
		PerPage:    perPage,
		TotalRows:  total,
		TotalPages: (total + perPage - 1) / perPage,
		Start:      total,
		End:        total,
	}
	if page <= p.TotalPages {
		p.Start = (page - 1) * perPage
		p.End = min(p.Start+perPage, total)
	}
	return p
}

// PageRows returns the rows covered by p. The result shares rows' backing
// array and is never nil.
func PageRows[T any](rows []T, p Page) []T {
	start := min(p.Start, len(rows))
	end := min(p.End, len(rows))
	if start >= end {
		return []T{}
	}
	return rows[start:end]
}

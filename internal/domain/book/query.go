package book

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// SortKey enumerates the supported catalog sort orders.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortOldest    SortKey = "oldest"
	SortPriceAsc  SortKey = "price-low"
	SortPriceDesc SortKey = "price-high"
	SortTitle     SortKey = "title"
	SortAuthor    SortKey = "author"
)

// ParseSortKey maps a raw sort parameter to a SortKey. Unknown or empty
// values fall back to SortNewest, the documented default.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortOldest, SortPriceAsc, SortPriceDesc, SortTitle, SortAuthor:
		return SortKey(s)
	default:
		return SortNewest
	}
}

// PriceRange is an inclusive price filter. A nil bound is open-ended.
type PriceRange struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// IsZero reports whether the range has no bounds.
func (p PriceRange) IsZero() bool {
	return p.Min == nil && p.Max == nil
}

// ParsePriceRange parses a "min-max" range string. Either side may be
// omitted ("1500-", "-2000"). Malformed numbers and empty input yield an
// unbounded range, matching the defaulting rule for pagination and sort.
func ParsePriceRange(s string) PriceRange {
	s = strings.TrimSpace(s)
	if s == "" {
		return PriceRange{}
	}

	minPart, maxPart, found := strings.Cut(s, "-")
	if !found {
		minPart, maxPart = s, ""
	}

	var r PriceRange
	if d, err := decimal.NewFromString(strings.TrimSpace(minPart)); err == nil {
		r.Min = &d
	}
	if d, err := decimal.NewFromString(strings.TrimSpace(maxPart)); err == nil {
		r.Max = &d
	}
	return r
}

// Pagination defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// Query is a validated catalog query: every field is normalized at
// construction, so the storage layer never re-checks inputs.
type Query struct {
	// Search matches title or author, case-insensitively.
	Search string
	// Categories filters to books whose category slug is in the set.
	Categories []string
	// Price bounds the catalog price, inclusive on both ends.
	Price PriceRange
	// Sort is the result order; always one of the SortKey constants.
	Sort SortKey
	// Page is 1-based.
	Page     int
	PageSize int
}

// ParseQuery builds a Query from raw request parameters, applying the
// documented defaults for anything malformed or missing.
func ParseQuery(search, categories, priceRange, sort, page, pageSize string) Query {
	q := Query{
		Search: strings.TrimSpace(search),
		Price:  ParsePriceRange(priceRange),
		Sort:   ParseSortKey(sort),
		Page:   parseBounded(page, DefaultPage, 1, 0),
	}
	q.PageSize = parseBounded(pageSize, DefaultPageSize, 1, MaxPageSize)

	for _, slug := range strings.Split(categories, ",") {
		if slug = strings.TrimSpace(slug); slug != "" {
			q.Categories = append(q.Categories, slug)
		}
	}
	return q
}

// Offset returns the number of rows to skip for the requested page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// parseBounded parses a positive integer, falling back to def when the input
// is malformed or below min. A max of 0 means unbounded above.
func parseBounded(s string, def, min, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < min {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

// Page is one slice of catalog results plus the total match count.
type Page struct {
	Books    []Book
	Total    int
	Number   int
	PageSize int
}

// PageCount returns ceil(Total / PageSize).
func (p Page) PageCount() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

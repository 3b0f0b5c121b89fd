// Package paging normalises page/limit/sort parameters and windows sorted
// sequences. It has no side effects: invalid input is normalised, never
// rejected.
package paging

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Params are the raw paging parameters of a list request.
type Params struct {
	Page      int
	Limit     int
	SortField string
	SortOrder string
}

// Normalize applies the defaults: page < 1 becomes 1, limit <= 0 becomes 10,
// an empty or unknown sort field becomes defaultField, and every order token
// other than "asc" means descending.
func (p Params) Normalize(defaultField string, allowed ...string) Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.SortField == "" || (len(allowed) > 0 && !slices.Contains(allowed, p.SortField)) {
		p.SortField = defaultField
	}
	if p.SortOrder != OrderAsc {
		p.SortOrder = OrderDesc
	}
	return p
}

// Descending reports whether p sorts in descending order.
func (p Params) Descending() bool {
	return p.SortOrder != OrderAsc
}

// Skip is the number of items before the page. It saturates at
// math.MaxInt instead of overflowing.
func (p Params) Skip() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Take is the page size.
func (p Params) Take() int {
	return p.Limit
}

// ParseSort splits the list endpoint's sort shorthand: "-field" sorts
// descending, "field" and "+field" ascending. An empty token yields an empty
// field, which Normalize replaces with the default.
func ParseSort(token string) (field, order string) {
	token = strings.TrimSpace(token)
	switch {
	case strings.HasPrefix(token, "-"):
		return token[1:], OrderDesc
	case strings.HasPrefix(token, "+"):
		return token[1:], OrderAsc
	case token == "":
		return "", ""
	default:
		return token, OrderAsc
	}
}

// TotalPages is ceil(total/limit).
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}

// Page is one window of a sorted sequence.
type Page[T any] struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
	Data       []T `json:"data"`
}

// NewPage assembles a page whose data was windowed elsewhere, e.g. by a
// store query.
func NewPage[T any](data []T, total int, p Params) Page[T] {
	if data == nil {
		data = []T{}
	}
	return Page[T]{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: TotalPages(total, p.Limit),
		Data:       data,
	}
}

// Window returns the slice [(page-1)*limit, page*limit) of sorted. p must be
// normalised. Pages past the end are empty.
func Window[T any](sorted []T, p Params) Page[T] {
	total := len(sorted)
	start := min(p.Skip(), total)
	end := start + min(p.Take(), total-start)

	data := make([]T, end-start)
	copy(data, sorted[start:end])
	return NewPage(data, total, p)
}

// Compare orders two items by one field.
type Compare[T any] func(a, b T) int

// Fields maps sortable field names to their comparisons.
type Fields[T any] map[string]Compare[T]

// Names lists the sortable field names.
func (f Fields[T]) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Comparator orders by p.SortField in p.SortOrder. Items equal on that field
// are ordered by key ascending regardless of the sort order, so repeated
// calls over the same data page identically.
func Comparator[T any](p Params, fields Fields[T], key func(T) string) func(a, b T) int {
	byField := fields[p.SortField]
	desc := p.Descending()
	return func(a, b T) int {
		if byField != nil {
			c := byField(a, b)
			if desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(key(a), key(b))
	}
}

// Sort orders items in place with Comparator.
func Sort[T any](items []T, p Params, fields Fields[T], key func(T) string) {
	slices.SortStableFunc(items, Comparator(p, fields, key))
}

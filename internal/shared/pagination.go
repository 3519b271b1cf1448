package shared

import "math"

const (
	// DefaultPageLimit applies when the caller does not pass limit.
	DefaultPageLimit = 20
	// MaxPageLimit caps the page size.
	MaxPageLimit = 200
)

// PageInfo describes the neighbouring pages of a paged listing.
type PageInfo struct {
	Current int  `json:"current"`
	Prev    int  `json:"prev"`
	HasPrev bool `json:"hasPrev"`
	Next    int  `json:"next"`
	HasNext bool `json:"hasNext"`
	Total   int  `json:"total"`
}

// ItemInfo describes the item window of a paged listing.
type ItemInfo struct {
	Limit int `json:"limit"`
	Begin int `json:"begin"`
	End   int `json:"end"`
	Total int `json:"total"`
}

// Page is the envelope returned by paged finds.
type Page[T any] struct {
	Data  []T      `json:"data"`
	Pages PageInfo `json:"pages"`
	Items ItemInfo `json:"items"`
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPageLimit
	}
	if perPage > MaxPageLimit {
		perPage = MaxPageLimit
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Offset returns the number of rows to skip.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// NewPage wraps data in the paged-find envelope.
func NewPage[T any](data []T, p Pagination) Page[T] {
	if data == nil {
		data = []T{}
	}
	pages := PageInfo{
		Current: p.Page,
		Prev:    0,
		Next:    0,
		Total:   p.TotalPages,
	}
	if p.Page > 1 {
		pages.Prev = p.Page - 1
		pages.HasPrev = true
	}
	if p.Page < p.TotalPages {
		pages.Next = p.Page + 1
		pages.HasNext = true
	}
	items := ItemInfo{
		Limit: p.PerPage,
		Begin: min(p.Offset()+1, p.Total),
		End:   min(p.Offset()+p.PerPage, p.Total),
		Total: p.Total,
	}
	return Page[T]{Data: data, Pages: pages, Items: items}
}

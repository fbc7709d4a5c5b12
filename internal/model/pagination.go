package model

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Page struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NewPaginated[T any](items []T, page Page, total int64) Paginated[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if page.PageSize > 0 {
		totalPages = int((total + int64(page.PageSize) - 1) / int64(page.PageSize))
	}
	return Paginated[T]{
		Items:      items,
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

package models

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 1 << 20
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NormalizePage clamps page to [1, MaxPage] and size to [1, MaxPageSize].
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// Paginate returns the requested page of items together with its metadata.
func Paginate[T any](items []T, page, size int) ([]T, *Pagination) {
	page, size = NormalizePage(page, size)
	meta := &Pagination{Page: page, PageSize: size, TotalCount: len(items)}
	if page-1 >= (len(items)+size-1)/size {
		return []T{}, meta
	}
	start := (page - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], meta
}

// Offset returns the row offset of a normalized page.
func Offset(page, size int) int {
	page, size = NormalizePage(page, size)
	return (page - 1) * size
}

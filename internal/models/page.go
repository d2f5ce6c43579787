package models

// Page is one page of a paginated listing.
type Page[T any] struct {
	Records    []T   `json:"records"`
	PageNumber int64 `json:"pageNumber"`
	PageSize   int64 `json:"pageSize"`
	TotalRow   int64 `json:"totalRow"`
}

// TotalPage returns the number of pages for the current page size.
func (p Page[T]) TotalPage() int64 {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.TotalRow + p.PageSize - 1) / p.PageSize
}

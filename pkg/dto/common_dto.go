package dto

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}

// PageQuery binds zero-based paging from the query string.
type PageQuery struct {
	Page int `form:"page" binding:"min=0"`
	Size int `form:"size" binding:"omitempty,min=1,max=100"`
}

const DefaultPageSize = 20

func (q PageQuery) SizeOrDefault() int {
	if q.Size == 0 {
		return DefaultPageSize
	}
	return q.Size
}

func NewPaginationMeta(page, size int, total int64) PaginationMeta {
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return PaginationMeta{
		CurrentPage: page,
		TotalPages:  pages,
		TotalItems:  total,
		Limit:       size,
	}
}

package domain

import "math"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPageNo keeps PageNo*MaxPageSize inside a 32-bit offset
	MaxPageNo = math.MaxInt32 / MaxPageSize
)

// SortDirection is the ordering of a paged query
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// PageQuery describes a zero-based page request
type PageQuery struct {
	PageNo   int
	PageSize int
	SortBy   string
	SortDir  SortDirection
}

// Normalize clamps paging values and fills defaults
func (q PageQuery) Normalize(defaultSort string) PageQuery {
	if q.PageNo < 0 {
		q.PageNo = 0
	}
	if q.PageNo > MaxPageNo {
		q.PageNo = MaxPageNo
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.SortBy == "" {
		q.SortBy = defaultSort
	}
	if q.SortDir != SortAsc {
		q.SortDir = SortDesc
	}
	return q
}

func (q PageQuery) Offset() int {
	return q.PageNo * q.PageSize
}

// Page is one slice of a larger result set
type Page[T any] struct {
	Content       []T   `json:"content"`
	PageNo        int   `json:"page_no"`
	PageSize      int   `json:"page_size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
	Last          bool  `json:"last"`
}

// NewPage computes the derived paging fields
func NewPage[T any](content []T, q PageQuery, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if q.PageSize > 0 {
		pages = int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	}
	return Page[T]{
		Content:       content,
		PageNo:        q.PageNo,
		PageSize:      q.PageSize,
		TotalElements: total,
		TotalPages:    pages,
		Last:          q.PageNo >= pages-1,
	}
}

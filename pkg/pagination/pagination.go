package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	MinLimit     = 1
)

// Params holds validated pagination/sort parameters
type Params struct {
	Page    int
	Limit   int
	Offset  int
	SortBy  string
	SortDir string // asc | desc
	Search  string
}

// Parse extracts and validates page/limit/sort/search from query parameters
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))

	if page < 1 {
		page = DefaultPage
	}
	if limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	sortDir := c.DefaultQuery("sortDirection", "asc")
	if sortDir != "asc" && sortDir != "desc" {
		sortDir = "asc"
	}

	return Params{
		Page:    page,
		Limit:   limit,
		Offset:  (page - 1) * limit,
		SortBy:  c.Query("sortBy"),
		SortDir: sortDir,
		Search:  c.Query("search"),
	}
}

// Meta describes one page of a larger result set.
// Invariant: TotalPages == ceil(Total/Limit).
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// Result is a page of items plus its pagination metadata
type Result[T any] struct {
	Data       []T  `json:"data"`
	Pagination Meta `json:"pagination"`
}

// NewMeta computes pagination metadata for a page
func NewMeta(page, limit int, total int64) Meta {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Meta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// NewResult pairs a page of data with its metadata
func NewResult[T any](data []T, page, limit int, total int64) Result[T] {
	if data == nil {
		data = []T{}
	}
	return Result[T]{Data: data, Pagination: NewMeta(page, limit, total)}
}

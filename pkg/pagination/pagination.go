package pagination

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Limits bounds caller-supplied page sizes.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits are used when no configuration is supplied.
var DefaultLimits = Limits{Default: 20, Max: 100}

// Params is a normalized (page, limit) pair; Page is 1-based.
type Params struct {
	Page  int
	Limit int
}

// MaxOffset bounds the row offset a page may reach.
const MaxOffset = math.MaxInt32

// Offset returns the number of rows to skip, capped at MaxOffset.
func (p Params) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	if p.Page-1 > MaxOffset/p.Limit {
		return MaxOffset
	}
	return (p.Page - 1) * p.Limit
}

// Normalize clamps page to [1, MaxOffset/limit] and limit to [1, Max],
// substituting Default when limit is not positive.
func (l Limits) Normalize(page, limit int) Params {
	if l.Default <= 0 {
		l.Default = DefaultLimits.Default
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = l.Default
	}
	if l.Max > 0 && limit > l.Max {
		limit = l.Max
	}
	if maxPage := max(MaxOffset/limit, 1); page > maxPage {
		page = maxPage
	}
	return Params{Page: page, Limit: limit}
}

// FromQuery reads ?page= and ?limit= and normalizes them.
func FromQuery(c *gin.Context, l Limits) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return l.Normalize(page, limit)
}

// Meta describes one page of a listing.
type Meta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// Page is a paginated listing.
type Page[T any] struct {
	Items []T  `json:"items"`
	Meta  Meta `json:"meta"`
}

// New builds a Page; TotalPages is ceil(total/limit).
func New[T any](items []T, total int, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Page[T]{
		Items: items,
		Meta:  Meta{Total: total, Page: p.Page, Limit: p.Limit, TotalPages: pages},
	}
}

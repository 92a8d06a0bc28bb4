package utils

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Pagination holds listing parameters parsed from the query string.
type Pagination struct {
	PageNumber    int
	PageSize      int
	SortBy        string
	SortDirection string
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	return (p.PageNumber - 1) * p.PageSize
}

// ParsePagination reads page_number, page_size, sort_by and sort_direction
// query params with sane defaults. sortable whitelists the columns a caller
// may sort by; anything else falls back to defaultSort.
func ParsePagination(c *fiber.Ctx, defaultSort string, sortable ...string) Pagination {
	page := parseInt(c.Query("page_number", "1"), 1)
	size := parseInt(c.Query("page_size", "20"), 20)
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	sortBy := strings.ToLower(c.Query("sort_by", defaultSort))
	allowed := false
	for _, col := range sortable {
		if sortBy == col {
			allowed = true
			break
		}
	}
	if !allowed {
		sortBy = defaultSort
	}

	dir := strings.ToLower(c.Query("sort_direction", "desc"))
	if dir != "asc" && dir != "desc" {
		dir = "desc"
	}

	return Pagination{
		PageNumber:    page,
		PageSize:      size,
		SortBy:        sortBy,
		SortDirection: dir,
	}
}

// Apply adds ordering, limit and offset to a gorm query.
func (p Pagination) Apply(q *gorm.DB) *gorm.DB {
	return q.Order(p.SortBy + " " + p.SortDirection).
		Limit(p.PageSize).Offset(p.Offset())
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return fallback
}

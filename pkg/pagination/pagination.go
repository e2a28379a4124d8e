package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

const MaxLimit = 500

// Params holds pagination parameters extracted from a request. A zero Limit
// means the listing is unbounded.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts the opt-in limit and offset query parameters. When
// neither is present the returned Params are unbounded.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 0 {
		limit = 0
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Unbounded reports whether no limit was requested.
func (p Params) Unbounded() bool {
	return p.Limit <= 0
}

// SQL returns the LIMIT and OFFSET clause for SQL queries, or only the OFFSET
// clause when unbounded.
func (p Params) SQL() string {
	if p.Unbounded() {
		if p.Offset > 0 {
			return fmt.Sprintf("OFFSET %d", p.Offset)
		}
		return ""
	}
	return fmt.Sprintf("LIMIT %d OFFSET %d", p.Limit, p.Offset)
}

// Apply slices an in-memory, already ordered result set.
func Apply[T any](items []T, p Params) []T {
	if p.Offset >= len(items) {
		return items[:0]
	}
	items = items[p.Offset:]
	if !p.Unbounded() && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}

// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// Limit reads the "limit" query parameter, falling back to def when it is
// missing or not a positive integer, and clamping to max.
func Limit(r *http.Request, def, max int64) int64 {
	n, err := strconv.ParseInt(query.Get(r, "limit"), 10, 64)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// Package pagination parses and clamps page-based listing parameters.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Parse reads page and limit from query parameters, applying defaults and
// bounds. Invalid values are a client error, not silently clamped.
func Parse(query url.Values) (page, limit int, err error) {
	page = 1
	limit = DefaultLimit

	if raw := query.Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, fmt.Errorf("invalid 'page' parameter: must be a positive integer")
		}
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > MaxLimit {
			return 0, 0, fmt.Errorf("invalid 'limit' parameter: must be between 1 and %d", MaxLimit)
		}
	}

	return page, limit, nil
}

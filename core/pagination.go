package core

import (
	"math"
	"strconv"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	// MaxOffset bounds (page-1)*limit so the offset stays representable in
	// every supported database and on 32-bit builds.
	MaxOffset = math.MaxInt32
)

// parsePaging reads the page and limit query values, recording problems in v.
// The limit is clamped to MaxPageLimit.
func parsePaging(v *ValidationError, rawPage, rawLimit string) (page, limit int) {
	page, limit = 1, DefaultPageLimit

	if rawPage != "" {
		n, err := strconv.Atoi(rawPage)
		if err != nil || n < 1 {
			v.Add("page", "page must be a positive integer")
		} else {
			page = n
		}
	}

	if rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n < 1 {
			v.Add("limit", "limit must be a positive integer")
		} else {
			limit = min(n, MaxPageLimit)
		}
	}

	if page-1 > MaxOffset/limit {
		v.Add("page", "page is too large")
		page = 1
	}
	return page, limit
}

func pageOffset(page, limit int) int {
	return (page - 1) * limit
}

// Pagination describes one page of a listing.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
	Limit       int  `json:"limit"`
}

// NewPagination computes page counters from a total.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  pages,
		TotalItems:  total,
		HasNext:     page < pages,
		HasPrevious: page > 1,
		Limit:       limit,
	}
}

package dto

import (
	"strconv"

	"github.com/hugh/adopt-a-pet/internal/petfinder"
)

// ParsePage reads a page number from a path segment. Anything below 1 or
// unparsable becomes 1.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// Pager drives the previous/next links on catalog listings.
type Pager struct {
	Page       int
	TotalPages int
	Prev       int
	Next       int
}

func NewPager(page int, p petfinder.Pagination) Pager {
	pager := Pager{Page: page, TotalPages: p.TotalPages}
	if page > 1 {
		pager.Prev = page - 1
	}
	// Keep offering a next page when the upstream total is unknown.
	if p.TotalPages == 0 || page < p.TotalPages {
		pager.Next = page + 1
	}
	return pager
}

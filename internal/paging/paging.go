// Package paging implements the navigation rules for server-paginated
// collections. It only computes indices; fetching is the caller's job.
package paging

import (
	"fmt"

	"github.com/abelbrown/codesim/internal/model"
)

// HasPrevious reports whether a page before p exists.
func HasPrevious(p model.PageInfo) bool {
	return p.TotalPages > 0 && p.Number > 0
}

// HasNext reports whether a page after p exists.
func HasNext(p model.PageInfo) bool {
	return p.Number+1 < p.TotalPages
}

// LastIndex is the highest valid page index, 0 for an empty collection.
func LastIndex(p model.PageInfo) int {
	if p.TotalPages < 1 {
		return 0
	}
	return p.TotalPages - 1
}

// RequestPage returns current.Number+delta clamped to [0, LastIndex].
// Safe for any delta, including values near the int limits.
func RequestPage(current model.PageInfo, delta int) int {
	last := LastIndex(current)
	cur := current.Number
	if cur < 0 {
		cur = 0
	}
	if cur > last {
		cur = last
	}
	switch {
	case delta >= 0 && delta >= last-cur:
		return last
	case delta < 0 && delta <= -cur:
		return 0
	default:
		return cur + delta
	}
}

// Label renders the 1-based position shown under the library list.
func Label(p model.PageInfo) string {
	total := p.TotalPages
	if total < 1 {
		total = 1
	}
	return fmt.Sprintf("Page %d of %d", p.Number+1, total)
}

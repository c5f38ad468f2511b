package model

import "fmt"

// PageInfo describes one page of a server-paginated collection.
// Number is 0-based.
type PageInfo struct {
	Number        int `json:"number"`
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

// Validate checks that the page info is self-consistent:
// TotalPages == ceil(TotalElements/Size) when Size > 0, and
// 0 <= Number < max(TotalPages, 1).
func (p PageInfo) Validate() error {
	if p.Size < 0 || p.TotalElements < 0 || p.TotalPages < 0 {
		return fmt.Errorf("negative page field in %+v", p)
	}
	if p.Size > 0 {
		want := (p.TotalElements + p.Size - 1) / p.Size
		if p.TotalPages != want {
			return fmt.Errorf("totalPages %d, want %d for %d elements of size %d",
				p.TotalPages, want, p.TotalElements, p.Size)
		}
	}
	upper := p.TotalPages
	if upper < 1 {
		upper = 1
	}
	if p.Number < 0 || p.Number >= upper {
		return fmt.Errorf("page number %d outside [0, %d)", p.Number, upper)
	}
	return nil
}

// Page is a bounded, ordered slice of a server-held collection.
type Page[T any] struct {
	Content []T      `json:"content"`
	Page    PageInfo `json:"page"`
}

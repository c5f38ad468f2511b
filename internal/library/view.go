// Package library drives the paginated file library: which page is
// shown, which response is current, and the local search and sort
// applied to the visible page.
package library

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/paging"
	"github.com/abelbrown/codesim/internal/selection"
)

// DefaultPageSize is the library page size when none is configured.
const DefaultPageSize = 10

// ErrStale is returned by Accept for a response that is no longer the
// latest request.
var ErrStale = errors.New("stale page response")

// Tag identifies one page request. Only the response carrying the most
// recent tag is applied.
type Tag struct {
	Page int
	Seq  uint64
}

// SortBy orders the visible page.
type SortBy int

const (
	SortName SortBy = iota
	SortDate
	SortLanguage
)

func (s SortBy) String() string {
	switch s {
	case SortDate:
		return "date"
	case SortLanguage:
		return "language"
	default:
		return "name"
	}
}

// Next cycles name -> date -> language -> name.
func (s SortBy) Next() SortBy {
	return (s + 1) % 3
}

// ParseSortBy accepts "name", "date" or "language".
func ParseSortBy(s string) (SortBy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name":
		return SortName, nil
	case "date":
		return SortDate, nil
	case "language", "lang":
		return SortLanguage, nil
	}
	return SortName, fmt.Errorf("unknown sort %q", s)
}

// Query is the local filter over the visible page. It never triggers a
// request.
type Query struct {
	Search   string // case-insensitive substring of the file name
	Language string // exact language, empty for any
	SortBy   SortBy
	Desc     bool
}

// Row is one visible library entry.
type Row struct {
	File     model.CodeFile
	Selected bool
}

// View is the library state. It is a value: every transition returns a
// new View.
type View struct {
	size    int
	page    model.PageInfo
	items   []model.CodeFile
	latest  Tag
	loading bool
	loaded  bool
	err     error
	query   Query
}

// NewView returns an empty view requesting size items per page.
func NewView(size int) View {
	if size <= 0 {
		size = DefaultPageSize
	}
	return View{size: size, page: model.PageInfo{Size: size}}
}

func (v View) Size() int            { return v.size }
func (v View) Page() model.PageInfo { return v.page }
func (v View) Latest() Tag          { return v.latest }
func (v View) Loading() bool        { return v.loading }
func (v View) Loaded() bool         { return v.loaded }
func (v View) Err() error           { return v.err }
func (v View) Query() Query         { return v.query }

// WithQuery replaces the local query.
func (v View) WithQuery(q Query) View {
	v.query = q
	return v
}

// Items returns a copy of the current page content in service order.
func (v View) Items() []model.CodeFile {
	out := make([]model.CodeFile, len(v.items))
	copy(out, v.items)
	return out
}

// Origin is the page navigation counts from: the requested page while a
// load is outstanding, otherwise the displayed one.
func (v View) Origin() model.PageInfo {
	p := v.page
	if v.loading {
		p.Number = v.latest.Page
	}
	return p
}

// Navigate requests the page delta steps away from Origin, clamped to the
// valid range. The returned tag must accompany the response.
func (v View) Navigate(delta int) (View, Tag) {
	return v.request(paging.RequestPage(v.Origin(), delta))
}

// Reload re-requests the current page.
func (v View) Reload() (View, Tag) {
	return v.request(v.page.Number)
}

func (v View) request(page int) (View, Tag) {
	tag := Tag{Page: page, Seq: v.latest.Seq + 1}
	v.latest = tag
	v.loading = true
	return v, tag
}

// Accept applies a page response. A response whose tag is not the latest
// is rejected with ErrStale and leaves the view untouched; an invalid
// page is a *model.MalformedResponseError and also leaves it untouched
// apart from clearing the loading flag.
func (v View) Accept(tag Tag, p model.Page[model.CodeFile]) (View, error) {
	if tag != v.latest {
		return v, ErrStale
	}
	v.loading = false
	if err := p.Page.Validate(); err != nil {
		err = &model.MalformedResponseError{Op: "list files", Reason: "invalid page info", Err: err}
		v.err = err
		return v, err
	}
	v.page = p.Page
	v.items = append([]model.CodeFile(nil), p.Content...)
	v.loaded = true
	v.err = nil
	return v, nil
}

// Fail records a failed load for tag. Stale failures are ignored and
// reported as ErrStale. The displayed page is kept.
func (v View) Fail(tag Tag, err error) (View, error) {
	if tag != v.latest {
		return v, ErrStale
	}
	v.loading = false
	v.err = err
	return v, nil
}

// Rows applies the local query to the current page and marks rows in sel.
func (v View) Rows(sel selection.Set) []Row {
	search := strings.ToLower(strings.TrimSpace(v.query.Search))
	rows := make([]Row, 0, len(v.items))
	for _, f := range v.items {
		if search != "" && !strings.Contains(strings.ToLower(f.FileName), search) {
			continue
		}
		if v.query.Language != "" && f.Language != v.query.Language {
			continue
		}
		rows = append(rows, Row{File: f, Selected: sel.Contains(f)})
	}

	less := func(a, b model.CodeFile) int {
		switch v.query.SortBy {
		case SortDate:
			return a.CreatedAt.Compare(b.CreatedAt)
		case SortLanguage:
			return strings.Compare(a.Language, b.Language)
		default:
			return strings.Compare(strings.ToLower(a.FileName), strings.ToLower(b.FileName))
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := less(rows[i].File, rows[j].File)
		if v.query.Desc {
			return c > 0
		}
		return c < 0
	})
	return rows
}

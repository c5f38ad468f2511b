package compare

import (
	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/selection"
)

// Selector is the comparison panel's runtime state: the chosen mode, the
// filters, and whether a run is in flight. It is a value; every method
// that changes state returns the new Selector.
type Selector struct {
	mode     Mode
	filters  Filters
	inFlight bool
}

// NewSelector starts in pairwise mode with default filters.
func NewSelector() Selector {
	return Selector{mode: Pairwise, filters: DefaultFilters()}
}

func (s Selector) Mode() Mode       { return s.mode }
func (s Selector) Filters() Filters { return s.filters }
func (s Selector) InFlight() bool   { return s.inFlight }

// Choose switches to m. Modes only change on explicit user action.
func (s Selector) Choose(m Mode) Selector {
	s.mode = m
	return s
}

// WithFilters replaces the filters.
func (s Selector) WithFilters(f Filters) Selector {
	s.filters = f
	return s
}

// Ready reports whether the run control should be enabled.
func (s Selector) Ready(selectionSize int) bool {
	return !s.inFlight && s.mode.CanRun(selectionSize)
}

// Begin builds the request for the current mode and marks the selector
// in flight. The returned Selector must replace the caller's copy.
// A pending run yields model.ErrInFlight; a bad selection yields a
// *model.PreconditionError. In both cases the state is unchanged.
func (s Selector) Begin(sel selection.Set) (Selector, Request, error) {
	if s.inFlight {
		return s, nil, model.ErrInFlight
	}
	req, err := Build(s.mode, sel, s.filters)
	if err != nil {
		return s, nil, err
	}
	s.inFlight = true
	return s, req, nil
}

// Settle clears the in-flight guard once a run succeeds or fails.
func (s Selector) Settle() Selector {
	s.inFlight = false
	return s
}

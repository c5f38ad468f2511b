package compare

import (
	"fmt"
	"math"
	"strings"

	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/selection"
)

// DefaultMinSimilarity is the threshold used when none is given.
const DefaultMinSimilarity = 1.0

// Filters narrow against-all and batch results on the service side.
type Filters struct {
	Language      string  // exact match against CodeFile.Language; empty means any
	MinSimilarity float64 // in [1, 100]
}

// DefaultFilters returns no language filter and the default threshold.
func DefaultFilters() Filters {
	return Filters{MinSimilarity: DefaultMinSimilarity}
}

// Normalize trims the language. The threshold is taken as given; callers
// start from DefaultFilters when the user has not set one.
func (f Filters) Normalize() Filters {
	f.Language = strings.TrimSpace(f.Language)
	return f
}

// Validate checks the threshold range. Call after Normalize.
func (f Filters) Validate() error {
	if math.IsNaN(f.MinSimilarity) || f.MinSimilarity < 1 || f.MinSimilarity > 100 {
		return fmt.Errorf("minimum similarity %v outside [1, 100]", f.MinSimilarity)
	}
	return nil
}

// Request is one outbound comparison. The concrete types below are the
// only implementations.
type Request interface {
	Mode() Mode
	isRequest()
}

// PairwiseRequest compares two specific files.
type PairwiseRequest struct {
	A, B int64
}

// AgainstAllRequest compares one file with the whole remote corpus.
type AgainstAllRequest struct {
	FileID  int64
	Filters Filters
}

// BatchRequest compares a target with an explicit list of other files.
type BatchRequest struct {
	TargetID int64
	OtherIDs []int64
	Filters  Filters
}

func (PairwiseRequest) Mode() Mode   { return Pairwise }
func (AgainstAllRequest) Mode() Mode { return AgainstAll }
func (BatchRequest) Mode() Mode      { return Batch }

func (PairwiseRequest) isRequest()   {}
func (AgainstAllRequest) isRequest() {}
func (BatchRequest) isRequest()      {}

// Build translates a mode, selection and filters into a request.
// It fails with *model.PreconditionError when the selection does not fit
// the mode or the filters are out of range. Filters are ignored for
// pairwise comparisons.
func Build(mode Mode, sel selection.Set, filters Filters) (Request, error) {
	if !mode.CanRun(sel.Size()) {
		return nil, &model.PreconditionError{
			Mode: mode.String(),
			Need: mode.Precondition(),
			Have: sel.Size(),
		}
	}

	if mode.UsesFilters() {
		filters = filters.Normalize()
		if err := filters.Validate(); err != nil {
			return nil, &model.PreconditionError{
				Mode:   mode.String(),
				Have:   sel.Size(),
				Reason: err.Error(),
			}
		}
	}

	ids := sel.IDs()
	switch mode {
	case Pairwise:
		return PairwiseRequest{A: ids[0], B: ids[1]}, nil
	case AgainstAll:
		return AgainstAllRequest{FileID: ids[0], Filters: filters}, nil
	case Batch:
		target, _ := sel.Target()
		others := sel.Others()
		otherIDs := make([]int64, len(others))
		for i, f := range others {
			otherIDs[i] = f.ID
		}
		return BatchRequest{TargetID: target.ID, OtherIDs: otherIDs, Filters: filters}, nil
	}
	return nil, &model.PreconditionError{Mode: mode.String(), Need: mode.Precondition(), Have: sel.Size()}
}

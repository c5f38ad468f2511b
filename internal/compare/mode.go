// Package compare turns a selection into exactly one comparison request,
// runs it against the analysis service, and classifies what comes back.
//
// The three request shapes form a closed set (PairwiseRequest,
// AgainstAllRequest, BatchRequest) dispatched through one switch in
// Runner.Run. Invalid selections are rejected by Build before any I/O.
package compare

import (
	"fmt"
	"strings"
)

// Mode selects one of the three comparison strategies.
type Mode int

const (
	Pairwise Mode = iota + 1
	AgainstAll
	Batch
)

// Modes lists the strategies in the order they are offered to the user.
var Modes = []Mode{Pairwise, AgainstAll, Batch}

func (m Mode) String() string {
	switch m {
	case Pairwise:
		return "pairwise"
	case AgainstAll:
		return "against-all"
	case Batch:
		return "batch"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts the canonical names plus the short CLI aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pairwise", "pair":
		return Pairwise, nil
	case "against-all", "all":
		return AgainstAll, nil
	case "batch":
		return Batch, nil
	}
	return 0, fmt.Errorf("unknown comparison mode %q", s)
}

// CanRun reports whether a selection of the given size satisfies m.
func (m Mode) CanRun(selectionSize int) bool {
	switch m {
	case Pairwise:
		return selectionSize == 2
	case AgainstAll:
		return selectionSize == 1
	case Batch:
		return selectionSize >= 2
	default:
		return false
	}
}

// Precondition describes the selection m needs.
func (m Mode) Precondition() string {
	switch m {
	case Pairwise:
		return "exactly 2 files"
	case AgainstAll:
		return "exactly 1 file"
	case Batch:
		return "at least 2 files"
	default:
		return "a known mode"
	}
}

// Description is the one-line explanation shown next to the run control.
func (m Mode) Description() string {
	switch m {
	case Pairwise:
		return "Compare two selected files directly"
	case AgainstAll:
		return "Compare one file against all files in the database"
	case Batch:
		return "Compare the first selected file against all other selected files"
	default:
		return ""
	}
}

// UsesFilters reports whether language and threshold filters apply.
func (m Mode) UsesFilters() bool {
	return m == AgainstAll || m == Batch
}

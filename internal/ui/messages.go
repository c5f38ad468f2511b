// Package ui provides the Bubble Tea TUI for codesim.
package ui

import (
	"github.com/abelbrown/codesim/internal/compare"
	"github.com/abelbrown/codesim/internal/library"
	"github.com/abelbrown/codesim/internal/model"
)

// PageLoaded is sent when a library page request finishes. Tag is the
// tag the request was issued with.
type PageLoaded struct {
	Tag  library.Tag
	Page model.Page[model.CodeFile]
	Err  error
}

// CompareFinished is sent when a comparison run settles.
type CompareFinished struct {
	Outcome compare.Outcome
	Err     error
}

// UploadFinished is sent when a batch upload settles.
type UploadFinished struct {
	Message string
	Count   int
	Err     error
}

// OutcomeRestored carries the last successful outcome from history at
// startup. OK is false when there is nothing to restore.
type OutcomeRestored struct {
	Outcome compare.Outcome
	OK      bool
}

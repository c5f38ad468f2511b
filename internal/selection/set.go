// Package selection tracks the files a user has picked for comparison.
//
// A Set is a value. Every mutation returns a new Set and leaves the
// receiver untouched, so a view holding an older Set never observes a
// half-applied change. Insertion order is part of the contract: the
// first-inserted file that is still present is the batch target.
package selection

import "github.com/abelbrown/codesim/internal/model"

// Set is an insertion-ordered collection of files, unique by ID.
// The zero value is an empty set ready to use.
type Set struct {
	files []model.CodeFile
	index map[int64]int // id -> position in files
}

// New builds a set from files, keeping the first occurrence of each ID.
func New(files ...model.CodeFile) Set {
	var s Set
	for _, f := range files {
		if !s.ContainsID(f.ID) {
			s = s.with(f)
		}
	}
	return s
}

// Toggle removes f if a file with the same ID is present, otherwise
// appends it.
func (s Set) Toggle(f model.CodeFile) Set {
	if s.ContainsID(f.ID) {
		return s.without(f.ID)
	}
	return s.with(f)
}

// Clear returns the empty set.
func (s Set) Clear() Set {
	return Set{}
}

// Contains tests identity by ID only.
func (s Set) Contains(f model.CodeFile) bool {
	return s.ContainsID(f.ID)
}

// ContainsID reports whether id is selected.
func (s Set) ContainsID(id int64) bool {
	_, ok := s.index[id]
	return ok
}

// Size returns the number of selected files.
func (s Set) Size() int {
	return len(s.files)
}

// Files returns a copy of the selection in insertion order.
func (s Set) Files() []model.CodeFile {
	out := make([]model.CodeFile, len(s.files))
	copy(out, s.files)
	return out
}

// IDs returns the selected IDs in insertion order.
func (s Set) IDs() []int64 {
	ids := make([]int64, len(s.files))
	for i, f := range s.files {
		ids[i] = f.ID
	}
	return ids
}

// Target returns the earliest-inserted file still present.
func (s Set) Target() (model.CodeFile, bool) {
	if len(s.files) == 0 {
		return model.CodeFile{}, false
	}
	return s.files[0], true
}

// Others returns every file after the target, in insertion order.
func (s Set) Others() []model.CodeFile {
	if len(s.files) < 2 {
		return nil
	}
	out := make([]model.CodeFile, len(s.files)-1)
	copy(out, s.files[1:])
	return out
}

func (s Set) with(f model.CodeFile) Set {
	files := make([]model.CodeFile, len(s.files), len(s.files)+1)
	copy(files, s.files)
	files = append(files, f)

	index := make(map[int64]int, len(files))
	for k, v := range s.index {
		index[k] = v
	}
	index[f.ID] = len(files) - 1
	return Set{files: files, index: index}
}

func (s Set) without(id int64) Set {
	if len(s.files) == 1 {
		return Set{}
	}
	files := make([]model.CodeFile, 0, len(s.files)-1)
	index := make(map[int64]int, len(s.files)-1)
	for _, f := range s.files {
		if f.ID == id {
			continue
		}
		index[f.ID] = len(files)
		files = append(files, f)
	}
	return Set{files: files, index: index}
}

package selection

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/codesim/internal/model"
)

func file(id int64, name string) model.CodeFile {
	return model.CodeFile{ID: id, FileName: name, Language: "GO"}
}

func TestToggleAddsAndRemoves(t *testing.T) {
	a, b := file(1, "a.go"), file(2, "b.go")

	s := Set{}.Toggle(a).Toggle(b)
	assert.Equal(t, 2, s.Size())
	assert.True(t, s.Contains(a))
	assert.Equal(t, []int64{1, 2}, s.IDs())

	s = s.Toggle(a)
	assert.Equal(t, 1, s.Size())
	assert.False(t, s.Contains(a))
	assert.True(t, s.Contains(b))
}

func TestToggleIsCopyOnWrite(t *testing.T) {
	a, b := file(1, "a.go"), file(2, "b.go")
	before := New(a)
	after := before.Toggle(b)

	assert.Equal(t, 1, before.Size(), "receiver must not change")
	assert.False(t, before.Contains(b))
	assert.Equal(t, 2, after.Size())

	removed := after.Toggle(a)
	assert.True(t, after.Contains(a), "receiver must not change on removal")
	assert.Equal(t, []int64{2}, removed.IDs())
}

func TestContainsUsesIDOnly(t *testing.T) {
	s := New(file(7, "x.go"))
	other := model.CodeFile{ID: 7, FileName: "renamed.py", Language: "PYTHON", Content: "print()"}
	assert.True(t, s.Contains(other))

	s = s.Toggle(other)
	assert.Equal(t, 0, s.Size(), "toggling a file with the same id removes it")
}

func TestTogglePairRestoresMembership(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := Set{}
	for i := 0; i < 500; i++ {
		f := file(int64(rng.Intn(20)), "f")
		had := s.Contains(f)
		size := s.Size()

		twice := s.Toggle(f).Toggle(f)
		assert.Equal(t, had, twice.Contains(f))
		assert.Equal(t, size, twice.Size())

		s = s.Toggle(f)
		seen := map[int64]bool{}
		for _, id := range s.IDs() {
			require.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
	}
}

func TestTargetIsEarliestStillPresent(t *testing.T) {
	a, b, c, d := file(1, "a"), file(2, "b"), file(3, "c"), file(4, "d")

	s := Set{}.Toggle(a).Toggle(b).Toggle(c)
	target, ok := s.Target()
	require.True(t, ok)
	assert.Equal(t, int64(1), target.ID)
	assert.Equal(t, []int64{2, 3}, idsOf(s.Others()))

	// Re-toggling others does not move the target.
	s = s.Toggle(c).Toggle(d).Toggle(c)
	target, _ = s.Target()
	assert.Equal(t, int64(1), target.ID)

	// Removing the target promotes the next oldest.
	s = s.Toggle(a)
	target, _ = s.Target()
	assert.Equal(t, int64(2), target.ID)

	// A re-added file goes to the back.
	s = s.Toggle(a)
	target, _ = s.Target()
	assert.Equal(t, int64(2), target.ID)
	assert.Equal(t, []int64{2, 4, 3, 1}, s.IDs())
}

func TestEmptyAndClear(t *testing.T) {
	var s Set
	_, ok := s.Target()
	assert.False(t, ok)
	assert.Nil(t, s.Others())
	assert.Empty(t, s.Files())

	s = New(file(1, "a"), file(2, "b"), file(1, "dup"))
	assert.Equal(t, 2, s.Size())
	assert.Equal(t, 0, s.Clear().Size())
	assert.Equal(t, 2, s.Size())
}

func idsOf(files []model.CodeFile) []int64 {
	out := make([]int64, len(files))
	for i, f := range files {
		out[i] = f.ID
	}
	return out
}

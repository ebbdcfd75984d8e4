package hotspot //nolint:testpackage // exercises the package-level symbol helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeenSetTracksFrames(t *testing.T) {
	t.Parallel()

	seen := NewSeenSet()
	assert.Equal(t, 0, seen.Size())
	assert.False(t, seen.Mem(locA))

	seen.Add(0, locA)
	seen.Add(1, locB)
	seen.Add(2, locA)

	assert.Equal(t, 3, seen.Size())
	assert.True(t, seen.Mem(locA))
	assert.True(t, seen.Mem(locB))

	// Popping the deepest frame removes one A, the other remains.
	seen.PopUntil(2)
	assert.Equal(t, 2, seen.Size())
	assert.True(t, seen.Mem(locA))

	seen.PopUntil(0)
	assert.Equal(t, 0, seen.Size())
	assert.False(t, seen.Mem(locA))
	assert.False(t, seen.Mem(locB))
}

func TestSeenSetSparseDepths(t *testing.T) {
	t.Parallel()

	// Frames can skip raw depths when the driver drops duplicates.
	seen := NewSeenSet()
	seen.Add(0, locA)
	seen.Add(3, locB)
	seen.Add(7, locC)

	seen.PopUntil(3)
	assert.Equal(t, 1, seen.Size())
	assert.True(t, seen.Mem(locA))
	assert.False(t, seen.Mem(locB))
	assert.False(t, seen.Mem(locC))
}

func TestSeenSetDedupDriverPattern(t *testing.T) {
	t.Parallel()

	// The driver pattern: walk a backtrace, skipping symbols already on the
	// stack, and use Size as the deduplicated common prefix.
	seen := NewSeenSet()
	backtrace := []Location{locA, locB, locA, locC}

	var deduped []Location
	for depth, sym := range backtrace {
		if seen.Mem(sym) {
			continue
		}

		seen.Add(depth, sym)
		deduped = append(deduped, sym)
	}

	assert.Equal(t, []Location{locA, locB, locC}, deduped)
	assert.Equal(t, 3, seen.Size())
}

package hotspot //nolint:testpackage // drives cursor primitives against a hand-built tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSmallTree inserts [A B C $1] and returns the engine. The tree then
// holds leaves for every suffix hanging off the root.
func buildSmallTree(t *testing.T) *Engine {
	t.Helper()

	engine := newTestEngine(t, 0.01)
	checkedInsert(t, engine, 0, locs(locA, locB, locC, EndMarker(1)), 1)

	return engine
}

func TestCursorScanWalksEdges(t *testing.T) {
	t.Parallel()

	engine := buildSmallTree(t)

	var c cursor
	c.goTo(engine.root)

	input := locs(locA, locB, locC, EndMarker(1))
	for i := range input {
		assert.True(t, c.scan(input, i), "symbol %d", i)
	}

	// The full string ends exactly at its leaf.
	assert.True(t, c.atNode())
	assert.Equal(t, len(input), c.parent.depth)

	// A symbol that is not in the tree does not move the cursor.
	assert.False(t, c.scan(locs(locD), 0))
	assert.Equal(t, len(input), c.parent.depth)
}

func TestCursorRetractAscends(t *testing.T) {
	t.Parallel()

	engine := buildSmallTree(t)

	var c cursor
	c.goTo(engine.root)
	input := locs(locA, locB, locC, EndMarker(1))

	for i := range input {
		require.True(t, c.scan(input, i))
	}

	c.retract(3)
	assert.Equal(t, 1, c.parent.depth+c.length)

	c.retract(1)
	assert.True(t, c.atNode())
	assert.Same(t, engine.root, c.parent)
}

func TestCursorSplitAtMaterializesNode(t *testing.T) {
	t.Parallel()

	engine := buildSmallTree(t)

	var c cursor
	c.goTo(engine.root)
	input := locs(locA, locB)

	for i := range input {
		require.True(t, c.scan(input, i))
	}

	require.False(t, c.atNode())

	n := c.splitAt(engine)
	assert.Equal(t, 2, n.depth)
	assert.Equal(t, locs(locA, locB), n.label())
	assert.True(t, c.atNode())
	assert.Same(t, n, c.parent)

	// Splitting at a node position is the identity.
	assert.Same(t, n, c.splitAt(engine))
}

func TestCursorGoToSuffix(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, 0.01)
	checkedInsert(t, engine, 0, locs(locA, locB, EndMarker(1)), 1)
	checkedInsert(t, engine, 0, locs(locC, locB, EndMarker(2)), 1)

	// [B] exists as an interior node after the second insert.
	full := engine.root.findChild(locA)
	require.NotNil(t, full)
	require.Equal(t, 3, full.depth)

	var c cursor
	c.goToSuffix(full)

	suffix := c.splitAt(engine)
	assert.Equal(t, locs(locB, EndMarker(1)), suffix.label())
	assert.Same(t, full.suffixLink, suffix)
}

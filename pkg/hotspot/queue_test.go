package hotspot //nolint:testpackage // the leaf queue is internal plumbing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeafQueueIteratesDeepToShallow(t *testing.T) {
	t.Parallel()

	var q leafQueue

	shallow := &countCell{count: 1}
	deep := &countCell{count: 2}
	deeper := &countCell{count: 3}

	q.push(1, shallow)
	q.push(5, deeper)
	q.push(3, deep)

	var got []int64
	q.iter(func(_ int, cell *countCell) {
		got = append(got, cell.count)
	})

	assert.Equal(t, []int64{3, 2, 1}, got)
}

func TestLeafQueueUnlinkDuringIteration(t *testing.T) {
	t.Parallel()

	var q leafQueue

	cells := make([]*countCell, 4)
	for i := range cells {
		cells[i] = &countCell{count: int64(i)}
		q.push(2, cells[i])
	}

	// The iteration contract allows unlinking the current cell.
	var visited []int64
	q.iter(func(_ int, cell *countCell) {
		visited = append(visited, cell.count)

		if cell.count%2 == 0 {
			unlinkCell(cell)
		}
	})

	assert.Equal(t, []int64{0, 1, 2, 3}, visited)

	var remaining []int64
	q.iter(func(_ int, cell *countCell) {
		remaining = append(remaining, cell.count)
	})

	assert.Equal(t, []int64{1, 3}, remaining)
}

func TestLeafQueueAppendShallowerDuringIteration(t *testing.T) {
	t.Parallel()

	var q leafQueue

	q.push(4, &countCell{count: 40})

	var visited []int64
	q.iter(func(depth int, cell *countCell) {
		visited = append(visited, cell.count)

		if depth == 4 {
			// Squashing appends transfer cells at shallower depths; they
			// must be visited later in the same sweep.
			q.push(2, &countCell{count: 20})
		}
	})

	assert.Equal(t, []int64{40, 20}, visited)
}

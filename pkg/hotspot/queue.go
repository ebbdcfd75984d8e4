package hotspot

// countCell is a count datum linked into the leaf queue at its owner's depth.
// Counts are signed: the grandparent-via-suffix correction during squashing
// routes temporary negative deltas through cells, though the net sum over all
// paths into any node stays non-negative.
type countCell struct {
	node  *node
	count int64
	prev  *countCell
	next  *countCell
}

// cellList is a doubly linked list of count cells with front/back sentinels,
// holding every counted node at one depth in insertion order.
type cellList struct {
	front countCell
	back  countCell
}

func newCellList() *cellList {
	l := &cellList{}
	l.front.next = &l.back
	l.back.prev = &l.front

	return l
}

func (l *cellList) append(c *countCell) {
	c.prev = l.back.prev
	c.next = &l.back
	c.prev.next = c
	l.back.prev = c
}

func unlinkCell(c *countCell) {
	c.prev.next = c.next
	c.next.prev = c.prev
	c.prev = nil
	c.next = nil
}

// leafQueue indexes every count cell by the depth of its owning node. The
// squash pass walks it from the deepest list to depth zero, so a node is
// always considered after all of its descendants.
type leafQueue struct {
	depths []*cellList
}

// push appends cell to the list at depth, growing the index as needed.
func (q *leafQueue) push(depth int, cell *countCell) {
	for len(q.depths) <= depth {
		q.depths = append(q.depths, nil)
	}

	if q.depths[depth] == nil {
		q.depths[depth] = newCellList()
	}

	q.depths[depth].append(cell)
}

// iter calls fn for every cell, deepest list first. The callback may unlink
// the cell it is given (and may append cells at shallower depths, which are
// visited later in the same sweep); the next pointer is read before the
// callback runs.
func (q *leafQueue) iter(fn func(depth int, cell *countCell)) {
	for depth := len(q.depths) - 1; depth >= 0; depth-- {
		list := q.depths[depth]
		if list == nil {
			continue
		}

		for cell := list.front.next; cell != &list.back; {
			next := cell.next
			fn(depth, cell)
			cell = next
		}
	}
}

package hotspot

// cursor denotes a point on the tree: at parent when length is zero,
// otherwise length symbols into child's incoming edge. The engine owns one
// active cursor that survives between inserts; scratch cursors are used for
// suffix-link maintenance.
type cursor struct {
	parent *node
	child  *node
	length int
}

// goTo positions the cursor exactly at n.
func (c *cursor) goTo(n *node) {
	c.parent = n
	c.child = nil
	c.length = 0
}

// atNode reports whether the cursor sits exactly on a node.
func (c *cursor) atNode() bool {
	return c.length == 0
}

// normalize folds a fully traversed edge into a node position.
func (c *cursor) normalize() {
	if c.length > 0 && c.length == c.child.edge.length {
		c.parent = c.child
		c.child = nil
		c.length = 0
	}
}

// scan attempts to extend the cursor one symbol along array[index]. On
// success the cursor advances (possibly arriving at the child node) and scan
// reports true; on a mismatch the position is untouched.
func (c *cursor) scan(array []Location, index int) bool {
	if c.length == 0 {
		child := c.parent.findChild(array[index])
		if child == nil {
			return false
		}

		c.child = child
		c.length = 1
		c.normalize()

		return true
	}

	if c.child.edge.at(c.length) != array[index] {
		return false
	}

	c.length++
	c.normalize()

	return true
}

// retract moves the cursor distance symbols shallower along the current
// path, ascending through parents as needed.
func (c *cursor) retract(distance int) {
	for distance > 0 {
		if c.length > 0 {
			if c.length > distance {
				c.length -= distance

				return
			}

			distance -= c.length
			c.child = nil
			c.length = 0

			continue
		}

		n := c.parent
		doAssert(n.parent != nil)
		c.parent = n.parent
		c.child = n
		c.length = n.edge.length
	}
}

// rescan walks the cursor down array[start:start+length] without comparing
// edge interiors. Fast rescans are sound because the walked path is a suffix
// of a path already present in the tree.
func (c *cursor) rescan(array []Location, start, length int) {
	for length > 0 {
		if c.length == 0 {
			child := c.parent.findChild(array[start])
			doAssert(child != nil)
			c.child = child
		}

		remaining := c.child.edge.length - c.length
		step := min(remaining, length)
		c.length += step
		start += step
		length -= step
		c.normalize()
	}
}

// splitAt ensures the cursor lies on a node, splitting the current edge when
// mid-edge, and returns that node.
func (c *cursor) splitAt(e *Engine) *node {
	if c.length > 0 {
		mid := e.splitEdge(c.parent, c.child, c.length)
		c.goTo(mid)
	}

	return c.parent
}

// goToSuffix positions the cursor at the point representing n's label with
// its first symbol removed, following n's suffix link when present and
// otherwise rescanning n's edge from the parent's suffix position.
func (c *cursor) goToSuffix(n *node) {
	if n.suffixLink != nil {
		c.goTo(n.suffixLink)

		return
	}

	p := n.parent
	doAssert(p != nil)

	if p.parent == nil {
		// n hangs off the root: its suffix is the edge label minus the
		// leading symbol.
		c.goTo(p)
		c.rescan(n.edge.array, n.edge.start+1, n.edge.length-1)

		return
	}

	c.goToSuffix(p)
	c.rescan(n.edge.array, n.edge.start, n.edge.length)
}

package hotspot

// edge is the label on a node's incoming edge: a shared backing array plus a
// window, with the first symbol cached for O(1) child dispatch.
type edge struct {
	array  []Location
	start  int
	length int
	key    Location
}

func makeEdge(array []Location, start, length int) edge {
	e := edge{array: array, start: start, length: length, key: LocationNone}
	if length > 0 {
		e.key = array[start]
	}

	return e
}

// at returns the i-th symbol of the label.
func (e edge) at(i int) Location {
	return e.array[e.start+i]
}

// slice returns the label as a slice of the backing array.
func (e edge) slice() []Location {
	return e.array[e.start : e.start+e.length]
}

// node is a vertex of the suffix tree. The root is the only node with a
// non-nil childMap; all other nodes keep their children in a sibling list.
//
// refcount tracks 2 per incoming suffix link, 2 if the node carries a count
// datum, and 1 per child (root children and links to the root are exempt).
// A non-root node whose refcount reaches 0 is removable; at 1 it is a
// degree-1 interior node that collapses into its sole child.
type node struct {
	edge        edge
	parent      *node
	suffixLink  *node
	firstChild  *node
	nextSibling *node
	childMap    map[Location]*node

	depth    int
	refcount int
	data     *countCell
	out      *outputAcc

	// maxEdgeSquashed is the largest lossy-counting upper bound among counts
	// squashed while sitting on this node's incoming edge. maxChildSquashed
	// is the largest such bound ever observed on any child edge; fresh leaves
	// inherit it. Both are monotonically non-decreasing.
	maxEdgeSquashed  int64
	maxChildSquashed int64
}

// outputAcc accumulates per-node totals during report generation. It is
// transient: Output rebuilds it on every call.
type outputAcc struct {
	descendents      int64
	heavyDescendents int64
	total            int64
	heavy            int64
}

func newRoot() *node {
	return &node{
		edge:     makeEdge(nil, 0, 0),
		childMap: make(map[Location]*node),
	}
}

// findChild returns the child whose edge starts with key, or nil.
func (n *node) findChild(key Location) *node {
	if n.childMap != nil {
		return n.childMap[key]
	}

	for c := n.firstChild; c != nil; c = c.nextSibling {
		if c.edge.key == key {
			return c
		}
	}

	return nil
}

// attachChild links a fresh child into n's child set. Non-root parents gain
// a refcount for the sibling-list membership.
func (n *node) attachChild(c *node) {
	if n.childMap != nil {
		doAssert(n.childMap[c.edge.key] == nil)
		n.childMap[c.edge.key] = c

		return
	}

	c.nextSibling = n.firstChild
	n.firstChild = c
	n.refcount++
}

// replaceChild swaps old for repl in n's child set, preserving list order.
// Both children must share the same dispatch key; n's refcount is unchanged.
func (n *node) replaceChild(old, repl *node) {
	doAssert(old.edge.key == repl.edge.key)

	if n.childMap != nil {
		doAssert(n.childMap[old.edge.key] == old)
		n.childMap[old.edge.key] = repl

		return
	}

	repl.nextSibling = old.nextSibling
	old.nextSibling = nil

	if n.firstChild == old {
		n.firstChild = repl

		return
	}

	prev := n.firstChild
	for prev.nextSibling != old {
		doAssert(prev.nextSibling != nil)
		prev = prev.nextSibling
	}

	prev.nextSibling = repl
}

// detachChild unlinks c from n's child set. Non-root parents lose the
// sibling-list refcount; the caller decides what to do about it.
func (n *node) detachChild(c *node) {
	if n.childMap != nil {
		doAssert(n.childMap[c.edge.key] == c)
		delete(n.childMap, c.edge.key)

		return
	}

	if n.firstChild == c {
		n.firstChild = c.nextSibling
	} else {
		prev := n.firstChild
		for prev.nextSibling != c {
			doAssert(prev.nextSibling != nil)
			prev = prev.nextSibling
		}

		prev.nextSibling = c.nextSibling
	}

	c.nextSibling = nil
	n.refcount--
}

// addLeaf creates a leaf whose incoming edge is array[index:] and attaches it
// below parent. The leaf inherits the parent's worst child-edge squash bound
// so that lossy-counting upper bounds survive re-insertion below a pruned
// subtree.
func (e *Engine) addLeaf(parent *node, array []Location, index int) *node {
	length := len(array) - index
	doAssert(length > 0)

	leaf := &node{
		edge:             makeEdge(array, index, length),
		parent:           parent,
		depth:            parent.depth + length,
		maxEdgeSquashed:  parent.maxChildSquashed,
		maxChildSquashed: parent.maxChildSquashed,
	}
	parent.attachChild(leaf)
	e.stats.LiveNodes++

	return leaf
}

// splitEdge inserts an interior node on the edge parent->child carrying the
// first length symbols of child's label. With length == 0 the parent itself
// is the split point and is returned unchanged.
func (e *Engine) splitEdge(parent, child *node, length int) *node {
	if length == 0 {
		return parent
	}

	doAssert(length < child.edge.length)

	mid := &node{
		edge:             makeEdge(child.edge.array, child.edge.start, length),
		parent:           parent,
		depth:            parent.depth + length,
		maxEdgeSquashed:  child.maxEdgeSquashed,
		maxChildSquashed: child.maxEdgeSquashed,
	}
	parent.replaceChild(child, mid)

	child.edge.start += length
	child.edge.length -= length
	child.edge.key = child.edge.array[child.edge.start]
	child.parent = mid
	mid.firstChild = child
	mid.refcount = 1
	e.stats.LiveNodes++

	return mid
}

// mergeChild collapses the degree-1 interior node t into its sole child,
// concatenating the edge labels. The backing array is reused when the two
// windows are already contiguous in the same array; otherwise a fresh
// concatenation is allocated. Squash bounds fold into the survivor by
// maximum, so they can only grow.
func (e *Engine) mergeChild(t *node) *node {
	c := t.firstChild
	doAssert(c != nil && c.nextSibling == nil && t.data == nil)

	contiguous := t.edge.length > 0 && c.edge.length > 0 &&
		&t.edge.array[0] == &c.edge.array[0] &&
		t.edge.start+t.edge.length == c.edge.start

	if contiguous {
		c.edge.start = t.edge.start
		c.edge.length += t.edge.length
	} else {
		buf := make([]Location, t.edge.length+c.edge.length)
		copy(buf, t.edge.slice())
		copy(buf[t.edge.length:], c.edge.slice())
		c.edge = makeEdge(buf, 0, len(buf))
	}

	c.edge.key = t.edge.key
	c.parent = t.parent
	t.parent.replaceChild(t, c)
	t.firstChild = nil

	c.maxEdgeSquashed = max(c.maxEdgeSquashed, t.maxEdgeSquashed)
	c.maxChildSquashed = max(c.maxChildSquashed, t.maxChildSquashed)
	e.stats.LiveNodes--

	return c
}

// label materializes n's full path label from the root.
func (n *node) label() []Location {
	buf := make([]Location, n.depth)
	for m := n; m.parent != nil; m = m.parent {
		copy(buf[m.depth-m.edge.length:m.depth], m.edge.slice())
	}

	return buf
}

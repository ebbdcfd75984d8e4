package hotspot

import (
	"errors"
	"math"
)

// ErrInvalidErrorRate is returned by New when the error rate is outside (0, 1).
var ErrInvalidErrorRate = errors.New("error rate must be in (0, 1)")

// Stats exposes engine counters for instrumentation.
type Stats struct {
	Inserts        int64
	SampledWeight  int64
	LiveNodes      int64
	SquashedCounts int64
	CompressPasses int64
	CurrentBucket  int64
}

// Engine is the streaming heavy-hitter engine. It is single-threaded and not
// re-entrant; callers own exactly one goroutine's worth of access.
type Engine struct {
	root   *node
	queue  leafQueue
	cursor cursor

	bucketSize               int
	currentBucket            int64
	remainingInCurrentBucket int

	// Carryover between consecutive inserts. In compressed mode the previous
	// destination's full label is saved and the cursor restarts from the
	// root, because the compression pass may have destroyed the node the
	// cursor was sitting on. Otherwise the cursor is parked on the previous
	// destination and retracted to the shared prefix.
	compressed     bool
	savedLabel     []Location
	previousLength int

	total int64
	stats Stats
}

// New creates an engine with the given lossy-counting error rate. After k
// insertions any reported count is within k*errorRate of the true weight.
func New(errorRate float64) (*Engine, error) {
	if !(errorRate > 0 && errorRate < 1) {
		return nil, ErrInvalidErrorRate
	}

	bucketSize := int(math.Ceil(1 / errorRate))
	e := &Engine{
		root:                     newRoot(),
		bucketSize:               bucketSize,
		remainingInCurrentBucket: bucketSize,
		compressed:               true,
	}
	e.cursor.goTo(e.root)

	return e, nil
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	s := e.stats
	s.CurrentBucket = e.currentBucket

	return s
}

// Insert feeds one sampled string into the tree. commonPrefix is the number
// of leading symbols shared with the previously inserted string (zero for
// the first insert); the string actually inserted is the previous string's
// prefix of that length followed by extension. The extension must end with a
// fresh end marker and count must be non-negative; violations are programmer
// errors and panic.
func (e *Engine) Insert(commonPrefix int, extension []Location, count int64) {
	doAssert(count >= 0 && commonPrefix >= 0 && len(extension) > 0)

	var (
		arr  []Location
		base int
	)

	if e.compressed {
		doAssert(commonPrefix <= len(e.savedLabel))
		arr = make([]Location, 0, commonPrefix+len(extension))
		arr = append(arr, e.savedLabel[:commonPrefix]...)
		arr = append(arr, extension...)
		e.cursor.goTo(e.root)
	} else {
		doAssert(commonPrefix <= e.previousLength)
		e.cursor.retract(e.previousLength - commonPrefix)
		arr = extension
		base = commonPrefix
	}

	totalLen := base + len(arr)
	destination := e.insertString(arr, base)
	doAssert(destination.depth == totalLen)

	e.addToCount(destination, totalLen, count)
	e.total += count
	e.previousLength = totalLen
	e.stats.Inserts++
	e.stats.SampledWeight += count

	e.remainingInCurrentBucket--
	if e.remainingInCurrentBucket == 0 {
		e.currentBucket++
		e.remainingInCurrentBucket = e.bucketSize
		e.savedLabel = destination.label()
		e.cursor.goTo(e.root)
		e.compressed = true
		e.compress()

		return
	}

	e.cursor.goTo(destination)
	e.compressed = false
}

// insertString runs the online construction loop over arr, starting from the
// current cursor position which already matches base symbols of the full
// string. It returns the node for the full string: the leaf materialized for
// suffix offset zero, which always exists because the trailing end marker
// forces at least one mismatch.
func (e *Engine) insertString(arr []Location, base int) *node {
	var (
		destination *node
		prevLeaf    *node
	)

	j := 0
	index := 0

	for index < len(arr) {
		// Every suffix up through the current position is already present.
		if j > base+index {
			index++

			continue
		}

		if e.cursor.scan(arr, index) {
			index++

			continue
		}

		// Mismatch: materialize a node at the cursor, hang the remainder of
		// the string below it, and chase the suffix link.
		parent := e.cursor.splitAt(e)
		leaf := e.addLeaf(parent, arr, index)

		if prevLeaf != nil {
			e.setSuffix(prevLeaf, leaf)
		}

		if destination == nil {
			destination = leaf
		}

		prevLeaf = leaf
		j++

		if parent.parent == nil {
			// The empty suffix: nothing shallower to jump to.
			continue
		}

		e.cursor.goToSuffix(parent)

		if parent.suffixLink == nil {
			s := e.cursor.splitAt(e)
			e.setSuffix(parent, s)
			e.ensureSuffix(s)
		}
	}

	doAssert(destination != nil && prevLeaf != nil)

	if prevLeaf.suffixLink == nil {
		e.setSuffix(prevLeaf, e.root)
	}

	return destination
}

// setSuffix records target as n's suffix link, pinning the target with two
// refcounts. Links to the root are not counted; the root is never removed.
func (e *Engine) setSuffix(n, target *node) {
	doAssert(n.suffixLink == nil)
	n.suffixLink = target

	if target.parent != nil {
		target.refcount += 2
	}
}

// ensureSuffix walks the suffix chain from n, materializing and linking
// suffix nodes until it reaches one that is already linked. A scratch cursor
// is used so the engine's active cursor (parked on a node) stays valid.
func (e *Engine) ensureSuffix(n *node) {
	var c cursor

	for n.parent != nil && n.suffixLink == nil {
		c.goToSuffix(n)
		s := c.splitAt(e)
		e.setSuffix(n, s)
		n = s
	}
}

// addToCount adds delta to n's count datum, creating the datum (and its leaf
// queue cell at the given depth) when absent. Deltas aimed at the root are
// dropped: the root is never counted and its mass is exactly the running
// grand total.
func (e *Engine) addToCount(n *node, depth int, delta int64) {
	doAssert(n != nil)

	if n.parent == nil {
		return
	}

	doAssert(n.depth == depth)

	if n.data != nil {
		n.data.count += delta

		return
	}

	cell := &countCell{node: n, count: delta}
	e.queue.push(depth, cell)
	n.data = cell
	n.refcount += 2
}

// compress is the lossy-counting squash pass, run at every bucket boundary.
// Iterating deep-to-shallow guarantees that by the time a node is considered
// its descendants are resolved, so its refcount reflects deletions below.
func (e *Engine) compress() {
	threshold := e.currentBucket
	e.stats.CompressPasses++

	e.queue.iter(func(_ int, cell *countCell) {
		n := cell.node
		doAssert(n.data == cell)

		upperBound := cell.count + n.maxEdgeSquashed
		if upperBound >= threshold {
			return
		}

		unlinkCell(cell)
		n.data = nil
		n.refcount -= 2
		e.stats.SquashedCounts++
		e.squash(n, cell.count, upperBound, threshold)
	})
}

// squash deletes a count, recording its upper bound on the node's incoming
// edge and on the parent's child-edge bound, and transfers the mass one step
// shallower: onto the parent and the suffix, minus the parent's suffix (the
// grandparent-via-suffix correction that cancels the double claim).
func (e *Engine) squash(n *node, count, upperBound, threshold int64) {
	parent := n.parent
	n.maxEdgeSquashed = max(n.maxEdgeSquashed, upperBound)
	parent.maxChildSquashed = max(parent.maxChildSquashed, upperBound)

	if parent.parent != nil {
		doAssert(parent.suffixLink != nil)
		e.addToCount(parent.suffixLink, parent.depth-1, -count)
	}

	e.addToCount(parent, parent.depth, count)

	doAssert(n.suffixLink != nil)
	e.addToCount(n.suffixLink, n.depth-1, count)

	e.maybeCollapse(n, threshold)
}

// maybeCollapse reacts to a refcount drop: a node at zero with its bound
// below the threshold is removed outright; a node at one is a degree-1
// interior that collapses into its sole child. Nodes at zero whose bound
// still reaches the threshold are kept so the bound survives re-insertion.
func (e *Engine) maybeCollapse(n *node, threshold int64) {
	if n.parent == nil || n.data != nil {
		return
	}

	switch n.refcount {
	case 0:
		if n.maxEdgeSquashed < threshold {
			e.removeNode(n, threshold)
		}
	case 1:
		doAssert(n.firstChild != nil && n.firstChild.nextSibling == nil)
		e.mergeChild(n)
		e.dropSuffixRef(n, threshold)
	}
}

// removeNode unlinks a dead node and releases the references it held.
func (e *Engine) removeNode(n *node, threshold int64) {
	doAssert(n.refcount == 0 && n.data == nil && n.firstChild == nil)

	parent := n.parent
	parent.detachChild(n)
	e.stats.LiveNodes--

	e.dropSuffixRef(n, threshold)
	e.maybeCollapse(parent, threshold)
}

// dropSuffixRef releases the suffix reference held by a node that is going
// away, cascading the squash when the target in turn becomes unreferenced.
func (e *Engine) dropSuffixRef(n *node, threshold int64) {
	target := n.suffixLink
	if target == nil || target.parent == nil {
		return
	}

	target.refcount -= 2
	e.maybeCollapse(target, threshold)
}

package hotspot

import "sort"

// HeavyHitter is one reported location sequence. Light is the lower-bound
// weight attributable to the sequence alone, Total the mid estimate, and
// Upper the lossy-counting upper bound.
type HeavyHitter struct {
	Label []Location
	Light int64
	Total int64
	Upper int64
}

// Output reports every location sequence whose attributable weight exceeds
// frequency times the grand total, sorted by descending Light, together with
// the grand total of inserted weight. Calling Output twice without
// intervening inserts returns identical results.
func (e *Engine) Output(frequency float64) ([]HeavyHitter, int64) {
	doAssert(frequency >= 0 && frequency <= 1)

	threshold := int64(frequency * float64(e.total))
	byDepth := e.nodesByDepth()

	// Descendant-count pass, deepest first. Totals flow to the parent and to
	// the suffix, minus the parent's suffix (which would otherwise be
	// claimed twice); heavy totals flow along suffix links, so that a deeper
	// reported sequence claims the weight of every suffix it covers.
	for depth := len(byDepth) - 1; depth >= 0; depth-- {
		for _, n := range byDepth[depth] {
			acc := n.out

			var own int64
			if n.data != nil {
				own = n.data.count
			}

			total := own + acc.descendents
			light := total - acc.heavyDescendents

			heavy := acc.heavyDescendents
			if light+n.maxEdgeSquashed > threshold {
				heavy = total
			}

			acc.total = total
			acc.heavy = heavy

			if n.parent == nil {
				continue
			}

			n.parent.out.descendents += total

			suffix := n.suffixLink
			doAssert(suffix != nil)

			if suffix.parent != nil {
				suffix.out.descendents += total
				suffix.out.heavyDescendents += heavy
			}

			if grand := n.parent.suffixLink; grand != nil && grand.parent != nil {
				grand.out.descendents -= total
			}
		}
	}

	items := e.collect(e.root, threshold)

	return items, e.total
}

// nodesByDepth enumerates the tree and buckets nodes by depth, attaching a
// fresh output accumulator to each.
func (e *Engine) nodesByDepth() [][]*node {
	var byDepth [][]*node

	var walk func(n *node)
	walk = func(n *node) {
		n.out = &outputAcc{}

		for len(byDepth) <= n.depth {
			byDepth = append(byDepth, nil)
		}

		byDepth[n.depth] = append(byDepth[n.depth], n)

		for _, c := range n.sortedChildren() {
			walk(c)
		}
	}
	walk(e.root)

	return byDepth
}

// sortedChildren returns the children in a deterministic order: sibling
// lists keep their insertion order, the root's hash map is sorted by key.
func (n *node) sortedChildren() []*node {
	if n.childMap != nil {
		children := make([]*node, 0, len(n.childMap))
		for _, c := range n.childMap {
			children = append(children, c)
		}

		sort.Slice(children, func(i, j int) bool {
			return children[i].edge.key < children[j].edge.key
		})

		return children
	}

	var children []*node
	for c := n.firstChild; c != nil; c = c.nextSibling {
		children = append(children, c)
	}

	return children
}

// collect performs the post-order selection pass: a node is reported when
// its light total plus its edge squash bound clears the threshold. Sibling
// results are combined with a stable two-way merge by descending light
// total, so items from one subtree stay grouped among equals.
func (e *Engine) collect(n *node, threshold int64) []HeavyHitter {
	var merged []HeavyHitter
	for _, c := range n.sortedChildren() {
		merged = mergeByLight(merged, e.collect(c, threshold))
	}

	if n.parent == nil {
		return merged
	}

	light := n.out.total - n.out.heavyDescendents
	if light+n.maxEdgeSquashed > threshold {
		item := HeavyHitter{
			Label: n.label(),
			Light: light,
			Total: n.out.total,
			Upper: n.out.total + n.maxEdgeSquashed,
		}
		merged = mergeByLight([]HeavyHitter{item}, merged)
	}

	return merged
}

// mergeByLight merges two lists already sorted by descending Light, stably
// preferring the first list on ties.
func mergeByLight(a, b []HeavyHitter) []HeavyHitter {
	if len(a) == 0 {
		return b
	}

	if len(b) == 0 {
		return a
	}

	out := make([]HeavyHitter, 0, len(a)+len(b))

	for len(a) > 0 && len(b) > 0 {
		if a[0].Light >= b[0].Light {
			out = append(out, a[0])
			a = a[1:]
		} else {
			out = append(out, b[0])
			b = b[1:]
		}
	}

	out = append(out, a...)
	out = append(out, b...)

	return out
}

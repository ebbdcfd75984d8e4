// Package hotspot implements a streaming approximate heavy-hitter engine over
// suffix sequences. It combines a generalized online (Ukkonen) suffix tree
// with lossy counting so that memory stays bounded regardless of input
// length, at the cost of a bounded error on reported counts.
//
// The intended use is memory-allocation profiling: every sampled allocation
// contributes its backtrace (a sequence of call-site codes terminated by a
// fresh end marker) together with a sample weight, and Output reports which
// contiguous backtrace suffixes account for more than a chosen fraction of
// the total sampled weight.
package hotspot

import (
	"fmt"
	"math"
)

// Location is an opaque call-site symbol. Values are compared for equality
// and used as hash keys; the engine attaches no other meaning to them.
type Location uint64

// LocationNone is the distinguished dummy symbol. It never appears in a
// valid backtrace.
const LocationNone Location = math.MaxUint64

// endMarkerBit tags synthetic end-of-string symbols. End markers are unique
// per inserted string and never recur mid-string, which guarantees that every
// inserted string terminates at a leaf of the tree.
const endMarkerBit = Location(1) << 63

// EndMarker returns the i-th synthetic end-of-string symbol. Callers must
// never reuse an index across inserts.
func EndMarker(i uint64) Location {
	marker := endMarkerBit | Location(i)
	doAssert(marker != LocationNone)

	return marker
}

// IsEndMarker reports whether l is a synthetic end-of-string symbol.
func (l Location) IsEndMarker() bool {
	return l != LocationNone && l&endMarkerBit != 0
}

// String formats the symbol for diagnostics.
func (l Location) String() string {
	switch {
	case l == LocationNone:
		return "<none>"
	case l.IsEndMarker():
		return fmt.Sprintf("<end#%d>", uint64(l&^endMarkerBit))
	default:
		return fmt.Sprintf("loc#%x", uint64(l))
	}
}

// doAssert panics when an engine invariant is broken. Broken invariants are
// programmer errors; there is no recovery.
func doAssert(condition bool) {
	if !condition {
		panic("hotspot internal assertion failed")
	}
}

package trace

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// defaultFormatCacheSize bounds the formatted-location LRU cache.
const defaultFormatCacheSize = 4096

// Resolver maps location codes to source frames using the trace's location
// table, and caches formatted renderings in an LRU since the same hot call
// sites recur across report rows.
type Resolver struct {
	table map[uint64][]Frame

	entries  map[uint64]*formatEntry
	head     *formatEntry // Most recently used.
	tail     *formatEntry // Least recently used.
	capacity int

	hits   atomic.Int64
	misses atomic.Int64
}

// formatEntry is a doubly-linked list node for LRU tracking.
type formatEntry struct {
	code      uint64
	formatted string
	prev      *formatEntry
	next      *formatEntry
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		table:    make(map[uint64][]Frame),
		entries:  make(map[uint64]*formatEntry),
		capacity: defaultFormatCacheSize,
	}
}

// Define records the frames behind a location code. Redefinitions keep the
// first definition, matching the write-once contract of the format.
func (r *Resolver) Define(code uint64, frames []Frame) {
	if _, exists := r.table[code]; exists {
		return
	}

	r.table[code] = frames
}

// Resolve returns the frames behind a location code.
func (r *Resolver) Resolve(code uint64) ([]Frame, bool) {
	frames, ok := r.table[code]

	return frames, ok
}

// Format renders a location code as one "defname (file:line)" entry per
// inlined frame, joined with "; ", falling back to the raw code when
// undefined.
func (r *Resolver) Format(code uint64) string {
	if entry, ok := r.entries[code]; ok {
		r.hits.Add(1)
		r.moveToFront(entry)

		return entry.formatted
	}

	r.misses.Add(1)

	frames, ok := r.table[code]
	if !ok {
		return fmt.Sprintf("<unresolved %#x>", code)
	}

	parts := make([]string, len(frames))
	for i, f := range frames {
		parts[i] = fmt.Sprintf("%s (%s:%d)", f.Defname, f.Filename, f.Line)
	}

	formatted := strings.Join(parts, "; ")
	r.insert(code, formatted)

	return formatted
}

// CacheStats returns the formatted-location cache hit and miss counters.
func (r *Resolver) CacheStats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}

func (r *Resolver) insert(code uint64, formatted string) {
	entry := &formatEntry{code: code, formatted: formatted}
	r.entries[code] = entry
	r.pushFront(entry)

	for len(r.entries) > r.capacity {
		oldest := r.tail
		r.unlink(oldest)
		delete(r.entries, oldest.code)
	}
}

func (r *Resolver) pushFront(entry *formatEntry) {
	entry.next = r.head
	if r.head != nil {
		r.head.prev = entry
	}

	r.head = entry
	if r.tail == nil {
		r.tail = entry
	}
}

func (r *Resolver) moveToFront(entry *formatEntry) {
	if r.head == entry {
		return
	}

	r.unlink(entry)
	r.pushFront(entry)
}

func (r *Resolver) unlink(entry *formatEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		r.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		r.tail = entry.prev
	}

	entry.prev = nil
	entry.next = nil
}

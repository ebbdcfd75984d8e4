// Package trace implements the memtrace binary allocation-trace format: a
// stream of sampled allocation events with backtraces, interleaved with
// location definitions, behind a small metadata header. Files may be stored
// LZ4-compressed; the .lz4 extension selects compression transparently on
// both ends.
package trace

import "errors"

// Format constants.
const (
	// magic identifies a memtrace trace stream.
	magic = "MTRC1"

	// lz4Extension marks transparently compressed trace files.
	lz4Extension = ".lz4"
)

// Event tags on the wire.
const (
	tagAlloc    = 0x01
	tagPromote  = 0x02
	tagCollect  = 0x03
	tagLocation = 0x04
)

// Wire format errors.
var (
	// ErrBadMagic is returned when a file does not start with the trace magic.
	ErrBadMagic = errors.New("not a memtrace trace file")

	// ErrCorrupt is returned when the stream violates the format.
	ErrCorrupt = errors.New("corrupt trace stream")
)

// Metadata describes the traced process. WordSize is carried in the trace so
// reporters can convert sampled words to bytes without out-of-band knowledge.
type Metadata struct {
	Executable string
	PID        int64
	SampleRate float64
	WordSize   int
}

// Frame is one resolved source position of a location code. A single code
// can expand to several frames when inlining collapsed call sites.
type Frame struct {
	Filename  string
	Line      int
	StartChar int
	EndChar   int
	Defname   string
}

// Event is one record of the trace stream.
type Event interface {
	eventKind() string
}

// AllocEvent is a sampled allocation. Backtrace is the full backtrace
// (outermost frame first); CommonPrefix is the number of leading frames
// shared with the previous allocation's backtrace, already validated by the
// reader.
type AllocEvent struct {
	NSamples     int64
	CommonPrefix int
	Backtrace    []uint64
}

// PromoteEvent records a sampled block surviving a collection. The heavy
// hitter profiler parses and ignores it.
type PromoteEvent struct {
	ID uint64
}

// CollectEvent records a sampled block being collected. The heavy hitter
// profiler parses and ignores it.
type CollectEvent struct {
	ID uint64
}

// LocationEvent defines the source frames behind a location code. Codes are
// defined at most once, before their first use in a backtrace.
type LocationEvent struct {
	Code   uint64
	Frames []Frame
}

func (AllocEvent) eventKind() string    { return "alloc" }
func (PromoteEvent) eventKind() string  { return "promote" }
func (CollectEvent) eventKind() string  { return "collect" }
func (LocationEvent) eventKind() string { return "location" }

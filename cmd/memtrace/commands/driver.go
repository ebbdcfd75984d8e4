// Package commands implements CLI command handlers for memtrace.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonahbeckford/memtrace/pkg/hotspot"
	"github.com/jonahbeckford/memtrace/pkg/trace"
)

// analysis holds everything a renderer needs after a trace has been driven
// through the engine.
type analysis struct {
	meta     trace.Metadata
	resolver *trace.Resolver
	engine   *hotspot.Engine
	events   int64
}

// analyzeTrace streams every event of the trace file into a fresh engine,
// deduplicating recursive frames with a seen-set before each insert.
func analyzeTrace(logger *slog.Logger, path string, errorRate float64) (*analysis, error) {
	reader, err := trace.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	engine, err := hotspot.New(errorRate)
	if err != nil {
		return nil, err
	}

	result := &analysis{
		meta:     reader.Metadata(),
		resolver: trace.NewResolver(),
		engine:   engine,
	}

	seen := hotspot.NewSeenSet()

	var markerSeq uint64

	for {
		event, nextErr := reader.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}

		if nextErr != nil {
			return nil, fmt.Errorf("read trace event: %w", nextErr)
		}

		result.events++

		switch ev := event.(type) {
		case trace.LocationEvent:
			result.resolver.Define(ev.Code, ev.Frames)
		case trace.AllocEvent:
			markerSeq++
			insertAlloc(engine, seen, ev, markerSeq)
		case trace.PromoteEvent, trace.CollectEvent:
			// Block lifetime events are not part of the hotspot analysis.
		}
	}

	stats := engine.Stats()
	logger.Debug("trace analyzed",
		"path", path,
		"events", result.events,
		"inserts", stats.Inserts,
		"live_nodes", stats.LiveNodes,
		"squashed", stats.SquashedCounts,
	)

	return result, nil
}

// insertAlloc strips revisited frames from the backtrace and feeds the
// deduplicated extension to the engine. The seen-set maps the reader's raw
// common prefix onto the deduplicated prefix length the engine expects.
func insertAlloc(engine *hotspot.Engine, seen *hotspot.SeenSet, ev trace.AllocEvent, marker uint64) {
	seen.PopUntil(ev.CommonPrefix)
	common := seen.Size()

	extension := make([]hotspot.Location, 0, len(ev.Backtrace)-ev.CommonPrefix+1)

	for depth := ev.CommonPrefix; depth < len(ev.Backtrace); depth++ {
		sym := hotspot.Location(ev.Backtrace[depth])
		if seen.Mem(sym) {
			continue
		}

		seen.Add(depth, sym)
		extension = append(extension, sym)
	}

	extension = append(extension, hotspot.EndMarker(marker))
	engine.Insert(common, extension, ev.NSamples)
}

// Package report renders heavy-hitter analysis results as terminal tables,
// JSON, or standalone HTML charts.
package report

import (
	"github.com/jonahbeckford/memtrace/pkg/hotspot"
	"github.com/jonahbeckford/memtrace/pkg/trace"
)

// Item is one reported backtrace suffix with its weight bounds and the
// derived byte estimate.
type Item struct {
	// Frames holds the resolved call sites, outermost first. End markers
	// are stripped; they only delimit individual sampled allocations.
	Frames []string `json:"frames"`

	Light int64 `json:"light"`
	Total int64 `json:"total"`
	Upper int64 `json:"upper"`

	// Bytes estimates the allocated bytes behind Total, scaled by the
	// trace's sample rate and word size.
	Bytes uint64 `json:"bytes"`

	// Share is Total relative to the grand total.
	Share float64 `json:"share"`
}

// Report is a fully resolved analysis result ready for rendering.
type Report struct {
	Executable string  `json:"executable"`
	PID        int64   `json:"pid"`
	SampleRate float64 `json:"sample_rate"`
	WordSize   int     `json:"word_size"`
	GrandTotal int64   `json:"grand_total"`
	TotalBytes uint64  `json:"total_bytes"`
	Items      []Item  `json:"items"`
}

// New resolves raw engine output into a renderable report. A positive top
// truncates to the heaviest entries; the input order (descending light
// total) is preserved.
func New(
	hitters []hotspot.HeavyHitter,
	grandTotal int64,
	meta trace.Metadata,
	resolver *trace.Resolver,
	top int,
) *Report {
	if top > 0 && len(hitters) > top {
		hitters = hitters[:top]
	}

	items := make([]Item, 0, len(hitters))
	for _, h := range hitters {
		items = append(items, Item{
			Frames: resolveLabel(h.Label, resolver),
			Light:  h.Light,
			Total:  h.Total,
			Upper:  h.Upper,
			Bytes:  samplesToBytes(h.Total, meta),
			Share:  share(h.Total, grandTotal),
		})
	}

	return &Report{
		Executable: meta.Executable,
		PID:        meta.PID,
		SampleRate: meta.SampleRate,
		WordSize:   meta.WordSize,
		GrandTotal: grandTotal,
		TotalBytes: samplesToBytes(grandTotal, meta),
		Items:      items,
	}
}

func resolveLabel(label []hotspot.Location, resolver *trace.Resolver) []string {
	frames := make([]string, 0, len(label))
	for _, sym := range label {
		if sym.IsEndMarker() {
			continue
		}

		frames = append(frames, resolver.Format(uint64(sym)))
	}

	return frames
}

// samplesToBytes converts a sampled word count to estimated bytes: each
// sample stands for 1/rate words of wordSize bytes.
func samplesToBytes(samples int64, meta trace.Metadata) uint64 {
	if samples <= 0 || meta.SampleRate <= 0 {
		return 0
	}

	return uint64(float64(samples) / meta.SampleRate * float64(meta.WordSize))
}

func share(total, grand int64) float64 {
	if grand == 0 {
		return 0
	}

	return float64(total) / float64(grand)
}

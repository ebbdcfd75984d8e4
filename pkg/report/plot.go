package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	plotWidth  = "1200px"
	plotHeight = "640px"

	// plotLabelFrames bounds how many frames of a suffix appear in an axis
	// label before it is elided.
	plotLabelFrames = 3
)

// RenderPlot writes the report as a standalone HTML page with a bar chart of
// the estimated bytes per heavy suffix.
func (r *Report) RenderPlot(w io.Writer) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: fmt.Sprintf("memtrace hotspots: %s", r.Executable),
			Width:     plotWidth,
			Height:    plotHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Allocation hotspots: %s (pid %d)", r.Executable, r.PID),
			Subtitle: fmt.Sprintf("grand total %d samples", r.GrandTotal),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	labels := make([]string, 0, len(r.Items))
	values := make([]opts.BarData, 0, len(r.Items))

	for _, item := range r.Items {
		labels = append(labels, plotLabel(item))
		values = append(values, opts.BarData{Value: item.Bytes})
	}

	bar.SetXAxis(labels).AddSeries("estimated bytes", values)

	err := bar.Render(w)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}

func plotLabel(item Item) string {
	frames := item.Frames
	if len(frames) == 0 {
		return "<empty>"
	}

	if len(frames) > plotLabelFrames {
		frames = append([]string{"…"}, frames[len(frames)-plotLabelFrames:]...)
	}

	short := make([]string, len(frames))
	for i, frame := range frames {
		// Keep only the defname part of "defname (file:line)" lines.
		if cut := strings.Index(frame, " ("); cut > 0 {
			short[i] = frame[:cut]
		} else {
			short[i] = frame
		}
	}

	return strings.Join(short, " → ")
}

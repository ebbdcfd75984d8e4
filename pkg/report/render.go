package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	percentScale = 100

	// hotShare marks rows worth highlighting in the terminal table.
	hotShare = 0.10

	frameIndent = "  "
)

// RenderTable writes the report as a terminal table.
func (r *Report) RenderTable(w io.Writer, noColor bool) error {
	title := color.New(color.Bold)
	title.DisableColor()

	if !noColor {
		title.EnableColor()
	}

	_, err := fmt.Fprintf(w, "%s (pid %d): %s sampled across %d samples\n\n",
		title.Sprint(r.Executable), r.PID, humanize.IBytes(r.TotalBytes), r.GrandTotal)
	if err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Backtrace suffix", "Bytes", "Share", "Lower", "Est", "Upper"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 80},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	hot := color.New(color.FgRed, color.Bold)
	hot.DisableColor()

	if !noColor {
		hot.EnableColor()
	}

	for rank, item := range r.Items {
		suffix := strings.Join(item.Frames, "\n")
		shareText := fmt.Sprintf("%.1f%%", item.Share*percentScale)

		if item.Share >= hotShare {
			shareText = hot.Sprint(shareText)
		}

		tw.AppendRow(table.Row{
			rank + 1,
			suffix,
			humanize.IBytes(item.Bytes),
			shareText,
			item.Light,
			item.Total,
			item.Upper,
		})
	}

	tw.Render()

	return nil
}

// RenderJSON writes the report as indented JSON.
func (r *Report) RenderJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return nil
}

// RenderText writes a plain indented listing, an alternative to the table
// for deep backtraces. The CLI renders only the table and JSON formats.
func (r *Report) RenderText(w io.Writer) error {
	for rank, item := range r.Items {
		_, err := fmt.Fprintf(w, "#%d %s (%.1f%%, est %d in [%d, %d])\n",
			rank+1, humanize.IBytes(item.Bytes), item.Share*percentScale,
			item.Total, item.Light, item.Upper)
		if err != nil {
			return fmt.Errorf("write report item: %w", err)
		}

		for _, frame := range item.Frames {
			if _, err := fmt.Fprintf(w, "%s%s\n", frameIndent, frame); err != nil {
				return fmt.Errorf("write report frame: %w", err)
			}
		}
	}

	return nil
}

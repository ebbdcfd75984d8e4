package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonahbeckford/memtrace/pkg/config"
	"github.com/jonahbeckford/memtrace/pkg/report"
)

// defaultPlotOutput is where the chart lands without -o.
const defaultPlotOutput = "hotspots.html"

// NewPlotCommand creates the plot command.
func NewPlotCommand() *cobra.Command {
	var (
		output    string
		frequency float64
		errorRate float64
		top       int
	)

	cmd := &cobra.Command{
		Use:   "plot <trace-file>",
		Short: "Write an HTML bar chart of allocation hotspots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default()

			result, err := analyzeTrace(logger, args[0], errorRate)
			if err != nil {
				return err
			}

			items, grandTotal := result.engine.Output(frequency)
			rep := report.New(items, grandTotal, result.meta, result.resolver, top)

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create plot output: %w", err)
			}
			defer file.Close()

			renderErr := rep.RenderPlot(file)
			if renderErr != nil {
				return renderErr
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d hitters)\n", output, len(rep.Items))

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "out", "o", defaultPlotOutput, "output HTML file")
	cmd.Flags().Float64Var(&frequency, "frequency", config.DefaultFrequency,
		"fraction of total weight a suffix must exceed to be reported")
	cmd.Flags().Float64Var(&errorRate, "error", config.DefaultErrorRate, "lossy counting error tolerance")
	cmd.Flags().IntVar(&top, "top", 30, "limit the chart to the heaviest N entries (0 = all)")

	return cmd
}

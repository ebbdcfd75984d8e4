package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonahbeckford/memtrace/pkg/config"
	"github.com/jonahbeckford/memtrace/pkg/observability"
	"github.com/jonahbeckford/memtrace/pkg/report"
)

// ErrBadFraction is returned for positional frequency/error arguments
// outside their valid ranges.
var ErrBadFraction = errors.New("fraction out of range")

// HotspotsOptions holds the flag values of the hotspots command.
type HotspotsOptions struct {
	ConfigPath string
	Frequency  float64
	ErrorRate  float64
	Format     string
	Top        int
	NoColor    bool

	OTLPEndpoint string
	MetricsAddr  string

	// Set when the short positional form supplied the values.
	frequencyFromArgs bool
	errorFromArgs     bool
}

// NewHotspotsCommand creates the hotspots command.
func NewHotspotsCommand() *cobra.Command {
	opts := &HotspotsOptions{}

	cmd := &cobra.Command{
		Use:   "hotspots <trace-file> [frequency [error]]",
		Short: "Report backtrace suffixes dominating sampled allocations",
		Long: `Hotspots reads a memtrace allocation trace and reports every backtrace
suffix whose sampled weight exceeds frequency times the total, with lossy
counting bounded by the error rate.`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyErr := applyPositional(opts, args)
			if applyErr != nil {
				return applyErr
			}

			return runHotspots(cmd.Context(), opts, args[0], cmd.OutOrStdout(), cmd.Flags().Changed)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to a memtrace.yaml config file")
	cmd.Flags().Float64Var(&opts.Frequency, "frequency", config.DefaultFrequency,
		"fraction of total weight a suffix must exceed to be reported")
	cmd.Flags().Float64Var(&opts.ErrorRate, "error", config.DefaultErrorRate,
		"lossy counting error tolerance")
	cmd.Flags().StringVar(&opts.Format, "format", config.FormatTable, "output format: table or json")
	cmd.Flags().IntVar(&opts.Top, "top", config.DefaultTop, "limit output to the heaviest N entries (0 = all)")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "disable terminal colors")
	cmd.Flags().StringVar(&opts.OTLPEndpoint, "otlp-endpoint", "", "export traces and metrics via OTLP gRPC")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

// applyPositional maps the optional positional frequency/error arguments
// onto the flag values, keeping the short trace-file invocation working.
func applyPositional(opts *HotspotsOptions, args []string) error {
	if len(args) > 1 {
		frequency, err := strconv.ParseFloat(args[1], 64)
		if err != nil || frequency < 0 || frequency > 1 {
			return fmt.Errorf("%w: frequency %q", ErrBadFraction, args[1])
		}

		opts.Frequency = frequency
		opts.frequencyFromArgs = true
	}

	if len(args) > 2 {
		errorRate, err := strconv.ParseFloat(args[2], 64)
		if err != nil || errorRate <= 0 || errorRate >= 1 {
			return fmt.Errorf("%w: error %q", ErrBadFraction, args[2])
		}

		opts.ErrorRate = errorRate
		opts.errorFromArgs = true
	}

	return nil
}

// resolveSettings layers config file values under explicitly set flags.
func resolveSettings(opts *HotspotsOptions, changed func(string) bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if changed("frequency") || opts.frequencyFromArgs {
		cfg.Analysis.Frequency = opts.Frequency
	}

	if changed("error") || opts.errorFromArgs {
		cfg.Analysis.ErrorRate = opts.ErrorRate
	}

	if changed("format") {
		cfg.Report.Format = opts.Format
	}

	if changed("top") {
		cfg.Analysis.Top = opts.Top
	}

	if changed("no-color") {
		cfg.Report.NoColor = opts.NoColor
	}

	if changed("otlp-endpoint") {
		cfg.Observability.OTLPEndpoint = opts.OTLPEndpoint
	}

	if changed("metrics-addr") {
		cfg.Observability.MetricsAddr = opts.MetricsAddr
	}

	return cfg, nil
}

func runHotspots(
	ctx context.Context,
	opts *HotspotsOptions,
	tracePath string,
	out io.Writer,
	changed func(string) bool,
) error {
	cfg, err := resolveSettings(opts, changed)
	if err != nil {
		return err
	}

	providers, err := observability.Init(observability.Config{
		ServiceName:  cfg.Observability.ServiceName,
		Environment:  cfg.Observability.Environment,
		OTLPEndpoint: cfg.Observability.OTLPEndpoint,
		MetricsAddr:  cfg.Observability.MetricsAddr,
		LogLevel:     parseLogLevel(cfg.Logging.Level),
		LogFormat:    cfg.Logging.Format,
	})
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(ctx)
		if shutdownErr != nil {
			providers.Logger.Warn("telemetry shutdown failed", "err", shutdownErr)
		}
	}()

	rep, err := analyzeAndBuild(ctx, providers, cfg, tracePath)
	if err != nil {
		return err
	}

	if cfg.Report.Format == config.FormatJSON {
		return rep.RenderJSON(out)
	}

	return rep.RenderTable(out, cfg.Report.NoColor)
}

// analyzeAndBuild runs the engine over the trace and resolves the output
// into a report, recording engine metrics along the way.
func analyzeAndBuild(
	ctx context.Context,
	providers observability.Providers,
	cfg *config.Config,
	tracePath string,
) (*report.Report, error) {
	metrics, err := observability.NewEngineMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}

	ctx, span := providers.Tracer.Start(ctx, "memtrace.hotspots")
	defer span.End()

	started := time.Now()

	result, err := analyzeTrace(providers.Logger, tracePath, cfg.Analysis.ErrorRate)
	if err != nil {
		return nil, err
	}

	items, grandTotal := result.engine.Output(cfg.Analysis.Frequency)

	stats := result.engine.Stats()
	metrics.RecordRun(ctx, stats.Inserts, stats.SampledWeight, stats.SquashedCounts,
		stats.LiveNodes, time.Since(started))

	providers.Logger.InfoContext(ctx, "analysis complete",
		"trace", tracePath,
		"hitters", len(items),
		"grand_total", grandTotal,
	)

	return report.New(items, grandTotal, result.meta, result.resolver, cfg.Analysis.Top), nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
)

const (
	metricInsertsTotal     = "memtrace.engine.inserts.total"
	metricWeightTotal      = "memtrace.engine.sampled_weight.total"
	metricSquashedTotal    = "memtrace.engine.squashed_counts.total"
	metricLiveNodes        = "memtrace.engine.live_nodes"
	metricAnalysisDuration = "memtrace.engine.analysis.duration.seconds"
)

// durationBucketBoundaries covers sub-millisecond passes up to whole-trace
// analyses of several minutes.
var durationBucketBoundaries = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300,
}

// EngineMetrics holds OTel instruments for heavy-hitter engine metrics.
type EngineMetrics struct {
	inserts          metric.Int64Counter
	weight           metric.Int64Counter
	squashed         metric.Int64Counter
	liveNodes        metric.Int64Gauge
	analysisDuration metric.Float64Histogram
}

// NewEngineMetrics creates engine metric instruments from the given meter.
func NewEngineMetrics(mt metric.Meter) (*EngineMetrics, error) {
	inserts, err := mt.Int64Counter(metricInsertsTotal,
		metric.WithDescription("Sampled allocations inserted"),
		metric.WithUnit("{allocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInsertsTotal, err)
	}

	weight, err := mt.Int64Counter(metricWeightTotal,
		metric.WithDescription("Total sampled weight inserted"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricWeightTotal, err)
	}

	squashed, err := mt.Int64Counter(metricSquashedTotal,
		metric.WithDescription("Counts squashed by the lossy-counting pass"),
		metric.WithUnit("{count}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSquashedTotal, err)
	}

	liveNodes, err := mt.Int64Gauge(metricLiveNodes,
		metric.WithDescription("Live suffix tree nodes"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricLiveNodes, err)
	}

	analysisDuration, err := mt.Float64Histogram(metricAnalysisDuration,
		metric.WithDescription("Whole-trace analysis duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricAnalysisDuration, err)
	}

	return &EngineMetrics{
		inserts:          inserts,
		weight:           weight,
		squashed:         squashed,
		liveNodes:        liveNodes,
		analysisDuration: analysisDuration,
	}, nil
}

// RecordRun reports the counters accumulated over one trace analysis.
func (em *EngineMetrics) RecordRun(
	ctx context.Context, inserts, weight, squashed, liveNodes int64, elapsed time.Duration,
) {
	em.inserts.Add(ctx, inserts)
	em.weight.Add(ctx, weight)
	em.squashed.Add(ctx, squashed)
	em.liveNodes.Record(ctx, liveNodes)
	em.analysisDuration.Record(ctx, elapsed.Seconds())
}

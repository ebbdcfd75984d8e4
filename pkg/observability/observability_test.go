package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonahbeckford/memtrace/pkg/observability"
)

func TestInitNoEndpointsUsesNoops(t *testing.T) {
	providers, err := observability.Init(observability.Config{
		ServiceName: "memtrace-test",
		LogFormat:   "text",
	})
	require.NoError(t, err)
	require.NotNil(t, providers.Logger)
	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)

	// No-op providers still hand out working instruments.
	metrics, err := observability.NewEngineMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordRun(context.Background(), 10, 100, 3, 42, time.Second)

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestTracingHandlerAttachesServiceAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, "memtrace", "ci"))

	logger.InfoContext(context.Background(), "hello")

	out := buf.String()
	assert.Contains(t, out, `"service":"memtrace"`)
	assert.Contains(t, out, `"env":"ci"`)
	assert.Contains(t, out, `"msg":"hello"`)
}

func TestTracingHandlerGroupsKeepTopLevelAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, "memtrace", ""))

	logger.WithGroup("engine").Info("tick", "nodes", 7)

	out := buf.String()
	assert.Contains(t, out, `"service":"memtrace"`)
	assert.Contains(t, out, `"engine":{"nodes":7}`)
}

package report_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	"github.com/jonahbeckford/memtrace/pkg/hotspot"
	"github.com/jonahbeckford/memtrace/pkg/report"
	"github.com/jonahbeckford/memtrace/pkg/trace"
)

// reportSchema pins the JSON report shape consumed by downstream tooling.
const reportSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["executable", "pid", "sample_rate", "word_size", "grand_total", "total_bytes", "items"],
  "properties": {
    "executable": {"type": "string"},
    "pid": {"type": "integer"},
    "sample_rate": {"type": "number"},
    "word_size": {"type": "integer"},
    "grand_total": {"type": "integer"},
    "total_bytes": {"type": "integer"},
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["frames", "light", "total", "upper", "bytes", "share"],
        "properties": {
          "frames": {"type": "array", "items": {"type": "string"}},
          "light": {"type": "integer"},
          "total": {"type": "integer"},
          "upper": {"type": "integer"},
          "bytes": {"type": "integer"},
          "share": {"type": "number"}
        }
      }
    }
  }
}`

var reportMeta = trace.Metadata{
	Executable: "server",
	PID:        1234,
	SampleRate: 1e-3,
	WordSize:   8,
}

func sampleReport(t *testing.T) *report.Report {
	t.Helper()

	resolver := trace.NewResolver()
	resolver.Define(1, []trace.Frame{{Filename: "pool.go", Line: 40, Defname: "acquire"}})
	resolver.Define(2, []trace.Frame{{Filename: "buf.go", Line: 12, Defname: "grow"}})

	hitters := []hotspot.HeavyHitter{
		{
			Label: []hotspot.Location{1, 2, hotspot.EndMarker(1)},
			Light: 800, Total: 900, Upper: 950,
		},
		{
			Label: []hotspot.Location{2},
			Light: 100, Total: 100, Upper: 120,
		},
	}

	return report.New(hitters, 1000, reportMeta, resolver, 0)
}

func TestNewResolvesAndScales(t *testing.T) {
	t.Parallel()

	rep := sampleReport(t)

	require.Len(t, rep.Items, 2)
	assert.Equal(t, []string{"acquire (pool.go:40)", "grow (buf.go:12)"}, rep.Items[0].Frames)

	// 900 samples at rate 1e-3 and 8-byte words.
	assert.Equal(t, uint64(900*1000*8), rep.Items[0].Bytes)
	assert.InDelta(t, 0.9, rep.Items[0].Share, 1e-9)
	assert.Equal(t, int64(1000), rep.GrandTotal)
}

func TestNewHonorsTop(t *testing.T) {
	t.Parallel()

	resolver := trace.NewResolver()
	hitters := make([]hotspot.HeavyHitter, 5)
	for i := range hitters {
		hitters[i] = hotspot.HeavyHitter{Label: []hotspot.Location{hotspot.Location(i + 1)}}
	}

	rep := report.New(hitters, 10, reportMeta, resolver, 2)
	assert.Len(t, rep.Items, 2)
}

func TestRenderJSONMatchesSchema(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, sampleReport(t).RenderJSON(&buf))

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(reportSchema),
		gojsonschema.NewBytesLoader(buf.Bytes()),
	)
	require.NoError(t, err)
	assert.True(t, result.Valid(), "schema violations: %v", result.Errors())
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, sampleReport(t).RenderTable(&buf, true))

	out := buf.String()
	assert.Contains(t, out, "server (pid 1234)")
	assert.Contains(t, out, "acquire (pool.go:40)")
	assert.Contains(t, out, "90.0%")
	assert.NotContains(t, out, "\x1b[", "colors must be disabled")
}

func TestRenderText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, sampleReport(t).RenderText(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "#1 "))
}

func TestRenderPlot(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, sampleReport(t).RenderPlot(&buf))

	out := buf.String()
	assert.Contains(t, out, "echarts")
	assert.Contains(t, out, "Allocation hotspots: server")
}

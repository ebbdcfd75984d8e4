package trace_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonahbeckford/memtrace/pkg/trace"
)

var testMeta = trace.Metadata{
	Executable: "testprog",
	PID:        4242,
	SampleRate: 1e-4,
	WordSize:   8,
}

func writeSampleTrace(t *testing.T, path string) {
	t.Helper()

	w, err := trace.Create(path, testMeta)
	require.NoError(t, err)

	w.WriteLocation(0x10, []trace.Frame{
		{Filename: "main.go", Line: 10, StartChar: 2, EndChar: 20, Defname: "main"},
	})
	w.WriteLocation(0x20, []trace.Frame{
		{Filename: "alloc.go", Line: 33, StartChar: 4, EndChar: 18, Defname: "grow"},
		{Filename: "alloc.go", Line: 60, StartChar: 1, EndChar: 9, Defname: "append"},
	})

	w.WriteAlloc(3, []uint64{0x10, 0x20})
	w.WritePromote(1)
	w.WriteAlloc(2, []uint64{0x10, 0x20, 0x20})
	w.WriteCollect(1)

	require.NoError(t, w.Close())
}

func readAll(t *testing.T, r *trace.Reader) []trace.Event {
	t.Helper()

	var events []trace.Event

	for {
		ev, err := r.Next()
		if err == io.EOF {
			return events
		}

		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"plain.mtr", "packed.mtr.lz4"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), name)
			writeSampleTrace(t, path)

			r, err := trace.Open(path)
			require.NoError(t, err)
			defer r.Close()

			assert.Equal(t, testMeta, r.Metadata())

			events := readAll(t, r)
			require.Len(t, events, 6)

			loc, ok := events[0].(trace.LocationEvent)
			require.True(t, ok)
			assert.Equal(t, uint64(0x10), loc.Code)
			require.Len(t, loc.Frames, 1)
			assert.Equal(t, "main", loc.Frames[0].Defname)

			alloc, ok := events[2].(trace.AllocEvent)
			require.True(t, ok)
			assert.Equal(t, int64(3), alloc.NSamples)
			assert.Equal(t, 0, alloc.CommonPrefix)
			assert.Equal(t, []uint64{0x10, 0x20}, alloc.Backtrace)

			_, ok = events[3].(trace.PromoteEvent)
			assert.True(t, ok)

			// The second allocation shares its two-frame prefix and is
			// reconstructed in full.
			alloc2, ok := events[4].(trace.AllocEvent)
			require.True(t, ok)
			assert.Equal(t, 2, alloc2.CommonPrefix)
			assert.Equal(t, []uint64{0x10, 0x20, 0x20}, alloc2.Backtrace)

			_, ok = events[5].(trace.CollectEvent)
			assert.True(t, ok)
		})
	}
}

func TestOpenRejectsForeignFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bogus.mtr")
	require.NoError(t, os.WriteFile(path, []byte("GIF89a definitely not a trace"), 0o600))

	_, err := trace.Open(path)
	assert.ErrorIs(t, err, trace.ErrBadMagic)
}

func TestTruncatedStream(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "full.mtr")
	writeSampleTrace(t, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	truncated := filepath.Join(dir, "cut.mtr")
	require.NoError(t, os.WriteFile(truncated, raw[:len(raw)-3], 0o600))

	r, err := trace.Open(truncated)
	require.NoError(t, err)
	defer r.Close()

	for {
		_, nextErr := r.Next()
		if nextErr == nil {
			continue
		}

		assert.ErrorIs(t, nextErr, trace.ErrCorrupt)

		return
	}
}

func TestResolver(t *testing.T) {
	t.Parallel()

	resolver := trace.NewResolver()
	resolver.Define(7, []trace.Frame{
		{Filename: "pool.go", Line: 12, Defname: "acquire"},
	})

	frames, ok := resolver.Resolve(7)
	require.True(t, ok)
	assert.Equal(t, "acquire", frames[0].Defname)

	_, ok = resolver.Resolve(9)
	assert.False(t, ok)

	assert.Equal(t, "acquire (pool.go:12)", resolver.Format(7))
	assert.Equal(t, "acquire (pool.go:12)", resolver.Format(7))
	assert.Equal(t, "<unresolved 0x9>", resolver.Format(9))

	hits, misses := resolver.CacheStats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)

	// First definition wins.
	resolver.Define(7, []trace.Frame{{Defname: "other"}})
	frames, _ = resolver.Resolve(7)
	assert.Equal(t, "acquire", frames[0].Defname)
}

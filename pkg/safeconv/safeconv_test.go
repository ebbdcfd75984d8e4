package safeconv_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonahbeckford/memtrace/pkg/safeconv"
)

func TestMustIntToUint64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(42), safeconv.MustIntToUint64(42))
	assert.Equal(t, uint64(0), safeconv.MustIntToUint64(0))
	assert.Panics(t, func() { safeconv.MustIntToUint64(-1) })
}

func TestMustInt64ToUint64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(math.MaxInt64), safeconv.MustInt64ToUint64(math.MaxInt64))
	assert.Panics(t, func() { safeconv.MustInt64ToUint64(-7) })
}

func TestMustUint64ToInt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 42, safeconv.MustUint64ToInt(42))
	assert.Panics(t, func() { safeconv.MustUint64ToInt(math.MaxUint64) })
}

func TestMustUint64ToInt64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(42), safeconv.MustUint64ToInt64(42))
	assert.Panics(t, func() { safeconv.MustUint64ToInt64(math.MaxUint64) })
}

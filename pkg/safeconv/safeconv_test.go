package safeconv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustInt64ToUint64(t *testing.T) {
	t.Parallel()

	t.Run("normal_value", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, uint64(42), MustInt64ToUint64(42))
	})

	t.Run("zero", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, uint64(0), MustInt64ToUint64(0))
	})

	t.Run("max", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, uint64(math.MaxInt64), MustInt64ToUint64(math.MaxInt64))
	})

	t.Run("negative_panics", func(t *testing.T) {
		t.Parallel()

		assert.PanicsWithValue(t, "safeconv: negative int64 to uint64 conversion", func() {
			MustInt64ToUint64(-1)
		})
	})
}

func TestClampUint64ToInt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 7, ClampUint64ToInt(7))
	assert.Equal(t, MaxInt, ClampUint64ToInt(math.MaxUint64))
}

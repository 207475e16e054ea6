package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMT19937Deterministic(t *testing.T) {
	a := NewMT19937(42)
	b := NewMT19937(42)

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64(), "draw %d diverged", i)
	}
}

func TestMT19937SeedChangesSequence(t *testing.T) {
	a := NewMT19937(1)
	b := NewMT19937(2)

	same := true
	for i := 0; i < 10; i++ {
		if a.Uint64() != b.Uint64() {
			same = false
			break
		}
	}
	assert.False(t, same, "different seeds produced identical sequences")
}

func TestFloat64Range(t *testing.T) {
	src := NewMT19937(7)
	for i := 0; i < 10000; i++ {
		f := Float64(src)
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)
	}
}

func TestUint64Inclusive(t *testing.T) {
	src := NewMT19937(11)

	// Power-of-two-minus-one bound uses the mask path.
	for i := 0; i < 1000; i++ {
		assert.LessOrEqual(t, Uint64Inclusive(src, 15), uint64(15))
	}

	// General bound uses rejection sampling.
	for i := 0; i < 1000; i++ {
		assert.LessOrEqual(t, Uint64Inclusive(src, 10), uint64(10))
	}

	// Zero bound always yields zero.
	assert.Equal(t, uint64(0), Uint64Inclusive(src, 0))
}

func TestInt64RangeInclusiveBounds(t *testing.T) {
	src := NewMT19937(3)

	seenLo, seenHi := false, false
	for i := 0; i < 100000; i++ {
		v := Int64Range(src, 1000000, 1000010)
		require.GreaterOrEqual(t, v, int64(1000000))
		require.LessOrEqual(t, v, int64(1000010))
		if v == 1000000 {
			seenLo = true
		}
		if v == 1000010 {
			seenHi = true
		}
	}
	assert.True(t, seenLo, "lower bound never drawn")
	assert.True(t, seenHi, "upper bound never drawn")
}

func TestIntNPanicsOnNonPositive(t *testing.T) {
	src := NewMT19937(5)
	assert.Panics(t, func() { IntN(src, 0) })
	assert.Panics(t, func() { IntN(src, -1) })
}

func TestPick(t *testing.T) {
	src := NewMT19937(9)
	items := []string{"a", "b", "c"}

	counts := map[string]int{}
	for i := 0; i < 3000; i++ {
		counts[Pick(src, items)]++
	}
	for _, it := range items {
		assert.Greater(t, counts[it], 0, "item %q never picked", it)
	}
}

func TestDigits(t *testing.T) {
	src := NewMT19937(13)
	ds := Digits(src, 9)
	require.Len(t, ds, 9)
	for _, d := range ds {
		assert.GreaterOrEqual(t, d, 0)
		assert.LessOrEqual(t, d, 9)
	}
}

func TestLockedWrapsSource(t *testing.T) {
	plain := NewMT19937(21)
	locked := NewLocked(NewMT19937(21))

	for i := 0; i < 50; i++ {
		assert.Equal(t, plain.Uint64(), locked.Uint64())
	}
}

// Package rng provides the swappable random source used by every sampling
// component. Sources are seedable so tests can assert deterministic draws;
// cryptographic quality is not a goal.
package rng

import (
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/mathext/prng"
)

// Source produces raw random words. Implementations are not required to be
// safe for concurrent use; wrap with Locked when sharing across goroutines.
type Source interface {
	// Uint64 returns a random number in [0, MaxUint64] and advances the
	// generator's state.
	Uint64() uint64
}

// NewMT19937 returns a 64-bit Mersenne Twister seeded with seed.
func NewMT19937(seed uint64) Source {
	src := prng.NewMT19937_64()
	src.Seed(seed)
	return src
}

// Locked wraps a Source with a mutex, making it safe for concurrent draws.
type Locked struct {
	mu  sync.Mutex
	src Source
}

// NewLocked wraps src for concurrent use.
func NewLocked(src Source) *Locked {
	return &Locked{src: src}
}

func (l *Locked) Uint64() uint64 {
	l.mu.Lock()
	n := l.src.Uint64()
	l.mu.Unlock()
	return n
}

var defaultSource = NewLocked(NewMT19937(uint64(time.Now().UnixNano())))

// Default returns the shared, time-seeded process source.
func Default() Source {
	return defaultSource
}

// Uint64Inclusive returns a uniform random number in [0, n] without modulo
// bias.
func Uint64Inclusive(src Source, n uint64) uint64 {
	switch {
	// n+1 is a power of two, so masking is uniform.
	case n&(n+1) == 0:
		return src.Uint64() & n

	// n is above MaxInt64: rejection-sample the full word.
	case n > math.MaxInt64:
		v := src.Uint64()
		for v > n {
			v = src.Uint64()
		}
		return v

	// Rejection-sample in [0, k*(n+1)) for the largest k that fits in 63
	// bits, then reduce.
	default:
		maximum := uint64(1)<<63 - 1 - (uint64(1)<<63)%(n+1)
		v := src.Uint64() & math.MaxInt64
		for v > maximum {
			v = src.Uint64() & math.MaxInt64
		}
		return v % (n + 1)
	}
}

// Float64 returns a uniform random float in [0, 1) with 53 bits of
// precision.
func Float64(src Source) float64 {
	return float64(src.Uint64()>>11) / (1 << 53)
}

// IntN returns a uniform random int in [0, n). n must be positive.
func IntN(src Source, n int) int {
	if n <= 0 {
		panic("rng: IntN called with non-positive n")
	}
	return int(Uint64Inclusive(src, uint64(n-1)))
}

// Int64Range returns a uniform random int64 in [lo, hi] inclusive. lo must
// not exceed hi.
func Int64Range(src Source, lo, hi int64) int64 {
	if lo > hi {
		panic("rng: Int64Range called with lo > hi")
	}
	span := uint64(hi - lo)
	return lo + int64(Uint64Inclusive(src, span))
}

// Pick returns a uniformly chosen element of items. items must be
// non-empty.
func Pick[T any](src Source, items []T) T {
	return items[IntN(src, len(items))]
}

// Digits returns n uniformly random decimal digits.
func Digits(src Source, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = IntN(src, 10)
	}
	return out
}

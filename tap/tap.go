// Package tap converts raw entropy pool bytes into typed random values.
//
// All primitives route through a single Source, normally an
// *pool.Pool. Bounded integers use rejection sampling instead of modulo
// reduction, so results are exactly uniform over the requested range.
package tap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// Tap errors.
var (
	ErrInvalidRange      = errors.New("invalid range")
	ErrInvalidCount      = errors.New("invalid byte count")
	ErrEmptySequence     = errors.New("empty sequence")
	ErrInvalidSampleSize = errors.New("invalid sample size")
)

// Source serves raw entropy draws. *pool.Pool and *Hybrid implement it.
type Source interface {
	Extract(n int) ([]byte, error)
}

// Tap derives typed random values from a Source.
type Tap struct {
	src Source
}

// New returns a tap drawing from the given source.
func New(src Source) *Tap {
	return &Tap{src: src}
}

// Random returns a uniformly distributed float64 in [0, 1).
func (t *Tap) Random() (float64, error) {
	raw, err := t.src.Extract(8)
	if err != nil {
		return 0, err
	}
	return float64(binary.BigEndian.Uint64(raw)) / (1 << 64), nil
}

// RandInt returns a uniformly distributed integer in [a, b], both ends
// inclusive. It fails if a > b.
//
// Out-of-range draws are rejected and redrawn. The loop is expected to
// terminate after fewer than two draws on average: each draw succeeds
// with probability > 1/2, so the chance of needing k draws decays as
// 2^-k. There is no hard iteration bound.
func (t *Tap) RandInt(a, b int) (int, error) {
	if a > b {
		return 0, fmt.Errorf("%w: %d > %d", ErrInvalidRange, a, b)
	}
	if a == b {
		return a, nil
	}

	rangeSize := uint64(b-a) + 1
	if rangeSize == 0 {
		// b-a spans all of uint64, so every 8-byte draw is in range.
		raw, err := t.src.Extract(8)
		if err != nil {
			return 0, err
		}
		return a + int(binary.BigEndian.Uint64(raw)), nil
	}
	bitsNeeded := bits.Len64(rangeSize - 1)
	bytesNeeded := (bitsNeeded + 7) / 8
	mask := uint64(1)<<bitsNeeded - 1

	for {
		raw, err := t.src.Extract(bytesNeeded)
		if err != nil {
			return 0, err
		}

		var padded [8]byte
		copy(padded[8-bytesNeeded:], raw)
		value := binary.BigEndian.Uint64(padded[:]) & mask

		if value < rangeSize {
			return a + int(value), nil
		}
	}
}

// RandBool returns true or false with equal probability.
func (t *Tap) RandBool() (bool, error) {
	raw, err := t.src.Extract(1)
	if err != nil {
		return false, err
	}
	return raw[0]&1 == 1, nil
}

// RandBytes returns n random bytes. It fails if n is not positive.
func (t *Tap) RandBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	return t.src.Extract(n)
}

// ShuffleN shuffles n elements through the given swap function using the
// Fisher-Yates algorithm, producing every permutation with equal
// probability. It makes n-1 bounded integer draws.
func (t *Tap) ShuffleN(n int, swap func(i, j int)) error {
	for i := n - 1; i >= 1; i-- {
		j, err := t.RandInt(0, i)
		if err != nil {
			return err
		}
		swap(i, j)
	}
	return nil
}

// Uniform returns a float64 in [a, b).
func (t *Tap) Uniform(a, b float64) (float64, error) {
	u, err := t.Random()
	if err != nil {
		return 0, err
	}
	return a + u*(b-a), nil
}

// Gauss returns a normally distributed float64 with the given mean and
// standard deviation, via the Box-Muller transform.
func (t *Tap) Gauss(mu, sigma float64) (float64, error) {
	u1, err := t.Random()
	if err != nil {
		return 0, err
	}
	// log(0) is undefined, redraw.
	for u1 == 0 {
		u1, err = t.Random()
		if err != nil {
			return 0, err
		}
	}
	u2, err := t.Random()
	if err != nil {
		return 0, err
	}

	z0 := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mu + sigma*z0, nil
}

// Choice returns a random element of seq. It fails on an empty sequence.
func Choice[T any](t *Tap, seq []T) (T, error) {
	var zero T
	if len(seq) == 0 {
		return zero, fmt.Errorf("%w: cannot choose", ErrEmptySequence)
	}
	i, err := t.RandInt(0, len(seq)-1)
	if err != nil {
		return zero, err
	}
	return seq[i], nil
}

// Shuffle permutes seq in place. Every permutation is equally likely.
func Shuffle[T any](t *Tap, seq []T) error {
	return t.ShuffleN(len(seq), func(i, j int) {
		seq[i], seq[j] = seq[j], seq[i]
	})
}

// Sample returns k distinct elements of seq in selection order without
// mutating seq. It fails if k is negative or exceeds len(seq).
func Sample[T any](t *Tap, seq []T, k int) ([]T, error) {
	n := len(seq)
	if k < 0 || k > n {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidSampleSize, k, n)
	}
	if k == 0 {
		return []T{}, nil
	}

	// Partial Fisher-Yates over an index array: only the first k
	// positions are settled.
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	result := make([]T, 0, k)
	for i := 0; i < k; i++ {
		j, err := t.RandInt(i, n-1)
		if err != nil {
			return nil, err
		}
		idx[i], idx[j] = idx[j], idx[i]
		result = append(result, seq[idx[i]])
	}
	return result, nil
}

package tap

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slices"

	"github.com/safing/trueentropy/pool"
)

// countingSource counts extract calls to make draw behavior observable.
type countingSource struct {
	src      Source
	extracts int
}

func (c *countingSource) Extract(n int) ([]byte, error) {
	c.extracts++
	return c.src.Extract(n)
}

func newTestTap(t *testing.T) *Tap {
	t.Helper()
	p := pool.New()
	if err := p.Reseed(); err != nil {
		t.Fatalf("failed to reseed test pool: %s", err)
	}
	return New(p)
}

func TestRandom(t *testing.T) {
	t.Parallel()

	tp := newTestTap(t)
	for i := 0; i < 1000; i++ {
		v, err := tp.Random()
		if err != nil {
			t.Fatalf("Random failed: %s", err)
		}
		if v < 0 || v >= 1 {
			t.Fatalf("Random returned %f, out of [0, 1)", v)
		}
	}
}

func TestRandIntBounds(t *testing.T) {
	t.Parallel()

	tp := newTestTap(t)

	for _, r := range [][2]int{{0, 1}, {-10, 10}, {1, 6}, {0, 255}, {1000, 1000000}, {-50, -40}} {
		for i := 0; i < 100; i++ {
			v, err := tp.RandInt(r[0], r[1])
			if err != nil {
				t.Fatalf("RandInt(%d, %d) failed: %s", r[0], r[1], err)
			}
			if v < r[0] || v > r[1] {
				t.Fatalf("RandInt(%d, %d) returned %d", r[0], r[1], v)
			}
		}
	}

	// Single-value range.
	v, err := tp.RandInt(5, 5)
	assert.NoError(t, err)
	assert.Equal(t, 5, v)

	// Inverted range.
	_, err = tp.RandInt(6, 1)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestRandIntFullWidthRange(t *testing.T) {
	t.Parallel()

	p := pool.New()
	if err := p.Reseed(); err != nil {
		t.Fatalf("failed to reseed test pool: %s", err)
	}
	counting := &countingSource{src: p}
	tp := New(counting)

	// The full int range wraps the range-size arithmetic to zero;
	// every draw is in range and must be accepted immediately.
	for i := 0; i < 100; i++ {
		before := counting.extracts
		_, err := tp.RandInt(math.MinInt, math.MaxInt)
		assert.NoError(t, err)
		assert.Equal(t, before+1, counting.extracts, "full-width range must accept the first draw")
	}

	// One short of full width still goes through the rejection loop.
	for i := 0; i < 100; i++ {
		v, err := tp.RandInt(math.MinInt, math.MaxInt-1)
		assert.NoError(t, err)
		assert.LessOrEqual(t, v, math.MaxInt-1)
	}
}

func TestRandIntUniform(t *testing.T) {
	t.Parallel()

	tp := newTestTap(t)

	const rolls = 60000
	counts := make(map[int]int)
	for i := 0; i < rolls; i++ {
		v, err := tp.RandInt(1, 6)
		if err != nil {
			t.Fatalf("RandInt failed: %s", err)
		}
		counts[v]++
	}

	expected := rolls / 6
	for face := 1; face <= 6; face++ {
		diff := counts[face] - expected
		if diff < 0 {
			diff = -diff
		}
		if diff > expected/20 { // 5%
			t.Errorf("face %d rolled %d times, expected %d ±5%%", face, counts[face], expected)
		}
	}
}

func TestRandIntDrawCount(t *testing.T) {
	t.Parallel()

	p := pool.New()
	if err := p.Reseed(); err != nil {
		t.Fatal(err)
	}

	// Rejection sampling should need fewer than two draws on average.
	// There is no hard per-call bound, so assert the empirical mean.
	for _, r := range [][2]int{{0, 5}, {1, 100}, {0, 1000}, {1, 1 << 20}} {
		src := &countingSource{src: p}
		tp := New(src)

		const calls = 1000
		for i := 0; i < calls; i++ {
			if _, err := tp.RandInt(r[0], r[1]); err != nil {
				t.Fatalf("RandInt failed: %s", err)
			}
		}
		if avg := float64(src.extracts) / calls; avg > 3 {
			t.Errorf("range [%d, %d]: %f draws per call on average, expected < 2", r[0], r[1], avg)
		}
	}
}

func TestRandBool(t *testing.T) {
	t.Parallel()

	tp := newTestTap(t)
	var trues, falses int
	for i := 0; i < 1000; i++ {
		v, err := tp.RandBool()
		if err != nil {
			t.Fatalf("RandBool failed: %s", err)
		}
		if v {
			trues++
		} else {
			falses++
		}
	}
	if trues == 0 || falses == 0 {
		t.Errorf("1000 coin flips came up %d/%d", trues, falses)
	}
}

func TestRandBytes(t *testing.T) {
	t.Parallel()

	tp := newTestTap(t)

	for _, n := range []int{1, 8, 32, 1024} {
		b, err := tp.RandBytes(n)
		assert.NoError(t, err)
		assert.Len(t, b, n)
	}

	for _, n := range []int{0, -1, -32} {
		_, err := tp.RandBytes(n)
		assert.ErrorIs(t, err, ErrInvalidCount, "RandBytes(%d)", n)
	}
}

func TestChoice(t *testing.T) {
	t.Parallel()

	tp := newTestTap(t)

	colors := []string{"red", "green", "blue"}
	for i := 0; i < 100; i++ {
		c, err := Choice(tp, colors)
		assert.NoError(t, err)
		assert.True(t, slices.Contains(colors, c))
	}

	_, err := Choice(tp, []string{})
	assert.ErrorIs(t, err, ErrEmptySequence)
}

func TestShufflePermutations(t *testing.T) {
	t.Parallel()

	tp := newTestTap(t)

	// All 6 permutations of a 3-element sequence should come up at
	// roughly equal frequency.
	counts := make(map[string]int)
	const trials = 6000
	for i := 0; i < trials; i++ {
		seq := []int{1, 2, 3}
		if err := Shuffle(tp, seq); err != nil {
			t.Fatalf("Shuffle failed: %s", err)
		}
		counts[fmt.Sprint(seq)]++
	}

	if len(counts) != 6 {
		t.Fatalf("saw %d permutations, expected 6: %v", len(counts), counts)
	}
	for perm, n := range counts {
		if n < 800 || n > 1200 {
			t.Errorf("permutation %s occurred %d times, expected ~%d", perm, n, trials/6)
		}
	}
}

func TestShuffleDegenerate(t *testing.T) {
	t.Parallel()

	tp := newTestTap(t)
	assert.NoError(t, Shuffle(tp, []int{}))
	assert.NoError(t, Shuffle(tp, []int{42}))
}

func TestSample(t *testing.T) {
	t.Parallel()

	tp := newTestTap(t)

	seq := make([]int, 0, 49)
	for i := 1; i <= 49; i++ {
		seq = append(seq, i)
	}

	picks, err := Sample(tp, seq, 6)
	assert.NoError(t, err)
	assert.Len(t, picks, 6)
	seen := make(map[int]bool)
	for _, v := range picks {
		assert.False(t, seen[v], "duplicate pick %d", v)
		assert.True(t, v >= 1 && v <= 49)
		seen[v] = true
	}

	// The source sequence must not be mutated.
	for i, v := range seq {
		assert.Equal(t, i+1, v)
	}

	empty, err := Sample(tp, seq, 0)
	assert.NoError(t, err)
	assert.Empty(t, empty)

	_, err = Sample(tp, seq, 50)
	assert.ErrorIs(t, err, ErrInvalidSampleSize)
	_, err = Sample(tp, seq, -1)
	assert.ErrorIs(t, err, ErrInvalidSampleSize)

	full, err := Sample(tp, []int{7, 8, 9}, 3)
	assert.NoError(t, err)
	slices.Sort(full)
	assert.Equal(t, []int{7, 8, 9}, full)
}

func TestUniform(t *testing.T) {
	t.Parallel()

	tp := newTestTap(t)
	for i := 0; i < 1000; i++ {
		v, err := tp.Uniform(-2.5, 7.5)
		if err != nil {
			t.Fatalf("Uniform failed: %s", err)
		}
		if v < -2.5 || v >= 7.5 {
			t.Fatalf("Uniform(-2.5, 7.5) returned %f", v)
		}
	}
}

func TestGauss(t *testing.T) {
	t.Parallel()

	tp := newTestTap(t)

	const draws = 10000
	const mu, sigma = 5.0, 2.0

	var sum, sumSq float64
	for i := 0; i < draws; i++ {
		v, err := tp.Gauss(mu, sigma)
		if err != nil {
			t.Fatalf("Gauss failed: %s", err)
		}
		sum += v
		sumSq += v * v
	}

	mean := sum / draws
	stddev := math.Sqrt(sumSq/draws - mean*mean)

	if math.Abs(mean-mu) > 0.15 {
		t.Errorf("sample mean %f too far from %f", mean, mu)
	}
	if math.Abs(stddev-sigma) > 0.15 {
		t.Errorf("sample stddev %f too far from %f", stddev, sigma)
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	t.Parallel()

	errs := []error{ErrInvalidRange, ErrInvalidCount, ErrEmptySequence, ErrInvalidSampleSize}
	for i, a := range errs {
		for j, b := range errs {
			if i != j && errors.Is(a, b) {
				t.Errorf("error %q matches %q", a, b)
			}
		}
	}
}

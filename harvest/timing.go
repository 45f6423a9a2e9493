package harvest

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/safing/portbase/container"
)

// Timing harvest parameters. Each jitter sample is credited 0.125 bits:
// the least significant nanosecond bit is genuinely hard to predict, the
// remaining claimed fraction discounts scheduler regularity.
const (
	timingSamples       = 512
	timingBitsPerSample = 0.125
)

// TimingHarvester measures fine-grained clock deltas across repeated
// micro-operations. The quality improves under load, as the scheduler
// cannot run the measuring goroutine at regular intervals.
type TimingHarvester struct{}

// NewTimingHarvester returns a timing jitter harvester.
func NewTimingHarvester() *TimingHarvester {
	return &TimingHarvester{}
}

// Name implements Harvester.
func (h *TimingHarvester) Name() string {
	return SourceTiming
}

// NeedsNetwork implements Harvester.
func (h *TimingHarvester) NeedsNetwork() bool {
	return false
}

// Collect implements Harvester.
func (h *TimingHarvester) Collect(ctx context.Context) ([]byte, int, error) {
	samples := container.New()

	var packed uint8
	var pushed int
	scratch := sha256.Sum256([]byte{0})

	for i := 0; i < timingSamples; i++ {
		if i%64 == 0 && ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}

		start := time.Now()
		// A small amount of real work between the clock reads keeps the
		// delta sensitive to cache and scheduler state.
		scratch = sha256.Sum256(scratch[:])
		delta := time.Since(start).Nanoseconds()

		packed = packed<<1 | uint8(delta&1)
		pushed++
		if pushed == 8 {
			samples.Append([]byte{packed})
			packed = 0
			pushed = 0
		}
	}

	data := samples.CompileData()
	return data, int(timingSamples * timingBitsPerSample), nil
}

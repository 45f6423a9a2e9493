// Package harvest collects entropy candidates from real-world signal
// sources.
//
// A Harvester produces one raw sample per Collect call together with a
// self-reported, deliberately conservative entropy estimate. Estimates
// are heuristic confidence scores, not certified bounds. SafeCollect
// isolates a misbehaving source from the rest of the system: any error,
// timeout or panic becomes a failed Result that contributes nothing to
// the pool.
package harvest

import (
	"context"
	"fmt"
	"time"
)

// Harvester is one source of entropy candidates.
type Harvester interface {
	// Name returns the stable source identifier.
	Name() string

	// NeedsNetwork reports whether Collect performs network I/O. The
	// collector disables such sources in offline mode.
	NeedsNetwork() bool

	// Collect gathers one sample. It returns the raw bytes and a
	// conservative estimate of the entropy they carry, in bits.
	// Collect may block on I/O and must honor ctx.
	Collect(ctx context.Context) (data []byte, entropyBits int, err error)
}

// Result is the outcome of one harvest attempt. It is consumed by the
// collector immediately and never persisted.
type Result struct {
	Source      string
	Success     bool
	Data        []byte
	EntropyBits int
	Err         error
}

type sample struct {
	data []byte
	bits int
	err  error
}

// SafeCollect runs one harvest attempt with the given timeout. It never
// propagates a failure: errors, timeouts and panics are converted into a
// failed Result. A harvester that ignores its context costs at most the
// timeout before its slot is given up.
func SafeCollect(ctx context.Context, h Harvester, timeout time.Duration) *Result {
	result := &Result{Source: h.Name()}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	collected := make(chan *sample, 1)
	go func() {
		data, bits, err := collect(ctx, h)
		collected <- &sample{data: data, bits: bits, err: err}
	}()

	var s *sample
	select {
	case s = <-collected:
	case <-ctx.Done():
		result.Err = fmt.Errorf("%s: harvest aborted: %w", h.Name(), ctx.Err())
		return result
	}

	switch {
	case s.err != nil:
		result.Err = s.err
	case len(s.data) == 0:
		result.Err = fmt.Errorf("%s: harvester returned no data", h.Name())
	default:
		result.Success = true
		result.Data = s.data
		result.EntropyBits = s.bits
		if result.EntropyBits < 0 {
			result.EntropyBits = 0
		}
	}
	return result
}

func collect(ctx context.Context, h Harvester) (data []byte, bits int, err error) {
	defer func() {
		// recover from panic
		if panicVal := recover(); panicVal != nil {
			err = fmt.Errorf("%s: harvester panic: %v", h.Name(), panicVal)
		}
	}()

	return h.Collect(ctx)
}

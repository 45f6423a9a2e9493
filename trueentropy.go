// Package trueentropy aggregates unpredictability from real-world signal
// sources into a continuously replenished entropy pool and exposes it
// through bias-free random value primitives.
//
// An explicitly constructed Entropy instance is the primary interface.
// The package-level functions operate on a lazily created default
// instance as convenience sugar:
//
//	trueentropy.StartCollector()
//	defer trueentropy.StopCollector()
//
//	dice, err := trueentropy.RandInt(1, 6)
//	report := trueentropy.Health()
//
// Entropy estimates throughout the module are heuristic confidence
// scores, not information-theoretic guarantees. Under sustained heavy
// draw the pool degrades gracefully instead of blocking.
package trueentropy

import (
	"sync"

	"github.com/safing/trueentropy/health"
	"github.com/safing/trueentropy/tap"
)

var (
	defaultLock     sync.Mutex
	defaultInstance *Entropy
)

// Default returns the default instance, creating it with DefaultOptions
// on first use.
func Default() (*Entropy, error) {
	defaultLock.Lock()
	defer defaultLock.Unlock()
	return getDefaultLocked()
}

func getDefaultLocked() (*Entropy, error) {
	if defaultInstance == nil {
		e, err := New(DefaultOptions())
		if err != nil {
			return nil, err
		}
		defaultInstance = e
	}
	return defaultInstance, nil
}

// Configure replaces the default instance with one built from opts. A
// running collector on the old instance is stopped first.
func Configure(opts Options) error {
	replacement, err := New(opts)
	if err != nil {
		return err
	}

	defaultLock.Lock()
	old := defaultInstance
	defaultInstance = replacement
	defaultLock.Unlock()

	if old != nil {
		return old.StopCollector()
	}
	return nil
}

// Random returns a uniformly distributed float64 in [0, 1) from the
// default instance.
func Random() (float64, error) {
	e, err := Default()
	if err != nil {
		return 0, err
	}
	return e.Random()
}

// RandInt returns a uniformly distributed integer in [a, b] from the
// default instance.
func RandInt(a, b int) (int, error) {
	e, err := Default()
	if err != nil {
		return 0, err
	}
	return e.RandInt(a, b)
}

// RandBool returns a fair coin flip from the default instance.
func RandBool() (bool, error) {
	e, err := Default()
	if err != nil {
		return false, err
	}
	return e.RandBool()
}

// RandBytes returns n random bytes from the default instance.
func RandBytes(n int) ([]byte, error) {
	e, err := Default()
	if err != nil {
		return nil, err
	}
	return e.RandBytes(n)
}

// Uniform returns a float64 in [a, b) from the default instance.
func Uniform(a, b float64) (float64, error) {
	e, err := Default()
	if err != nil {
		return 0, err
	}
	return e.Uniform(a, b)
}

// Gauss returns a normally distributed float64 from the default
// instance.
func Gauss(mu, sigma float64) (float64, error) {
	e, err := Default()
	if err != nil {
		return 0, err
	}
	return e.Gauss(mu, sigma)
}

// Choice returns a random element of seq using the default instance.
func Choice[T any](seq []T) (T, error) {
	e, err := Default()
	if err != nil {
		var zero T
		return zero, err
	}
	return tap.Choice(e.Tap(), seq)
}

// Shuffle permutes seq in place using the default instance.
func Shuffle[T any](seq []T) error {
	e, err := Default()
	if err != nil {
		return err
	}
	return tap.Shuffle(e.Tap(), seq)
}

// Sample returns k distinct elements of seq in selection order using the
// default instance.
func Sample[T any](seq []T, k int) ([]T, error) {
	e, err := Default()
	if err != nil {
		return nil, err
	}
	return tap.Sample(e.Tap(), seq, k)
}

// Health grades the default instance's pool.
func Health() health.Report {
	e, err := Default()
	if err != nil {
		// Default() only fails on an invalid configuration, which
		// Configure already rejected. Report empty-pool health.
		return health.Report{Status: health.StatusCritical}
	}
	return e.Health()
}

// Feed mixes caller-supplied entropy into the default instance's pool.
func Feed(data []byte) {
	e, err := Default()
	if err != nil {
		return
	}
	e.Feed(data)
}

// StartCollector launches the default instance's background harvest
// cycle.
func StartCollector() error {
	e, err := Default()
	if err != nil {
		return err
	}
	e.StartCollector()
	return nil
}

// StopCollector stops the default instance's background harvest cycle.
func StopCollector() error {
	defaultLock.Lock()
	e := defaultInstance
	defaultLock.Unlock()

	if e == nil {
		return nil
	}
	return e.StopCollector()
}

package trueentropy

import (
	"time"

	"github.com/safing/trueentropy/collector"
	"github.com/safing/trueentropy/harvest"
	"github.com/safing/trueentropy/health"
	"github.com/safing/trueentropy/pool"
	"github.com/safing/trueentropy/tap"
)

// Options configures an Entropy instance.
type Options struct {
	// Sources selects the harvesters to run. Construction fails if no
	// source is enabled.
	Sources harvest.Sources

	// Offline suppresses all network-dependent sources at start. It can
	// be toggled later via the collector.
	Offline bool

	// CycleInterval is the pause between harvest cycles. Zero selects
	// the default of one second.
	CycleInterval time.Duration

	// HybridCipher selects the fast generator's block cipher, "aes"
	// (default) or "serpent".
	HybridCipher string
}

// DefaultOptions enables every source with default pacing.
func DefaultOptions() Options {
	return Options{Sources: harvest.DefaultSources()}
}

// Entropy bundles a pool, its taps and the background collector into one
// explicitly constructed context object.
type Entropy struct {
	pool      *pool.Pool
	tap       *tap.Tap
	hybrid    *tap.Hybrid
	fastTap   *tap.Tap
	collector *collector.Collector
}

// New creates a fully wired Entropy instance. The collector is not
// started; call StartCollector.
func New(opts Options) (*Entropy, error) {
	harvesters, err := opts.Sources.Build()
	if err != nil {
		return nil, err
	}

	p := pool.New()

	hybrid, err := tap.NewHybrid(p, opts.HybridCipher)
	if err != nil {
		return nil, err
	}

	c := collector.New(p, harvesters, opts.CycleInterval)
	if opts.Offline {
		c.SetOffline(true)
	}

	return &Entropy{
		pool:      p,
		tap:       tap.New(p),
		hybrid:    hybrid,
		fastTap:   tap.New(hybrid),
		collector: c,
	}, nil
}

// Random returns a uniformly distributed float64 in [0, 1).
func (e *Entropy) Random() (float64, error) { return e.tap.Random() }

// RandInt returns a uniformly distributed integer in [a, b].
func (e *Entropy) RandInt(a, b int) (int, error) { return e.tap.RandInt(a, b) }

// RandBool returns a fair coin flip.
func (e *Entropy) RandBool() (bool, error) { return e.tap.RandBool() }

// RandBytes returns n random bytes straight from the pool.
func (e *Entropy) RandBytes(n int) ([]byte, error) { return e.tap.RandBytes(n) }

// Uniform returns a float64 in [a, b).
func (e *Entropy) Uniform(a, b float64) (float64, error) { return e.tap.Uniform(a, b) }

// Gauss returns a normally distributed float64.
func (e *Entropy) Gauss(mu, sigma float64) (float64, error) { return e.tap.Gauss(mu, sigma) }

// Health grades the pool.
func (e *Entropy) Health() health.Report { return health.Check(e.pool) }

// Feed mixes caller-supplied entropy into the pool with the default
// estimate of len(data)*8 bits.
func (e *Entropy) Feed(data []byte) { e.pool.Feed(data) }

// FeedWithEstimate mixes caller-supplied entropy into the pool with an
// explicit entropy estimate.
func (e *Entropy) FeedWithEstimate(data []byte, entropyBits int) {
	e.pool.FeedWithEstimate(data, entropyBits)
}

// Reseed forces a fresh out-of-band sample into the pool.
func (e *Entropy) Reseed() error { return e.pool.Reseed() }

// StartCollector launches the background harvest cycle. Idempotent.
func (e *Entropy) StartCollector() { e.collector.Start() }

// StopCollector stops the background harvest cycle, waiting a bounded
// time for it to end. Idempotent.
func (e *Entropy) StopCollector() error { return e.collector.Stop() }

// Pool returns the underlying entropy pool.
func (e *Entropy) Pool() *pool.Pool { return e.pool }

// Tap returns the true-entropy tap.
func (e *Entropy) Tap() *tap.Tap { return e.tap }

// Fast returns a tap over the hybrid generator: fast, high-volume,
// lower-assurance draws that only touch the pool for seeding.
func (e *Entropy) Fast() *tap.Tap { return e.fastTap }

// Hybrid returns the hybrid generator itself, usable as an io.Reader.
func (e *Entropy) Hybrid() *tap.Hybrid { return e.hybrid }

// Collector returns the background collector for status inspection and
// runtime source control.
func (e *Entropy) Collector() *collector.Collector { return e.collector }

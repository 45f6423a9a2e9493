// Package collector drives the background harvest cycle: it repeatedly
// runs the configured harvesters, feeds successful results into the
// entropy pool and tracks per-harvester status for observability.
package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
	"github.com/tevino/abool"

	"github.com/safing/portbase/log"

	"github.com/safing/trueentropy/harvest"
	"github.com/safing/trueentropy/pool"
)

// Collector defaults.
const (
	DefaultCycleInterval  = 1 * time.Second
	DefaultHarvesterDelay = 50 * time.Millisecond
	DefaultHarvestTimeout = 5 * time.Second

	stopTimeout = 10 * time.Second
)

var (
	harvestsOK     = vm.GetOrCreateCounter(`trueentropy_harvests_total{outcome="success"}`)
	harvestsFailed = vm.GetOrCreateCounter(`trueentropy_harvests_total{outcome="error"}`)
	bitsFed        = vm.GetOrCreateCounter(`trueentropy_bits_fed_total`)
)

// Collector runs the harvest cycle on one background goroutine. Start
// and Stop are idempotent. All status mutation happens under the status
// lock; snapshots handed out are copies.
type Collector struct {
	pool       *pool.Pool
	harvesters []harvest.Harvester

	cycleInterval  time.Duration
	harvesterDelay time.Duration
	harvestTimeout time.Duration

	statusLock sync.Mutex
	status     map[string]*Status
	offline    bool

	running  *abool.AtomicBool
	shutdown chan struct{}
	done     chan struct{}
}

// New returns a collector feeding the given pool from the given
// harvesters. A cycleInterval of zero selects the default.
func New(p *pool.Pool, harvesters []harvest.Harvester, cycleInterval time.Duration) *Collector {
	if cycleInterval <= 0 {
		cycleInterval = DefaultCycleInterval
	}

	status := make(map[string]*Status, len(harvesters))
	for _, h := range harvesters {
		status[h.Name()] = &Status{
			Name:    h.Name(),
			State:   StateIdle,
			Enabled: true,
		}
	}

	return &Collector{
		pool:           p,
		harvesters:     harvesters,
		cycleInterval:  cycleInterval,
		harvesterDelay: DefaultHarvesterDelay,
		harvestTimeout: DefaultHarvestTimeout,
		status:         status,
		running:        abool.New(),
	}
}

// Start launches the background harvest cycle. Calling Start on a
// running collector is a no-op.
func (c *Collector) Start() {
	if !c.running.SetToIf(false, true) {
		return
	}

	c.shutdown = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.shutdown, c.done)

	log.Infof("collector: started with %d harvesters, cycle interval %s", len(c.harvesters), c.cycleInterval)
}

// Stop signals the background cycle to terminate and waits for it to
// end, bounded by a timeout. Calling Stop on a stopped collector is a
// no-op.
func (c *Collector) Stop() error {
	if !c.running.SetToIf(true, false) {
		return nil
	}

	close(c.shutdown)
	select {
	case <-c.done:
		log.Info("collector: stopped")
		return nil
	case <-time.After(stopTimeout):
		return fmt.Errorf("collector: background cycle did not stop within %s", stopTimeout)
	}
}

// IsRunning reports whether the background cycle is active.
func (c *Collector) IsRunning() bool {
	return c.running.IsSet()
}

// SetEnabled toggles one harvester at runtime. It fails for unknown
// names.
func (c *Collector) SetEnabled(name string, enabled bool) error {
	c.statusLock.Lock()
	defer c.statusLock.Unlock()

	status, ok := c.status[name]
	if !ok {
		return fmt.Errorf("unknown harvester: %s", name)
	}
	status.Enabled = enabled
	if !enabled {
		status.State = StateDisabled
		status.ErrMsg = ""
	} else if status.State == StateDisabled {
		status.State = StateIdle
	}
	return nil
}

// SetOffline toggles the global offline override. While set, every
// network-dependent harvester is suppressed regardless of its individual
// flag; individual flags are left untouched and take effect again when
// the override is lifted.
func (c *Collector) SetOffline(offline bool) {
	c.statusLock.Lock()
	defer c.statusLock.Unlock()
	c.offline = offline
}

// IsOffline reports whether the offline override is set.
func (c *Collector) IsOffline() bool {
	c.statusLock.Lock()
	defer c.statusLock.Unlock()
	return c.offline
}

// Status returns a point-in-time copy of all harvester statuses, sorted
// by name.
func (c *Collector) Status() []Status {
	c.statusLock.Lock()
	defer c.statusLock.Unlock()

	snapshot := make([]Status, 0, len(c.status))
	for _, status := range c.status {
		snapshot = append(snapshot, *status)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].Name < snapshot[j].Name
	})
	return snapshot
}

// run owns its shutdown/done pair so that a cycle surviving a timed-out
// Stop cannot get entangled with a restarted collector.
func (c *Collector) run(shutdown, done chan struct{}) {
	defer close(done)

	for {
		c.cycle(shutdown)

		select {
		case <-shutdown:
			return
		case <-time.After(c.cycleInterval):
		}
	}
}

func (c *Collector) cycle(shutdown chan struct{}) {
	for i, h := range c.harvesters {
		select {
		case <-shutdown:
			return
		default:
		}

		if !c.beginHarvest(h) {
			continue
		}

		result := harvest.SafeCollect(context.Background(), h, c.harvestTimeout)
		c.finishHarvest(result)

		// Pace the cycle so harvesters do not fire back to back.
		if i < len(c.harvesters)-1 {
			select {
			case <-shutdown:
				return
			case <-time.After(c.harvesterDelay):
			}
		}
	}
}

// beginHarvest marks the harvester as collecting and reports whether it
// should run at all in the current cycle.
func (c *Collector) beginHarvest(h harvest.Harvester) bool {
	c.statusLock.Lock()
	defer c.statusLock.Unlock()

	status := c.status[h.Name()]
	if !status.Enabled || (c.offline && h.NeedsNetwork()) {
		status.State = StateDisabled
		return false
	}

	status.State = StateCollecting
	return true
}

func (c *Collector) finishHarvest(result *harvest.Result) {
	if result.Success {
		c.pool.FeedWithEstimate(result.Data, result.EntropyBits)
		harvestsOK.Inc()
		bitsFed.Add(result.EntropyBits)
		log.Tracef("collector: %s contributed %d bytes (%d bits claimed)", result.Source, len(result.Data), result.EntropyBits)
	} else {
		harvestsFailed.Inc()
		log.Debugf("collector: %s failed to harvest: %s", result.Source, result.Err)
	}

	c.statusLock.Lock()
	defer c.statusLock.Unlock()

	status := c.status[result.Source]
	status.LastRun = time.Now()
	if result.Success {
		status.State = StateSuccess
		status.LastBits = result.EntropyBits
		status.ErrMsg = ""
	} else {
		status.State = StateError
		status.LastBits = 0
		status.ErrMsg = result.Err.Error()
	}
}

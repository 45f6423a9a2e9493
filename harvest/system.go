package harvest

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"

	"github.com/safing/portbase/container"
)

// systemEntropyBits is a conservative claim for one system snapshot. The
// counters are observable by anyone on the same host, so only their
// fast-moving low bits are credited.
const systemEntropyBits = 24

// SystemHarvester samples volatile OS and process counters: memory
// pressure, load averages, per-CPU times, scheduler and allocator state.
// Individual probes may fail (for example load averages on some
// platforms); the snapshot succeeds as long as anything was gathered.
type SystemHarvester struct{}

// NewSystemHarvester returns a system state harvester.
func NewSystemHarvester() *SystemHarvester {
	return &SystemHarvester{}
}

// Name implements Harvester.
func (h *SystemHarvester) Name() string {
	return SourceSystem
}

// NeedsNetwork implements Harvester.
func (h *SystemHarvester) NeedsNetwork() bool {
	return false
}

// Collect implements Harvester.
func (h *SystemHarvester) Collect(ctx context.Context) ([]byte, int, error) {
	snapshot := container.New()
	snapshot.AppendNumber(uint64(time.Now().UnixNano()))

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snapshot.AppendNumber(vm.Available)
		snapshot.AppendNumber(vm.Free)
		snapshot.AppendNumber(math.Float64bits(vm.UsedPercent))
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		snapshot.AppendNumber(math.Float64bits(avg.Load1))
		snapshot.AppendNumber(math.Float64bits(avg.Load5))
		snapshot.AppendNumber(math.Float64bits(avg.Load15))
	}

	if times, err := cpu.TimesWithContext(ctx, true); err == nil {
		for _, t := range times {
			snapshot.AppendNumber(math.Float64bits(t.User))
			snapshot.AppendNumber(math.Float64bits(t.System))
			snapshot.AppendNumber(math.Float64bits(t.Idle))
		}
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		snapshot.AppendNumber(uptime)
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	snapshot.AppendNumber(ms.Alloc)
	snapshot.AppendNumber(ms.TotalAlloc)
	snapshot.AppendNumber(ms.Mallocs)
	snapshot.AppendNumber(uint64(ms.NumGC))
	snapshot.AppendNumber(uint64(runtime.NumGoroutine()))

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return snapshot.CompileData(), systemEntropyBits, nil
}

// Package health grades an entropy pool. Check is a pure read: it never
// mutates the pool and its report is computed fresh on every call.
package health

import "github.com/safing/trueentropy/pool"

// Score thresholds.
const (
	healthyThreshold  = 80
	degradedThreshold = 50
)

// Status classifies a pool score.
type Status uint8

// Pool health statuses.
const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusCritical
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Report is a point-in-time grade of a pool.
type Report struct {
	Score           int // 0..100
	Status          Status
	EntropyBits     int64
	PoolUtilization float64 // percent
	Recommendation  string
}

// Recommendations by status.
const (
	adviceHealthy  = "entropy pool is well stocked"
	adviceDegraded = "consider increasing the harvest frequency or enabling more sources"
	adviceCritical = "increase harvest frequency, enable more sources, or reduce consumption until the pool recovers"
)

// Check grades the given pool.
func Check(p *pool.Pool) Report {
	bits := p.EntropyBits()

	report := Report{
		Score:           int(bits * 100 / pool.CapacityBits),
		EntropyBits:     bits,
		PoolUtilization: float64(p.Fill()) * 100 / pool.Capacity,
	}

	switch {
	case report.Score >= healthyThreshold:
		report.Status = StatusHealthy
		report.Recommendation = adviceHealthy
	case report.Score >= degradedThreshold:
		report.Status = StatusDegraded
		report.Recommendation = adviceDegraded
	default:
		report.Status = StatusCritical
		report.Recommendation = adviceCritical
	}
	return report
}

package health

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/safing/trueentropy/pool"
)

func TestCheckFreshPool(t *testing.T) {
	t.Parallel()

	report := Check(pool.New())
	assert.Equal(t, 0, report.Score)
	assert.Equal(t, StatusCritical, report.Status)
	assert.Zero(t, report.EntropyBits)
	assert.Zero(t, report.PoolUtilization)
	assert.Equal(t, adviceCritical, report.Recommendation)
}

func TestCheckReseededPool(t *testing.T) {
	t.Parallel()

	p := pool.New()
	if err := p.Reseed(); err != nil {
		t.Fatal(err)
	}

	report := Check(p)
	assert.Equal(t, 100, report.Score)
	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, int64(pool.CapacityBits), report.EntropyBits)
	assert.Equal(t, 100.0, report.PoolUtilization)
	assert.Equal(t, adviceHealthy, report.Recommendation)
}

func TestCheckThresholds(t *testing.T) {
	t.Parallel()

	feedToScore := func(t *testing.T, score int) Report {
		t.Helper()
		p := pool.New()
		p.FeedWithEstimate([]byte{0}, (score*pool.CapacityBits+99)/100)
		return Check(p)
	}

	assert.Equal(t, StatusHealthy, feedToScore(t, 80).Status)
	assert.Equal(t, StatusDegraded, feedToScore(t, 79).Status)
	assert.Equal(t, StatusDegraded, feedToScore(t, 50).Status)
	assert.Equal(t, StatusCritical, feedToScore(t, 49).Status)
}

func TestCheckIsPure(t *testing.T) {
	t.Parallel()

	p := pool.New()
	p.Feed([]byte("some harvested data"))

	before := p.EntropyBits()
	for i := 0; i < 10; i++ {
		_ = Check(p)
	}
	assert.Equal(t, before, p.EntropyBits(), "health checks must not consume entropy")
}

func TestStatusStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "healthy", StatusHealthy.String())
	assert.Equal(t, "degraded", StatusDegraded.String())
	assert.Equal(t, "critical", StatusCritical.String())
}

package trueentropy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/safing/trueentropy/collector"
	"github.com/safing/trueentropy/harvest"
	"github.com/safing/trueentropy/health"
)

func init() {
	if err := prep(); err != nil {
		panic(err)
	}
}

func offlineOptions() Options {
	return Options{
		Sources:       harvest.OfflineSources(),
		CycleInterval: 20 * time.Millisecond,
	}
}

func TestNewRejectsEmptyConfiguration(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	assert.ErrorIs(t, err, harvest.ErrNoSources)
}

func TestInstancePrimitives(t *testing.T) {
	t.Parallel()

	e, err := New(offlineOptions())
	if err != nil {
		t.Fatal(err)
	}

	v, err := e.Random()
	assert.NoError(t, err)
	assert.True(t, v >= 0 && v < 1)

	n, err := e.RandInt(1, 100)
	assert.NoError(t, err)
	assert.True(t, n >= 1 && n <= 100)

	_, err = e.RandBool()
	assert.NoError(t, err)

	b, err := e.RandBytes(16)
	assert.NoError(t, err)
	assert.Len(t, b, 16)

	u, err := e.Uniform(10, 20)
	assert.NoError(t, err)
	assert.True(t, u >= 10 && u < 20)

	_, err = e.Gauss(0, 1)
	assert.NoError(t, err)
}

func TestInstanceHealthLifecycle(t *testing.T) {
	t.Parallel()

	e, err := New(offlineOptions())
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, health.StatusCritical, e.Health().Status)

	e.Feed(make([]byte, 4096))
	assert.Equal(t, health.StatusHealthy, e.Health().Status)
	assert.Equal(t, 100, e.Health().Score)

	if err := e.Reseed(); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 100, e.Health().Score)
}

func TestInstanceCollector(t *testing.T) {
	t.Parallel()

	e, err := New(offlineOptions())
	if err != nil {
		t.Fatal(err)
	}

	e.StartCollector()
	defer func() { _ = e.StopCollector() }()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if e.Pool().EntropyBits() > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Greater(t, e.Pool().EntropyBits(), int64(0), "offline harvesters should have fed the pool")

	statuses := e.Collector().Status()
	assert.Len(t, statuses, 2)
	for _, s := range statuses {
		assert.NotEqual(t, collector.StateDisabled, s.State)
	}

	assert.NoError(t, e.StopCollector())
	assert.NoError(t, e.StopCollector())
}

func TestInstanceFastTap(t *testing.T) {
	t.Parallel()

	e, err := New(offlineOptions())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 100; i++ {
		n, err := e.Fast().RandInt(1, 6)
		assert.NoError(t, err)
		assert.True(t, n >= 1 && n <= 6)
	}

	buf := make([]byte, 64)
	n, err := e.Hybrid().Read(buf)
	assert.NoError(t, err)
	assert.Equal(t, 64, n)
}

func TestDefaultInstanceAPI(t *testing.T) {
	// Touches the shared default instance, not parallel.
	if err := Configure(offlineOptions()); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = StopCollector() }()

	v, err := Random()
	assert.NoError(t, err)
	assert.True(t, v >= 0 && v < 1)

	n, err := RandInt(1, 6)
	assert.NoError(t, err)
	assert.True(t, n >= 1 && n <= 6)

	_, err = RandBool()
	assert.NoError(t, err)

	b, err := RandBytes(8)
	assert.NoError(t, err)
	assert.Len(t, b, 8)

	color, err := Choice([]string{"red", "green", "blue"})
	assert.NoError(t, err)
	assert.Contains(t, []string{"red", "green", "blue"}, color)

	cards := []int{1, 2, 3, 4, 5}
	assert.NoError(t, Shuffle(cards))
	assert.Len(t, cards, 5)

	picks, err := Sample(cards, 3)
	assert.NoError(t, err)
	assert.Len(t, picks, 3)

	Feed([]byte("user supplied entropy"))
	report := Health()
	assert.Greater(t, report.EntropyBits, int64(0))

	assert.NoError(t, StartCollector())
	assert.NoError(t, StopCollector())
}

func TestConfigureRejectsEmpty(t *testing.T) {
	err := Configure(Options{})
	assert.ErrorIs(t, err, harvest.ErrNoSources)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := optionsFromConfig()
	assert.Equal(t, harvest.DefaultSources(), opts.Sources)
	assert.False(t, opts.Offline)
	assert.Equal(t, time.Second, opts.CycleInterval)
	assert.Equal(t, "aes", opts.HybridCipher)
}

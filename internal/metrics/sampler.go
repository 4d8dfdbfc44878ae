// ABOUTME: Metric sampling behind an interface so tests can inject fixtures.
// ABOUTME: Ships a synthetic sampler driven by an injectable random source.

package metrics

import (
	"math/rand"
	"sync"
	"time"

	"github.com/pulsehq/pulse/internal/store"
)

// Sampler produces system metric readings and per-agent gauge values.
// Sample is a pure read with no side effects, safe to call at arbitrary
// frequency; implementations may probe host counters or synthesize values.
type Sampler interface {
	// Sample returns one bounded, wall-clock-stamped reading.
	Sample() store.SystemMetrics

	// Gauges returns a cpu/memory pair in [0,100] for refreshing an
	// active agent's gauges.
	Gauges() (cpu, mem float64)
}

// SyntheticSampler generates plausible readings from a random source. It
// stands in for a live OS probe; injecting a seeded source makes output
// deterministic under test.
type SyntheticSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSynthetic creates a sampler around the given random source. A nil
// source falls back to a time-seeded one.
func NewSynthetic(rng *rand.Rand) *SyntheticSampler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SyntheticSampler{
		rng: rng,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Sample returns a synthetic reading with every gauge in [0,100] and
// network rates in a plausible KB/s range.
func (s *SyntheticSampler) Sample() store.SystemMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	return store.SystemMetrics{
		CPUUsage:       s.bounded(15, 75),
		MemoryUsage:    s.bounded(30, 70),
		DiskUsage:      s.bounded(40, 60),
		NetworkInKBps:  s.bounded(50, 500),
		NetworkOutKBps: s.bounded(20, 200),
		SampledAt:      s.now(),
	}
}

// Gauges returns a synthetic cpu/memory pair in [0,100].
func (s *SyntheticSampler) Gauges() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounded(5, 95), s.bounded(10, 90)
}

func (s *SyntheticSampler) bounded(min, max float64) float64 {
	return min + s.rng.Float64()*(max-min)
}

// Thresholds above which the system is considered degraded.
const (
	cpuDegradedAbove = 80.0
	memDegradedAbove = 85.0
)

// DeriveOverallStatus computes the overall system status. A service in an
// error or stopped state forces down; this overrides the gauge thresholds.
func DeriveOverallStatus(m store.SystemMetrics, services []store.ServiceStatus) store.SystemStatus {
	for _, svc := range services {
		if svc.State == store.ServiceStateError || svc.State == store.ServiceStateStopped {
			return store.SystemStatusDown
		}
	}
	if m.CPUUsage > cpuDegradedAbove || m.MemoryUsage > memDegradedAbove {
		return store.SystemStatusDegraded
	}
	return store.SystemStatusHealthy
}

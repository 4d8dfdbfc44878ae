// ABOUTME: Tests for the synthetic sampler and overall status derivation.
// ABOUTME: Uses a seeded random source for deterministic output.

package metrics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pulsehq/pulse/internal/store"
)

func TestSyntheticSampler_BoundedOutput(t *testing.T) {
	s := NewSynthetic(rand.New(rand.NewSource(42)))

	for i := 0; i < 50; i++ {
		m := s.Sample()
		assert.GreaterOrEqual(t, m.CPUUsage, 0.0)
		assert.LessOrEqual(t, m.CPUUsage, 100.0)
		assert.GreaterOrEqual(t, m.MemoryUsage, 0.0)
		assert.LessOrEqual(t, m.MemoryUsage, 100.0)
		assert.GreaterOrEqual(t, m.DiskUsage, 0.0)
		assert.LessOrEqual(t, m.DiskUsage, 100.0)
		assert.False(t, m.SampledAt.IsZero())

		cpu, mem := s.Gauges()
		assert.GreaterOrEqual(t, cpu, 0.0)
		assert.LessOrEqual(t, cpu, 100.0)
		assert.GreaterOrEqual(t, mem, 0.0)
		assert.LessOrEqual(t, mem, 100.0)
	}
}

func TestSyntheticSampler_DeterministicWithSeed(t *testing.T) {
	a := NewSynthetic(rand.New(rand.NewSource(7)))
	b := NewSynthetic(rand.New(rand.NewSource(7)))

	ma, mb := a.Sample(), b.Sample()
	assert.Equal(t, ma.CPUUsage, mb.CPUUsage)
	assert.Equal(t, ma.MemoryUsage, mb.MemoryUsage)
}

func TestDeriveOverallStatus(t *testing.T) {
	running := []store.ServiceStatus{{Name: "api", State: store.ServiceStateRunning}}

	t.Run("healthy below thresholds", func(t *testing.T) {
		status := DeriveOverallStatus(store.SystemMetrics{CPUUsage: 50, MemoryUsage: 50}, running)
		assert.Equal(t, store.SystemStatusHealthy, status)
	})

	t.Run("degraded on high cpu", func(t *testing.T) {
		status := DeriveOverallStatus(store.SystemMetrics{CPUUsage: 81, MemoryUsage: 10}, running)
		assert.Equal(t, store.SystemStatusDegraded, status)
	})

	t.Run("degraded on high memory", func(t *testing.T) {
		status := DeriveOverallStatus(store.SystemMetrics{CPUUsage: 10, MemoryUsage: 86}, running)
		assert.Equal(t, store.SystemStatusDegraded, status)
	})

	t.Run("failed service overrides thresholds", func(t *testing.T) {
		// Gauges are healthy, but a stopped service still forces down.
		services := []store.ServiceStatus{
			{Name: "api", State: store.ServiceStateRunning},
			{Name: "worker", State: store.ServiceStateStopped},
		}
		status := DeriveOverallStatus(store.SystemMetrics{CPUUsage: 5, MemoryUsage: 5}, services)
		assert.Equal(t, store.SystemStatusDown, status)
	})

	t.Run("errored service with high gauges is down not degraded", func(t *testing.T) {
		services := []store.ServiceStatus{{Name: "api", State: store.ServiceStateError}}
		status := DeriveOverallStatus(store.SystemMetrics{CPUUsage: 99, MemoryUsage: 99}, services)
		assert.Equal(t, store.SystemStatusDown, status)
	})
}

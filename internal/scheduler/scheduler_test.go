// ABOUTME: Tests for the periodic broadcast scheduler.
// ABOUTME: Uses a fixture sampler and a capturing broadcaster.

package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehq/pulse/internal/protocol"
	"github.com/pulsehq/pulse/internal/store"
)

// fixtureSampler returns fixed values so assertions are deterministic.
type fixtureSampler struct {
	metrics store.SystemMetrics
	cpu     float64
	mem     float64
}

func (f *fixtureSampler) Sample() store.SystemMetrics { return f.metrics }
func (f *fixtureSampler) Gauges() (float64, float64)  { return f.cpu, f.mem }

// captureCaster records every broadcast event.
type captureCaster struct {
	events chan protocol.Event
}

func newCaptureCaster() *captureCaster {
	return &captureCaster{events: make(chan protocol.Event, 64)}
}

func (c *captureCaster) Broadcast(ev protocol.Event) {
	select {
	case c.events <- ev:
	default:
	}
}

func (c *captureCaster) next(t *testing.T, eventType string) protocol.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.events:
			if ev.Type == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", eventType)
		}
	}
}

func TestMetricsTick_BroadcastsAndUpdatesSnapshot(t *testing.T) {
	s := store.New()
	sampler := &fixtureSampler{
		metrics: store.SystemMetrics{CPUUsage: 42, MemoryUsage: 33, SampledAt: time.Now()},
	}
	caster := newCaptureCaster()

	sched := New(s, sampler, caster, time.Hour, time.Hour, nil)
	sched.metricsTick()

	ev := caster.next(t, protocol.EventSystemMetrics)
	var got store.SystemMetrics
	require.NoError(t, json.Unmarshal(ev.Payload, &got))
	assert.Equal(t, 42.0, got.CPUUsage)

	snap := s.Snapshot()
	assert.Equal(t, 42.0, snap.Metrics.CPUUsage)
	assert.Equal(t, store.SystemStatusHealthy, snap.Status)
}

func TestMetricsTick_DerivesDegradedStatus(t *testing.T) {
	s := store.New()
	sampler := &fixtureSampler{
		metrics: store.SystemMetrics{CPUUsage: 95, MemoryUsage: 20, SampledAt: time.Now()},
	}
	caster := newCaptureCaster()

	New(s, sampler, caster, time.Hour, time.Hour, nil).metricsTick()

	assert.Equal(t, store.SystemStatusDegraded, s.Snapshot().Status)
}

func TestAgentTick_RefreshesOnlyActiveAgents(t *testing.T) {
	s := store.New()
	sampler := &fixtureSampler{cpu: 55.5, mem: 44.4}
	caster := newCaptureCaster()

	active, err := s.CreateAgent(store.AgentInput{Name: "active", Type: store.AgentTypeMonitoring})
	require.NoError(t, err)
	_, err = s.StartAgent(active.ID)
	require.NoError(t, err)

	idle, err := s.CreateAgent(store.AgentInput{Name: "idle", Type: store.AgentTypeCoding})
	require.NoError(t, err)

	New(s, sampler, caster, time.Hour, time.Hour, nil).agentTick()

	gotActive, err := s.GetAgent(active.ID)
	require.NoError(t, err)
	require.NotNil(t, gotActive.Metrics.CPUUsage)
	assert.Equal(t, 55.5, *gotActive.Metrics.CPUUsage)
	require.NotNil(t, gotActive.Metrics.MemoryUsage)
	assert.Equal(t, 44.4, *gotActive.Metrics.MemoryUsage)

	gotIdle, err := s.GetAgent(idle.ID)
	require.NoError(t, err)
	assert.Nil(t, gotIdle.Metrics.CPUUsage, "idle agents are not refreshed")

	ev := caster.next(t, protocol.EventAgentsUpdate)
	var agents []*store.Agent
	require.NoError(t, json.Unmarshal(ev.Payload, &agents))
	assert.Len(t, agents, 2, "broadcast carries the full agent list")
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	s := store.New()
	sampler := &fixtureSampler{
		metrics: store.SystemMetrics{CPUUsage: 10, SampledAt: time.Now()},
	}
	caster := newCaptureCaster()

	ctx, cancel := context.WithCancel(context.Background())
	sched := New(s, sampler, caster, 10*time.Millisecond, 10*time.Millisecond, nil)

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	caster.next(t, protocol.EventSystemMetrics)
	caster.next(t, protocol.EventAgentsUpdate)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}

func TestNew_DefaultsForNonPositiveIntervals(t *testing.T) {
	sched := New(store.New(), &fixtureSampler{}, newCaptureCaster(), 0, -1, nil)
	assert.Equal(t, DefaultMetricsInterval, sched.metricsInterval)
	assert.Equal(t, DefaultAgentInterval, sched.agentInterval)
}

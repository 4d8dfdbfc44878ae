// ABOUTME: Periodic broadcast scheduler: metrics tick and agent tick.
// ABOUTME: Two independent loops so a slow consumer of one never stalls the other.

package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pulsehq/pulse/internal/metrics"
	"github.com/pulsehq/pulse/internal/protocol"
	"github.com/pulsehq/pulse/internal/store"
)

// Broadcaster fans an event out to every open channel. The hub satisfies it.
type Broadcaster interface {
	Broadcast(ev protocol.Event)
}

// Default tick intervals.
const (
	DefaultMetricsInterval = 5 * time.Second
	DefaultAgentInterval   = 3 * time.Second
)

// Scheduler drives the two periodic broadcast tasks. Both run until the
// context is cancelled; closing a channel never cancels them, they are
// process-wide.
type Scheduler struct {
	store   *store.Store
	sampler metrics.Sampler
	caster  Broadcaster
	logger  *slog.Logger

	metricsInterval time.Duration
	agentInterval   time.Duration
}

// New creates a scheduler. Non-positive intervals fall back to defaults.
func New(s *store.Store, sampler metrics.Sampler, caster Broadcaster, metricsInterval, agentInterval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if metricsInterval <= 0 {
		metricsInterval = DefaultMetricsInterval
	}
	if agentInterval <= 0 {
		agentInterval = DefaultAgentInterval
	}
	return &Scheduler{
		store:           s,
		sampler:         sampler,
		caster:          caster,
		logger:          logger.With("component", "scheduler"),
		metricsInterval: metricsInterval,
		agentInterval:   agentInterval,
	}
}

// Run starts both tick loops and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started",
		"metrics_interval", s.metricsInterval,
		"agent_interval", s.agentInterval,
	)

	go s.loop(ctx, s.metricsInterval, s.metricsTick)
	go s.loop(ctx, s.agentInterval, s.agentTick)

	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, tick func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

// metricsTick samples the host, folds the reading into the system snapshot
// with a freshly derived overall status, and broadcasts system:metrics.
func (s *Scheduler) metricsTick() {
	reading := s.sampler.Sample()

	snap := s.store.Snapshot()
	snap.Metrics = reading
	snap.Status = metrics.DeriveOverallStatus(reading, snap.Services)
	s.store.SetSnapshot(snap)

	ev, err := protocol.NewEvent(protocol.EventSystemMetrics, reading)
	if err != nil {
		s.logger.Error("failed to build system:metrics event", "error", err)
		return
	}
	s.caster.Broadcast(ev)
}

// agentTick refreshes the gauges of every active agent through the store,
// then broadcasts the full agent list as agents:update.
func (s *Scheduler) agentTick() {
	for _, agent := range s.store.ListAgents() {
		if agent.Status != store.AgentStatusActive {
			continue
		}
		cpu, mem := s.sampler.Gauges()
		if _, err := s.store.RecordMetrics(agent.ID, store.MetricsPatch{
			CPUUsage:    &cpu,
			MemoryUsage: &mem,
		}); err != nil && !errors.Is(err, store.ErrAgentNotFound) {
			// Deleted between list and record is fine; anything else is not.
			s.logger.Warn("failed to refresh agent gauges", "agent_id", agent.ID, "error", err)
		}
	}

	ev, err := protocol.NewEvent(protocol.EventAgentsUpdate, s.store.ListAgents())
	if err != nil {
		s.logger.Error("failed to build agents:update event", "error", err)
		return
	}
	s.caster.Broadcast(ev)
}

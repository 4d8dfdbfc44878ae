// ABOUTME: The authoritative in-memory store for agents and the system snapshot.
// ABOUTME: Every operation is atomic per entity; listing preserves insertion order.

package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds the authoritative server-side state. It is an explicitly
// constructed instance, never a package-level singleton, so tests and the
// server each own their own state. All access goes through its methods.
type Store struct {
	mu sync.RWMutex

	agents     map[string]*Agent
	agentOrder []string

	sessions     map[string]*ChatSession
	sessionOrder []string

	snapshot *SystemSnapshot

	// now is swappable in tests for deterministic timestamps.
	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		agents:   make(map[string]*Agent),
		sessions: make(map[string]*ChatSession),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AgentInput carries the caller-supplied fields for CreateAgent.
type AgentInput struct {
	Name         string
	Type         AgentType
	Capabilities []string
}

// CreateAgent validates input and adds a new agent record. New agents start
// idle with zeroed counters.
func (s *Store) CreateAgent(input AgentInput) (*Agent, error) {
	if input.Name == "" {
		return nil, ErrNameRequired
	}
	if !input.Type.Valid() {
		return nil, ErrInvalidAgentType
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	agent := &Agent{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Type:         input.Type,
		Status:       AgentStatusIdle,
		Capabilities: append([]string(nil), input.Capabilities...),
		Metrics: AgentMetrics{
			LastActivity: ts,
		},
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	s.agents[agent.ID] = agent
	s.agentOrder = append(s.agentOrder, agent.ID)
	return agent.clone(), nil
}

// GetAgent returns a copy of the agent, or ErrAgentNotFound.
func (s *Store) GetAgent(id string) (*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agent, ok := s.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return agent.clone(), nil
}

// ListAgents returns copies of all agents in insertion order.
func (s *Store) ListAgents() []*Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agents := make([]*Agent, 0, len(s.agentOrder))
	for _, id := range s.agentOrder {
		agents = append(agents, s.agents[id].clone())
	}
	return agents
}

// AgentPatch carries optional fields for UpdateAgent. Nil fields are left
// unchanged.
type AgentPatch struct {
	Name         *string
	Type         *AgentType
	Status       *AgentStatus
	Capabilities []string
	CurrentTask  *string
}

// UpdateAgent merges the patch into an existing agent and refreshes
// UpdatedAt. A deleted or unknown id returns ErrAgentNotFound; updates never
// resurrect deleted records.
func (s *Store) UpdateAgent(id string, patch AgentPatch) (*Agent, error) {
	if patch.Type != nil && !patch.Type.Valid() {
		return nil, ErrInvalidAgentType
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, ErrInvalidAgentStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	agent, ok := s.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}

	if patch.Name != nil {
		agent.Name = *patch.Name
	}
	if patch.Type != nil {
		agent.Type = *patch.Type
	}
	if patch.Status != nil {
		agent.Status = *patch.Status
	}
	if patch.Capabilities != nil {
		agent.Capabilities = append([]string(nil), patch.Capabilities...)
	}
	if patch.CurrentTask != nil {
		task := *patch.CurrentTask
		agent.CurrentTask = &task
	}
	agent.UpdatedAt = s.now()

	return agent.clone(), nil
}

// DeleteAgent removes an agent. Returns true if something was removed.
func (s *Store) DeleteAgent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agents[id]; !ok {
		return false
	}
	delete(s.agents, id)
	for i, existing := range s.agentOrder {
		if existing == id {
			s.agentOrder = append(s.agentOrder[:i], s.agentOrder[i+1:]...)
			break
		}
	}
	return true
}

// StartAgent marks an agent active. The current task is left untouched.
func (s *Store) StartAgent(id string) (*Agent, error) {
	return s.setStatus(id, AgentStatusActive, false)
}

// StopAgent marks an agent idle and always clears its current task,
// regardless of prior value.
func (s *Store) StopAgent(id string) (*Agent, error) {
	return s.setStatus(id, AgentStatusIdle, true)
}

// SetAgentStatus sets an explicit status without touching the current task.
func (s *Store) SetAgentStatus(id string, status AgentStatus) (*Agent, error) {
	if !status.Valid() {
		return nil, ErrInvalidAgentStatus
	}
	return s.setStatus(id, status, false)
}

func (s *Store) setStatus(id string, status AgentStatus, clearTask bool) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent, ok := s.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}

	agent.Status = status
	if clearTask {
		agent.CurrentTask = nil
	}
	agent.UpdatedAt = s.now()
	return agent.clone(), nil
}

// SetAgentTask sets the agent's current task label.
func (s *Store) SetAgentTask(id, task string) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent, ok := s.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}

	agent.CurrentTask = &task
	agent.UpdatedAt = s.now()
	return agent.clone(), nil
}

// MetricsPatch carries optional metric fields for RecordMetrics. Supplied
// values replace the prior ones (last-write-wins); nil fields are unchanged.
type MetricsPatch struct {
	TasksCompleted  *int
	TasksInProgress *int
	TasksFailed     *int
	UptimeSeconds   *int64
	CPUUsage        *float64
	MemoryUsage     *float64
}

// RecordMetrics merges the patch into the agent's metrics and refreshes
// LastActivity. Counters must be non-negative, and the completed/failed
// counters are monotonic: a value below the current one is rejected.
func (s *Store) RecordMetrics(id string, patch MetricsPatch) (*Agent, error) {
	for _, counter := range []*int{patch.TasksCompleted, patch.TasksInProgress, patch.TasksFailed} {
		if counter != nil && *counter < 0 {
			return nil, ErrNegativeCounter
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	agent, ok := s.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}

	if patch.TasksCompleted != nil && *patch.TasksCompleted < agent.Metrics.TasksCompleted {
		return nil, ErrCounterRegression
	}
	if patch.TasksFailed != nil && *patch.TasksFailed < agent.Metrics.TasksFailed {
		return nil, ErrCounterRegression
	}

	if patch.TasksCompleted != nil {
		agent.Metrics.TasksCompleted = *patch.TasksCompleted
	}
	if patch.TasksInProgress != nil {
		agent.Metrics.TasksInProgress = *patch.TasksInProgress
	}
	if patch.TasksFailed != nil {
		agent.Metrics.TasksFailed = *patch.TasksFailed
	}
	if patch.UptimeSeconds != nil {
		agent.Metrics.UptimeSeconds = *patch.UptimeSeconds
	}
	if patch.CPUUsage != nil {
		v := *patch.CPUUsage
		agent.Metrics.CPUUsage = &v
	}
	if patch.MemoryUsage != nil {
		v := *patch.MemoryUsage
		agent.Metrics.MemoryUsage = &v
	}
	agent.Metrics.LastActivity = s.now()
	agent.UpdatedAt = agent.Metrics.LastActivity

	return agent.clone(), nil
}

// SetSnapshot replaces the current system snapshot.
func (s *Store) SetSnapshot(snap SystemSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap.clone()
}

// Snapshot returns a copy of the current system snapshot. Before the first
// SetSnapshot it returns an empty healthy snapshot so a freshly booted
// channel still gets a consistent bootstrap payload.
func (s *Store) Snapshot() SystemSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return SystemSnapshot{Status: SystemStatusHealthy}
	}
	return *s.snapshot.clone()
}

// ABOUTME: Local mirror of server state with pure per-event reducers.
// ABOUTME: Full snapshots overwrite wholesale; unknown events are ignored.

package syncclient

import (
	"encoding/json"
	"sync"

	"github.com/pulsehq/pulse/internal/protocol"
	"github.com/pulsehq/pulse/internal/store"
)

// Mirror is the client-side copy of server state. Applying the same
// snapshot twice is a no-op by construction: every reducer either replaces
// state wholesale or sets a single field to the carried value.
//
// Reducers never mutate a stored agent in place; targeted updates replace
// the map entry with a modified copy. Agents handed out by the accessors
// are therefore stable snapshots, safe to read while the read loop keeps
// applying events.
type Mirror struct {
	mu       sync.RWMutex
	agents   map[string]*store.Agent
	order    []string
	snapshot store.SystemSnapshot
}

// NewMirror creates an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{agents: make(map[string]*store.Agent)}
}

// Apply dispatches one event to its reducer. Events with unknown types or
// undecodable payloads are ignored, never errors: the next full snapshot
// makes the mirror consistent again.
func (m *Mirror) Apply(ev protocol.Event) {
	switch ev.Type {
	case protocol.EventAgentsList, protocol.EventAgentsUpdate:
		var agents []*store.Agent
		if err := json.Unmarshal(ev.Payload, &agents); err != nil {
			return
		}
		m.replaceAgents(agents)

	case protocol.EventSystemStatus:
		var snap store.SystemSnapshot
		if err := json.Unmarshal(ev.Payload, &snap); err != nil {
			return
		}
		m.mu.Lock()
		m.snapshot = snap
		m.mu.Unlock()

	case protocol.EventSystemMetrics:
		var reading store.SystemMetrics
		if err := json.Unmarshal(ev.Payload, &reading); err != nil {
			return
		}
		m.mu.Lock()
		m.snapshot.Metrics = reading
		m.mu.Unlock()

	case protocol.EventAgentStatus:
		var p protocol.AgentStatusPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return
		}
		m.mu.Lock()
		if agent, ok := m.agents[p.AgentID]; ok {
			next := *agent
			next.Status = p.Status
			m.agents[p.AgentID] = &next
		}
		m.mu.Unlock()

	case protocol.EventAgentTask:
		var p protocol.AgentTaskPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return
		}
		m.mu.Lock()
		if agent, ok := m.agents[p.AgentID]; ok {
			next := *agent
			next.CurrentTask = p.Task
			m.agents[p.AgentID] = &next
		}
		m.mu.Unlock()
	}
}

func (m *Mirror) replaceAgents(agents []*store.Agent) {
	byID := make(map[string]*store.Agent, len(agents))
	order := make([]string, 0, len(agents))
	for _, agent := range agents {
		byID[agent.ID] = agent
		order = append(order, agent.ID)
	}

	m.mu.Lock()
	m.agents = byID
	m.order = order
	m.mu.Unlock()
}

// Agents returns the mirrored agents in server order.
func (m *Mirror) Agents() []*store.Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agents := make([]*store.Agent, 0, len(m.order))
	for _, id := range m.order {
		agents = append(agents, m.agents[id])
	}
	return agents
}

// Agent returns one mirrored agent by id.
func (m *Mirror) Agent(id string) (*store.Agent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	agent, ok := m.agents[id]
	return agent, ok
}

// System returns the mirrored system snapshot.
func (m *Mirror) System() store.SystemSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

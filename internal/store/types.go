// ABOUTME: Domain types for the authoritative in-memory state store.
// ABOUTME: Agents, chat sessions, and the system snapshot with their enums.

package store

import "time"

// AgentType classifies what an agent does.
type AgentType string

const (
	AgentTypeCoding        AgentType = "coding"
	AgentTypeDataGathering AgentType = "data-gathering"
	AgentTypeMonitoring    AgentType = "monitoring"
	AgentTypeAnalysis      AgentType = "analysis"
)

// Valid reports whether t is a known agent type.
func (t AgentType) Valid() bool {
	switch t {
	case AgentTypeCoding, AgentTypeDataGathering, AgentTypeMonitoring, AgentTypeAnalysis:
		return true
	}
	return false
}

// AgentStatus is the lifecycle state of an agent.
type AgentStatus string

const (
	AgentStatusActive  AgentStatus = "active"
	AgentStatusIdle    AgentStatus = "idle"
	AgentStatusError   AgentStatus = "error"
	AgentStatusOffline AgentStatus = "offline"
)

// Valid reports whether s is a known agent status.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusActive, AgentStatusIdle, AgentStatusError, AgentStatusOffline:
		return true
	}
	return false
}

// AgentMetrics holds per-agent counters and gauges.
// Counters are monotonic; gauges are 0-100 percentages.
type AgentMetrics struct {
	TasksCompleted  int        `json:"tasksCompleted"`
	TasksInProgress int        `json:"tasksInProgress"`
	TasksFailed     int        `json:"tasksFailed"`
	UptimeSeconds   int64      `json:"uptime"`
	LastActivity    time.Time  `json:"lastActivity"`
	CPUUsage        *float64   `json:"cpuUsage,omitempty"`
	MemoryUsage     *float64   `json:"memoryUsage,omitempty"`
}

// Agent is an authoritative record for one managed agent.
type Agent struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Type         AgentType    `json:"type"`
	Status       AgentStatus  `json:"status"`
	Capabilities []string     `json:"capabilities"`
	CurrentTask  *string      `json:"currentTask,omitempty"`
	Metrics      AgentMetrics `json:"metrics"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// clone returns a deep copy so callers can never mutate store-owned state.
func (a *Agent) clone() *Agent {
	dup := *a
	dup.Capabilities = append([]string(nil), a.Capabilities...)
	if a.CurrentTask != nil {
		task := *a.CurrentTask
		dup.CurrentTask = &task
	}
	if a.Metrics.CPUUsage != nil {
		v := *a.Metrics.CPUUsage
		dup.Metrics.CPUUsage = &v
	}
	if a.Metrics.MemoryUsage != nil {
		v := *a.Metrics.MemoryUsage
		dup.Metrics.MemoryUsage = &v
	}
	return &dup
}

// MessageRole identifies the author side of a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Valid reports whether r is a known message role.
func (r MessageRole) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ChatMessage is one message in a chat session.
type ChatMessage struct {
	ID        string            `json:"id"`
	Role      MessageRole       `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Model     string            `json:"model,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ChatSession owns an ordered sequence of messages.
type ChatSession struct {
	ID        string        `json:"id"`
	Owner     *string       `json:"owner,omitempty"`
	Title     string        `json:"title"`
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (s *ChatSession) clone() *ChatSession {
	dup := *s
	if s.Owner != nil {
		owner := *s.Owner
		dup.Owner = &owner
	}
	dup.Messages = append([]ChatMessage(nil), s.Messages...)
	return &dup
}

// SystemStatus is the derived overall health of the system.
type SystemStatus string

const (
	SystemStatusHealthy  SystemStatus = "healthy"
	SystemStatusDegraded SystemStatus = "degraded"
	SystemStatusDown     SystemStatus = "down"
)

// ServiceState is the state of one monitored service component.
type ServiceState string

const (
	ServiceStateRunning ServiceState = "running"
	ServiceStateStopped ServiceState = "stopped"
	ServiceStateError   ServiceState = "error"
)

// ServiceStatus describes one service component in the snapshot.
type ServiceStatus struct {
	Name    string       `json:"name"`
	State   ServiceState `json:"state"`
	Message string       `json:"message,omitempty"`
}

// SystemMetrics is one reading of host-level gauges.
type SystemMetrics struct {
	CPUUsage       float64   `json:"cpuUsage"`
	MemoryUsage    float64   `json:"memoryUsage"`
	DiskUsage      float64   `json:"diskUsage"`
	NetworkInKBps  float64   `json:"networkIn"`
	NetworkOutKBps float64   `json:"networkOut"`
	SampledAt      time.Time `json:"sampledAt"`
}

// AlertSeverity grades an alert.
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// Alert is an unresolved condition surfaced in the snapshot.
type Alert struct {
	ID        string        `json:"id"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"createdAt"`
}

// SystemSnapshot is the full current view of system health.
type SystemSnapshot struct {
	Status   SystemStatus    `json:"status"`
	Services []ServiceStatus `json:"services"`
	Metrics  SystemMetrics   `json:"metrics"`
	Alerts   []Alert         `json:"alerts"`
}

func (s *SystemSnapshot) clone() *SystemSnapshot {
	dup := *s
	dup.Services = append([]ServiceStatus(nil), s.Services...)
	dup.Alerts = append([]Alert(nil), s.Alerts...)
	return &dup
}

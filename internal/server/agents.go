// ABOUTME: Agent CRUD and lifecycle handlers plus the targeted-update events.
// ABOUTME: Mutations broadcast full snapshots; start/stop emit targeted frames.

package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pulsehq/pulse/internal/protocol"
	"github.com/pulsehq/pulse/internal/store"
)

// CreateAgentRequest is the request body for POST /api/agents.
type CreateAgentRequest struct {
	Name         string          `json:"name"`
	Type         store.AgentType `json:"type"`
	Capabilities []string        `json:"capabilities,omitempty"`
}

// UpdateAgentRequest is the request body for PUT /api/agents/:id.
// Absent fields are left untouched.
type UpdateAgentRequest struct {
	Name         *string            `json:"name,omitempty"`
	Type         *store.AgentType   `json:"type,omitempty"`
	Status       *store.AgentStatus `json:"status,omitempty"`
	Capabilities []string           `json:"capabilities,omitempty"`
	CurrentTask  *string            `json:"currentTask,omitempty"`
}

// RecordMetricsRequest is the request body for POST /api/agents/:id/metrics.
type RecordMetricsRequest struct {
	TasksCompleted  *int     `json:"tasksCompleted,omitempty"`
	TasksInProgress *int     `json:"tasksInProgress,omitempty"`
	TasksFailed     *int     `json:"tasksFailed,omitempty"`
	UptimeSeconds   *int64   `json:"uptime,omitempty"`
	CPUUsage        *float64 `json:"cpuUsage,omitempty"`
	MemoryUsage     *float64 `json:"memoryUsage,omitempty"`
}

func (s *Server) handleCreateAgent(c echo.Context) error {
	var req CreateAgentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, protocol.Fail("invalid request body"))
	}

	agent, err := s.store.CreateAgent(store.AgentInput{
		Name:         req.Name,
		Type:         req.Type,
		Capabilities: req.Capabilities,
	})
	if err != nil {
		return s.storeError(c, err)
	}

	s.logger.Info("agent created", "agent_id", agent.ID, "name", agent.Name, "type", agent.Type)
	s.broadcastAgents()
	return c.JSON(http.StatusCreated, protocol.OK(agent))
}

func (s *Server) handleListAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, protocol.OK(s.store.ListAgents()))
}

func (s *Server) handleGetAgent(c echo.Context) error {
	agent, err := s.store.GetAgent(c.Param("id"))
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, protocol.OK(agent))
}

func (s *Server) handleUpdateAgent(c echo.Context) error {
	var req UpdateAgentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, protocol.Fail("invalid request body"))
	}

	agent, err := s.store.UpdateAgent(c.Param("id"), store.AgentPatch{
		Name:         req.Name,
		Type:         req.Type,
		Status:       req.Status,
		Capabilities: req.Capabilities,
		CurrentTask:  req.CurrentTask,
	})
	if err != nil {
		return s.storeError(c, err)
	}

	if req.Status != nil {
		s.emitAgentStatus(agent.ID, agent.Status)
	}
	if req.CurrentTask != nil {
		s.emitAgentTask(agent.ID, agent.CurrentTask)
	}
	s.broadcastAgents()
	return c.JSON(http.StatusOK, protocol.OK(agent))
}

func (s *Server) handleDeleteAgent(c echo.Context) error {
	id := c.Param("id")
	if !s.store.DeleteAgent(id) {
		return c.JSON(http.StatusNotFound, protocol.Fail(store.ErrAgentNotFound.Error()))
	}

	s.logger.Info("agent deleted", "agent_id", id)
	s.broadcastAgents()
	return c.JSON(http.StatusOK, protocol.OK(map[string]string{"id": id}))
}

func (s *Server) handleStartAgent(c echo.Context) error {
	agent, err := s.store.StartAgent(c.Param("id"))
	if err != nil {
		return s.storeError(c, err)
	}

	s.logger.Info("agent started", "agent_id", agent.ID)
	s.emitAgentStatus(agent.ID, agent.Status)
	s.broadcastAgents()
	return c.JSON(http.StatusOK, protocol.OK(agent))
}

// handleStopAgent stops an agent. Stopping always clears the current task,
// so both targeted frames go out.
func (s *Server) handleStopAgent(c echo.Context) error {
	agent, err := s.store.StopAgent(c.Param("id"))
	if err != nil {
		return s.storeError(c, err)
	}

	s.logger.Info("agent stopped", "agent_id", agent.ID)
	s.emitAgentStatus(agent.ID, agent.Status)
	s.emitAgentTask(agent.ID, nil)
	s.broadcastAgents()
	return c.JSON(http.StatusOK, protocol.OK(agent))
}

func (s *Server) handleRecordMetrics(c echo.Context) error {
	var req RecordMetricsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, protocol.Fail("invalid request body"))
	}

	agent, err := s.store.RecordMetrics(c.Param("id"), store.MetricsPatch{
		TasksCompleted:  req.TasksCompleted,
		TasksInProgress: req.TasksInProgress,
		TasksFailed:     req.TasksFailed,
		UptimeSeconds:   req.UptimeSeconds,
		CPUUsage:        req.CPUUsage,
		MemoryUsage:     req.MemoryUsage,
	})
	if err != nil {
		return s.storeError(c, err)
	}

	s.broadcastAgents()
	return c.JSON(http.StatusOK, protocol.OK(agent))
}

// broadcastAgents pushes the full agent list to every channel.
func (s *Server) broadcastAgents() {
	ev, err := protocol.NewEvent(protocol.EventAgentsUpdate, s.store.ListAgents())
	if err != nil {
		s.logger.Error("encoding agents update", "error", err)
		return
	}
	s.hub.Broadcast(ev)
}

func (s *Server) emitAgentStatus(agentID string, status store.AgentStatus) {
	ev, err := protocol.NewEvent(protocol.EventAgentStatus, protocol.AgentStatusPayload{
		AgentID: agentID,
		Status:  status,
	})
	if err != nil {
		s.logger.Error("encoding agent status", "error", err)
		return
	}
	s.hub.Broadcast(ev)
}

func (s *Server) emitAgentTask(agentID string, task *string) {
	ev, err := protocol.NewEvent(protocol.EventAgentTask, protocol.AgentTaskPayload{
		AgentID: agentID,
		Task:    task,
	})
	if err != nil {
		s.logger.Error("encoding agent task", "error", err)
		return
	}
	s.hub.Broadcast(ev)
}

// storeError maps store sentinels to HTTP status codes.
func (s *Server) storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrAgentNotFound), errors.Is(err, store.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, protocol.Fail(err.Error()))
	case errors.Is(err, store.ErrNameRequired),
		errors.Is(err, store.ErrInvalidAgentType),
		errors.Is(err, store.ErrInvalidAgentStatus),
		errors.Is(err, store.ErrInvalidRole),
		errors.Is(err, store.ErrEmptyContent),
		errors.Is(err, store.ErrNegativeCounter),
		errors.Is(err, store.ErrCounterRegression):
		return c.JSON(http.StatusBadRequest, protocol.Fail(err.Error()))
	default:
		s.logger.Error("store operation failed", "error", err)
		return c.JSON(http.StatusInternalServerError, protocol.Fail("internal error"))
	}
}

// ABOUTME: End-to-end tests for the HTTP surface over httptest.
// ABOUTME: Covers envelopes, lifecycle events, chat replies, and the ws channel.

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehq/pulse/internal/config"
	"github.com/pulsehq/pulse/internal/hub"
	"github.com/pulsehq/pulse/internal/protocol"
	"github.com/pulsehq/pulse/internal/respond"
	"github.com/pulsehq/pulse/internal/store"
)

type testEnv struct {
	store *store.Store
	hub   *hub.Hub
	srv   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.New()
	h := hub.New(st, nil)
	t.Cleanup(h.Close)

	registry := respond.NewRegistry(nil)
	require.NoError(t, registry.Register(respond.MockPrefix, respond.NewMock()))

	s := New(config.Default(), st, h, registry, nil)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{store: st, hub: h, srv: srv}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, protocol.Envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var env protocol.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func decodeData(t *testing.T, env protocol.Envelope, out any) {
	t.Helper()
	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func (e *testEnv) createAgent(t *testing.T, name string) store.Agent {
	t.Helper()
	resp, env := e.do(t, http.MethodPost, "/api/agents", CreateAgentRequest{
		Name: name,
		Type: store.AgentTypeMonitoring,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)

	var agent store.Agent
	decodeData(t, env, &agent)
	return agent
}

func TestCreateAgent_ReturnsDefaults(t *testing.T) {
	e := newTestEnv(t)

	agent := e.createAgent(t, "scout")
	assert.NotEmpty(t, agent.ID)
	assert.Equal(t, store.AgentStatusIdle, agent.Status)
	assert.Nil(t, agent.CurrentTask)
	assert.Zero(t, agent.Metrics.TasksCompleted)
}

func TestCreateAgent_ValidationError(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.do(t, http.MethodPost, "/api/agents", CreateAgentRequest{Type: store.AgentTypeCoding})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "name")
}

func TestGetAgent_NotFound(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.do(t, http.MethodGet, "/api/agents/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, env.Success)
}

func TestAgentLifecycle_StartStop(t *testing.T) {
	e := newTestEnv(t)
	agent := e.createAgent(t, "worker")

	task := "indexing"
	_, env := e.do(t, http.MethodPut, "/api/agents/"+agent.ID, UpdateAgentRequest{CurrentTask: &task})
	require.True(t, env.Success)

	resp, env := e.do(t, http.MethodPost, "/api/agents/"+agent.ID+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var started store.Agent
	decodeData(t, env, &started)
	assert.Equal(t, store.AgentStatusActive, started.Status)
	require.NotNil(t, started.CurrentTask)
	assert.Equal(t, "indexing", *started.CurrentTask)

	resp, env = e.do(t, http.MethodPost, "/api/agents/"+agent.ID+"/stop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stopped store.Agent
	decodeData(t, env, &stopped)
	assert.Equal(t, store.AgentStatusIdle, stopped.Status)
	assert.Nil(t, stopped.CurrentTask, "stop must clear the current task")
}

func TestDeleteAgent(t *testing.T) {
	e := newTestEnv(t)
	agent := e.createAgent(t, "ephemeral")

	resp, env := e.do(t, http.MethodDelete, "/api/agents/"+agent.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	resp, _ = e.do(t, http.MethodDelete, "/api/agents/"+agent.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecordMetrics_RejectsRegression(t *testing.T) {
	e := newTestEnv(t)
	agent := e.createAgent(t, "worker")

	ten := 10
	resp, _ := e.do(t, http.MethodPost, "/api/agents/"+agent.ID+"/metrics", RecordMetricsRequest{TasksCompleted: &ten})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	five := 5
	resp, env := e.do(t, http.MethodPost, "/api/agents/"+agent.ID+"/metrics", RecordMetricsRequest{TasksCompleted: &five})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
}

func TestGetSystem_DefaultSnapshot(t *testing.T) {
	e := newTestEnv(t)

	resp, env := e.do(t, http.MethodGet, "/api/system", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap store.SystemSnapshot
	decodeData(t, env, &snap)
	assert.Equal(t, store.SystemStatusHealthy, snap.Status)
}

func TestSessionMessage_ProducesAssistantReply(t *testing.T) {
	e := newTestEnv(t)

	_, env := e.do(t, http.MethodPost, "/api/sessions", CreateSessionRequest{Model: "mock-small"})
	require.True(t, env.Success)

	var session store.ChatSession
	decodeData(t, env, &session)

	resp, env := e.do(t, http.MethodPost,
		fmt.Sprintf("/api/sessions/%s/messages", session.ID),
		AppendMessageRequest{Content: "status report please"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var exchange MessageExchange
	decodeData(t, env, &exchange)
	require.NotNil(t, exchange.Message)
	assert.Equal(t, store.RoleUser, exchange.Message.Role)

	require.NotNil(t, exchange.Reply)
	assert.Equal(t, store.RoleAssistant, exchange.Reply.Role)
	assert.Contains(t, exchange.Reply.Content, "status report please")

	// Both messages persisted in order.
	stored, err := e.store.GetSession(session.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 2)
}

func TestSessionMessage_NoProviderStillStoresMessage(t *testing.T) {
	e := newTestEnv(t)

	_, env := e.do(t, http.MethodPost, "/api/sessions", CreateSessionRequest{Model: "unrouted-model"})
	var session store.ChatSession
	decodeData(t, env, &session)

	resp, env := e.do(t, http.MethodPost,
		fmt.Sprintf("/api/sessions/%s/messages", session.ID),
		AppendMessageRequest{Content: "anyone there?"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var exchange MessageExchange
	decodeData(t, env, &exchange)
	assert.NotNil(t, exchange.Message)
	assert.Nil(t, exchange.Reply)
}

func TestSessionMessage_EmptyContentRejected(t *testing.T) {
	e := newTestEnv(t)

	_, env := e.do(t, http.MethodPost, "/api/sessions", CreateSessionRequest{})
	var session store.ChatSession
	decodeData(t, env, &session)

	resp, _ := e.do(t, http.MethodPost,
		fmt.Sprintf("/api/sessions/%s/messages", session.ID),
		AppendMessageRequest{Content: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)

	resp, err := http.Get(e.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocket_BootstrapThenMutationBroadcast(t *testing.T) {
	e := newTestEnv(t)
	e.createAgent(t, "early-bird")

	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	readEvent := func() protocol.Event {
		ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)
		ev, err := protocol.Decode(data)
		require.NoError(t, err)
		return ev
	}

	// Bootstrap pair arrives first, in order.
	first := readEvent()
	assert.Equal(t, protocol.EventAgentsList, first.Type)

	var agents []*store.Agent
	require.NoError(t, json.Unmarshal(first.Payload, &agents))
	require.Len(t, agents, 1)
	assert.Equal(t, "early-bird", agents[0].Name)

	second := readEvent()
	assert.Equal(t, protocol.EventSystemStatus, second.Type)

	// A mutation through the API reaches the open channel.
	e.createAgent(t, "late-comer")
	update := readEvent()
	assert.Equal(t, protocol.EventAgentsUpdate, update.Type)

	require.NoError(t, json.Unmarshal(update.Payload, &agents))
	assert.Len(t, agents, 2)
}

func TestWebSocket_StartEmitsTargetedStatusFrame(t *testing.T) {
	e := newTestEnv(t)
	agent := e.createAgent(t, "worker")

	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	readEvent := func() protocol.Event {
		ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)
		ev, err := protocol.Decode(data)
		require.NoError(t, err)
		return ev
	}

	// Skip the bootstrap pair.
	readEvent()
	readEvent()

	resp, _ := e.do(t, http.MethodPost, "/api/agents/"+agent.ID+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ev := readEvent()
	require.Equal(t, protocol.EventAgentStatus, ev.Type)

	var payload protocol.AgentStatusPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, agent.ID, payload.AgentID)
	assert.Equal(t, store.AgentStatusActive, payload.Status)
}

// ABOUTME: The WebSocket event protocol between the server and sync clients.
// ABOUTME: Every frame is a JSON envelope with a type tag and a payload.

package protocol

import (
	"encoding/json"
	"time"

	"github.com/pulsehq/pulse/internal/store"
)

// Event names, server to client. The periodic broadcasts are always full
// snapshots; the agent:* events are the optional targeted-update path used
// by request handlers where the mutation is known to be single-field.
const (
	EventAgentsList    = "agents:list"
	EventSystemStatus  = "system:status"
	EventAgentsUpdate  = "agents:update"
	EventSystemMetrics = "system:metrics"
	EventAgentStatus   = "agent:status"
	EventAgentTask     = "agent:task"
)

// Event is the wire envelope for one frame.
type Event struct {
	Type    string          `json:"type"`
	Ts      int64           `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

// AgentStatusPayload is the payload for agent:status.
type AgentStatusPayload struct {
	AgentID string            `json:"agentId"`
	Status  store.AgentStatus `json:"status"`
}

// AgentTaskPayload is the payload for agent:task. A nil Task clears the
// agent's current task on the client mirror.
type AgentTaskPayload struct {
	AgentID string  `json:"agentId"`
	Task    *string `json:"task"`
}

// NewEvent marshals payload into an envelope stamped with the current time.
func NewEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:    eventType,
		Ts:      time.Now().UnixMilli(),
		Payload: raw,
	}, nil
}

// Encode marshals the envelope for the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses one frame into an envelope. The payload stays raw so the
// receiver can dispatch on Type before unmarshaling.
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}

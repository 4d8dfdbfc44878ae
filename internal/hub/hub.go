// ABOUTME: Connection manager for WebSocket channels with snapshot fan-out.
// ABOUTME: Bootstraps every new channel, then broadcasts without blocking.

package hub

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pulsehq/pulse/internal/protocol"
	"github.com/pulsehq/pulse/internal/store"
)

// sendBufferSize is the per-channel outbound buffer. Broadcasts to a
// channel whose buffer is full are dropped for that channel only; the next
// tick re-sends a full snapshot, so a dropped frame is never fatal.
const sendBufferSize = 64

// Snapshotter supplies the bootstrap payloads for a newly opened channel.
// The store satisfies it.
type Snapshotter interface {
	ListAgents() []*store.Agent
	Snapshot() store.SystemSnapshot
}

// Hub tracks all open channels and fans events out to them. Channels are
// created on connect and destroyed on disconnect; they own no domain state.
type Hub struct {
	mu        sync.RWMutex
	conns     map[string]*Conn
	snapshots Snapshotter
	logger    *slog.Logger
	closed    bool
}

// New creates a hub. Pass nil logger for the default.
func New(snapshots Snapshotter, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		conns:     make(map[string]*Conn),
		snapshots: snapshots,
		logger:    logger.With("component", "hub"),
	}
}

// Register creates a channel around an open websocket, queues its bootstrap
// snapshot, and adds it to the fan-out set. The bootstrap frames are queued
// before the channel can receive broadcasts, so the first two frames on
// every channel are always agents:list then system:status.
func (h *Hub) Register(ws *websocket.Conn, principal string) (*Conn, error) {
	conn := &Conn{
		ID:        uuid.New().String(),
		Principal: principal,
		ws:        ws,
		send:      make(chan []byte, sendBufferSize),
		hub:       h,
	}

	if err := h.bootstrap(conn); err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.closeSend()
		return nil, ErrHubClosed
	}
	h.conns[conn.ID] = conn
	total := len(h.conns)
	h.mu.Unlock()

	h.logger.Info("channel opened",
		"conn_id", conn.ID,
		"principal", principal,
		"total_channels", total,
	)
	return conn, nil
}

// bootstrap queues the full current state: agent list first, system status
// second. A newly joined channel never waits for the next scheduler tick.
func (h *Hub) bootstrap(conn *Conn) error {
	list, err := protocol.NewEvent(protocol.EventAgentsList, h.snapshots.ListAgents())
	if err != nil {
		return err
	}
	status, err := protocol.NewEvent(protocol.EventSystemStatus, h.snapshots.Snapshot())
	if err != nil {
		return err
	}
	for _, ev := range []protocol.Event{list, status} {
		data, err := ev.Encode()
		if err != nil {
			return err
		}
		conn.send <- data
	}
	return nil
}

// Unregister removes a channel and releases its resources. Queued outbound
// messages to the channel are discarded. Safe to call more than once.
func (h *Hub) Unregister(conn *Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn.ID]
	if ok {
		delete(h.conns, conn.ID)
	}
	total := len(h.conns)
	h.mu.Unlock()

	if !ok {
		return
	}

	conn.closeSend()
	h.logger.Info("channel closed",
		"conn_id", conn.ID,
		"total_channels", total,
	)
}

// Broadcast encodes the event once and fans it out to every open channel.
// Sends never block: a channel with a full buffer drops the frame, and one
// channel's failure cannot affect delivery to the others.
func (h *Hub) Broadcast(ev protocol.Event) {
	data, err := ev.Encode()
	if err != nil {
		h.logger.Error("failed to encode broadcast event", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns))
	for _, conn := range h.conns {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		select {
		case conn.send <- data:
		default:
			h.logger.Debug("dropped frame for slow channel",
				"conn_id", conn.ID,
				"type", ev.Type,
			)
		}
	}
}

// ConnCount returns the number of open channels.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close shuts down the hub and releases every channel.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for id, conn := range h.conns {
		conns = append(conns, conn)
		delete(h.conns, id)
	}
	h.closed = true
	h.mu.Unlock()

	for _, conn := range conns {
		conn.closeSend()
	}
}

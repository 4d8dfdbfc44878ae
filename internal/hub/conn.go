// ABOUTME: One WebSocket channel: a pure transport handle with pumps.
// ABOUTME: writePump drains the send buffer; readPump watches for closure.

package hub

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrHubClosed is returned when registering on a closed hub.
var ErrHubClosed = errors.New("hub closed")

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 25 * time.Second
)

// Conn is a single channel: identity, an optional authenticated principal,
// and the transport. It owns no domain state.
type Conn struct {
	ID        string
	Principal string

	ws        *websocket.Conn
	send      chan []byte
	hub       *Hub
	closeOnce sync.Once
}

func (c *Conn) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Run services the channel until it closes, then unregisters it. It blocks
// until the peer disconnects or the transport fails.
func (c *Conn) Run() {
	go c.writePump()
	c.readPump()
}

// readPump consumes inbound frames. Clients do not send domain traffic on
// the channel; the read loop exists to detect closure and answer pings.
func (c *Conn) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(1 << 20)
	c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("channel read error", "conn_id", c.ID, "error", err)
			}
			return
		}
	}
}

// writePump drains the send buffer onto the wire in order and keeps the
// connection alive with pings. Within one channel, frames are delivered in
// the order they were queued.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ABOUTME: Client side of the sync channel: connection state machine and
// ABOUTME: reconnection with capped exponential backoff.

package syncclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/pulsehq/pulse/internal/protocol"
)

// State is the client connection state.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

// ErrExhaustedRetries is returned when the reconnect attempt cap is hit.
// The client stays in StateFailed until Connect is invoked again manually.
var ErrExhaustedRetries = errors.New("reconnect attempts exhausted")

// ErrAlreadyConnected is returned by Connect on a live client.
var ErrAlreadyConnected = errors.New("client already connected")

// Reconnection defaults.
const (
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 5 * time.Second
	DefaultMaxAttempts = 5
)

// Dialer opens the websocket. gorilla's *websocket.Dialer satisfies it;
// tests can substitute a failing one.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	URL         string
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	Logger      *slog.Logger

	// OnStateChange, if set, observes every state transition.
	OnStateChange func(State)
}

// Client maintains the channel to the server and mirrors its state
// locally. The mirror is overwritten wholesale by bootstrap and tick
// snapshots; there is no merge logic (last-snapshot-wins).
type Client struct {
	opts   Options
	dialer Dialer
	logger *slog.Logger
	mirror *Mirror

	mu       sync.Mutex
	state    State
	attempts int
	ws       *websocket.Conn
	cancel   context.CancelFunc
}

// New creates a client for the given server URL.
func New(opts Options) *Client {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		opts:   opts,
		dialer: websocket.DefaultDialer,
		logger: logger.With("component", "syncclient"),
		mirror: NewMirror(),
		state:  StateIdle,
	}
}

// Mirror returns the locally mirrored state. On disconnect the mirror keeps
// the last known state (stale-but-available) until a reconnect overwrites it.
func (c *Client) Mirror() *Mirror { return c.mirror }

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the channel is currently open.
func (c *Client) Connected() bool {
	return c.State() == StateConnected
}

// Attempts returns the reconnect attempt counter. It resets to zero on
// every successful connection.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Connect establishes the channel. If the first dial fails it runs the
// bounded reconnect loop inline; exhausting it returns ErrExhaustedRetries
// with the client in StateFailed. On success the read loop runs in the
// background and transparently reconnects after transport errors.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting || c.state == StateReconnecting {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	// Manual Connect always starts with a fresh attempt budget.
	c.attempts = 0
	c.mu.Unlock()

	c.setState(StateConnecting)
	ws, _, err := c.dialer.DialContext(runCtx, c.opts.URL, nil)
	if err == nil {
		c.onConnected(runCtx, ws)
		return nil
	}

	c.logger.Warn("initial dial failed", "url", c.opts.URL, "error", err)
	c.setState(StateDisconnected)
	return c.reconnect(runCtx)
}

// Disconnect tears the channel down intentionally. It clears any pending
// backoff timer so no reconnect attempt fires after shutdown, and returns
// the client to StateIdle.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		ws.Close()
	}
	c.setState(StateIdle)
}

func (c *Client) onConnected(ctx context.Context, ws *websocket.Conn) {
	c.mu.Lock()
	c.ws = ws
	c.attempts = 0
	c.mu.Unlock()

	c.setState(StateConnected)
	c.logger.Info("channel connected", "url", c.opts.URL)
	go c.readLoop(ctx, ws)
}

// readLoop applies incoming events to the mirror until the transport
// fails, then hands off to the reconnect loop.
func (c *Client) readLoop(ctx context.Context, ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				// Intentional shutdown; Disconnect already set the state.
				return
			}
			c.logger.Warn("channel lost", "error", err)
			c.mu.Lock()
			c.ws = nil
			c.mu.Unlock()
			if !c.setStateUnlessStopped(ctx, StateDisconnected) {
				return
			}
			if err := c.reconnect(ctx); err != nil {
				c.logger.Error("reconnection gave up", "error", err)
			}
			return
		}

		ev, err := protocol.Decode(data)
		if err != nil {
			c.logger.Warn("discarding malformed frame", "error", err)
			continue
		}
		c.mirror.Apply(ev)
	}
}

// newBackoff builds the retry schedule: exponential from base, capped at max.
func newBackoff(base, max time.Duration) retry.Backoff {
	return retry.WithCappedDuration(max, retry.NewExponential(base))
}

// reconnect retries the dial with capped exponential backoff, bounded by
// MaxAttempts. Context cancellation (explicit Disconnect) clears the
// pending timer and stops the loop immediately.
func (c *Client) reconnect(ctx context.Context) error {
	backoff := newBackoff(c.opts.BaseDelay, c.opts.MaxDelay)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.mu.Lock()
		if c.attempts >= c.opts.MaxAttempts {
			c.mu.Unlock()
			if !c.setStateUnlessStopped(ctx, StateFailed) {
				return ctx.Err()
			}
			return fmt.Errorf("%w after %d attempts", ErrExhaustedRetries, c.opts.MaxAttempts)
		}
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()

		if !c.setStateUnlessStopped(ctx, StateReconnecting) {
			return ctx.Err()
		}
		delay, _ := backoff.Next()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		ws, _, err := c.dialer.DialContext(ctx, c.opts.URL, nil)
		if err == nil {
			c.onConnected(ctx, ws)
			return nil
		}
		c.logger.Warn("reconnect attempt failed",
			"attempt", attempt,
			"max_attempts", c.opts.MaxAttempts,
			"delay", delay,
			"error", err,
		)
	}
}

// setStateUnlessStopped applies a transition only while the run context is
// alive. Disconnect cancels the context under the state lock, so once it
// has moved the client to idle no late reconnect-loop iteration can
// override that with reconnecting or failed. Returns false when the
// context is already cancelled.
func (c *Client) setStateUnlessStopped(ctx context.Context, next State) bool {
	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		return false
	}
	if c.state == next {
		c.mu.Unlock()
		return true
	}
	c.state = next
	cb := c.opts.OnStateChange
	c.mu.Unlock()

	if cb != nil {
		cb(next)
	}
	return true
}

func (c *Client) setState(next State) {
	c.mu.Lock()
	if c.state == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	cb := c.opts.OnStateChange
	c.mu.Unlock()

	if cb != nil {
		cb(next)
	}
}

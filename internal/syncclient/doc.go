// Package syncclient implements the client side of the sync channel.
//
// # State machine
//
//	idle -> connecting -> connected
//	connected -> disconnected -> reconnecting -> connected | failed
//
// A transport error moves the client to disconnected and immediately into
// reconnecting. Reconnection retries with exponential backoff from a base
// delay, capped at a maximum delay, bounded by a maximum attempt count;
// exceeding the cap is terminal (failed) and only a manual Connect
// recovers. A successful connection resets the attempt counter.
//
// # Reconciliation
//
// The server re-sends a full bootstrap snapshot on every new channel, so
// the client never merges: the local mirror is overwritten entirely by the
// bootstrap payload and subsequent tick broadcasts (last-snapshot-wins).
// While disconnected the mirror keeps the last known state rather than
// clearing it.
package syncclient

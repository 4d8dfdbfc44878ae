// Package protocol defines the wire contract between the server and its
// sync clients: the WebSocket event envelope with its event names, and the
// uniform HTTP response envelope.
//
// Broadcast strategy: the scheduler only ever emits full snapshots
// (agents:update, system:metrics), so replay and out-of-order delivery are
// harmless. The fine-grained agent:status and agent:task events exist as a
// targeted-update path emitted by request handlers; clients treat them as
// optional refinements and unknown event types are ignored.
package protocol

// Package hub manages the server side of every open channel.
//
// A channel moves connecting -> open -> closed (terminal). On open the hub
// queues the bootstrap snapshot (full agent list, then system status) ahead
// of any broadcast, so those are always the first two frames a client sees.
// On close the channel's resources are released and any queued frames are
// dropped; reconnection is entirely client-initiated.
//
// Channels are isolated: fan-out never blocks on a slow channel, and a full
// per-channel buffer drops frames for that channel only. Because every
// broadcast is a complete snapshot, a dropped or replayed frame is
// harmless.
package hub

// Package server exposes the sync core over HTTP and WebSocket.
//
// The REST surface under /api mutates the store; every mutation pushes a
// fresh snapshot to all live channels, and agent start/stop additionally
// emit targeted agent:status and agent:task frames. GET /ws upgrades to
// the sync channel, which receives the bootstrap snapshot pair before any
// broadcast. All JSON responses use the success/data/error envelope.
package server

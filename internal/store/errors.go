// ABOUTME: Sentinel errors returned by store operations.
// ABOUTME: Store errors are values, never panics, so callers can branch on them.

package store

import "errors"

var (
	// ErrAgentNotFound indicates the referenced agent id is unknown.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrSessionNotFound indicates the referenced chat session id is unknown.
	ErrSessionNotFound = errors.New("chat session not found")

	// Validation errors, rejected before any mutation.
	ErrNameRequired       = errors.New("agent name is required")
	ErrInvalidAgentType   = errors.New("invalid agent type")
	ErrInvalidAgentStatus = errors.New("invalid agent status")
	ErrInvalidRole        = errors.New("invalid message role")
	ErrEmptyContent       = errors.New("message content is required")
	ErrNegativeCounter    = errors.New("metric counters must be non-negative")
	ErrCounterRegression  = errors.New("monotonic counter cannot decrease")
)

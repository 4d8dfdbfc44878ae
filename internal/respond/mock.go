// ABOUTME: Canned-response provider for tests and offline operation.
// ABOUTME: Echoes the user message back with a recognizable marker.

package respond

import (
	"context"
	"fmt"

	"github.com/pulsehq/pulse/internal/store"
)

// MockPrefix is the model prefix the mock provider registers under.
const MockPrefix = "mock"

// Mock is a provider that needs no backend. It echoes the user's message so
// round-trips are observable in tests and demos.
type Mock struct{}

// NewMock creates a mock provider.
func NewMock() *Mock { return &Mock{} }

var _ Provider = (*Mock)(nil)

func (m *Mock) Name() string { return "mock" }

// Respond echoes the user message. Empty input gets a generic reply.
func (m *Mock) Respond(ctx context.Context, session *store.ChatSession, userMessage string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if userMessage == "" {
		return "[mock] hello", nil
	}
	return fmt.Sprintf("[mock] you said: %s", truncate(userMessage, 200)), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

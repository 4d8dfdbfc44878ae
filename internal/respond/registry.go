// ABOUTME: Thread-safe registry mapping model prefixes to response providers.
// ABOUTME: Lookup picks the longest registered prefix matching the model name.

package respond

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pulsehq/pulse/internal/store"
)

// ErrProviderAlreadyRegistered indicates a provider with the same prefix exists.
var ErrProviderAlreadyRegistered = errors.New("provider already registered")

// ErrNoProvider indicates no registered prefix matches the model name.
var ErrNoProvider = errors.New("no provider for model")

// Provider produces an assistant reply for the latest user message in a
// session. The session is a read-only copy; providers must not mutate it.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// Respond generates the assistant reply to the given user message.
	Respond(ctx context.Context, session *store.ChatSession, userMessage string) (string, error)
}

// Registry maps model name prefixes to providers. Registration is additive;
// lookup selects the longest matching prefix so "gpt-4" can shadow "gpt".
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider // model prefix -> provider
	logger    *slog.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		providers: make(map[string]Provider),
		logger:    logger,
	}
}

// Register binds a provider to a model prefix.
// Returns ErrProviderAlreadyRegistered if the prefix is taken.
func (r *Registry) Register(prefix string, p Provider) error {
	if prefix == "" {
		return errors.New("empty model prefix")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.providers[prefix]; ok {
		return fmt.Errorf("%w: prefix %q held by %s", ErrProviderAlreadyRegistered, prefix, existing.Name())
	}
	r.providers[prefix] = p

	r.logger.Info("provider registered",
		"prefix", prefix,
		"provider", p.Name(),
		"total_providers", len(r.providers),
	)
	return nil
}

// Lookup returns the provider whose prefix is the longest match for the
// model name. Returns ErrNoProvider when nothing matches.
func (r *Registry) Lookup(model string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		best    Provider
		bestLen = -1
	)
	for prefix, p := range r.providers {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			best = p
			bestLen = len(prefix)
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoProvider, model)
	}
	return best, nil
}

// Prefixes returns the registered model prefixes. Order is unspecified.
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefixes := make([]string, 0, len(r.providers))
	for prefix := range r.providers {
		prefixes = append(prefixes, prefix)
	}
	return prefixes
}

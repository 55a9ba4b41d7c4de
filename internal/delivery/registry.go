// internal/delivery/registry.go
package delivery

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/user/agendabot/internal/types"
)

// Handler delivers a message to one recipient.
type Handler func(ctx context.Context, to types.SenderKey, text string) error

// Registry routes messages to the appropriate delivery handler based on
// sender key prefix (e.g. "whatsapp:", "telegram:"). It implements
// types.Sender.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

var _ types.Sender = (*Registry)(nil)

// NewRegistry creates an empty delivery registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for sender keys starting with prefix.
func (r *Registry) Register(prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[prefix] = handler
}

// Send finds the handler with the longest prefix matching to and calls it.
// Returns an error if no handler is registered for the key.
func (r *Registry) Send(ctx context.Context, to types.SenderKey, text string) error {
	r.mu.RLock()
	var (
		best    Handler
		bestLen = -1
	)
	for prefix, handler := range r.handlers {
		if strings.HasPrefix(string(to), prefix) && len(prefix) > bestLen {
			best, bestLen = handler, len(prefix)
		}
	}
	r.mu.RUnlock()

	if best == nil {
		return fmt.Errorf("no delivery handler for sender key: %s", to)
	}
	return best(ctx, to, text)
}

// Prefixes lists the registered prefixes.
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for p := range r.handlers {
		out = append(out, p)
	}
	return out
}

package mailprovider

import (
	"fmt"
	"strings"
	"sync"

	"github.com/floworx/backend/internal/domain/mailbox"
	"github.com/floworx/backend/internal/domain/shared"
)

// Registry resolves provider names to adapters
type Registry struct {
	mu        sync.RWMutex
	providers map[string]mailbox.Provider
}

// NewRegistry creates a registry with the given adapters
func NewRegistry(providers ...mailbox.Provider) *Registry {
	r := &Registry{providers: make(map[string]mailbox.Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Register adds or replaces a provider
func (r *Registry) Register(provider mailbox.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// Get resolves a provider by name (case-insensitive)
func (r *Registry) Get(name string) (mailbox.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown mailbox provider %q", name))
	}
	return provider, nil
}

// Names lists the registered provider names
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

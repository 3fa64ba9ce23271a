package agent

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry errors.
var (
	// ErrNotRegistered indicates a lookup for an unknown agent name with
	// no fallback configured.
	ErrNotRegistered = errors.New("agent not registered")

	// ErrDuplicate indicates a second registration under the same name.
	ErrDuplicate = errors.New("agent already registered")
)

// Registry is a thread-safe catalogue of named agents. An optional
// fallback serves lookups for names that were never registered, which
// lets a deployment route every collaborator reference to one backend.
type Registry struct {
	mu       sync.RWMutex
	agents   map[string]Agent
	fallback Agent
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds an agent under name.
func (r *Registry) Register(name string, a Agent) error {
	if name == "" {
		return errors.New("agent name is required")
	}
	if a == nil {
		return errors.New("agent is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.agents[name] = a
	return nil
}

// MustRegister registers an agent, panicking on error.
func (r *Registry) MustRegister(name string, a Agent) {
	if err := r.Register(name, a); err != nil {
		panic(err)
	}
}

// SetFallback installs the agent used for unregistered names.
func (r *Registry) SetFallback(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = a
}

// Get returns the agent for name, the fallback if one is set, or
// ErrNotRegistered.
func (r *Registry) Get(name string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.agents[name]; ok {
		return a, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
}

// Has reports whether name is registered (fallback not considered).
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[name]
	return ok
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/MrWong99/creatorgw/pkg/provider/jobs"
)

// ErrProviderNotRegistered is returned by [Registry.CreateJobs] when no factory
// has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// JobsFactory constructs a job provider from its configuration block.
type JobsFactory func(ProviderEntry) (jobs.Provider, error)

// Registry maps provider names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]JobsFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]JobsFactory)}
}

// RegisterJobs registers a job provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterJobs(name string, factory JobsFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[name] = factory
}

// CreateJobs instantiates a job provider using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateJobs(entry ProviderEntry) (jobs.Provider, error) {
	r.mu.RLock()
	factory, ok := r.jobs[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: jobs/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.jobs))
}

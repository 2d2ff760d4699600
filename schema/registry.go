package schema

import (
	"fmt"
	"sync"
)

// Registry manages all resource metadata known to the application. It is
// populated once during startup and read-only afterwards.
type Registry struct {
	resources map[string]*Resource
	mu        sync.RWMutex
}

// NewRegistry creates a new resource registry
func NewRegistry() *Registry {
	return &Registry{
		resources: make(map[string]*Resource),
	}
}

// Register registers a resource. Relationship targets may be forward
// references; dangling targets are caught by ValidateAll.
func (r *Registry) Register(res *Resource) error {
	if res == nil || res.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRelationship)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[res.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateResource, res.Name)
	}
	r.resources[res.Name] = res
	return nil
}

// Get retrieves a resource by name
func (r *Registry) Get(name string) (*Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[name]
	return res, ok
}

// List returns the names of all registered resources
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	return names
}

// ValidateAll checks every relationship against the full registry, catching
// targets that were never registered. Call after all resources are in.
func (r *Registry) ValidateAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, res := range r.resources {
		for relName, rel := range res.Relationships {
			if _, ok := r.resources[rel.Target]; !ok {
				return fmt.Errorf("%w: %s.%s targets unregistered resource %s",
					ErrUnknownResource, name, relName, rel.Target)
			}
		}
	}
	return nil
}

// Package registry implements the named plugin registry (§4.A): one
// instance per strategy kind (EventDetector, FundSelector, SignalFilter),
// resolving names to factories under a read-write discipline so
// registration at startup never races with lookups during a scan.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Metadata describes a registered plugin for inventory endpoints.
type Metadata struct {
	Priority    int    `json:"priority"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Factory builds a strategy value of type T from its config subtree.
type Factory[T any] func(config map[string]any) (T, error)

type entry[T any] struct {
	name     string
	factory  Factory[T]
	metadata Metadata
}

// DuplicateNameError is returned by Register when name is already taken.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("registry: duplicate name %q", e.Name)
}

// NotFoundError is returned by Lookup when name was never registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("registry: name %q not found", e.Name)
}

// Registry is a generic named-plugin registry for strategy kind T.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
}

// New creates an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{entries: make(map[string]entry[T])}
}

// Register binds name to factory with metadata. Re-registering an existing
// name is a DuplicateNameError — the registry never silently overwrites.
func (r *Registry[T]) Register(name string, factory Factory[T], metadata Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return &DuplicateNameError{Name: name}
	}
	r.entries[name] = entry[T]{name: name, factory: factory, metadata: metadata}
	return nil
}

// Lookup resolves name to its factory, or NotFoundError.
func (r *Registry[T]) Lookup(name string) (Factory[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return e.factory, nil
}

// Build resolves name and invokes its factory with config, in one call.
func (r *Registry[T]) Build(name string, config map[string]any) (T, error) {
	factory, err := r.Lookup(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return factory(config)
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// NamedMetadata pairs a registered name with its metadata, for List.
type NamedMetadata struct {
	Name     string   `json:"name"`
	Metadata Metadata `json:"metadata"`
}

// List returns every registered (name, metadata), ordered by descending
// priority then ascending name.
func (r *Registry[T]) List() []NamedMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]NamedMetadata, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, NamedMetadata{Name: name, Metadata: e.metadata})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Metadata.Priority != out[j].Metadata.Priority {
			return out[i].Metadata.Priority > out[j].Metadata.Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ValidateNames resolves each of names against the registry, returning one
// error message per unresolved name (used by the chain validator, §4.H).
func (r *Registry[T]) ValidateNames(names []string) []string {
	var errs []string
	for _, name := range names {
		if !r.Has(name) {
			errs = append(errs, fmt.Sprintf("unknown plugin name %q", name))
		}
	}
	return errs
}

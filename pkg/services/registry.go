// Package services provides the process service registry: a keyed store that
// startup code publishes shared components into and request-handling code
// reads them back from.
package services

import (
	"fmt"
	"slices"
	"sync"

	wferrors "github.com/stacklok/wftel/pkg/errors"
)

// Registry is safe for concurrent use. Entries are published once during
// startup and are never replaced.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]any
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]any)}
}

// Register publishes value under key. Registering an existing key fails with
// an AlreadyRegistered error and leaves the original entry in place.
func (r *Registry) Register(key string, value any) error {
	if key == "" {
		return wferrors.NewInvalidArgumentError("registry key cannot be empty", nil)
	}
	if value == nil {
		return wferrors.NewInvalidArgumentError(fmt.Sprintf("registry value for %q cannot be nil", key), nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; exists {
		return wferrors.NewAlreadyRegisteredError(key)
	}
	r.entries[key] = value
	return nil
}

// Lookup returns the entry for key.
func (r *Registry) Lookup(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Get returns the entry for key as a T.
func Get[T any](r *Registry, key string) (T, error) {
	var zero T
	v, ok := r.Lookup(key)
	if !ok {
		return zero, fmt.Errorf("no entry registered under %q", key)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("entry %q has type %T, want %T", key, v, zero)
	}
	return typed, nil
}

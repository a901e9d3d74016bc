// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package coordinator

import (
	"fmt"
	"sync"

	"github.com/tomtom215/archivus/internal/config"
)

// Registry holds the registered backup targets in registration order.
// Cycles visit targets in exactly this order.
type Registry struct {
	mu      sync.RWMutex
	ordered []TargetDescriptor
	byName  map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]int),
	}
}

// NewRegistryFromConfig builds a registry from configured targets. A
// duplicate name fails the whole registration, making startup abort.
func NewRegistryFromConfig(targets []config.TargetConfig) (*Registry, error) {
	r := NewRegistry()
	for _, t := range targets {
		d := TargetDescriptor{
			Name:         t.Name,
			Kind:         TargetKind(t.Kind),
			Path:         t.Path,
			DSNEnv:       t.DSNEnv,
			Timeout:      t.Timeout,
			OutputPrefix: t.OutputPrefix,
		}
		if t.Retention != nil {
			// Copy so later config mutation cannot reach the registered
			// descriptor.
			rc := *t.Retention
			d.Retention = &rc
		}
		if err := r.Add(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers a target. Registering a name that already exists returns
// a DuplicateTargetError and leaves the registry unchanged.
func (r *Registry) Add(d TargetDescriptor) error {
	if d.Name == "" {
		return fmt.Errorf("target name must not be empty")
	}
	if !d.Kind.Valid() {
		return fmt.Errorf("target %q has unknown kind %q", d.Name, d.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[d.Name]; exists {
		return &DuplicateTargetError{Name: d.Name}
	}
	r.byName[d.Name] = len(r.ordered)
	r.ordered = append(r.ordered, d)
	return nil
}

// List returns the registered targets in registration order. The returned
// slice is a copy.
func (r *Registry) List() []TargetDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TargetDescriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (TargetDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byName[name]
	if !ok {
		return TargetDescriptor{}, false
	}
	return r.ordered[i], true
}

// Len returns the number of registered targets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

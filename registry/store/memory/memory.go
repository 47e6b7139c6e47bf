// Package memory provides an in-memory implementation of the registry
// store, suitable for development, testing, and single-node deployments
// where persistence across restarts is not required.
package memory

import (
	"context"
	"sync"

	"goa.design/bridge/registry"
	"goa.design/bridge/registry/store"
)

// Store is an in-memory implementation of store.Store. It is safe for
// concurrent use.
type Store struct {
	mu       sync.RWMutex
	versions map[string]map[string]registry.CompiledBridge // id -> version -> bridge
	latest   map[string]string                              // id -> most recently put version
}

var _ store.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		versions: make(map[string]map[string]registry.CompiledBridge),
		latest:   make(map[string]string),
	}
}

// Put stores or replaces the compiled bridge at (b.ID, b.Version) and marks
// it as the latest version for b.ID.
func (s *Store) Put(ctx context.Context, b registry.CompiledBridge) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions[b.ID] == nil {
		s.versions[b.ID] = make(map[string]registry.CompiledBridge)
	}
	s.versions[b.ID][b.Version] = b
	s.latest[b.ID] = b.Version
	return nil
}

// Get retrieves the compiled bridge at the exact (id, version).
func (s *Store) Get(ctx context.Context, id, version string) (registry.CompiledBridge, error) {
	select {
	case <-ctx.Done():
		return registry.CompiledBridge{}, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.versions[id]
	if !ok {
		return registry.CompiledBridge{}, store.ErrNotFound
	}
	b, ok := versions[version]
	if !ok {
		return registry.CompiledBridge{}, store.ErrNotFound
	}
	return b, nil
}

// Latest retrieves the most recently put version stored under id.
func (s *Store) Latest(ctx context.Context, id string) (registry.CompiledBridge, error) {
	select {
	case <-ctx.Done():
		return registry.CompiledBridge{}, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	version, ok := s.latest[id]
	if !ok {
		return registry.CompiledBridge{}, store.ErrNotFound
	}
	return s.versions[id][version], nil
}

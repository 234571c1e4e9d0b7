package sequence

import (
	"context"
	"sync"

	"seqstore/internal/core/apperror"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to avoid database dependencies.
type MockGenerator struct {
	NextValueFunc func(ctx context.Context, event EventType) (int64, error)
}

// NextValue implements Generator.
func (m *MockGenerator) NextValue(ctx context.Context, event EventType) (int64, error) {
	if m.NextValueFunc != nil {
		return m.NextValueFunc(ctx, event)
	}
	// Default: return predictable mock value
	return 1, nil
}

// EventTypes implements Generator.
func (m *MockGenerator) EventTypes() []EventType {
	return []EventType{EventInsert}
}

// MemoryStore is an in-memory Store keeping a single row.
// A mutex stands in for the database row lock; it is held only per call,
// so it does not model transaction-scoped locking.
type MemoryStore struct {
	mu    sync.Mutex
	name  string
	state *State

	// Calls counts Load, Insert and Update invocations by name
	Calls map[string]int
}

// NewMemoryStore creates an empty store for the named sequence.
func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{name: name, Calls: make(map[string]int)}
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["load"]++
	if m.state == nil {
		return nil, nil
	}
	s := *m.state
	return &s, nil
}

// Insert implements Store.
func (m *MemoryStore) Insert(ctx context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["insert"]++
	if m.state != nil {
		return apperror.NewPersistenceConflict(m.name, "insert")
	}
	m.state = &state
	return nil
}

// Update implements Store.
func (m *MemoryStore) Update(ctx context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls["update"]++
	if m.state == nil {
		return apperror.NewPersistenceConflict(m.name, "update")
	}
	m.state = &state
	return nil
}

// Ensure compile-time interface compliance.
var (
	_ Generator = (*MockGenerator)(nil)
	_ Store     = (*MemoryStore)(nil)
)

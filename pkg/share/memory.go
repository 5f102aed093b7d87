package share

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps shares in a map.
type MemoryStore struct {
	mu     sync.RWMutex
	shares map[string]Share
	now    func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{shares: make(map[string]Share), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, s *Share) error {
	if err := ValidateID(s.ID); err != nil {
		return err
	}
	m.mu.Lock()
	m.shares[s.ID] = *s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Share, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	m.mu.RLock()
	s, ok := m.shares[id]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	if s.IsExpired(m.now()) {
		return nil, expired(id)
	}
	return &s, nil
}

func (m *MemoryStore) RecordView(_ context.Context, id string) (*Share, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shares[id]
	if !ok {
		return nil, notFound(id)
	}
	if s.IsExpired(m.now()) {
		return nil, expired(id)
	}
	s.Views++
	m.shares[id] = s
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.shares, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Cleanup(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for id, s := range m.shares {
		if s.IsExpired(now) {
			delete(m.shares, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)

package matching

import (
	"context"
	"maps"
	"sync"

	"santua/pkg/models"
)

type Kind string

const (
	KindFound Kind = "found"
	KindLost  Kind = "lost"
)

func (k Kind) other() Kind {
	if k == KindFound {
		return KindLost
	}
	return KindFound
}

// Store owns the found and lost collections. Find returns nil, nil when no
// entry has the pair. Implementations do not need to make check-then-insert
// atomic; Service serializes that.
type Store interface {
	Find(ctx context.Context, kind Kind, key, category string) (*models.Entry, error)
	Insert(ctx context.Context, kind Kind, e models.Entry) error
	DeleteFirst(ctx context.Context, kind Kind, key string) (bool, error)
	DeleteAll(ctx context.Context, kind Kind, key string) (int, error)
	List(ctx context.Context, kind Kind) ([]models.Entry, error)
	Count(ctx context.Context, kind Kind) (int, error)
}

// MemoryStore keeps both collections in process memory, in insertion order.
type MemoryStore struct {
	mu    sync.RWMutex
	found []models.Entry
	lost  []models.Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) bucket(kind Kind) *[]models.Entry {
	if kind == KindFound {
		return &m.found
	}
	return &m.lost
}

func (m *MemoryStore) Find(_ context.Context, kind Kind, key, category string) (*models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range *m.bucket(kind) {
		if e.Key == key && e.Category == category {
			out := e
			return &out, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) Insert(_ context.Context, kind Kind, e models.Entry) error {
	e.Payload = maps.Clone(e.Payload)
	m.mu.Lock()
	b := m.bucket(kind)
	*b = append(*b, e)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteFirst(_ context.Context, kind Kind, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bucket(kind)
	for i, e := range *b {
		if e.Key == key {
			*b = append((*b)[:i], (*b)[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) DeleteAll(_ context.Context, kind Kind, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bucket(kind)
	kept := (*b)[:0]
	removed := 0
	for _, e := range *b {
		if e.Key == key {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	*b = kept
	return removed, nil
}

func (m *MemoryStore) List(_ context.Context, kind Kind) ([]models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b := *m.bucket(kind)
	out := make([]models.Entry, len(b))
	copy(out, b)
	return out, nil
}

func (m *MemoryStore) Count(_ context.Context, kind Kind) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(*m.bucket(kind)), nil
}

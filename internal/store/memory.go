package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	rows map[string]*memoryRow
	seq  int64
	mu   sync.RWMutex
}

type memoryRow struct {
	Row
	seq int64
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[string]*memoryRow),
	}
}

func (s *MemoryStore) Create(_ context.Context, entity Entity, data Data) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	id := uuid.NewString()
	s.seq++
	s.rows[id] = &memoryRow{
		Row: Row{
			ID:        id,
			Entity:    entity,
			Data:      cloneData(data),
			CreatedAt: now,
			UpdatedAt: now,
		},
		seq: s.seq,
	}
	return id, nil
}

func (s *MemoryStore) Update(_ context.Context, entity Entity, id string, data Data) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.Entity != entity {
		return false, nil
	}
	for k, v := range data {
		row.Data[k] = v
	}
	row.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, entity Entity, id string) (*Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	if !ok || row.Entity != entity {
		return nil, fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	out := row.Row
	out.Data = cloneData(row.Data)
	return &out, nil
}

func (s *MemoryStore) Find(_ context.Context, entity Entity, field, value string) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*memoryRow
	for _, row := range s.rows {
		if row.Entity != entity {
			continue
		}
		v, ok := row.Data[field]
		if !ok || v == nil || fmt.Sprint(v) != value {
			continue
		}
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]Row, 0, len(matched))
	for _, row := range matched {
		r := row.Row
		r.Data = cloneData(row.Data)
		out = append(out, r)
	}
	return out, nil
}

// Count returns the number of rows of entity.
func (s *MemoryStore) Count(entity Entity) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, row := range s.rows {
		if row.Entity == entity {
			n++
		}
	}
	return n
}

func (s *MemoryStore) HealthCheck(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/industrisk/falloutsim/internal/domain"
)

// MemoryStore is a process-local TaskStore. Records vanish on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]domain.Task
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]domain.Task)}
}

func (s *MemoryStore) Put(_ context.Context, t domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, ErrTaskNotFound
	}
	return t, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*domain.Task)) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, ErrTaskNotFound
	}
	fn(&t)
	s.tasks[id] = t
	return t, nil
}

func (s *MemoryStore) List(_ context.Context, status domain.TaskStatus, limit int) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

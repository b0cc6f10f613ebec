package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a process-local collection. It loses everything on exit.
type MemoryStore struct {
	mu    sync.Mutex
	order []string
	docs  map[string]Task
}

func NewMemory(seed ...Task) *MemoryStore {
	s := &MemoryStore{docs: make(map[string]Task)}
	for _, t := range seed {
		_ = s.Save(context.Background(), &t)
	}
	return s
}

func (s *MemoryStore) LoadAll(ctx context.Context) ([]Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make([]Task, 0, len(s.order))
	for _, id := range s.order {
		tasks = append(tasks, s.docs[id])
	}
	return tasks, nil
}

func (s *MemoryStore) Save(ctx context.Context, t *Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, ok := s.docs[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	doc := *t
	doc.Priority = doc.Priority.Normalize()
	s.docs[t.ID] = doc
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, t Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.ID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[t.ID]; !ok {
		return nil
	}
	delete(s.docs, t.ID)
	for i, id := range s.order {
		if id == t.ID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

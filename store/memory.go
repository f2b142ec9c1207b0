package store

import (
	"context"
	"sync"
)

// MemoryStore 基于内存切片的实现，由 fixture 初始化，修改不回写
type MemoryStore[T any] struct {
	entity Entity[T]
	mu     sync.RWMutex
	items  []T
}

// NewMemoryStore 创建内存存储，seed 会被复制
func NewMemoryStore[T any](entity Entity[T], seed []T) *MemoryStore[T] {
	items := make([]T, 0, len(seed))
	for _, rec := range seed {
		items = append(items, entity.clone(rec))
	}
	return &MemoryStore[T]{entity: entity, items: items}
}

func (s *MemoryStore[T]) GetAll(_ context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.items))
	for _, rec := range s.items {
		out = append(out, s.entity.clone(rec))
	}
	return out, nil
}

func (s *MemoryStore[T]) GetByID(_ context.Context, id int) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		var zero T
		return zero, &NotFoundError{Entity: s.entity.Name, ID: id}
	}
	return s.entity.clone(s.items[i]), nil
}

func (s *MemoryStore[T]) Create(_ context.Context, rec T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maxID := 0
	for i := range s.items {
		if id := s.entity.ID(&s.items[i]); id > maxID {
			maxID = id
		}
	}
	rec = s.entity.clone(rec)
	s.entity.SetID(&rec, maxID+1)
	s.entity.applyDefaults(&rec)
	s.items = append(s.items, rec)
	return s.entity.clone(rec), nil
}

func (s *MemoryStore[T]) Update(_ context.Context, id int, patch Patch) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	i := s.indexOf(id)
	if i < 0 {
		return zero, &NotFoundError{Entity: s.entity.Name, ID: id}
	}
	merged, _, err := s.entity.Merge(s.items[i], patch)
	if err != nil {
		return zero, err
	}
	s.items[i] = merged
	return s.entity.clone(merged), nil
}

func (s *MemoryStore[T]) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return &NotFoundError{Entity: s.entity.Name, ID: id}
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

// indexOf 调用方需持有锁
func (s *MemoryStore[T]) indexOf(id int) int {
	for i := range s.items {
		if s.entity.ID(&s.items[i]) == id {
			return i
		}
	}
	return -1
}

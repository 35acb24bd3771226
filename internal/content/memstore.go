package content

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory [Store]. Safe for concurrent use.
type MemStore struct {
	mu       sync.RWMutex
	articles map[int64]Article
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{articles: make(map[int64]Article)}
}

// NewSeededMemStore creates an in-memory store pre-loaded with the built-in
// articles.
func NewSeededMemStore() *MemStore {
	s := NewMemStore()
	for _, a := range SeedArticles() {
		s.articles[a.ID] = a
	}
	return s
}

// Create implements [Store].
func (s *MemStore) Create(_ context.Context, a *Article) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.articles[a.ID]; exists {
		return fmt.Errorf("content: article %d already exists", a.ID)
	}
	s.articles[a.ID] = *a
	return nil
}

// Get implements [Store].
func (s *MemStore) Get(_ context.Context, id int64) (*Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.articles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// List implements [Store].
func (s *MemStore) List(_ context.Context) ([]Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Article, 0, len(s.articles))
	for _, a := range s.articles {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Upsert implements [Store].
func (s *MemStore) Upsert(_ context.Context, a *Article) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[a.ID] = *a
	return nil
}

// Delete implements [Store].
func (s *MemStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.articles, id)
	return nil
}

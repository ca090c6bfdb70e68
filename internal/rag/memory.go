package rag

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is a brute-force in-process vector store.
type MemoryStore struct {
	mu       sync.RWMutex
	passages map[string]Passage
	dims     int
	closed   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{passages: make(map[string]Passage)}
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return len(s.passages), nil
}

// Insert validates every passage before storing any of them.
func (s *MemoryStore) Insert(_ context.Context, passages []Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	dims := s.dims
	for _, p := range passages {
		if p.ID == "" {
			return fmt.Errorf("rag: passage without ID")
		}
		if len(p.Embedding) == 0 {
			return fmt.Errorf("rag: passage %s has no embedding", p.ID)
		}
		if dims == 0 {
			dims = len(p.Embedding)
		}
		if len(p.Embedding) != dims {
			return fmt.Errorf("%w: passage %s has %d values, want %d",
				ErrDimensionMismatch, p.ID, len(p.Embedding), dims)
		}
	}

	for _, p := range passages {
		s.passages[p.ID] = p
	}
	s.dims = dims
	return nil
}

func (s *MemoryStore) Search(_ context.Context, query []float32, k int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if len(s.passages) == 0 || k <= 0 {
		return []Result{}, nil
	}
	if len(query) != s.dims {
		return nil, fmt.Errorf("%w: query has %d values, index has %d",
			ErrDimensionMismatch, len(query), s.dims)
	}

	results := make([]Result, 0, len(s.passages))
	for _, p := range s.passages {
		results = append(results, Result{Passage: p, Score: cosine(query, p.Embedding)})
	}
	return rank(results, k), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passages = nil
	s.closed = true
	return nil
}

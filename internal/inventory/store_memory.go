package inventory

import (
	"context"
	"sync"
)

// MemStore keeps the Document in process memory. It backs tests and the
// demo seed; FailWrites simulates a persistence failure on every commit.
type MemStore struct {
	mu  sync.RWMutex
	doc Document

	FailWrites bool
}

func NewMemStore(seed ...Product) *MemStore {
	s := &MemStore{doc: emptyDocument()}
	s.doc.Products = append(s.doc.Products, seed...)
	return s
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) View(ctx context.Context) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.clone(), nil
}

func (s *MemStore) Update(ctx context.Context, fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	next := s.doc.clone()
	if err := fn(&next); err != nil {
		return err
	}
	if s.FailWrites {
		return ErrPersist
	}

	s.doc = next
	return nil
}

// Package memory is an in-process document store used by tests and the
// no-credentials development backend.
package memory

import (
	"context"
	"sort"
	"sync"

	"khata/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items map[string]map[string]core.Transaction // identity -> id -> transaction
	subs  map[string]map[int]func([]core.Transaction)
	nextSub int

	// FailWith, when set, makes every operation return this error. Tests use
	// it to exercise persistence-failure paths.
	FailWith error
}

func New() *Store {
	return &Store{
		items: make(map[string]map[string]core.Transaction),
		subs:  make(map[string]map[int]func([]core.Transaction)),
	}
}

func (s *Store) List(_ context.Context, identity string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	return s.listLocked(identity), nil
}

func (s *Store) Upsert(_ context.Context, identity string, tx core.Transaction) error {
	s.mu.Lock()
	if s.FailWith != nil {
		s.mu.Unlock()
		return s.FailWith
	}
	bucket := s.items[identity]
	if bucket == nil {
		bucket = make(map[string]core.Transaction)
		s.items[identity] = bucket
	}
	// Merge semantics: creation stamps and history survive an upsert that
	// omits them.
	if prev, ok := bucket[tx.ID]; ok {
		if tx.CreatedBy == "" {
			tx.CreatedBy = prev.CreatedBy
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = prev.CreatedAt
		}
		if tx.EditHistory == nil {
			tx.EditHistory = prev.EditHistory
		}
	}
	bucket[tx.ID] = tx
	s.mu.Unlock()
	s.notify(identity)
	return nil
}

func (s *Store) Delete(_ context.Context, identity, id string) error {
	s.mu.Lock()
	if s.FailWith != nil {
		s.mu.Unlock()
		return s.FailWith
	}
	delete(s.items[identity], id)
	s.mu.Unlock()
	s.notify(identity)
	return nil
}

func (s *Store) Subscribe(identity string, fn func([]core.Transaction)) (func(), error) {
	s.mu.Lock()
	if s.FailWith != nil {
		s.mu.Unlock()
		return nil, s.FailWith
	}
	bucket := s.subs[identity]
	if bucket == nil {
		bucket = make(map[int]func([]core.Transaction))
		s.subs[identity] = bucket
	}
	id := s.nextSub
	s.nextSub++
	bucket[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs[identity], id)
		s.mu.Unlock()
	}, nil
}

// Seed loads transactions without notifying subscribers.
func (s *Store) Seed(identity string, txs []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := make(map[string]core.Transaction, len(txs))
	for _, tx := range txs {
		bucket[tx.ID] = tx
	}
	s.items[identity] = bucket
}

func (s *Store) notify(identity string) {
	s.mu.Lock()
	list := s.listLocked(identity)
	fns := make([]func([]core.Transaction), 0, len(s.subs[identity]))
	for _, fn := range s.subs[identity] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(list)
	}
}

func (s *Store) listLocked(identity string) []core.Transaction {
	out := make([]core.Transaction, 0, len(s.items[identity]))
	for _, tx := range s.items[identity] {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Time.After(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

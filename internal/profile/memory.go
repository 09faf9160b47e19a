package profile

import (
	"context"
	"sync"
)

// MemoryRepository is the in-process repository for tests and the dev backend.
type MemoryRepository struct {
	mu       sync.Mutex
	profiles map[string]Profile
	failWith error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{profiles: make(map[string]Profile)}
}

// FailWith makes every call return err. Pass nil to restore normal operation.
func (r *MemoryRepository) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
}

func (r *MemoryRepository) Get(_ context.Context, identity string) (Profile, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return Profile{}, false, r.failWith
	}
	p, ok := r.profiles[identity]
	return p, ok, nil
}

func (r *MemoryRepository) Set(_ context.Context, identity string, p Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	existing := r.profiles[identity]
	if p.Username == "" {
		p.Username = existing.Username
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = existing.CreatedAt
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = existing.UpdatedAt
	}
	r.profiles[identity] = p
	return nil
}

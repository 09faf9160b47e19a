// Package auth handles end-user sign-in and the session state derived from
// it. The rest of the application only ever sees an Identity and change
// notifications; the provider behind it is replaceable.
package auth

import (
	"context"
	"sync"
)

// Identity is the signed-in user as the rest of the application sees it.
type Identity struct {
	UID   string
	Email string
}

// Service is the authentication port.
type Service interface {
	// SignIn authenticates with email and password and makes the returned
	// identity current.
	SignIn(ctx context.Context, email, password string) (Identity, error)
	// SignOut clears the current identity. Signing out while signed out is a
	// no-op.
	SignOut()
	// CurrentIdentity returns the signed-in identity, ok=false when nobody
	// is signed in.
	CurrentIdentity() (Identity, bool)
	// OnIdentityChange registers a callback invoked on every sign-in and
	// sign-out. The returned function unsubscribes; callbacks stop after it
	// returns.
	OnIdentityChange(fn func(id Identity, signedIn bool)) func()
	// SendPasswordReset asks the provider to email a reset link.
	SendPasswordReset(ctx context.Context, email string) error
}

// session holds the current identity and the change-listener registry shared
// by every Service implementation.
type session struct {
	mu        sync.Mutex
	identity  Identity
	signedIn  bool
	listeners map[int]func(Identity, bool)
	nextSub   int
}

func (s *session) set(id Identity, signedIn bool) {
	s.mu.Lock()
	s.identity = id
	s.signedIn = signedIn
	fns := make([]func(Identity, bool), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(id, signedIn)
	}
}

func (s *session) current() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.signedIn
}

func (s *session) subscribe(fn func(Identity, bool)) func() {
	s.mu.Lock()
	if s.listeners == nil {
		s.listeners = make(map[int]func(Identity, bool))
	}
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

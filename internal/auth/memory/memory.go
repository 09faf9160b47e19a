// Package memory is an in-process auth service for tests and the
// no-credentials dev backend.
package memory

import (
	"context"
	"sync"

	"khata/internal/auth"
)

type account struct {
	uid      string
	password string
	disabled bool
}

// Service validates against a fixed in-memory account table.
type Service struct {
	mu        sync.Mutex
	accounts  map[string]account
	identity  auth.Identity
	signedIn  bool
	listeners map[int]func(auth.Identity, bool)
	nextSub   int
	resets    []string
}

func New() *Service {
	return &Service{
		accounts:  make(map[string]account),
		listeners: make(map[int]func(auth.Identity, bool)),
	}
}

// AddAccount registers a credential pair for later sign-in.
func (s *Service) AddAccount(email, password, uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[email] = account{uid: uid, password: password}
}

// DisableAccount marks an account disabled.
func (s *Service) DisableAccount(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[email]
	acc.disabled = true
	s.accounts[email] = acc
}

// ResetRequests returns the emails password resets were requested for.
func (s *Service) ResetRequests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.resets...)
}

func (s *Service) SignIn(_ context.Context, email, password string) (auth.Identity, error) {
	s.mu.Lock()
	acc, ok := s.accounts[email]
	s.mu.Unlock()

	if !ok {
		return auth.Identity{}, &auth.AuthError{Code: auth.CodeEmailNotFound, Message: "No account found with this email"}
	}
	if acc.disabled {
		return auth.Identity{}, &auth.AuthError{Code: auth.CodeUserDisabled, Message: "This account has been disabled"}
	}
	if acc.password != password {
		return auth.Identity{}, &auth.AuthError{Code: auth.CodeInvalidPassword, Message: "Incorrect password"}
	}

	id := auth.Identity{UID: acc.uid, Email: email}
	s.notify(id, true)
	return id, nil
}

func (s *Service) SignOut() {
	s.notify(auth.Identity{}, false)
}

func (s *Service) CurrentIdentity() (auth.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.signedIn
}

func (s *Service) OnIdentityChange(fn func(auth.Identity, bool)) func() {
	s.mu.Lock()
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

func (s *Service) SendPasswordReset(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[email]; !ok {
		return &auth.AuthError{Code: auth.CodeEmailNotFound, Message: "No account found with this email"}
	}
	s.resets = append(s.resets, email)
	return nil
}

func (s *Service) notify(id auth.Identity, signedIn bool) {
	s.mu.Lock()
	s.identity = id
	s.signedIn = signedIn
	fns := make([]func(auth.Identity, bool), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(id, signedIn)
	}
}

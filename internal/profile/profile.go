// Package profile manages per-user profile documents: the optional username
// shown instead of the account email, and its propagation onto the user's
// transactions.
package profile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"khata/internal/cache"
	"khata/internal/docstore"
	"khata/internal/log"
)

// ErrInvalidUsername rejects usernames outside 3-20 chars of [A-Za-z0-9_].
var ErrInvalidUsername = errors.New("username must be 3-20 characters: letters, digits and underscore")

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// Profile is the stored per-user document.
type Profile struct {
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository is the outbound port to profile storage. Set merges: fields the
// caller leaves zero keep their stored value.
type Repository interface {
	Get(ctx context.Context, identity string) (Profile, bool, error)
	Set(ctx context.Context, identity string, p Profile) error
}

const (
	defaultLookupTimeout = 5 * time.Second

	nameCacheSize = 1024
	nameCacheTTL  = 5 * time.Minute
)

// Service wraps the repository with validation, display-name resolution and
// the createdBy rewrite.
type Service struct {
	repo    Repository
	ledger  docstore.Store
	logger  *log.Logger
	timeout time.Duration

	// names caches identity -> username so DisplayName does not hit the
	// remote store on every request. An empty cached value means the
	// profile exists without a username.
	names *cache.LRU[string]
}

type ServiceOption func(*Service)

// WithLookupTimeout bounds DisplayName's repository fetch.
func WithLookupTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = d }
}

func NewService(repo Repository, ledger docstore.Store, logger *log.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repo:    repo,
		ledger:  ledger,
		logger:  logger.WithComponent(log.ComponentProfile),
		timeout: defaultLookupTimeout,
		names:   cache.NewLRU[string](nameCacheSize, nameCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Get(ctx context.Context, identity string) (Profile, bool, error) {
	return s.repo.Get(ctx, identity)
}

// SetUsername validates and stores a username. The profile's CreatedAt is
// preserved on update and stamped on first write. When rewriteCreator is set,
// transactions whose CreatedBy still carries the previous display name are
// rewritten to the new username.
func (s *Service) SetUsername(ctx context.Context, identity, username string, rewriteCreator bool) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}

	existing, found, err := s.repo.Get(ctx, identity)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	now := time.Now().UTC()
	updated := Profile{
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if found && !existing.CreatedAt.IsZero() {
		updated.CreatedAt = existing.CreatedAt
	}

	if err := s.repo.Set(ctx, identity, updated); err != nil {
		return fmt.Errorf("store profile: %w", err)
	}

	s.names.Set(identity, username)
	s.logger.InfoContext(ctx, "Username updated", log.FieldIdentity, identity)

	if rewriteCreator && found && existing.Username != "" && existing.Username != username {
		if err := s.rewriteCreatedBy(ctx, identity, existing.Username, username); err != nil {
			// The username itself is saved; the rewrite is best effort.
			s.logger.WarnContext(ctx, "CreatedBy rewrite failed",
				log.FieldIdentity, identity,
				log.FieldError, err)
		}
	}
	return nil
}

// DisplayName resolves what to show for an identity: username when set, the
// account email otherwise, "Unknown" when neither is available. The profile
// fetch runs under a cancellable deadline so a slow backend degrades to the
// email instead of hanging the caller.
func (s *Service) DisplayName(ctx context.Context, identity, email string) string {
	if username, ok := s.names.Get(identity); ok {
		if username != "" {
			return username
		}
	} else {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		p, found, err := s.repo.Get(ctx, identity)
		if err != nil {
			s.logger.WarnContext(ctx, "Profile lookup failed, falling back to email",
				log.FieldIdentity, identity,
				log.FieldError, err)
		} else {
			if found {
				s.names.Set(identity, p.Username)
			}
			if found && p.Username != "" {
				return p.Username
			}
		}
	}

	if email != "" {
		return email
	}
	return "Unknown"
}

func (s *Service) rewriteCreatedBy(ctx context.Context, identity, from, to string) error {
	txs, err := s.ledger.List(ctx, identity)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	rewritten := 0
	for _, tx := range txs {
		if tx.CreatedBy != from {
			continue
		}
		tx.CreatedBy = to
		if err := s.ledger.Upsert(ctx, identity, tx); err != nil {
			return fmt.Errorf("rewrite transaction %s: %w", tx.ID, err)
		}
		rewritten++
	}

	s.logger.InfoContext(ctx, "Rewrote transaction creators",
		log.FieldIdentity, identity,
		log.FieldCount, rewritten)
	return nil
}

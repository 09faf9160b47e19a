package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khata/internal/core"
	docmemory "khata/internal/docstore/memory"
	"khata/internal/log"
)

func newTestService(t *testing.T) (*Service, *MemoryRepository, *docmemory.Store) {
	t.Helper()
	repo := NewMemoryRepository()
	ledger := docmemory.New()
	svc := NewService(repo, ledger, log.New(log.DefaultConfig()))
	return svc, repo, ledger
}

func TestSetUsernameValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	invalid := []string{"", "ab", "way_too_long_for_a_username", "has space", "dash-ed", "émile"}
	for _, username := range invalid {
		if err := svc.SetUsername(ctx, "uid-1", username, false); !errors.Is(err, ErrInvalidUsername) {
			t.Fatalf("username %q: expected ErrInvalidUsername, got %v", username, err)
		}
	}

	require.NoError(t, svc.SetUsername(ctx, "uid-1", "alice_99", false))
	p, found, err := svc.Get(ctx, "uid-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice_99", p.Username)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestSetUsernamePreservesCreatedAt(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Set(ctx, "uid-1", Profile{Username: "alice", CreatedAt: created}))

	require.NoError(t, svc.SetUsername(ctx, "uid-1", "alice_new", false))

	p, _, err := svc.Get(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "alice_new", p.Username)
	assert.Equal(t, created, p.CreatedAt)
}

func TestSetUsernameRewritesCreators(t *testing.T) {
	svc, repo, ledger := newTestService(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "uid-1", Profile{Username: "alice", CreatedAt: time.Now()}))
	date, _ := core.ParseDate("2024-05-02")
	ledger.Seed("uid-1", []core.Transaction{
		{ID: "a", Type: core.Expense, Amount: core.Money{Cents: 100}, Description: "x", Category: "Food", Date: date, CreatedBy: "alice"},
		{ID: "b", Type: core.Expense, Amount: core.Money{Cents: 200}, Description: "y", Category: "Food", Date: date, CreatedBy: "someone_else"},
	})

	require.NoError(t, svc.SetUsername(ctx, "uid-1", "alice_new", true))

	txs, err := ledger.List(ctx, "uid-1")
	require.NoError(t, err)
	byID := map[string]core.Transaction{}
	for _, tx := range txs {
		byID[tx.ID] = tx
	}
	assert.Equal(t, "alice_new", byID["a"].CreatedBy)
	assert.Equal(t, "someone_else", byID["b"].CreatedBy, "other creators stay untouched")
}

func TestDisplayNameResolution(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	// No profile: fall back to email.
	assert.Equal(t, "alice@example.com", svc.DisplayName(ctx, "uid-1", "alice@example.com"))

	// Username wins once set.
	require.NoError(t, repo.Set(ctx, "uid-1", Profile{Username: "alice"}))
	assert.Equal(t, "alice", svc.DisplayName(ctx, "uid-1", "alice@example.com"))

	// Neither username nor email.
	assert.Equal(t, "Unknown", svc.DisplayName(ctx, "uid-2", ""))
}

func TestDisplayNameSurvivesRepositoryFailure(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.FailWith(errors.New("backend down"))

	assert.Equal(t, "alice@example.com", svc.DisplayName(context.Background(), "uid-1", "alice@example.com"))
}

func TestDisplayNameHonorsDeadline(t *testing.T) {
	repo := &slowRepository{delay: 200 * time.Millisecond}
	svc := NewService(repo, docmemory.New(), log.New(log.DefaultConfig()),
		WithLookupTimeout(20*time.Millisecond))

	start := time.Now()
	name := svc.DisplayName(context.Background(), "uid-1", "alice@example.com")
	assert.Equal(t, "alice@example.com", name)
	assert.Less(t, time.Since(start), 150*time.Millisecond, "lookup must be cut off by the deadline")
}

// slowRepository blocks until the context is done.
type slowRepository struct {
	delay time.Duration
}

func (r *slowRepository) Get(ctx context.Context, _ string) (Profile, bool, error) {
	select {
	case <-time.After(r.delay):
		return Profile{Username: "late"}, true, nil
	case <-ctx.Done():
		return Profile{}, false, ctx.Err()
	}
}

func (r *slowRepository) Set(context.Context, string, Profile) error { return nil }

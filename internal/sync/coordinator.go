// Package sync drives the working set in and out of the remote document
// store as identities sign in and out. The remote copy is authoritative; a
// local snapshot serves as last-known-good when the remote cannot be reached
// and as the upload source for entries recorded before the account first
// synced.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"golang.org/x/sync/errgroup"

	"khata/internal/auth"
	"khata/internal/core"
	"khata/internal/docstore"
	"khata/internal/log"
	"khata/internal/storage"
	"khata/internal/store"
)

// Phase is the coordinator's externally visible state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseSyncing Phase = "syncing"
	PhaseError   Phase = "error"
)

// State is the current phase plus the user-facing message in the error phase.
type State struct {
	Phase   Phase
	Message string
}

const (
	defaultLoadTimeout      = 5 * time.Second
	migrationUploadParallel = 4
)

// Coordinator reacts to identity changes: load on sign-in, clear on
// sign-out, live subscription in between. It never retries on its own; Retry
// re-runs the load on explicit user action.
type Coordinator struct {
	store     *store.Store
	docs      docstore.Store
	snapshots *storage.SnapshotStore
	logger    *log.Logger
	timeout   time.Duration

	mu          gosync.Mutex
	identity    auth.Identity
	signedIn    bool
	generation  int
	state       State
	unsubscribe func()

	wg gosync.WaitGroup
}

type Option func(*Coordinator)

// WithLoadTimeout bounds the remote fetch on sign-in and retry.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// New builds a coordinator. snapshots may be nil when no local cache is
// configured; fallback then degrades to an empty set.
func New(s *store.Store, docs docstore.Store, snapshots *storage.SnapshotStore, logger *log.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     s,
		docs:      docs,
		snapshots: snapshots,
		logger:    logger.WithComponent(log.ComponentSync),
		timeout:   defaultLoadTimeout,
		state:     State{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bind subscribes the coordinator to an auth service. The returned function
// detaches it again.
func (c *Coordinator) Bind(svc auth.Service) func() {
	return svc.OnIdentityChange(c.IdentityChanged)
}

// IdentityChanged is the auth-change entry point. Sign-in kicks off a
// background load; sign-out clears the working set immediately.
func (c *Coordinator) IdentityChanged(id auth.Identity, signedIn bool) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.identity = id
	c.signedIn = signedIn
	c.dropSubscriptionLocked()
	if !signedIn {
		c.state = State{Phase: PhaseIdle}
	}
	c.mu.Unlock()

	if !signedIn {
		c.store.ReplaceAll(nil)
		c.logger.Info("Identity cleared, working set emptied")
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.load(gen, id)
	}()
}

// Retry re-runs the load for the current identity. It does nothing while
// signed out.
func (c *Coordinator) Retry() {
	c.mu.Lock()
	if !c.signedIn {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	id := c.identity
	c.dropSubscriptionLocked()
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.load(gen, id)
	}()
}

// State returns the current phase.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until in-flight loads finish. Test and shutdown hook.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) load(gen int, id auth.Identity) {
	if !c.enterSyncing(gen) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	txs, err := c.docs.List(ctx, id.UID)
	if err != nil {
		c.logger.ErrorContext(ctx, "Remote load failed",
			log.FieldOperation, log.OpLoad,
			log.FieldIdentity, id.UID,
			log.FieldError, err)
		c.fallback(ctx, gen, id, err)
		return
	}

	if len(txs) == 0 {
		migrated, merr := c.migrateLegacy(ctx, id.UID)
		if merr != nil {
			c.logger.WarnContext(ctx, "Legacy migration failed",
				log.FieldOperation, log.OpMigrate,
				log.FieldIdentity, id.UID,
				log.FieldError, merr)
		} else if len(migrated) > 0 {
			txs = migrated
		}
	}

	if !c.finish(gen, id, txs) {
		return
	}

	c.logger.InfoContext(ctx, "Remote load complete",
		log.FieldOperation, log.OpLoad,
		log.FieldIdentity, id.UID,
		log.FieldCount, len(txs))

	if c.snapshots != nil {
		if err := c.snapshots.SaveSnapshot(ctx, id.UID, txs); err != nil {
			c.logger.WarnContext(ctx, "Snapshot save failed",
				log.FieldIdentity, id.UID,
				log.FieldError, err)
		}
	}
}

// enterSyncing flips to the syncing phase unless the load is already stale.
func (c *Coordinator) enterSyncing(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.state = State{Phase: PhaseSyncing}
	return true
}

// finish installs the loaded set, moves to idle and attaches the live
// subscription. Returns false when the load went stale meanwhile.
func (c *Coordinator) finish(gen int, id auth.Identity, txs []core.Transaction) bool {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return false
	}
	c.state = State{Phase: PhaseIdle}
	c.mu.Unlock()

	c.store.ReplaceAll(txs)
	c.attachSubscription(gen, id)
	return true
}

// fallback serves the last-known-good snapshot, or an empty set, and reports
// the error phase.
func (c *Coordinator) fallback(ctx context.Context, gen int, id auth.Identity, cause error) {
	var served []core.Transaction
	if c.snapshots != nil {
		snap, savedAt, err := c.snapshots.LoadSnapshot(context.WithoutCancel(ctx), id.UID)
		switch {
		case err == nil:
			served = snap
			c.logger.InfoContext(ctx, "Serving last-known-good snapshot",
				log.FieldIdentity, id.UID,
				log.FieldCount, len(snap),
				"saved_at", savedAt)
		case errors.Is(err, storage.ErrNoSnapshot):
			// First sync on this machine; nothing to fall back to.
		default:
			c.logger.WarnContext(ctx, "Snapshot load failed",
				log.FieldIdentity, id.UID,
				log.FieldError, err)
		}
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.state = State{Phase: PhaseError, Message: syncErrorMessage(cause)}
	c.mu.Unlock()

	c.store.ReplaceAll(served)
}

// migrateLegacy uploads entries recorded before the account had a remote
// backend, with bounded concurrency, and returns them for serving.
func (c *Coordinator) migrateLegacy(ctx context.Context, identity string) ([]core.Transaction, error) {
	if c.snapshots == nil {
		return nil, nil
	}
	pending, err := c.snapshots.PendingLegacy(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("read pending legacy entries: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(migrationUploadParallel)
	for _, legacy := range pending {
		legacy := legacy
		g.Go(func() error {
			if err := c.docs.Upsert(gctx, identity, legacy.Transaction); err != nil {
				return fmt.Errorf("upload legacy transaction %s: %w", legacy.Transaction.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rowIDs := make([]int64, len(pending))
	txs := make([]core.Transaction, len(pending))
	for i, legacy := range pending {
		rowIDs[i] = legacy.RowID
		txs[i] = legacy.Transaction
	}
	if err := c.snapshots.MarkMigrated(ctx, rowIDs); err != nil {
		return nil, fmt.Errorf("mark legacy entries migrated: %w", err)
	}

	c.logger.InfoContext(ctx, "Legacy entries uploaded",
		log.FieldOperation, log.OpMigrate,
		log.FieldIdentity, identity,
		log.FieldCount, len(txs))
	return txs, nil
}

// attachSubscription wires remote pushes into the working set. Last write
// wins: every push replaces the whole set.
func (c *Coordinator) attachSubscription(gen int, id auth.Identity) {
	cancel, err := c.docs.Subscribe(id.UID, func(txs []core.Transaction) {
		c.mu.Lock()
		stale := gen != c.generation
		c.mu.Unlock()
		if stale {
			return
		}
		c.store.ReplaceAll(txs)
		if c.snapshots != nil {
			ctx, cancelSnap := context.WithTimeout(context.Background(), time.Second)
			defer cancelSnap()
			if err := c.snapshots.SaveSnapshot(ctx, id.UID, txs); err != nil {
				c.logger.Warn("Snapshot save failed on remote push",
					log.FieldIdentity, id.UID,
					log.FieldError, err)
			}
		}
	})
	if err != nil {
		c.logger.Warn("Live subscription unavailable",
			log.FieldIdentity, id.UID,
			log.FieldError, err)
		return
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		cancel()
		return
	}
	c.unsubscribe = cancel
	c.mu.Unlock()
}

func (c *Coordinator) dropSubscriptionLocked() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func syncErrorMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "Syncing timed out. Check your connection and retry."
	}
	return "Syncing failed. Check your connection and retry."
}

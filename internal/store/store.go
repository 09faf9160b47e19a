// Package store holds the in-memory working set of transactions for the
// signed-in identity. Mutations apply locally first and persist to the remote
// backend in the background: a remote failure is reported, never blocks, and
// never rolls the local change back.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"khata/internal/core"
	"khata/internal/log"
)

// ErrNotFound is returned when an edit targets a transaction that is not in
// the working set.
var ErrNotFound = errors.New("transaction not found")

// PersistOp names a background persistence operation.
type PersistOp string

const (
	PersistUpsert PersistOp = "upsert"
	PersistDelete PersistOp = "delete"
)

// Actor identifies who performs a mutation: ID partitions the remote store,
// DisplayName is what gets stamped onto the transaction.
type Actor struct {
	ID          string
	DisplayName string
}

// PersistOutcome reports the result of one background persist. Err is nil on
// success.
type PersistOutcome struct {
	Op            PersistOp
	TransactionID string
	Err           error
}

// Persister is the outbound port for background persistence. The direct
// implementation writes to the document store; the queued one publishes to an
// outbox consumed by a worker.
type Persister interface {
	PersistUpsert(ctx context.Context, identity string, tx core.Transaction) error
	PersistDelete(ctx context.Context, identity, id string) error
}

// Store is the mutable transaction set plus the period selected for the
// dashboard. Construct it with New and share the single instance; all methods
// are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	txs      []core.Transaction
	period   core.Period
	persist  Persister
	outcomes chan PersistOutcome
	logger   *log.Logger
	now      func() time.Time
	newID    func() string
	wg       sync.WaitGroup
}

// Option tweaks store construction. Used by tests to pin clocks and IDs.
type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func New(persist Persister, logger *log.Logger, opts ...Option) *Store {
	s := &Store{
		period:   core.PeriodOf(time.Now()),
		persist:  persist,
		outcomes: make(chan PersistOutcome, 16),
		logger:   logger.WithComponent(log.ComponentStore),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcomes exposes background persist results. Receiving is optional: when
// nobody listens outcomes are dropped rather than blocking mutations.
func (s *Store) Outcomes() <-chan PersistOutcome {
	return s.outcomes
}

// Add validates raw input, stamps the actor and creation time, appends the
// new transaction and persists it in the background.
func (s *Store) Add(ctx context.Context, in core.TransactionInput, actor Actor) (core.Transaction, error) {
	tx, err := core.NewTransaction(in, s.newID(), actor.DisplayName, s.now())
	if err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	s.txs = append(s.txs, tx)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Transaction added",
		log.FieldTransactionID, tx.ID,
		log.FieldType, string(tx.Type),
		log.FieldAmountCents, tx.Amount.Cents,
		log.FieldCategory, tx.Category)

	s.persistAsync(actor.ID, PersistUpsert, tx.ID, func(ctx context.Context) error {
		return s.persist.PersistUpsert(ctx, actor.ID, tx)
	})
	return tx, nil
}

// Edit applies a proposed change to an existing transaction. A proposal that
// changes nothing leaves the entry untouched and skips persistence.
func (s *Store) Edit(ctx context.Context, id string, proposed core.TransactionInput, actor Actor) (core.Transaction, error) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return core.Transaction{}, ErrNotFound
	}
	existing := s.txs[idx]
	s.mu.Unlock()

	merged, entry, err := core.Diff(existing, proposed, actor.DisplayName, s.now())
	if err != nil {
		return core.Transaction{}, err
	}
	if entry == nil {
		return existing, nil
	}

	s.mu.Lock()
	// Re-resolve: the entry may have moved or vanished while unlocked.
	if idx = s.indexLocked(id); idx < 0 {
		s.mu.Unlock()
		return core.Transaction{}, ErrNotFound
	}
	s.txs[idx] = merged
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Transaction edited",
		log.FieldTransactionID, id,
		log.FieldCount, len(entry.Changes))

	s.persistAsync(actor.ID, PersistUpsert, id, func(ctx context.Context) error {
		return s.persist.PersistUpsert(ctx, actor.ID, merged)
	})
	return merged, nil
}

// Delete removes a transaction. Deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id, identity string) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.txs = append(s.txs[:idx], s.txs[idx+1:]...)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldTransactionID, id)

	s.persistAsync(identity, PersistDelete, id, func(ctx context.Context) error {
		return s.persist.PersistDelete(ctx, identity, id)
	})
}

// ReplaceAll swaps the whole working set, used when a sync load or a remote
// push arrives. It never writes back to the backend.
func (s *Store) ReplaceAll(txs []core.Transaction) {
	copied := append([]core.Transaction(nil), txs...)
	s.mu.Lock()
	s.txs = copied
	s.mu.Unlock()
}

// List returns a copy of the current working set.
func (s *Store) List() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.txs...)
}

// Get looks up a single transaction by id.
func (s *Store) Get(id string) (core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.txs[idx], true
	}
	return core.Transaction{}, false
}

func (s *Store) SetSelectedPeriod(p core.Period) {
	s.mu.Lock()
	s.period = p
	s.mu.Unlock()
}

func (s *Store) SelectedPeriod() core.Period {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

// Report aggregates the current set over the selected period.
func (s *Store) Report() core.MonthlyReport {
	s.mu.Lock()
	txs := append([]core.Transaction(nil), s.txs...)
	period := s.period
	s.mu.Unlock()
	return core.BuildMonthlyReport(txs, period)
}

// PeriodTransactions returns the current set filtered to the selected period,
// newest first.
func (s *Store) PeriodTransactions() []core.Transaction {
	s.mu.Lock()
	txs := append([]core.Transaction(nil), s.txs...)
	period := s.period
	s.mu.Unlock()
	return core.FilterByPeriod(txs, period)
}

// Wait blocks until in-flight background persists finish. Test and shutdown
// hook only.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) indexLocked(id string) int {
	for i, tx := range s.txs {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persistAsync(identity string, op PersistOp, id string, fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := fn(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "Background persist failed",
				log.FieldOperation, string(op),
				log.FieldTransactionID, id,
				log.FieldIdentity, identity,
				log.FieldError, err)
		}

		select {
		case s.outcomes <- PersistOutcome{Op: op, TransactionID: id, Err: err}:
		default:
			// Nobody listening; local state already moved on.
		}
	}()
}

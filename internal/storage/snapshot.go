// Package storage keeps a local sqlite copy of each identity's transactions.
// The snapshot is the last-known-good fallback when the remote backend cannot
// be reached, and the staging area for entries recorded before an account had
// a remote backend at all.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"khata/internal/core"
	"khata/internal/log"
)

// ErrNoSnapshot is returned when no snapshot has ever been saved for an
// identity.
var ErrNoSnapshot = errors.New("no snapshot for identity")

// SnapshotStore persists per-identity transaction snapshots.
type SnapshotStore struct {
	db     *sql.DB
	logger *log.Logger
}

// LegacyTransaction is a locally recorded entry awaiting upload to the remote
// backend.
type LegacyTransaction struct {
	RowID       int64
	Transaction core.Transaction
}

func NewSnapshotStore(dbPath string, logger *log.Logger) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SnapshotStore{
		db:     db,
		logger: logger.WithComponent(log.ComponentCache),
	}, nil
}

func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveSnapshot replaces the stored snapshot for an identity with the given
// transaction list.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, identity string, txs []core.Transaction) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM snapshots WHERE identity = ?`, identity); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	for _, tx := range txs {
		payload, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("encode transaction %s: %w", tx.ID, err)
		}
		_, err = dbTx.ExecContext(ctx,
			`INSERT INTO snapshots (identity, transaction_id, payload, tx_date) VALUES (?, ?, ?, ?)`,
			identity, tx.ID, string(payload), tx.Date.String())
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
		}
	}

	savedAt := time.Now().UTC().Format(time.RFC3339)
	_, err = dbTx.ExecContext(ctx,
		`INSERT INTO snapshot_meta (identity, saved_at) VALUES (?, ?)
		 ON CONFLICT (identity) DO UPDATE SET saved_at = excluded.saved_at`,
		identity, savedAt)
	if err != nil {
		return fmt.Errorf("update snapshot meta: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	s.logger.DebugContext(ctx, "Snapshot saved",
		log.FieldIdentity, identity,
		log.FieldCount, len(txs))
	return nil
}

// LoadSnapshot returns the stored snapshot for an identity, newest first, and
// the time it was saved. ErrNoSnapshot means the identity has never synced on
// this machine.
func (s *SnapshotStore) LoadSnapshot(ctx context.Context, identity string) ([]core.Transaction, time.Time, error) {
	var savedRaw string
	err := s.db.QueryRowContext(ctx,
		`SELECT saved_at FROM snapshot_meta WHERE identity = ?`, identity).Scan(&savedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read snapshot meta: %w", err)
	}
	savedAt, err := time.Parse(time.RFC3339, savedRaw)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parse snapshot timestamp: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM snapshots WHERE identity = ? ORDER BY tx_date DESC, transaction_id`, identity)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read snapshot: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan snapshot row: %w", err)
		}
		var tx core.Transaction
		if err := json.Unmarshal([]byte(payload), &tx); err != nil {
			// A malformed row should not block the rest of the snapshot.
			s.logger.WarnContext(ctx, "Skipping malformed snapshot row",
				log.FieldIdentity, identity,
				log.FieldError, err)
			continue
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return txs, savedAt, nil
}

// AppendLegacy records a transaction created while no remote backend was
// configured for the identity.
func (s *SnapshotStore) AppendLegacy(ctx context.Context, identity string, tx core.Transaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode legacy transaction: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO legacy_transactions (identity, payload) VALUES (?, ?)`,
		identity, string(payload))
	if err != nil {
		return fmt.Errorf("insert legacy transaction: %w", err)
	}
	return nil
}

// PendingLegacy returns locally recorded transactions not yet uploaded to the
// remote backend.
func (s *SnapshotStore) PendingLegacy(ctx context.Context, identity string) ([]LegacyTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload FROM legacy_transactions WHERE identity = ? AND migrated = 0 ORDER BY id`,
		identity)
	if err != nil {
		return nil, fmt.Errorf("read pending legacy transactions: %w", err)
	}
	defer rows.Close()

	var pending []LegacyTransaction
	for rows.Next() {
		var (
			rowID   int64
			payload string
		)
		if err := rows.Scan(&rowID, &payload); err != nil {
			return nil, fmt.Errorf("scan legacy row: %w", err)
		}
		var tx core.Transaction
		if err := json.Unmarshal([]byte(payload), &tx); err != nil {
			s.logger.WarnContext(ctx, "Skipping malformed legacy row",
				log.FieldIdentity, identity,
				log.FieldError, err)
			continue
		}
		pending = append(pending, LegacyTransaction{RowID: rowID, Transaction: tx})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy rows: %w", err)
	}

	return pending, nil
}

// MarkMigrated flags legacy rows as uploaded.
func (s *SnapshotStore) MarkMigrated(ctx context.Context, rowIDs []int64) error {
	if len(rowIDs) == 0 {
		return nil
	}
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration mark: %w", err)
	}
	defer dbTx.Rollback()

	for _, id := range rowIDs {
		if _, err := dbTx.ExecContext(ctx,
			`UPDATE legacy_transactions SET migrated = 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("mark legacy row %d migrated: %w", id, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit migration mark: %w", err)
	}
	return nil
}

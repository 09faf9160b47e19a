package store

import (
	"context"

	"khata/internal/core"
	"khata/internal/docstore"
)

// DirectPersister writes straight to the document store. This is the default
// wiring; the queued alternative publishes to the message outbox instead.
type DirectPersister struct {
	Upserter docstore.Upserter
	Deleter  docstore.Deleter
}

func (p DirectPersister) PersistUpsert(ctx context.Context, identity string, tx core.Transaction) error {
	return p.Upserter.Upsert(ctx, identity, tx)
}

func (p DirectPersister) PersistDelete(ctx context.Context, identity, id string) error {
	return p.Deleter.Delete(ctx, identity, id)
}

// NopPersister discards persistence. Used while no identity is signed in.
type NopPersister struct{}

func (NopPersister) PersistUpsert(context.Context, string, core.Transaction) error { return nil }
func (NopPersister) PersistDelete(context.Context, string, string) error           { return nil }

// Package docstore defines the ports to the per-identity remote document
// store holding each user's transactions.
package docstore

import (
	"context"

	"khata/internal/core"
)

// Ports for outbound adapters. The store is partitioned by authenticated
// identity: one user never sees another's transactions.
type (
	// Lister returns the full transaction set for an identity, ordered by
	// date descending.
	Lister interface {
		List(ctx context.Context, identity string) ([]core.Transaction, error)
	}

	// Upserter writes one transaction with merge semantics: server-side
	// CreatedAt, CreatedBy and EditHistory survive when the write omits them.
	Upserter interface {
		Upsert(ctx context.Context, identity string, tx core.Transaction) error
	}

	Deleter interface {
		Delete(ctx context.Context, identity, id string) error
	}

	// Subscriber pushes the full current list on every remote change.
	// The returned function cancels the subscription; callbacks stop after it
	// returns.
	Subscriber interface {
		Subscribe(identity string, fn func([]core.Transaction)) (func(), error)
	}

	// Store is the full document-store surface.
	Store interface {
		Lister
		Upserter
		Deleter
		Subscriber
	}
)

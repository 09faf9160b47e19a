// Package worker applies queued persistence messages to the remote document
// store. It is the consuming half of the outbox: the server publishes and
// moves on, the worker retries until the write lands.
package worker

import (
	"context"
	"fmt"

	"khata/internal/amqp"
	"khata/internal/docstore"
	"khata/internal/log"
)

type PersistWorker struct {
	docs   docstore.Store
	logger *log.Logger
}

func New(docs docstore.Store, logger *log.Logger) *PersistWorker {
	return &PersistWorker{
		docs:   docs,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Handle applies one message. An error nacks the delivery back onto the
// queue, so it must only be returned for retryable failures.
func (w *PersistWorker) Handle(ctx context.Context, msg *amqp.Message) error {
	switch msg.Op {
	case amqp.OpUpsert:
		if err := w.docs.Upsert(ctx, msg.Identity, *msg.Transaction); err != nil {
			return fmt.Errorf("upsert transaction %s: %w", msg.TransactionID, err)
		}
	case amqp.OpDelete:
		if err := w.docs.Delete(ctx, msg.Identity, msg.TransactionID); err != nil {
			return fmt.Errorf("delete transaction %s: %w", msg.TransactionID, err)
		}
	default:
		// Validated at decode time; an unknown op here is a programming error
		// and retrying will not fix it.
		w.logger.ErrorContext(ctx, "Dropping message with unknown op",
			log.FieldOperation, string(msg.Op),
			log.FieldTransactionID, msg.TransactionID)
		return nil
	}

	w.logger.InfoContext(ctx, "Persistence message applied",
		log.FieldOperation, string(msg.Op),
		log.FieldTransactionID, msg.TransactionID,
		log.FieldIdentity, msg.Identity)
	return nil
}

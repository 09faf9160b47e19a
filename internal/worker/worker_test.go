package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khata/internal/amqp"
	"khata/internal/core"
	"khata/internal/docstore/memory"
	"khata/internal/log"
)

func sampleTx(id string) core.Transaction {
	date, _ := core.ParseDate("2024-05-02")
	return core.Transaction{
		ID:          id,
		Type:        core.Expense,
		Amount:      core.Money{Cents: 350000},
		Description: "Lunch",
		Category:    "Food",
		Date:        date,
		CreatedBy:   "alice",
	}
}

func TestHandleUpsert(t *testing.T) {
	docs := memory.New()
	w := New(docs, log.New(log.DefaultConfig()))

	err := w.Handle(context.Background(), amqp.NewUpsertMessage("uid-1", sampleTx("tx-1")))
	require.NoError(t, err)

	txs, err := docs.List(context.Background(), "uid-1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "tx-1", txs[0].ID)
}

func TestHandleDelete(t *testing.T) {
	docs := memory.New()
	docs.Seed("uid-1", []core.Transaction{sampleTx("tx-1")})
	w := New(docs, log.New(log.DefaultConfig()))

	err := w.Handle(context.Background(), amqp.NewDeleteMessage("uid-1", "tx-1"))
	require.NoError(t, err)

	txs, err := docs.List(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestHandleKeepsIdentitiesApart(t *testing.T) {
	docs := memory.New()
	docs.Seed("uid-2", []core.Transaction{sampleTx("tx-1")})
	w := New(docs, log.New(log.DefaultConfig()))

	require.NoError(t, w.Handle(context.Background(), amqp.NewDeleteMessage("uid-1", "tx-1")))

	txs, err := docs.List(context.Background(), "uid-2")
	require.NoError(t, err)
	assert.Len(t, txs, 1, "a delete for one identity must not touch another's data")
}

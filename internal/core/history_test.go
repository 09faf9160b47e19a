package core

import (
	"errors"
	"testing"
	"time"
)

func existingTx() Transaction {
	created := time.Date(2024, time.May, 2, 10, 0, 0, 0, time.UTC)
	return Transaction{
		ID:          "tx-1",
		Type:        Expense,
		Amount:      Money{Cents: 350000},
		Description: "Grocery Shopping",
		Category:    "Food",
		Date:        NewDate(2024, time.May, 2),
		CreatedBy:   "alice",
		CreatedAt:   created,
	}
}

func proposalFrom(tx Transaction) TransactionInput {
	return TransactionInput{
		Type:        string(tx.Type),
		Amount:      tx.Amount.String(),
		Description: tx.Description,
		Category:    tx.Category,
		Date:        tx.Date.String(),
	}
}

func TestDiffRecordsAmountChange(t *testing.T) {
	existing := existingTx()
	proposed := proposalFrom(existing)
	proposed.Amount = "4000"
	editedAt := time.Date(2024, time.May, 3, 9, 0, 0, 0, time.UTC)

	merged, entry, err := Diff(existing, proposed, "bob", editedAt)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if entry == nil {
		t.Fatalf("expected an audit entry")
	}
	if len(entry.Changes) != 1 {
		t.Fatalf("expected exactly one change, got %d", len(entry.Changes))
	}
	c := entry.Changes[0]
	if c.Field != FieldAmount || c.OldValue != "3500.00" || c.NewValue != "4000" {
		t.Fatalf("unexpected change record: %+v", c)
	}
	if merged.Amount.Cents != 400000 {
		t.Fatalf("merged amount not applied: %d", merged.Amount.Cents)
	}
	if merged.EditedBy != "bob" || !merged.EditedAt.Equal(editedAt) {
		t.Fatalf("editor stamps not applied: %+v", merged)
	}
	if merged.CreatedBy != "alice" || !merged.CreatedAt.Equal(existing.CreatedAt) {
		t.Fatalf("creation stamps must be preserved")
	}
	if len(merged.EditHistory) != 1 {
		t.Fatalf("expected one history entry, got %d", len(merged.EditHistory))
	}
}

func TestDiffIdenticalValuesProducesNoEntry(t *testing.T) {
	existing := existingTx()
	merged, entry, err := Diff(existing, proposalFrom(existing), "bob", time.Now())
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if entry != nil {
		t.Fatalf("identical values must not produce an audit entry")
	}
	if merged.EditedBy != "" || !merged.EditedAt.IsZero() {
		t.Fatalf("no-op edit must not stamp EditedBy/EditedAt")
	}
	if len(merged.EditHistory) != 0 {
		t.Fatalf("history must not grow on a no-op edit")
	}
}

func TestDiffCoercedAmountIsNotAChange(t *testing.T) {
	// "100.00" stored vs "100" proposed: equal after normalization.
	existing := existingTx()
	existing.Amount = Money{Cents: 10000}
	proposed := proposalFrom(existing)
	proposed.Amount = "100"

	_, entry, err := Diff(existing, proposed, "bob", time.Now())
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if entry != nil {
		t.Fatalf("type-coerced equal amount must not be recorded as a change")
	}
}

func TestDiffMultipleFields(t *testing.T) {
	existing := existingTx()
	proposed := proposalFrom(existing)
	proposed.Type = "income"
	proposed.Category = "Salary"
	proposed.Description = "May salary"

	merged, entry, err := Diff(existing, proposed, "bob", time.Now())
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if entry == nil || len(entry.Changes) != 3 {
		t.Fatalf("expected 3 changes, got %+v", entry)
	}
	if merged.Type != Income || merged.Category != "Salary" {
		t.Fatalf("merged fields not applied: %+v", merged)
	}
}

func TestDiffHistoryIsAppendOnly(t *testing.T) {
	existing := existingTx()
	proposed := proposalFrom(existing)
	proposed.Amount = "4000"
	first, _, err := Diff(existing, proposed, "bob", time.Now())
	if err != nil {
		t.Fatalf("first edit: %v", err)
	}

	second := proposalFrom(first)
	second.Description = "Weekly groceries"
	merged, _, err := Diff(first, second, "carol", time.Now())
	if err != nil {
		t.Fatalf("second edit: %v", err)
	}
	if len(merged.EditHistory) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(merged.EditHistory))
	}
	// Oldest first.
	if merged.EditHistory[0].EditedBy != "bob" || merged.EditHistory[1].EditedBy != "carol" {
		t.Fatalf("history order wrong: %+v", merged.EditHistory)
	}
	// The first diff's input slice must not have been shared.
	if len(first.EditHistory) != 1 {
		t.Fatalf("earlier snapshot mutated: %d entries", len(first.EditHistory))
	}
}

func TestDiffInvalidProposalSurfacesFieldError(t *testing.T) {
	existing := existingTx()
	proposed := proposalFrom(existing)
	proposed.Amount = "not-a-number"

	_, _, err := Diff(existing, proposed, "bob", time.Now())
	var ferr *FieldError
	if !errors.As(err, &ferr) || ferr.Field != "amount" {
		t.Fatalf("expected amount field error, got %v", err)
	}
}

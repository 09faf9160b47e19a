package core

import (
	"fmt"
	"strings"
	"time"
)

// TransactionInput is the raw, string-typed form submission for creating or
// editing a transaction.
type TransactionInput struct {
	Type        string
	Amount      string
	Description string
	Category    string
	Date        string
}

// FieldError is a validation failure attributable to a single form field.
// It blocks submission and is surfaced inline by the caller.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// fields is the validated, normalized form of a TransactionInput.
type fields struct {
	Type        TransactionType
	Amount      Money
	Description string
	Category    string
	Date        Date
}

// validate checks every field and normalizes values. The future-date check
// compares calendar days against now, which is the client clock: it is a form
// constraint, not a domain invariant.
func (in TransactionInput) validate(now time.Time) (fields, *FieldError) {
	var f fields

	f.Type = TransactionType(in.Type)
	if !f.Type.Valid() {
		return f, &FieldError{Field: "type", Msg: "must be income or expense"}
	}

	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return f, &FieldError{Field: "amount", Msg: "must be a non-negative number"}
	}
	f.Amount = amount

	f.Description = strings.TrimSpace(in.Description)
	if f.Description == "" {
		return f, &FieldError{Field: "description", Msg: "is required"}
	}

	f.Category = in.Category
	if f.Category == "" {
		f.Category = DefaultCategory(f.Type)
	}
	if !ValidCategory(f.Type, f.Category) {
		return f, &FieldError{Field: "category", Msg: fmt.Sprintf("%q is not a %s category", f.Category, f.Type)}
	}

	if in.Date == "" {
		return f, &FieldError{Field: "date", Msg: "is required"}
	}
	date, derr := ParseDate(in.Date)
	if derr != nil {
		return f, &FieldError{Field: "date", Msg: "must be YYYY-MM-DD"}
	}
	today := NewDate(now.Year(), now.Month(), now.Day())
	if date.After(today) {
		return f, &FieldError{Field: "date", Msg: "must not be in the future"}
	}
	f.Date = date

	return f, nil
}

// NewTransaction validates raw input and builds a fresh transaction. The id is
// assigned by the caller (the store), creator and creation time are stamped
// here and never change afterwards.
func NewTransaction(in TransactionInput, id, createdBy string, now time.Time) (Transaction, error) {
	f, ferr := in.validate(now)
	if ferr != nil {
		return Transaction{}, ferr
	}
	return Transaction{
		ID:          id,
		Type:        f.Type,
		Amount:      f.Amount,
		Description: f.Description,
		Category:    f.Category,
		Date:        f.Date,
		CreatedBy:   createdBy,
		CreatedAt:   now,
	}, nil
}

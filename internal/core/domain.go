package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	// TransactionType distinguishes money coming in from money going out.
	TransactionType string

	// Transaction is a single ledger entry. ID, CreatedBy and CreatedAt are
	// assigned at creation time and never overwritten by edits.
	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Date        Date            `json:"date"`
		CreatedBy   string          `json:"createdBy,omitempty"`
		CreatedAt   time.Time       `json:"createdAt,omitempty"`
		EditedBy    string          `json:"editedBy,omitempty"`
		EditedAt    time.Time       `json:"editedAt,omitempty"`
		EditHistory []EditRecord    `json:"editHistory,omitempty"`
	}

	// EditRecord is one audit entry: who changed what, from what, to what, when.
	EditRecord struct {
		EditedBy string        `json:"editedBy"`
		EditedAt time.Time     `json:"editedAt"`
		Changes  []FieldChange `json:"changes"`
	}

	// FieldChange captures a single tracked field transition. OldValue is the
	// stored canonical representation, NewValue the value as submitted.
	FieldChange struct {
		Field    string `json:"field"`
		OldValue string `json:"oldValue"`
		NewValue string `json:"newValue"`
	}
)

var (
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidDate      = errors.New("invalid date")
	ErrFutureDate       = errors.New("date is in the future")
)

// Category sets are keyed by transaction type; the first entry of each set is
// the default applied when the type changes.
var (
	expenseCategories = []string{"Food", "Utilities", "Transport", "Fuel", "Shopping", "Bills", "Entertainment", "Healthcare", "Other"}
	incomeCategories  = []string{"Salary", "Freelance", "Investment", "Gift", "Other"}
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Categories returns the allowed category set for a transaction type.
// The returned slice must not be mutated.
func Categories(t TransactionType) []string {
	if t == Income {
		return incomeCategories
	}
	return expenseCategories
}

// DefaultCategory returns the category applied when the type changes.
func DefaultCategory(t TransactionType) string {
	return Categories(t)[0]
}

// ValidCategory reports whether c belongs to the allowed set for t.
func ValidCategory(t TransactionType, c string) bool {
	for _, allowed := range Categories(t) {
		if c == allowed {
			return true
		}
	}
	return false
}

func (tx Transaction) Validate() error {
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(tx.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(tx.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !ValidCategory(tx.Type, tx.Category) {
		return ErrInvalidCategory
	}
	if err := tx.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// LastEdited returns the most recent audit entry, or nil when the transaction
// has never been edited.
func (tx Transaction) LastEdited() *EditRecord {
	if len(tx.EditHistory) == 0 {
		return nil
	}
	return &tx.EditHistory[len(tx.EditHistory)-1]
}

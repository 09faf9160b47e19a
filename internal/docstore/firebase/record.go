package firebase

import (
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"khata/internal/core"
)

// The wire shape matches the documents the web client writes: amounts as
// canonical two-decimal strings, dates as YYYY-MM-DD, timestamps as RFC 3339.
type (
	transactionDoc struct {
		ID          string    `firestore:"id"`
		Type        string    `firestore:"type"`
		Amount      string    `firestore:"amount"`
		Description string    `firestore:"description"`
		Category    string    `firestore:"category"`
		Date        string    `firestore:"date"`
		CreatedBy   string    `firestore:"createdBy"`
		CreatedAt   string    `firestore:"createdAt"`
		EditedBy    string    `firestore:"editedBy"`
		EditedAt    string    `firestore:"editedAt"`
		EditHistory []editDoc `firestore:"editHistory"`
	}

	editDoc struct {
		EditedBy string      `firestore:"editedBy"`
		EditedAt string      `firestore:"editedAt"`
		Changes  []changeDoc `firestore:"changes"`
	}

	changeDoc struct {
		Field    string `firestore:"field"`
		OldValue string `firestore:"oldValue"`
		NewValue string `firestore:"newValue"`
	}
)

// encodeTransaction builds the upsert payload as a field map so that zero
// creation stamps and a nil history are omitted entirely: under MergeAll the
// server-side values then survive the write.
func encodeTransaction(tx core.Transaction) map[string]interface{} {
	data := map[string]interface{}{
		"id":          tx.ID,
		"type":        string(tx.Type),
		"amount":      tx.Amount.String(),
		"description": tx.Description,
		"category":    tx.Category,
		"date":        tx.Date.String(),
		"updatedAt":   time.Now().UTC().Format(time.RFC3339),
	}
	if tx.CreatedBy != "" {
		data["createdBy"] = tx.CreatedBy
	}
	if !tx.CreatedAt.IsZero() {
		data["createdAt"] = tx.CreatedAt.UTC().Format(time.RFC3339)
	}
	if tx.EditedBy != "" {
		data["editedBy"] = tx.EditedBy
	}
	if !tx.EditedAt.IsZero() {
		data["editedAt"] = tx.EditedAt.UTC().Format(time.RFC3339)
	}
	if tx.EditHistory != nil {
		history := make([]map[string]interface{}, 0, len(tx.EditHistory))
		for _, e := range tx.EditHistory {
			changes := make([]map[string]interface{}, 0, len(e.Changes))
			for _, c := range e.Changes {
				changes = append(changes, map[string]interface{}{
					"field":    c.Field,
					"oldValue": c.OldValue,
					"newValue": c.NewValue,
				})
			}
			history = append(history, map[string]interface{}{
				"editedBy": e.EditedBy,
				"editedAt": e.EditedAt.UTC().Format(time.RFC3339),
				"changes":  changes,
			})
		}
		data["editHistory"] = history
	}
	return data
}

func decodeTransaction(doc *firestore.DocumentSnapshot) (core.Transaction, error) {
	var rec transactionDoc
	if err := doc.DataTo(&rec); err != nil {
		return core.Transaction{}, fmt.Errorf("decode document: %w", err)
	}

	id := rec.ID
	if id == "" {
		id = doc.Ref.ID
	}

	amount, err := core.ParseAmount(rec.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", rec.Amount, err)
	}
	date, err := core.ParseDate(rec.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", rec.Date, err)
	}

	tx := core.Transaction{
		ID:          id,
		Type:        core.TransactionType(rec.Type),
		Amount:      amount,
		Description: rec.Description,
		Category:    rec.Category,
		Date:        date,
		CreatedBy:   rec.CreatedBy,
		CreatedAt:   parseStamp(rec.CreatedAt),
		EditedBy:    rec.EditedBy,
		EditedAt:    parseStamp(rec.EditedAt),
	}
	for _, e := range rec.EditHistory {
		entry := core.EditRecord{
			EditedBy: e.EditedBy,
			EditedAt: parseStamp(e.EditedAt),
		}
		for _, c := range e.Changes {
			entry.Changes = append(entry.Changes, core.FieldChange{
				Field:    c.Field,
				OldValue: c.OldValue,
				NewValue: c.NewValue,
			})
		}
		tx.EditHistory = append(tx.EditHistory, entry)
	}
	return tx, nil
}

func parseStamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

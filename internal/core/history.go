package core

import (
	"time"
)

// Tracked field names as they appear in audit entries.
const (
	FieldAmount      = "amount"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldDate        = "date"
	FieldType        = "type"
)

// Diff validates a proposed edit against an existing transaction and merges it.
//
// Tracked fields are compared by value after normalization: amount by cents,
// so a proposed "100" against a stored "100.00" is not a change; the rest by
// their canonical string form. When at least one field differs the merged
// transaction carries a new audit entry (appended, oldest first) and updated
// EditedBy/EditedAt. When nothing differs the existing transaction is returned
// untouched: no entry, no editor stamp. CreatedBy/CreatedAt are never modified.
//
// Recorded changes keep the stored canonical value as OldValue and the
// submitted raw value as NewValue.
func Diff(existing Transaction, proposed TransactionInput, editor string, now time.Time) (Transaction, *EditRecord, error) {
	f, ferr := proposed.validate(now)
	if ferr != nil {
		return existing, nil, ferr
	}

	var changes []FieldChange
	if f.Amount.Cents != existing.Amount.Cents {
		changes = append(changes, FieldChange{
			Field:    FieldAmount,
			OldValue: existing.Amount.String(),
			NewValue: proposed.Amount,
		})
	}
	if f.Description != existing.Description {
		changes = append(changes, FieldChange{
			Field:    FieldDescription,
			OldValue: existing.Description,
			NewValue: proposed.Description,
		})
	}
	if f.Category != existing.Category {
		changes = append(changes, FieldChange{
			Field:    FieldCategory,
			OldValue: existing.Category,
			NewValue: proposed.Category,
		})
	}
	if !f.Date.Equal(existing.Date.Time) {
		changes = append(changes, FieldChange{
			Field:    FieldDate,
			OldValue: existing.Date.String(),
			NewValue: proposed.Date,
		})
	}
	if f.Type != existing.Type {
		changes = append(changes, FieldChange{
			Field:    FieldType,
			OldValue: string(existing.Type),
			NewValue: proposed.Type,
		})
	}

	if len(changes) == 0 {
		return existing, nil, nil
	}

	entry := EditRecord{
		EditedBy: editor,
		EditedAt: now,
		Changes:  changes,
	}

	merged := existing
	merged.Type = f.Type
	merged.Amount = f.Amount
	merged.Description = f.Description
	merged.Category = f.Category
	merged.Date = f.Date
	merged.EditedBy = editor
	merged.EditedAt = now
	merged.EditHistory = append(append([]EditRecord(nil), existing.EditHistory...), entry)

	return merged, &entry, nil
}

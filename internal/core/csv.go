package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// csvHeader is the fixed export column set.
var csvHeader = []string{"Date", "Type", "Description", "Category", "Amount", "Created By", "Last Edited By", "Last Edited At"}

// ExportCSV renders the given transactions (typically the currently filtered
// list, in display order) as an RFC 4180 table. Embedded quotes in free-text
// fields are doubled by the encoder.
func ExportCSV(txs []Transaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range txs {
		editedBy, editedAt := "", ""
		if !tx.EditedAt.IsZero() {
			editedBy = tx.EditedBy
			editedAt = tx.EditedAt.Format(time.RFC3339)
		}
		row := []string{
			tx.Date.String(),
			string(tx.Type),
			tx.Description,
			tx.Category,
			tx.Amount.String(),
			tx.CreatedBy,
			editedBy,
			editedAt,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFilename builds the download name for a period export, carrying the
// human-readable month and the export date, e.g.
// "transactions-May-2024-exported-2024-06-01.csv".
func ExportFilename(period Period, exportedAt time.Time) string {
	return fmt.Sprintf("transactions-%s-%d-exported-%s.csv",
		period.MonthName(), period.Year, exportedAt.Format("2006-01-02"))
}

package http

import (
	"time"

	"khata/internal/core"
)

// Wire DTOs. Amounts travel as canonical two-decimal strings, dates as
// YYYY-MM-DD, timestamps as RFC 3339.
type (
	transactionResponse struct {
		ID          string         `json:"id"`
		Type        string         `json:"type"`
		Amount      string         `json:"amount"`
		Description string         `json:"description"`
		Category    string         `json:"category"`
		Date        string         `json:"date"`
		CreatedBy   string         `json:"createdBy,omitempty"`
		CreatedAt   string         `json:"createdAt,omitempty"`
		EditedBy    string         `json:"editedBy,omitempty"`
		EditedAt    string         `json:"editedAt,omitempty"`
		EditHistory []editResponse `json:"editHistory,omitempty"`
	}

	editResponse struct {
		EditedBy string           `json:"editedBy"`
		EditedAt string           `json:"editedAt"`
		Changes  []changeResponse `json:"changes"`
	}

	changeResponse struct {
		Field    string `json:"field"`
		OldValue string `json:"oldValue"`
		NewValue string `json:"newValue"`
	}

	reportResponse struct {
		Period            string             `json:"period"`
		MonthName         string             `json:"monthName"`
		Income            string             `json:"income"`
		Expenses          string             `json:"expenses"`
		Balance           string             `json:"balance"`
		CumulativeBalance string             `json:"cumulativeBalance"`
		Count             int                `json:"count"`
		ByCategory        []categoryResponse `json:"byCategory"`
		TopCategories     []categoryResponse `json:"topCategories"`
		Daily             []dailyResponse    `json:"daily"`
	}

	categoryResponse struct {
		Category string  `json:"category"`
		Amount   string  `json:"amount"`
		Percent  float64 `json:"percent"`
	}

	dailyResponse struct {
		Day    int    `json:"day"`
		Amount string `json:"amount"`
	}
)

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	out := transactionResponse{
		ID:          tx.ID,
		Type:        string(tx.Type),
		Amount:      tx.Amount.String(),
		Description: tx.Description,
		Category:    tx.Category,
		Date:        tx.Date.String(),
		CreatedBy:   tx.CreatedBy,
		CreatedAt:   stamp(tx.CreatedAt),
		EditedBy:    tx.EditedBy,
		EditedAt:    stamp(tx.EditedAt),
	}
	for _, e := range tx.EditHistory {
		entry := editResponse{
			EditedBy: e.EditedBy,
			EditedAt: stamp(e.EditedAt),
		}
		for _, c := range e.Changes {
			entry.Changes = append(entry.Changes, changeResponse{
				Field:    c.Field,
				OldValue: c.OldValue,
				NewValue: c.NewValue,
			})
		}
		out.EditHistory = append(out.EditHistory, entry)
	}
	return out
}

func toCategoryResponses(cats []core.CategoryAmount) []categoryResponse {
	out := make([]categoryResponse, len(cats))
	for i, c := range cats {
		out[i] = categoryResponse{
			Category: c.Category,
			Amount:   c.Amount.String(),
			Percent:  c.Percent,
		}
	}
	return out
}

func toReportResponse(r core.MonthlyReport) reportResponse {
	out := reportResponse{
		Period:            r.Period.String(),
		MonthName:         r.Period.MonthName(),
		Income:            r.Income.String(),
		Expenses:          r.Expenses.String(),
		Balance:           r.Balance.String(),
		CumulativeBalance: r.CumulativeBalance.String(),
		Count:             r.Count,
		ByCategory:        toCategoryResponses(r.ByCategory),
		TopCategories:     toCategoryResponses(r.TopCategories(5)),
	}
	for _, d := range r.Daily {
		out.Daily = append(out.Daily, dailyResponse{Day: d.Day, Amount: d.Amount.String()})
	}
	return out
}

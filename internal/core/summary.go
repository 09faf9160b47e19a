package core

import (
	"math"
	"sort"
)

type (
	// CategoryAmount is an expense total for one category within a period.
	CategoryAmount struct {
		Category string
		Amount   Money
		Percent  float64 // share of the period's expenses, one decimal
	}

	// DayAmount is the expense total for one day of the month.
	DayAmount struct {
		Day    int
		Amount Money
	}

	// MonthlyReport is the derived dashboard view for a single period. It is
	// never persisted; it is recomputed from the transaction set on demand.
	MonthlyReport struct {
		Period            Period
		Income            Money
		Expenses          Money
		Balance           Money
		CumulativeBalance Money // carried forward across all prior months
		Count             int
		ByCategory        []CategoryAmount // expenses only, descending by amount
		Daily             []DayAmount      // one entry per calendar day of the month
	}
)

// BuildMonthlyReport derives the dashboard statistics for the given period.
//
// It is a pure function of its inputs: same transactions and period always
// produce the same report. All arithmetic is in cents; percentages are the
// only floating-point values and are rounded to one decimal at the boundary.
//
// The daily series always covers every calendar day of the month, zero-filled
// for days without expenses, so a renderer never has to special-case gaps.
func BuildMonthlyReport(txs []Transaction, period Period) MonthlyReport {
	r := MonthlyReport{Period: period}

	byCategory := make(map[string]int64)
	daily := make([]DayAmount, period.Days())
	for i := range daily {
		daily[i].Day = i + 1
	}

	var priorSigned int64
	for _, tx := range txs {
		if tx.Date.BeforePeriod(period) {
			switch tx.Type {
			case Income:
				priorSigned += tx.Amount.Cents
			case Expense:
				priorSigned -= tx.Amount.Cents
			}
			continue
		}
		if !period.Contains(tx.Date) {
			continue
		}

		r.Count++
		switch tx.Type {
		case Income:
			r.Income = r.Income.Add(tx.Amount)
		case Expense:
			r.Expenses = r.Expenses.Add(tx.Amount)
			byCategory[tx.Category] += tx.Amount.Cents
			day := tx.Date.Day()
			if day >= 1 && day <= len(daily) {
				daily[day-1].Amount = daily[day-1].Amount.Add(tx.Amount)
			}
		}
	}

	r.Balance = r.Income.Sub(r.Expenses)
	r.CumulativeBalance = Money{Cents: priorSigned + r.Balance.Cents}
	r.Daily = daily

	for category, cents := range byCategory {
		ca := CategoryAmount{Category: category, Amount: Money{Cents: cents}}
		if r.Expenses.Cents > 0 {
			pct := float64(cents) / float64(r.Expenses.Cents) * 100
			ca.Percent = math.Round(pct*10) / 10
		}
		r.ByCategory = append(r.ByCategory, ca)
	}
	sort.Slice(r.ByCategory, func(i, j int) bool {
		a, b := r.ByCategory[i], r.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Category < b.Category
	})

	return r
}

// TopCategories returns up to n categories for summary views.
func (r MonthlyReport) TopCategories(n int) []CategoryAmount {
	if n > len(r.ByCategory) {
		n = len(r.ByCategory)
	}
	return r.ByCategory[:n]
}

// FilterByPeriod returns the transactions whose date falls within the period,
// ordered by date descending (newest first, the ledger display order).
func FilterByPeriod(txs []Transaction, period Period) []Transaction {
	var out []Transaction
	for _, tx := range txs {
		if period.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Time.After(out[j].Date.Time)
	})
	return out
}

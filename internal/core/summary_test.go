package core

import (
	"math"
	"testing"
)

func tx(typ TransactionType, cents int64, category, date string) Transaction {
	d, err := ParseDate(date)
	if err != nil {
		panic(err)
	}
	return Transaction{
		ID:          date + "/" + category,
		Type:        typ,
		Amount:      Money{Cents: cents},
		Description: category,
		Category:    category,
		Date:        d,
	}
}

func TestBuildMonthlyReportScenario(t *testing.T) {
	// Reference scenario: one salary, one grocery run, May 2024.
	txs := []Transaction{
		tx(Income, 5000000, "Salary", "2024-05-01"),
		tx(Expense, 350000, "Food", "2024-05-02"),
	}
	p, _ := ParsePeriod("2024-05")

	r := BuildMonthlyReport(txs, p)

	if r.Income.String() != "50000.00" {
		t.Fatalf("income: expected 50000.00, got %s", r.Income)
	}
	if r.Expenses.String() != "3500.00" {
		t.Fatalf("expenses: expected 3500.00, got %s", r.Expenses)
	}
	if r.Balance.String() != "46500.00" {
		t.Fatalf("balance: expected 46500.00, got %s", r.Balance)
	}
	if r.Count != 2 {
		t.Fatalf("count: expected 2, got %d", r.Count)
	}
	if len(r.ByCategory) != 1 {
		t.Fatalf("expected single category, got %+v", r.ByCategory)
	}
	food := r.ByCategory[0]
	if food.Category != "Food" || food.Amount.String() != "3500.00" || food.Percent != 100 {
		t.Fatalf("unexpected breakdown: %+v", food)
	}
	if len(r.Daily) != 31 {
		t.Fatalf("May has 31 days, got %d", len(r.Daily))
	}
	for _, d := range r.Daily {
		want := int64(0)
		if d.Day == 2 {
			want = 350000
		}
		if d.Amount.Cents != want {
			t.Fatalf("day %d: expected %d cents, got %d", d.Day, want, d.Amount.Cents)
		}
	}
}

func TestBuildMonthlyReportFiltersByPeriod(t *testing.T) {
	txs := []Transaction{
		tx(Expense, 100, "Food", "2024-04-30"),
		tx(Expense, 200, "Food", "2024-05-01"),
		tx(Expense, 400, "Food", "2024-06-01"),
	}
	p, _ := ParsePeriod("2024-05")

	r := BuildMonthlyReport(txs, p)
	if r.Count != 1 || r.Expenses.Cents != 200 {
		t.Fatalf("only the in-period transaction counts: %+v", r)
	}
}

func TestBuildMonthlyReportCumulativeBalance(t *testing.T) {
	txs := []Transaction{
		tx(Income, 10000, "Salary", "2024-03-01"),
		tx(Expense, 4000, "Food", "2024-04-15"),
		tx(Income, 2000, "Gift", "2024-05-10"),
		tx(Expense, 500, "Bills", "2024-05-20"),
		tx(Expense, 99999, "Food", "2024-06-01"), // future month, excluded
	}
	p, _ := ParsePeriod("2024-05")

	r := BuildMonthlyReport(txs, p)
	if r.Balance.Cents != 1500 {
		t.Fatalf("period balance: expected 1500, got %d", r.Balance.Cents)
	}
	// 10000 - 4000 carried forward, plus 1500 for the period.
	if r.CumulativeBalance.Cents != 7500 {
		t.Fatalf("cumulative balance: expected 7500, got %d", r.CumulativeBalance.Cents)
	}
}

func TestBuildMonthlyReportLeapFebruary(t *testing.T) {
	p, _ := ParsePeriod("2024-02")
	r := BuildMonthlyReport(nil, p)
	if len(r.Daily) != 29 {
		t.Fatalf("February 2024 has 29 days, got %d", len(r.Daily))
	}

	p, _ = ParsePeriod("2023-02")
	r = BuildMonthlyReport(nil, p)
	if len(r.Daily) != 28 {
		t.Fatalf("February 2023 has 28 days, got %d", len(r.Daily))
	}
}

func TestBuildMonthlyReportPercentagesSumTo100(t *testing.T) {
	txs := []Transaction{
		tx(Expense, 333, "Food", "2024-05-01"),
		tx(Expense, 333, "Transport", "2024-05-02"),
		tx(Expense, 334, "Bills", "2024-05-03"),
	}
	p, _ := ParsePeriod("2024-05")

	r := BuildMonthlyReport(txs, p)
	var sum float64
	for _, c := range r.ByCategory {
		sum += c.Percent
	}
	if math.Abs(sum-100) > 0.2 {
		t.Fatalf("percentages should sum to ~100, got %.2f", sum)
	}
}

func TestBuildMonthlyReportSortsCategoriesDescending(t *testing.T) {
	txs := []Transaction{
		tx(Expense, 100, "Bills", "2024-05-01"),
		tx(Expense, 900, "Food", "2024-05-02"),
		tx(Expense, 500, "Transport", "2024-05-03"),
	}
	p, _ := ParsePeriod("2024-05")

	r := BuildMonthlyReport(txs, p)
	want := []string{"Food", "Transport", "Bills"}
	for i, c := range r.ByCategory {
		if c.Category != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], c.Category)
		}
	}
	top := r.TopCategories(2)
	if len(top) != 2 || top[0].Category != "Food" {
		t.Fatalf("unexpected top categories: %+v", top)
	}
}

func TestBuildMonthlyReportDeterministic(t *testing.T) {
	txs := []Transaction{
		tx(Expense, 100, "Bills", "2024-05-01"),
		tx(Expense, 100, "Food", "2024-05-01"),
		tx(Income, 300, "Salary", "2024-05-01"),
	}
	p, _ := ParsePeriod("2024-05")

	first := BuildMonthlyReport(txs, p)
	for i := 0; i < 10; i++ {
		again := BuildMonthlyReport(txs, p)
		if len(again.ByCategory) != len(first.ByCategory) {
			t.Fatalf("nondeterministic breakdown size")
		}
		for j := range again.ByCategory {
			if again.ByCategory[j] != first.ByCategory[j] {
				t.Fatalf("nondeterministic breakdown order at %d", j)
			}
		}
	}
}

func TestFilterByPeriod(t *testing.T) {
	txs := []Transaction{
		tx(Expense, 100, "Food", "2024-05-01"),
		tx(Expense, 200, "Bills", "2024-05-15"),
		tx(Expense, 300, "Food", "2024-04-01"),
	}
	p, _ := ParsePeriod("2024-05")

	got := FilterByPeriod(txs, p)
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(got))
	}
	if !got[0].Date.After(got[1].Date) {
		t.Fatalf("expected newest first: %v, %v", got[0].Date, got[1].Date)
	}
}

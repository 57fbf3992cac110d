package core

import (
	"sort"
	"time"
)

// NoDataLabel is the sentinel bucket returned by expense-by-category when no
// expense has a resolvable category.
const NoDataLabel = "Veri yok"

// MonthLabels is the fixed month-name table for chart series, indexed by
// (month number − 1) mod 12.
var MonthLabels = [12]string{
	"Oca", "Şub", "Mar", "Nis", "May", "Haz",
	"Tem", "Ağu", "Eyl", "Eki", "Kas", "Ara",
}

type (
	// DashboardStats summarizes the current calendar month.
	DashboardStats struct {
		TotalIncome  Money
		TotalExpense Money
		Balance      Money
	}

	// CategoryTotal is an expense sum for one category name.
	CategoryTotal struct {
		Name  string
		Total Money
	}

	// MonthlyPoint is one month of the expense trend series.
	MonthlyPoint struct {
		Label string
		Total Money
	}
)

// MonthLabel returns the chart label for a 1-based month number.
func MonthLabel(month int) string {
	return MonthLabels[(month-1)%12]
}

// ComputeDashboardStats sums income and expense amounts of transactions dated
// in the calendar month of now. Anything outside that month is excluded; this
// is a hard month boundary, not a rolling window.
func ComputeDashboardStats(txs []Transaction, now time.Time) DashboardStats {
	var stats DashboardStats
	for _, tx := range txs {
		if !tx.Date.SameMonth(now) {
			continue
		}
		switch tx.Type {
		case Income:
			stats.TotalIncome.Cents += tx.Amount.Cents
		case Expense:
			stats.TotalExpense.Cents += tx.Amount.Cents
		}
	}
	stats.Balance.Cents = stats.TotalIncome.Cents - stats.TotalExpense.Cents
	return stats
}

// ComputeExpenseByCategory sums expense amounts grouped by category name,
// descending by total. Transactions without a resolvable category are skipped;
// when nothing remains the sentinel "no data" bucket is returned alone.
func ComputeExpenseByCategory(txs []Transaction) []CategoryTotal {
	sums := make(map[string]int64)
	for _, tx := range txs {
		if tx.Type != Expense || tx.CategoryName == "" {
			continue
		}
		sums[tx.CategoryName] += tx.Amount.Cents
	}
	if len(sums) == 0 {
		return []CategoryTotal{{Name: NoDataLabel}}
	}

	out := make([]CategoryTotal, 0, len(sums))
	for name, cents := range sums {
		out = append(out, CategoryTotal{Name: name, Total: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ComputeMonthlyExpenses sums expense amounts per calendar month over the
// trailing six months ending with the month of now, in chronological order.
// Months without expenses are omitted from the series.
func ComputeMonthlyExpenses(txs []Transaction, now time.Time) []MonthlyPoint {
	type bucket struct{ year, month int }
	sums := make(map[bucket]int64)
	for _, tx := range txs {
		if tx.Type != Expense {
			continue
		}
		sums[bucket{tx.Date.Year(), int(tx.Date.Month())}] += tx.Amount.Cents
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -5, 0)
	var out []MonthlyPoint
	for i := 0; i < 6; i++ {
		m := start.AddDate(0, i, 0)
		cents, ok := sums[bucket{m.Year(), int(m.Month())}]
		if !ok {
			continue
		}
		out = append(out, MonthlyPoint{
			Label: MonthLabel(int(m.Month())),
			Total: Money{Cents: cents},
		})
	}
	return out
}

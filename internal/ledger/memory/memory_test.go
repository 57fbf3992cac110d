package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"budgetify/internal/core"
	"budgetify/internal/ledger"
)

func TestListTransactionsDeterministic(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.ListTransactions(ctx, 7, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) != 5 {
		t.Fatalf("got %d transactions want 5", len(first))
	}

	// Writes must not change what reads return.
	if _, err := s.AddTransaction(ctx, 7, core.NewTransaction{
		Amount: core.Money{Cents: 100},
		Type:   core.Expense,
		Date:   core.NewDate(2024, 5, 20),
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	again, err := s.ListTransactions(ctx, 7, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(again) != len(first) {
		t.Fatalf("canned dataset changed: %d != %d", len(again), len(first))
	}
	for i := range first {
		if first[i].ID != again[i].ID {
			t.Fatalf("row %d order changed", i)
		}
	}
}

func TestListTransactionsOrderingAndLimit(t *testing.T) {
	s := New()
	txs, err := s.ListTransactions(context.Background(), 1, ledger.RecentLimit)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i := 1; i < len(txs); i++ {
		prev, cur := txs[i-1], txs[i]
		if cur.Date.After(prev.Date.Time) {
			t.Fatalf("row %d out of date order", i)
		}
		if cur.Date.Equal(prev.Date.Time) && cur.CreatedAt.After(prev.CreatedAt) {
			t.Fatalf("row %d out of created_at order", i)
		}
	}

	short, _ := s.ListTransactions(context.Background(), 1, 2)
	if len(short) != 2 {
		t.Fatalf("limit 2 returned %d rows", len(short))
	}
}

func TestRegisterThenLogin(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.FindByEmail(ctx, "a@x.com"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	u, err := s.InsertUser(ctx, "A@X.com", "hash", "Ayşe")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if u.Email != "a@x.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}

	found, err := s.FindByEmail(ctx, "a@X.COM")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != u.ID {
		t.Fatalf("got user %d want %d", found.ID, u.ID)
	}

	if _, err := s.InsertUser(ctx, "a@x.com", "other", "Ayşe"); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestDefaultCategoriesProtected(t *testing.T) {
	s := New()
	ctx := context.Background()

	cats, err := s.ListCategories(ctx, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cats) != 5 {
		t.Fatalf("got %d categories want 5", len(cats))
	}
	for i, c := range cats {
		if !c.IsDefault {
			t.Fatalf("category %d not flagged default", i)
		}
		if err := s.DeleteCategory(ctx, c.ID, 3); !errors.Is(err, core.ErrForbidden) {
			t.Fatalf("category %d expected forbidden, got %v", i, err)
		}
	}

	if err := s.DeleteCategory(ctx, 42, 3); err != nil {
		t.Fatalf("non-default delete: %v", err)
	}
}

func TestStatsFixtures(t *testing.T) {
	s := New()
	ctx := context.Background()

	stats, err := s.DashboardStats(ctx, 1, time.Now())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Balance.Cents != stats.TotalIncome.Cents-stats.TotalExpense.Cents {
		t.Fatalf("balance %d violates income-expense", stats.Balance.Cents)
	}

	byCat, err := s.ExpenseByCategory(ctx, 1)
	if err != nil {
		t.Fatalf("by category: %v", err)
	}
	for i := 1; i < len(byCat); i++ {
		if byCat[i].Total.Cents > byCat[i-1].Total.Cents {
			t.Fatalf("bucket %d out of order", i)
		}
	}

	monthly, err := s.MonthlyExpenses(ctx, 1, time.Now())
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if len(monthly) != 6 {
		t.Fatalf("got %d points want 6", len(monthly))
	}
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budgetify/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "budgetify.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func registerUser(t *testing.T, repo *SQLiteRepository, email string) *core.User {
	t.Helper()
	u, err := repo.InsertUser(context.Background(), email, "hash-"+email, "Test User")
	if err != nil {
		t.Fatalf("insert user %s: %v", email, err)
	}
	return u
}

func addExpense(t *testing.T, repo *SQLiteRepository, userID int64, cents int64, catID *int64, d core.Date) *core.Transaction {
	t.Helper()
	tx, err := repo.AddTransaction(context.Background(), userID, core.NewTransaction{
		CategoryID: catID,
		Amount:     core.Money{Cents: cents},
		Type:       core.Expense,
		Date:       d,
	})
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
	return tx
}

func TestRegistrationCreatesDefaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := registerUser(t, repo, "a@x.com")

	byID, err := repo.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Email != "a@x.com" {
		t.Fatalf("find by id returned %q", byID.Email)
	}
	if _, err := repo.FindByID(ctx, u.ID+1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing id: got %v", err)
	}

	cats, err := repo.ListCategories(ctx, u.ID)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) != 5 {
		t.Fatalf("got %d categories want 5", len(cats))
	}
	for i, c := range cats {
		if !c.IsDefault {
			t.Fatalf("category %d (%s) not flagged default", i, c.Name)
		}
		if c.UserID != u.ID {
			t.Fatalf("category %d owned by %d want %d", i, c.UserID, u.ID)
		}
	}
}

func TestRegistrationConflict(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	registerUser(t, repo, "a@x.com")

	// Case-insensitive duplicate; the failed attempt must leave nothing behind.
	_, err := repo.InsertUser(ctx, "A@X.COM", "other", "Other")
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	var total int
	if err := repo.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if total != 1 {
		t.Fatalf("got %d users want 1", total)
	}
	if err := repo.db.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&total); err != nil {
		t.Fatalf("count categories: %v", err)
	}
	if total != 5 {
		t.Fatalf("got %d categories want 5 (no partial insert)", total)
	}
}

func TestFindByEmailCaseInsensitive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := registerUser(t, repo, "Ayse@Example.com")
	if u.Email != "ayse@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}

	found, err := repo.FindByEmail(ctx, "AYSE@EXAMPLE.COM")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != u.ID {
		t.Fatalf("got user %d want %d", found.ID, u.ID)
	}

	if _, err := repo.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListTransactionsOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := registerUser(t, repo, "a@x.com")

	addExpense(t, repo, u.ID, 100, nil, core.NewDate(2025, 5, 1))
	second := addExpense(t, repo, u.ID, 200, nil, core.NewDate(2025, 5, 10))
	third := addExpense(t, repo, u.ID, 300, nil, core.NewDate(2025, 5, 10))

	txs, err := repo.ListTransactions(ctx, u.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d rows want 3", len(txs))
	}
	// Same date: newest created_at first.
	if txs[0].ID != third.ID || txs[1].ID != second.ID {
		t.Fatalf("unexpected order: %d, %d, %d", txs[0].ID, txs[1].ID, txs[2].ID)
	}

	recent, err := repo.ListTransactions(ctx, u.ID, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("limit 2 returned %d rows", len(recent))
	}
}

func TestAddTransactionValidation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := registerUser(t, repo, "a@x.com")

	cases := []core.NewTransaction{
		{Amount: core.Money{Cents: 0}, Type: core.Expense, Date: core.NewDate(2025, 5, 1)},
		{Amount: core.Money{Cents: 100}, Type: core.Expense},
		{Amount: core.Money{Cents: 100}, Type: "other", Date: core.NewDate(2025, 5, 1)},
	}
	for i, in := range cases {
		if _, err := repo.AddTransaction(ctx, u.ID, in); !errors.Is(err, core.ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestAddTransactionForeignCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := registerUser(t, repo, "alice@x.com")
	bob := registerUser(t, repo, "bob@x.com")

	bobCats, err := repo.ListCategories(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}

	_, err = repo.AddTransaction(ctx, alice.ID, core.NewTransaction{
		CategoryID: &bobCats[0].ID,
		Amount:     core.Money{Cents: 100},
		Type:       core.Expense,
		Date:       core.NewDate(2025, 5, 1),
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for foreign category, got %v", err)
	}
}

func TestDeleteTransactionOwnerScoped(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := registerUser(t, repo, "alice@x.com")
	bob := registerUser(t, repo, "bob@x.com")

	tx := addExpense(t, repo, alice.ID, 100, nil, core.NewDate(2025, 5, 1))

	// Bob cannot delete Alice's row; he gets the same answer as for a
	// nonexistent one.
	if err := repo.DeleteTransaction(ctx, tx.ID, bob.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := repo.GetTransaction(ctx, tx.ID, alice.ID); err != nil {
		t.Fatalf("alice's transaction should be intact: %v", err)
	}

	if err := repo.DeleteTransaction(ctx, tx.ID, alice.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	// Idempotent from the caller's view: a second delete is a no-op miss.
	if err := repo.DeleteTransaction(ctx, tx.ID, alice.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on repeat delete, got %v", err)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := registerUser(t, repo, "a@x.com")

	added, err := repo.AddCategory(ctx, u.ID, core.NewCategory{Name: "Seyahat", Color: "#38BDF8", Emoji: "✈️"})
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	if added.IsDefault {
		t.Fatalf("user-created category must not be default")
	}

	updated, err := repo.UpdateCategory(ctx, added.ID, u.ID, core.NewCategory{Name: "Tatil", Color: "#38BDF8", Emoji: "🏖️"})
	if err != nil {
		t.Fatalf("update category: %v", err)
	}
	if updated.Name != "Tatil" {
		t.Fatalf("got name %q want Tatil", updated.Name)
	}

	if err := repo.DeleteCategory(ctx, added.ID, u.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if _, err := repo.UpdateCategory(ctx, added.ID, u.ID, core.NewCategory{Name: "X"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestCategoryListOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := registerUser(t, repo, "a@x.com")

	if _, err := repo.AddCategory(ctx, u.ID, core.NewCategory{Name: "Aaa Özel"}); err != nil {
		t.Fatalf("add category: %v", err)
	}

	cats, err := repo.ListCategories(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cats) != 6 {
		t.Fatalf("got %d categories want 6", len(cats))
	}
	// Defaults first, then alphabetical user categories.
	for i := 0; i < 5; i++ {
		if !cats[i].IsDefault {
			t.Fatalf("position %d expected a default category, got %q", i, cats[i].Name)
		}
	}
	if cats[5].Name != "Aaa Özel" {
		t.Fatalf("last category %q, want the user-created one", cats[5].Name)
	}
}

func TestDeleteDefaultCategoryForbidden(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := registerUser(t, repo, "a@x.com")

	cats, err := repo.ListCategories(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, c := range cats {
		if err := repo.DeleteCategory(ctx, c.ID, u.ID); !errors.Is(err, core.ErrForbidden) {
			t.Fatalf("category %d expected forbidden, got %v", i, err)
		}
	}

	other := registerUser(t, repo, "b@x.com")
	// Cross-owner delete is a plain miss, not a forbidden: no existence leak.
	if err := repo.DeleteCategory(ctx, cats[0].ID, other.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDashboardStatsCurrentMonthOnly(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := registerUser(t, repo, "a@x.com")
	now := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

	cats, _ := repo.ListCategories(ctx, u.ID)
	market := cats[0].ID

	addExpense(t, repo, u.ID, 95000, &market, core.NewDate(2025, 5, 12))
	addExpense(t, repo, u.ID, 50000, nil, core.NewDate(2025, 4, 30)) // outside month

	stats, err := repo.DashboardStats(ctx, u.ID, now)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalExpense.Cents != 95000 {
		t.Fatalf("expense got %d want 95000", stats.TotalExpense.Cents)
	}
	if stats.TotalIncome.Cents != 0 {
		t.Fatalf("income got %d want 0", stats.TotalIncome.Cents)
	}
	if stats.Balance.Cents != -95000 {
		t.Fatalf("balance got %d want -95000", stats.Balance.Cents)
	}
}

func TestExpenseByCategoryOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := registerUser(t, repo, "a@x.com")

	x, err := repo.AddCategory(ctx, u.ID, core.NewCategory{Name: "X"})
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	y, err := repo.AddCategory(ctx, u.ID, core.NewCategory{Name: "Y"})
	if err != nil {
		t.Fatalf("add category: %v", err)
	}

	addExpense(t, repo, u.ID, 10000, &x.ID, core.NewDate(2025, 5, 1))
	addExpense(t, repo, u.ID, 20000, &y.ID, core.NewDate(2025, 5, 2))
	addExpense(t, repo, u.ID, 30000, &x.ID, core.NewDate(2025, 5, 3))

	got, err := repo.ExpenseByCategory(ctx, u.ID)
	if err != nil {
		t.Fatalf("by category: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d buckets want 2", len(got))
	}
	if got[0].Name != "X" || got[0].Total.Cents != 40000 {
		t.Fatalf("first bucket %+v, want X/40000", got[0])
	}
	if got[1].Name != "Y" || got[1].Total.Cents != 20000 {
		t.Fatalf("second bucket %+v, want Y/20000", got[1])
	}
}

func TestExpenseByCategoryEmpty(t *testing.T) {
	repo := newTestRepo(t)
	u := registerUser(t, repo, "a@x.com")

	got, err := repo.ExpenseByCategory(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("by category: %v", err)
	}
	if len(got) != 1 || got[0].Name != core.NoDataLabel {
		t.Fatalf("got %+v, want single %q bucket", got, core.NoDataLabel)
	}
}

func TestMonthlyExpensesWindow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := registerUser(t, repo, "a@x.com")
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	addExpense(t, repo, u.ID, 10000, nil, core.NewDate(2025, 1, 10))
	addExpense(t, repo, u.ID, 20000, nil, core.NewDate(2025, 3, 5))
	addExpense(t, repo, u.ID, 30000, nil, core.NewDate(2025, 6, 1))
	addExpense(t, repo, u.ID, 99900, nil, core.NewDate(2024, 12, 1)) // outside window

	got, err := repo.MonthlyExpenses(ctx, u.ID, now)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	want := []core.MonthlyPoint{
		{Label: "Oca", Total: core.Money{Cents: 10000}},
		{Label: "Mar", Total: core.Money{Cents: 20000}},
		{Label: "Haz", Total: core.Money{Cents: 30000}},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("point %d got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestOwnerIsolationOnReads(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := registerUser(t, repo, "alice@x.com")
	bob := registerUser(t, repo, "bob@x.com")

	addExpense(t, repo, alice.ID, 100, nil, core.NewDate(2025, 5, 1))

	txs, err := repo.ListTransactions(ctx, bob.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("bob sees %d of alice's rows", len(txs))
	}

	cats, err := repo.ListCategories(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	for i, c := range cats {
		if c.UserID != bob.ID {
			t.Fatalf("category %d owned by %d", i, c.UserID)
		}
	}
}

func TestPendingSyncLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := registerUser(t, repo, "a@x.com")

	tx := addExpense(t, repo, u.ID, 100, nil, core.NewDate(2025, 5, 1))

	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != tx.ID || pending[0].UserID != u.ID {
		t.Fatalf("unexpected pending set %+v", pending)
	}

	if err := repo.MarkSynced(ctx, tx.ID); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, err = repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("still %d pending after sync", len(pending))
	}
}

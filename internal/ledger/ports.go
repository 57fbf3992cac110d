package ledger

import (
	"context"
	"time"

	"budgetify/internal/core"
)

// Default listing limits. Recent views use RecentLimit.
const (
	DefaultListLimit = 100
	RecentLimit      = 5
)

// Ports for the storage adapters. Every operation is scoped by the owning
// user: no call path exists that can read or mutate another user's rows.
type (
	// CredentialStore persists user identity and password hashes.
	CredentialStore interface {
		// FindByEmail looks a user up by case-insensitive email.
		// Returns core.ErrNotFound when no such user exists.
		FindByEmail(ctx context.Context, email string) (*core.User, error)

		// FindByID looks a user up by primary key. Returns
		// core.ErrNotFound when no such user exists.
		FindByID(ctx context.Context, id int64) (*core.User, error)

		// InsertUser creates a user together with the five default
		// categories in a single transactional scope. Returns
		// core.ErrConflict when the email is already registered.
		InsertUser(ctx context.Context, email, passwordHash, fullName string) (*core.User, error)
	}

	// Store persists categories and transactions.
	Store interface {
		ListTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error)
		AddTransaction(ctx context.Context, userID int64, in core.NewTransaction) (*core.Transaction, error)
		// DeleteTransaction removes an owned transaction. A miss, including
		// another user's row, is core.ErrNotFound.
		DeleteTransaction(ctx context.Context, id, userID int64) error

		ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
		AddCategory(ctx context.Context, userID int64, in core.NewCategory) (*core.Category, error)
		UpdateCategory(ctx context.Context, id, userID int64, in core.NewCategory) (*core.Category, error)
		// DeleteCategory refuses default categories with core.ErrForbidden.
		DeleteCategory(ctx context.Context, id, userID int64) error
	}

	// StatsReader computes derived statistics. Results always reflect the
	// stored rows at call time; implementations never cache.
	StatsReader interface {
		DashboardStats(ctx context.Context, userID int64, now time.Time) (core.DashboardStats, error)
		ExpenseByCategory(ctx context.Context, userID int64) ([]core.CategoryTotal, error)
		MonthlyExpenses(ctx context.Context, userID int64, now time.Time) ([]core.MonthlyPoint, error)
	}
)

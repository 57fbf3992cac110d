package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budgetify/internal/core"
	"budgetify/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the live backend. It implements the credential, ledger
// and stats ports; every statement binds the owning user so cross-owner access
// is impossible at the query level.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ledger.CredentialStore = (*SQLiteRepository)(nil)
	_ ledger.Store           = (*SQLiteRepository)(nil)
	_ ledger.StatsReader     = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- credentials -----------------------------------------------------------

func (r *SQLiteRepository) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, password_hash, created_at FROM users WHERE email = ?`,
		email,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, core.StorageErrorf("find user by email", err)
	}
	return &u, nil
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (*core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, password_hash, created_at FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, core.StorageErrorf("find user by id", err)
	}
	return &u, nil
}

// InsertUser creates the user row and the five default categories in one
// transaction: a failure partway leaves no partial user record.
func (r *SQLiteRepository) InsertUser(ctx context.Context, email, passwordHash, fullName string) (*core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, core.StorageErrorf("begin registration", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (email, full_name, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		email, fullName, passwordHash, now,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: email already registered", core.ErrConflict)
	}
	if err != nil {
		return nil, core.StorageErrorf("insert user", err)
	}
	userID, err := res.LastInsertId()
	if err != nil {
		return nil, core.StorageErrorf("insert user", err)
	}

	for _, c := range core.DefaultCategories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (user_id, name, color, emoji, is_default) VALUES (?, ?, ?, ?, 1)`,
			userID, c.Name, c.Color, c.Emoji,
		); err != nil {
			return nil, core.StorageErrorf("insert default category", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, core.StorageErrorf("commit registration", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", userID, "email", email)
	return &core.User{
		ID:           userID,
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}, nil
}

// --- transactions ----------------------------------------------------------

const transactionColumns = `
	t.id, t.user_id, t.category_id, t.amount_cents, t.currency, t.type,
	t.date, t.description, t.created_at,
	COALESCE(c.name, ''), COALESCE(c.color, ''), COALESCE(c.emoji, '')`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		tx      core.Transaction
		catID   sql.NullInt64
		dateStr string
	)
	err := row.Scan(
		&tx.ID, &tx.UserID, &catID, &tx.Amount.Cents, &tx.Currency, &tx.Type,
		&dateStr, &tx.Description, &tx.CreatedAt,
		&tx.CategoryName, &tx.CategoryColor, &tx.CategoryEmoji,
	)
	if err != nil {
		return core.Transaction{}, err
	}
	if catID.Valid {
		id := catID.Int64
		tx.CategoryID = &id
	}
	d, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date %q: %w", dateStr, err)
	}
	tx.Date = d
	return tx, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = ledger.DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN categories c ON t.category_id = c.id
		WHERE t.user_id = ?
		ORDER BY t.date DESC, t.created_at DESC, t.id DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, core.StorageErrorf("list transactions", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, core.StorageErrorf("scan transaction", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageErrorf("list transactions", err)
	}
	return out, nil
}

// GetTransaction fetches a single owned transaction, used by the backup worker.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id, userID int64) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN categories c ON t.category_id = c.id
		WHERE t.id = ? AND t.user_id = ?`,
		id, userID,
	)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, core.StorageErrorf("get transaction", err)
	}
	return &tx, nil
}

func (r *SQLiteRepository) AddTransaction(ctx context.Context, userID int64, in core.NewTransaction) (*core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	// A referenced category must belong to the same user.
	if in.CategoryID != nil {
		var n int
		err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM categories WHERE id = ? AND user_id = ?`,
			*in.CategoryID, userID,
		).Scan(&n)
		if err != nil {
			return nil, core.StorageErrorf("check category owner", err)
		}
		if n == 0 {
			return nil, core.ValidationErrorf("category %d not found for user", *in.CategoryID)
		}
	}

	currency := in.Currency
	if currency == "" {
		currency = core.DefaultCurrency
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, category_id, amount_cents, currency, type, date, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, in.CategoryID, in.Amount.Cents, currency, string(in.Type),
		in.Date.String(), in.Description, time.Now().UTC(),
	)
	if err != nil {
		return nil, core.StorageErrorf("insert transaction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, core.StorageErrorf("insert transaction", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"user_id", userID,
		"type", string(in.Type),
		"amount_cents", in.Amount.Cents,
		"date", in.Date.String())

	return r.GetTransaction(ctx, id, userID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return core.StorageErrorf("delete transaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.StorageErrorf("delete transaction", err)
	}
	if n == 0 {
		// Absent and not-owned are deliberately indistinguishable.
		return core.ErrNotFound
	}
	return nil
}

// --- categories ------------------------------------------------------------

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, color, emoji, is_default
		FROM categories
		WHERE user_id = ?
		ORDER BY is_default DESC, name ASC`,
		userID,
	)
	if err != nil {
		return nil, core.StorageErrorf("list categories", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.Emoji, &c.IsDefault); err != nil {
			return nil, core.StorageErrorf("scan category", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageErrorf("list categories", err)
	}
	return out, nil
}

func (r *SQLiteRepository) AddCategory(ctx context.Context, userID int64, in core.NewCategory) (*core.Category, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, color, emoji, is_default) VALUES (?, ?, ?, ?, 0)`,
		userID, name, in.Color, in.Emoji,
	)
	if err != nil {
		return nil, core.StorageErrorf("insert category", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, core.StorageErrorf("insert category", err)
	}

	return &core.Category{ID: id, UserID: userID, Name: name, Color: in.Color, Emoji: in.Emoji}, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, id, userID int64, in core.NewCategory) (*core.Category, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, color = ?, emoji = ? WHERE id = ? AND user_id = ?`,
		name, in.Color, in.Emoji, id, userID,
	)
	if err != nil {
		return nil, core.StorageErrorf("update category", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, core.StorageErrorf("update category", err)
	}
	if n == 0 {
		return nil, core.ErrNotFound
	}

	var c core.Category
	err = r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, color, emoji, is_default FROM categories WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.Emoji, &c.IsDefault)
	if err != nil {
		return nil, core.StorageErrorf("reload category", err)
	}
	return &c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id, userID int64) error {
	var isDefault bool
	err := r.db.QueryRowContext(ctx,
		`SELECT is_default FROM categories WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&isDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return core.StorageErrorf("load category", err)
	}
	if isDefault {
		return fmt.Errorf("%w: default categories cannot be deleted", core.ErrForbidden)
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ? AND is_default = 0`,
		id, userID,
	)
	if err != nil {
		return core.StorageErrorf("delete category", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.StorageErrorf("delete category", err)
	}
	if n == 0 {
		// Raced with another delete; degrade to not-found.
		return core.ErrNotFound
	}
	return nil
}

// --- statistics ------------------------------------------------------------

func (r *SQLiteRepository) DashboardStats(ctx context.Context, userID int64, now time.Time) (core.DashboardStats, error) {
	var stats core.DashboardStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END), 0)
		FROM transactions
		WHERE user_id = ? AND strftime('%Y-%m', date) = ?`,
		userID, now.Format("2006-01"),
	).Scan(&stats.TotalIncome.Cents, &stats.TotalExpense.Cents)
	if err != nil {
		return core.DashboardStats{}, core.StorageErrorf("dashboard stats", err)
	}
	stats.Balance.Cents = stats.TotalIncome.Cents - stats.TotalExpense.Cents
	return stats, nil
}

func (r *SQLiteRepository) ExpenseByCategory(ctx context.Context, userID int64) ([]core.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.name, COALESCE(SUM(t.amount_cents), 0)
		FROM transactions t
		JOIN categories c ON t.category_id = c.id
		WHERE t.user_id = ? AND t.type = 'expense'
		GROUP BY c.name
		ORDER BY 2 DESC, c.name ASC`,
		userID,
	)
	if err != nil {
		return nil, core.StorageErrorf("expense by category", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Name, &ct.Total.Cents); err != nil {
			return nil, core.StorageErrorf("scan category total", err)
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageErrorf("expense by category", err)
	}
	if len(out) == 0 {
		out = []core.CategoryTotal{{Name: core.NoDataLabel}}
	}
	return out, nil
}

func (r *SQLiteRepository) MonthlyExpenses(ctx context.Context, userID int64, now time.Time) ([]core.MonthlyPoint, error) {
	windowStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -5, 0)

	rows, err := r.db.QueryContext(ctx, `
		SELECT strftime('%m', date), COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE user_id = ? AND type = 'expense' AND date >= ?
		GROUP BY strftime('%Y-%m', date)
		ORDER BY strftime('%Y-%m', date) ASC`,
		userID, windowStart.Format("2006-01-02"),
	)
	if err != nil {
		return nil, core.StorageErrorf("monthly expenses", err)
	}
	defer rows.Close()

	var out []core.MonthlyPoint
	for rows.Next() {
		var (
			month int
			cents int64
		)
		if err := rows.Scan(&month, &cents); err != nil {
			return nil, core.StorageErrorf("scan monthly point", err)
		}
		out = append(out, core.MonthlyPoint{Label: core.MonthLabel(month), Total: core.Money{Cents: cents}})
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageErrorf("monthly expenses", err)
	}
	return out, nil
}

// --- backup sync state -----------------------------------------------------

// PendingSyncTransaction is the minimal row the backup queue needs.
type PendingSyncTransaction struct {
	ID     int64
	UserID int64
}

func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id FROM transactions
		WHERE sync_status IN ('pending', 'error')
		ORDER BY created_at ASC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, core.StorageErrorf("list pending sync", err)
	}
	defer rows.Close()

	var out []PendingSyncTransaction
	for rows.Next() {
		var p PendingSyncTransaction
		if err := rows.Scan(&p.ID, &p.UserID); err != nil {
			return nil, core.StorageErrorf("scan pending sync", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced', synced_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return core.StorageErrorf("mark synced", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error' WHERE id = ?`,
		id,
	)
	if err != nil {
		return core.StorageErrorf("mark sync error", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

// Package memory is the deterministic fallback backend used when no live
// storage is configured. Reads return a fixed canned dataset so presentation
// code can be developed without a database; writes are accepted and answered
// with synthetic rows but never alter what reads return. Registered
// credentials are the one exception: they live for the process lifetime so a
// register/login round trip still works.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"budgetify/internal/core"
	"budgetify/internal/ledger"
)

type Store struct {
	mu     sync.Mutex
	users  map[string]*core.User // keyed by lowercase email
	nextID int64
}

func New() *Store {
	return &Store{
		users:  make(map[string]*core.User),
		nextID: 1000,
	}
}

var (
	_ ledger.CredentialStore = (*Store)(nil)
	_ ledger.Store           = (*Store)(nil)
	_ ledger.StatsReader     = (*Store)(nil)
)

func (s *Store) allocID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

// --- credentials -----------------------------------------------------------

func (s *Store) FindByEmail(_ context.Context, email string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) InsertUser(_ context.Context, email, passwordHash, fullName string) (*core.User, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[key]; ok {
		return nil, core.ErrConflict
	}
	s.nextID++
	u := &core.User{
		ID:           s.nextID,
		Email:        key,
		FullName:     fullName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[key] = u
	cp := *u
	return &cp, nil
}

// --- transactions ----------------------------------------------------------

func (s *Store) ListTransactions(_ context.Context, userID int64, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = ledger.DefaultListLimit
	}
	txs := cannedTransactions(userID)
	if limit < len(txs) {
		txs = txs[:limit]
	}
	return txs, nil
}

func (s *Store) AddTransaction(_ context.Context, userID int64, in core.NewTransaction) (*core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	currency := in.Currency
	if currency == "" {
		currency = core.DefaultCurrency
	}
	// Accepted but not persisted: the canned reads stay as they are.
	return &core.Transaction{
		ID:          s.allocID(),
		UserID:      userID,
		CategoryID:  in.CategoryID,
		Amount:      in.Amount,
		Currency:    currency,
		Type:        in.Type,
		Date:        in.Date,
		Description: in.Description,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id, userID int64) error {
	return nil
}

// --- categories ------------------------------------------------------------

func (s *Store) ListCategories(_ context.Context, userID int64) ([]core.Category, error) {
	cats := make([]core.Category, len(core.DefaultCategories))
	for i, c := range core.DefaultCategories {
		c.ID = int64(i + 1)
		c.UserID = userID
		cats[i] = c
	}
	return cats, nil
}

func (s *Store) AddCategory(_ context.Context, userID int64, in core.NewCategory) (*core.Category, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &core.Category{
		ID:     s.allocID(),
		UserID: userID,
		Name:   strings.TrimSpace(in.Name),
		Color:  in.Color,
		Emoji:  in.Emoji,
	}, nil
}

func (s *Store) UpdateCategory(_ context.Context, id, userID int64, in core.NewCategory) (*core.Category, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &core.Category{
		ID:     id,
		UserID: userID,
		Name:   strings.TrimSpace(in.Name),
		Color:  in.Color,
		Emoji:  in.Emoji,
	}, nil
}

func (s *Store) DeleteCategory(_ context.Context, id, userID int64) error {
	// The canned defaults occupy ids 1..5 and stay protected even here.
	if id >= 1 && id <= int64(len(core.DefaultCategories)) {
		return core.ErrForbidden
	}
	return nil
}

// --- statistics ------------------------------------------------------------

func (s *Store) DashboardStats(_ context.Context, _ int64, _ time.Time) (core.DashboardStats, error) {
	return core.DashboardStats{
		TotalIncome:  core.Money{Cents: 1500000},
		TotalExpense: core.Money{Cents: 750000},
		Balance:      core.Money{Cents: 750000},
	}, nil
}

func (s *Store) ExpenseByCategory(_ context.Context, _ int64) ([]core.CategoryTotal, error) {
	return []core.CategoryTotal{
		{Name: "Yemek", Total: core.Money{Cents: 350000}},
		{Name: "Diğer", Total: core.Money{Cents: 200000}},
		{Name: "Ulaşım", Total: core.Money{Cents: 150000}},
		{Name: "Eğlence", Total: core.Money{Cents: 100000}},
	}, nil
}

func (s *Store) MonthlyExpenses(_ context.Context, _ int64, _ time.Time) ([]core.MonthlyPoint, error) {
	return []core.MonthlyPoint{
		{Label: "Oca", Total: core.Money{Cents: 100000}},
		{Label: "Şub", Total: core.Money{Cents: 150000}},
		{Label: "Mar", Total: core.Money{Cents: 200000}},
		{Label: "Nis", Total: core.Money{Cents: 180000}},
		{Label: "May", Total: core.Money{Cents: 250000}},
		{Label: "Haz", Total: core.Money{Cents: 300000}},
	}, nil
}

// cannedTransactions is the fixed demo ledger, ordered date descending with
// created_at as the tiebreak.
func cannedTransactions(userID int64) []core.Transaction {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mk := func(id int64, typ core.TransactionType, desc, catName, catEmoji string, cents int64, day int, seq int) core.Transaction {
		return core.Transaction{
			ID:            id,
			UserID:        userID,
			Amount:        core.Money{Cents: cents},
			Currency:      core.DefaultCurrency,
			Type:          typ,
			Date:          core.NewDate(2024, 5, day),
			Description:   desc,
			CreatedAt:     base.Add(time.Duration(seq) * time.Minute),
			CategoryName:  catName,
			CategoryEmoji: catEmoji,
		}
	}
	return []core.Transaction{
		mk(2, core.Expense, "Market Alışverişi", "Market", "🛒", 95000, 12, 5),
		mk(1, core.Income, "Maaş", "Maaş", "💳", 1200000, 10, 4),
		mk(3, core.Expense, "Fatura Ödemesi", "Fatura", "🧾", 120000, 10, 3),
		mk(5, core.Expense, "Ulaşım", "Ulaşım", "🚌", 48000, 5, 2),
		mk(4, core.Income, "Ek Gelir", "Maaş", "💳", 300000, 1, 1),
	}
}

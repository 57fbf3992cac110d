package core

import (
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DefaultCurrency is applied when a transaction is created without one.
const DefaultCurrency = "TRY"

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Email        string
		FullName     string
		PasswordHash string
		CreatedAt    time.Time
	}

	Category struct {
		ID        int64
		UserID    int64
		Name      string
		Color     string
		Emoji     string
		IsDefault bool
	}

	Transaction struct {
		ID          int64
		UserID      int64
		CategoryID  *int64
		Amount      Money
		Currency    string
		Type        TransactionType
		Date        Date
		Description string
		CreatedAt   time.Time

		// Category fields resolved on reads. Empty when the transaction
		// has no category or the category was deleted.
		CategoryName  string
		CategoryColor string
		CategoryEmoji string
	}

	// NewTransaction is the caller-supplied payload for creating a transaction.
	NewTransaction struct {
		CategoryID  *int64
		Amount      Money
		Currency    string
		Type        TransactionType
		Date        Date
		Description string
	}

	// NewCategory is the caller-supplied payload for creating or updating a category.
	NewCategory struct {
		Name  string
		Color string
		Emoji string
	}
)

// DefaultCategories are provisioned for every user at registration, in this order.
// They are flagged is_default and exempt from deletion.
var DefaultCategories = []Category{
	{Name: "Kira & Konut", Color: "#FB923C", Emoji: "🏠", IsDefault: true},
	{Name: "Yiyecek & Market", Color: "#F97316", Emoji: "🍔", IsDefault: true},
	{Name: "Ulaşım", Color: "#60A5FA", Emoji: "🚌", IsDefault: true},
	{Name: "Eğlence", Color: "#A78BFA", Emoji: "🎮", IsDefault: true},
	{Name: "Diğer", Color: "#9CA3AF", Emoji: "🧾", IsDefault: true},
}

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a calendar date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ValidationErrorf("invalid date %q", s)
	}
	return Date{Time: t}, nil
}

// String renders the date in YYYY-MM-DD form.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// SameMonth reports whether d falls in the same calendar month as t.
func (d Date) SameMonth(t time.Time) bool {
	return d.Year() == t.Year() && d.Month() == t.Month()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ValidationErrorf("date is required")
	}
	return nil
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ValidationErrorf("invalid transaction type %q", string(t))
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (in NewTransaction) Validate() error {
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if err := in.Type.Validate(); err != nil {
		return err
	}
	if len(in.Description) > 200 {
		return ValidationErrorf("description too long (max 200 characters)")
	}
	return nil
}

func (in NewCategory) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ValidationErrorf("category name is required")
	}
	if len(in.Name) > 100 {
		return ValidationErrorf("category name too long (max 100 characters)")
	}
	return nil
}

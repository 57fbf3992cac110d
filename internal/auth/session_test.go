package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"budgetify/internal/core"
	"budgetify/internal/ledger/memory"
)

type recordingNotifier struct {
	emails []string
}

func (n *recordingNotifier) PublishPasswordReset(_ context.Context, email string) error {
	n.emails = append(n.emails, email)
	return nil
}

func newTestManager(t *testing.T) (*Manager, *recordingNotifier) {
	t.Helper()
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	notifier := &recordingNotifier{}
	m := NewManager(memory.New(), NewBcryptHasher(4), issuer, NewMemoryTokenStore(), notifier, nil)
	return m, notifier
}

func TestRegisterThenLogin(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	reg, err := m.Register(ctx, "a@x.com", "secret1", "Ayşe Yılmaz")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Token == "" {
		t.Fatalf("register returned no token")
	}
	if reg.User.PasswordHash != "" {
		t.Fatalf("register leaked the password hash")
	}

	login, err := m.Login(ctx, "A@X.COM", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Fatalf("login user %d want %d", login.User.ID, reg.User.ID)
	}
	if login.User.PasswordHash != "" {
		t.Fatalf("login leaked the password hash")
	}

	userID, err := m.VerifySession(login.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != reg.User.ID {
		t.Fatalf("token embeds user %d want %d", userID, reg.User.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	cases := []struct{ email, password string }{
		{"", "secret1"},
		{"not-an-email", "secret1"},
		{"a@x.com", ""},
		{"a@x.com", "short"},
	}
	for i, tc := range cases {
		if _, err := m.Register(ctx, tc.email, tc.password, "X"); !errors.Is(err, core.ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestRegisterConflict(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Register(ctx, "a@x.com", "secret1", "X"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.Register(ctx, "A@x.COM", "secret2", "Y"); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginFailuresIndistinguishable(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Register(ctx, "a@x.com", "secret1", "X"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, unknownErr := m.Login(ctx, "nobody@x.com", "secret1")
	_, wrongPwErr := m.Login(ctx, "a@x.com", "wrong")

	if !errors.Is(unknownErr, core.ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", unknownErr)
	}
	if !errors.Is(wrongPwErr, core.ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", wrongPwErr)
	}
	if unknownErr.Error() != wrongPwErr.Error() {
		t.Fatalf("failure modes distinguishable: %q vs %q", unknownErr, wrongPwErr)
	}
}

func TestUserByIDIgnoresLastAuthenticated(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first, err := m.Register(ctx, "a@x.com", "secret1", "Ayşe")
	if err != nil {
		t.Fatalf("register first: %v", err)
	}
	if _, err := m.Register(ctx, "b@x.com", "secret2", "Mehmet"); err != nil {
		t.Fatalf("register second: %v", err)
	}

	user, err := m.UserByID(ctx, first.User.ID)
	if err != nil {
		t.Fatalf("user by id: %v", err)
	}
	if user.Email != "a@x.com" {
		t.Fatalf("resolved %q, want a@x.com", user.Email)
	}
	if user.PasswordHash != "" {
		t.Fatalf("user by id leaked the password hash")
	}

	if _, err := m.UserByID(ctx, 999999); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("unknown id: got %v, want invalid session", err)
	}
}

func TestCurrentUserAndLogout(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	reg, err := m.Register(ctx, "a@x.com", "secret1", "Ayşe")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	current, err := m.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if current.ID != reg.User.ID {
		t.Fatalf("current user %d want %d", current.ID, reg.User.ID)
	}

	m.Logout()
	if _, err := m.CurrentUser(ctx); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected invalid session after logout, got %v", err)
	}

	// Logging out twice is fine.
	m.Logout()
}

func TestRequestPasswordResetUniformAck(t *testing.T) {
	m, notifier := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Register(ctx, "a@x.com", "secret1", "X"); err != nil {
		t.Fatalf("register: %v", err)
	}

	known := m.RequestPasswordReset(ctx, "a@x.com")
	unknown := m.RequestPasswordReset(ctx, "nobody@x.com")

	if known != unknown {
		t.Fatalf("acknowledgments differ: %+v vs %+v", known, unknown)
	}
	if !known.Success || known.Message != ResetAckMessage {
		t.Fatalf("unexpected ack %+v", known)
	}

	// Delivery fired only for the existing account.
	if len(notifier.emails) != 1 || notifier.emails[0] != "a@x.com" {
		t.Fatalf("unexpected deliveries %v", notifier.emails)
	}
}

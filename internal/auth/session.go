// Package auth implements the session layer: registration, login, stateless
// token verification and the password-reset acknowledgment flow.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"budgetify/internal/core"
	"budgetify/internal/ledger"
)

// ResetAckMessage is the uniform password-reset acknowledgment. It never
// varies with account existence.
const ResetAckMessage = "Eğer bu e-posta kayıtlıysa, şifre sıfırlama bağlantısı gönderildi"

// ResetNotifier delivers password-reset requests over an external channel.
// The manager only decides whether to trigger it.
type ResetNotifier interface {
	PublishPasswordReset(ctx context.Context, email string) error
}

// Session pairs a user with their freshly issued token. PasswordHash is
// always cleared before a Session leaves this package.
type Session struct {
	User  core.User
	Token string
}

// ResetAck is the uniform response to a password-reset request.
type ResetAck struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Manager ties the credential store, the hashing boundary, the token issuer
// and the client-held token store together.
type Manager struct {
	creds    ledger.CredentialStore
	hasher   PasswordHasher
	issuer   *TokenIssuer
	store    TokenStore    // per-client session material; nil when the manager is shared
	notifier ResetNotifier // optional
	logger   *slog.Logger
}

func NewManager(creds ledger.CredentialStore, hasher PasswordHasher, issuer *TokenIssuer, store TokenStore, notifier ResetNotifier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		creds:    creds,
		hasher:   hasher,
		issuer:   issuer,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(email, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return core.ValidationErrorf("invalid email address")
	}
	if len(password) < 6 {
		return core.ValidationErrorf("password must be at least 6 characters")
	}
	return nil
}

// Register creates a user, their five default categories and a session. The
// user and category inserts happen in one transactional scope inside the
// credential store: a partial registration leaves nothing behind.
func (m *Manager) Register(ctx context.Context, email, password, fullName string) (*Session, error) {
	email = normalizeEmail(email)
	if err := validateRegistration(email, password); err != nil {
		return nil, err
	}

	digest, err := m.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := m.creds.InsertUser(ctx, email, digest, strings.TrimSpace(fullName))
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "User registered", "user_id", user.ID, "email", user.Email)
	return m.openSession(ctx, user)
}

// Login verifies credentials. Unknown email and wrong password produce the
// identical error so callers cannot probe for account existence.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)

	user, err := m.creds.FindByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !m.hasher.Compare(password, user.PasswordHash) {
		return nil, core.ErrInvalidCredentials
	}

	m.logger.InfoContext(ctx, "User logged in", "user_id", user.ID)
	return m.openSession(ctx, user)
}

func (m *Manager) openSession(ctx context.Context, user *core.User) (*Session, error) {
	token, err := m.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	safe := *user
	safe.PasswordHash = ""

	if m.store != nil {
		userJSON, err := json.Marshal(safe)
		if err != nil {
			return nil, fmt.Errorf("marshal session user: %w", err)
		}
		if err := m.store.Put(tokenKey, token); err != nil {
			return nil, fmt.Errorf("persist session token: %w", err)
		}
		if err := m.store.Put(userKey, string(userJSON)); err != nil {
			return nil, fmt.Errorf("persist session user: %w", err)
		}
	}

	return &Session{User: safe, Token: token}, nil
}

// VerifySession checks a token locally and returns the embedded user id.
// It fails closed: any malformed, tampered or expired token is
// ErrInvalidSession.
func (m *Manager) VerifySession(token string) (int64, error) {
	claims, err := m.issuer.Verify(token)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// UserByID loads the account behind a verified token's user id. A token
// whose user no longer exists is an invalid session, not a missing row.
func (m *Manager) UserByID(ctx context.Context, userID int64) (*core.User, error) {
	user, err := m.creds.FindByID(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	safe := *user
	safe.PasswordHash = ""
	return &safe, nil
}

// CurrentUser resolves the session parked in the token store. The store is
// strictly per-client state; a manager shared between callers must be built
// with a nil store and resolve identity per token via UserByID. An invalid
// or expired token clears the store and reports no session.
func (m *Manager) CurrentUser(ctx context.Context) (*core.User, error) {
	if m.store == nil {
		return nil, ErrInvalidSession
	}

	token, ok := m.store.Get(tokenKey)
	if !ok {
		return nil, ErrInvalidSession
	}
	if _, err := m.issuer.Verify(token); err != nil {
		m.Logout()
		return nil, ErrInvalidSession
	}

	raw, ok := m.store.Get(userKey)
	if !ok {
		return nil, ErrInvalidSession
	}
	var user core.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		m.Logout()
		return nil, ErrInvalidSession
	}
	return &user, nil
}

// RequestPasswordReset triggers delivery when the account exists but answers
// identically either way.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) ResetAck {
	email = normalizeEmail(email)
	ack := ResetAck{Success: true, Message: ResetAckMessage}

	user, err := m.creds.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			m.logger.ErrorContext(ctx, "Password reset lookup failed", "error", err)
		}
		return ack
	}

	if m.notifier != nil {
		if err := m.notifier.PublishPasswordReset(ctx, user.Email); err != nil {
			// Delivery is best-effort; the acknowledgment stays uniform.
			m.logger.ErrorContext(ctx, "Password reset delivery failed", "error", err, "user_id", user.ID)
		}
	}
	return ack
}

// Logout clears client-held session material. Idempotent.
func (m *Manager) Logout() {
	if m.store == nil {
		return
	}
	_ = m.store.Remove(tokenKey)
	_ = m.store.Remove(userKey)
}

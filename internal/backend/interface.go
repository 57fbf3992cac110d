// Package backend selects the data-access implementation once at startup.
// Handlers never branch on the mode: they receive the ports and stay unaware
// of whether a SQLite database or the canned in-memory dataset is behind them.
package backend

import (
	"context"

	"budgetify/internal/auth"
	"budgetify/internal/ledger"
)

// Backend bundles every port the application needs from a data layer.
type Backend struct {
	Credentials ledger.CredentialStore
	Store       ledger.Store
	Stats       ledger.StatsReader

	// Notifier delivers password-reset requests. Nil when the backend has
	// no delivery channel; the session manager treats that as best-effort.
	Notifier auth.ResetNotifier
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function.
type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid.
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

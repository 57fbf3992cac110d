// Package services orchestrates ledger writes across SQLite and AMQP.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgetify/internal/amqp"
	"budgetify/internal/core"
	"budgetify/internal/ledger"
)

// LedgerService wraps a ledger store and publishes backup messages after
// successful writes. Publish failures never fail the request: the local
// write already succeeded, and the startup sync check picks up the rest.
type LedgerService struct {
	store      ledger.Store
	amqpClient *amqp.Client
}

func NewLedgerService(store ledger.Store, amqpClient *amqp.Client) *LedgerService {
	return &LedgerService{
		store:      store,
		amqpClient: amqpClient,
	}
}

var _ ledger.Store = (*LedgerService)(nil)

func (s *LedgerService) ListTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, userID, limit)
}

// AddTransaction saves locally first, then publishes a sync message so the
// backup worker can export the new row.
func (s *LedgerService) AddTransaction(ctx context.Context, userID int64, tx core.NewTransaction) (*core.Transaction, error) {
	saved, err := s.store.AddTransaction(ctx, userID, tx)
	if err != nil {
		return nil, fmt.Errorf("add transaction: %w", err)
	}

	if err := s.publishSync(ctx, saved.ID, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"transaction_id", saved.ID, "error", err)
	}

	return saved, nil
}

// DeleteTransaction removes locally first, then publishes a delete message.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id, userID int64) error {
	if err := s.store.DeleteTransaction(ctx, id, userID); err != nil {
		return err
	}

	if err := s.publishDelete(ctx, id, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"transaction_id", id, "error", err)
	}

	return nil
}

func (s *LedgerService) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	return s.store.ListCategories(ctx, userID)
}

func (s *LedgerService) AddCategory(ctx context.Context, userID int64, c core.NewCategory) (*core.Category, error) {
	return s.store.AddCategory(ctx, userID, c)
}

func (s *LedgerService) UpdateCategory(ctx context.Context, id, userID int64, c core.NewCategory) (*core.Category, error) {
	return s.store.UpdateCategory(ctx, id, userID, c)
}

func (s *LedgerService) DeleteCategory(ctx context.Context, id, userID int64) error {
	return s.store.DeleteCategory(ctx, id, userID)
}

func (s *LedgerService) publishSync(ctx context.Context, id, userID int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishTransactionSync(ctx, id, userID)
}

func (s *LedgerService) publishDelete(ctx context.Context, id, userID int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	return s.amqpClient.PublishTransactionDelete(ctx, id, userID)
}

// ResetNotifier adapts the AMQP client to the session manager's notifier
// interface. A nil client makes delivery a no-op.
type ResetNotifier struct {
	amqpClient *amqp.Client
}

func NewResetNotifier(amqpClient *amqp.Client) *ResetNotifier {
	return &ResetNotifier{amqpClient: amqpClient}
}

func (n *ResetNotifier) PublishPasswordReset(ctx context.Context, email string) error {
	if n.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping reset delivery")
		return nil
	}
	return n.amqpClient.PublishPasswordReset(ctx, email)
}

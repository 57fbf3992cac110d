// Package worker drains the backup queue: it exports newly written
// transactions to the Google Sheets backup and records deletions there.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"budgetify/internal/amqp"
	"budgetify/internal/core"
	"budgetify/internal/storage"
)

// TransactionExporter is the slice of the Sheets exporter the worker needs.
type TransactionExporter interface {
	Append(ctx context.Context, tx core.Transaction) error
	AppendTombstone(ctx context.Context, id, userID int64) error
}

type BackupWorker struct {
	storage   *storage.SQLiteRepository
	exporter  TransactionExporter
	batchSize int
}

func NewBackupWorker(storage *storage.SQLiteRepository, exporter TransactionExporter, batchSize int) *BackupWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &BackupWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleSyncMessage exports one transaction and marks it synced.
func (w *BackupWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"transaction_id", msg.ID, "user_id", msg.UserID)

	return w.exportTransaction(ctx, msg.ID, msg.UserID)
}

// HandleDeleteMessage appends a tombstone row for a removed transaction.
// The transaction is already gone locally, so there is nothing to re-read.
func (w *BackupWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message",
		"transaction_id", msg.ID, "user_id", msg.UserID)

	if w.exporter == nil {
		slog.WarnContext(ctx, "No exporter configured, skipping tombstone",
			"transaction_id", msg.ID)
		return nil
	}

	if err := w.exporter.AppendTombstone(ctx, msg.ID, msg.UserID); err != nil {
		return fmt.Errorf("append tombstone: %w", err)
	}

	return nil
}

func (w *BackupWorker) exportTransaction(ctx context.Context, id, userID int64) error {
	tx, err := w.storage.GetTransaction(ctx, id, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted before the export ran. Nothing to back up.
			slog.WarnContext(ctx, "Transaction gone before export",
				"transaction_id", id)
			return nil
		}
		return fmt.Errorf("get transaction: %w", err)
	}

	if w.exporter == nil {
		slog.WarnContext(ctx, "No exporter configured, skipping export",
			"transaction_id", id)
		return nil
	}

	if err := w.exporter.Append(ctx, *tx); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"transaction_id", id, "error", markErr)
		}
		return fmt.Errorf("export transaction: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	return nil
}

// StartupSyncCheck exports rows still marked pending, recovering from missed
// messages or worker downtime. Rows are processed concurrently with a small
// limit so a cold start does not hammer the Sheets API.
func (w *BackupWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	var synced, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range pending {
		g.Go(func() error {
			if err := w.exportTransaction(gctx, p.ID, p.UserID); err != nil {
				slog.ErrorContext(gctx, "Failed to export transaction during startup",
					"transaction_id", p.ID, "error", err)
				failed.Add(1)
				return nil
			}
			synced.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced.Load(),
		"errors", failed.Load())

	return nil
}

// ProcessPendingTransactions is the periodic variant of the startup check,
// run on a ticker as a backup for lost messages.
func (w *BackupWorker) ProcessPendingTransactions(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		if err := w.exportTransaction(ctx, p.ID, p.UserID); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending transaction",
				"transaction_id", p.ID, "error", err)
		}
	}

	return nil
}

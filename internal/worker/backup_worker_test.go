package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"budgetify/internal/amqp"
	"budgetify/internal/core"
	"budgetify/internal/storage"
)

type fakeExporter struct {
	mu         sync.Mutex
	appended   []int64
	tombstones []int64
	failOnce   bool
}

func (f *fakeExporter) Append(_ context.Context, tx core.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOnce {
		f.failOnce = false
		return errors.New("sheets unavailable")
	}
	f.appended = append(f.appended, tx.ID)
	return nil
}

func (f *fakeExporter) AppendTombstone(_ context.Context, id, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tombstones = append(f.tombstones, id)
	return nil
}

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budgetify.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func addTransaction(t *testing.T, repo *storage.SQLiteRepository, userID int64) *core.Transaction {
	t.Helper()
	date, _ := core.ParseDate("2024-05-10")
	tx, err := repo.AddTransaction(context.Background(), userID, core.NewTransaction{
		Type:        core.Expense,
		Amount:      core.Money{Cents: 12000},
		Date:        date,
		Description: "Fatura",
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	return tx
}

func TestHandleSyncMessageExportsAndMarksSynced(t *testing.T) {
	repo := newTestRepo(t)
	user, err := repo.InsertUser(context.Background(), "demo@budgetify.app", "hash", "Demo")
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	tx := addTransaction(t, repo, user.ID)

	exporter := &fakeExporter{}
	w := NewBackupWorker(repo, exporter, 10)

	msg := &amqp.TransactionSyncMessage{ID: tx.ID, UserID: user.ID}
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle sync: %v", err)
	}

	if len(exporter.appended) != 1 || exporter.appended[0] != tx.ID {
		t.Errorf("expected one exported row for %d, got %v", tx.ID, exporter.appended)
	}

	pending, err := repo.GetPendingSyncTransactions(context.Background(), 10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending rows after export, got %d", len(pending))
	}
}

func TestHandleSyncMessageMissingTransaction(t *testing.T) {
	repo := newTestRepo(t)
	exporter := &fakeExporter{}
	w := NewBackupWorker(repo, exporter, 10)

	msg := &amqp.TransactionSyncMessage{ID: 999, UserID: 1}
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("missing transaction should not error (already deleted): %v", err)
	}
	if len(exporter.appended) != 0 {
		t.Errorf("nothing should be exported for a missing row, got %v", exporter.appended)
	}
}

func TestHandleDeleteMessageAppendsTombstone(t *testing.T) {
	repo := newTestRepo(t)
	exporter := &fakeExporter{}
	w := NewBackupWorker(repo, exporter, 10)

	msg := &amqp.TransactionDeleteMessage{ID: 7, UserID: 3}
	if err := w.HandleDeleteMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle delete: %v", err)
	}
	if len(exporter.tombstones) != 1 || exporter.tombstones[0] != 7 {
		t.Errorf("expected tombstone for 7, got %v", exporter.tombstones)
	}
}

func TestStartupSyncCheckDrainsPending(t *testing.T) {
	repo := newTestRepo(t)
	user, err := repo.InsertUser(context.Background(), "demo@budgetify.app", "hash", "Demo")
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	for i := 0; i < 3; i++ {
		addTransaction(t, repo, user.ID)
	}

	exporter := &fakeExporter{}
	w := NewBackupWorker(repo, exporter, 10)

	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("startup sync: %v", err)
	}

	if len(exporter.appended) != 3 {
		t.Errorf("expected 3 exports, got %d", len(exporter.appended))
	}

	pending, err := repo.GetPendingSyncTransactions(context.Background(), 10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected pending queue drained, got %d rows", len(pending))
	}
}

func TestExportFailureKeepsRowPending(t *testing.T) {
	repo := newTestRepo(t)
	user, err := repo.InsertUser(context.Background(), "demo@budgetify.app", "hash", "Demo")
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	tx := addTransaction(t, repo, user.ID)

	exporter := &fakeExporter{failOnce: true}
	w := NewBackupWorker(repo, exporter, 10)

	msg := &amqp.TransactionSyncMessage{ID: tx.ID, UserID: user.ID}
	if err := w.HandleSyncMessage(context.Background(), msg); err == nil {
		t.Fatal("expected export failure to surface")
	}

	// The error state still leaves the row eligible for the periodic retry.
	if err := w.ProcessPendingTransactions(context.Background()); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if len(exporter.appended) != 1 {
		t.Errorf("expected retry to export the row, got %v", exporter.appended)
	}
}

// Package google exports ledger rows to a Google Sheets backup spreadsheet.
// The backup is append-only: deletions are recorded as tombstone rows rather
// than edits, so the sheet stays an audit trail.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"budgetify/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewFromEnv creates a Sheets exporter using environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS. Optional: GOOGLE_SHEET_NAME (default
// "Backup").
func NewFromEnv(ctx context.Context) (*Exporter, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Backup"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// Append writes one transaction as a backup row:
// ID, UserID, Date, Type, Amount, Currency, Category, Description, ExportedAt.
func (e *Exporter) Append(ctx context.Context, tx core.Transaction) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	amount := float64(tx.Amount.Cents) / 100.0
	row := []any{
		tx.ID,
		tx.UserID,
		tx.Date.String(),
		string(tx.Type),
		amount,
		tx.Currency,
		tx.CategoryName,
		tx.Description,
		time.Now().UTC().Format(time.RFC3339),
	}

	if err := e.appendRow(ctx, row); err != nil {
		return fmt.Errorf("append transaction %d: %w", tx.ID, err)
	}

	slog.InfoContext(ctx, "Exported transaction to backup sheet",
		"transaction_id", tx.ID, "sheet", e.sheetName)
	return nil
}

// AppendTombstone records a deletion without touching earlier rows.
func (e *Exporter) AppendTombstone(ctx context.Context, id, userID int64) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row := []any{
		id,
		userID,
		"", "deleted", "", "", "", "",
		time.Now().UTC().Format(time.RFC3339),
	}

	if err := e.appendRow(ctx, row); err != nil {
		return fmt.Errorf("append tombstone for %d: %w", id, err)
	}

	return nil
}

func (e *Exporter) appendRow(ctx context.Context, row []any) error {
	rng := fmt.Sprintf("%s!A:I", e.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return err
}

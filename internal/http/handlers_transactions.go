package http

import (
	"net/http"
	"time"

	"budgetify/internal/core"
	"budgetify/internal/ledger"
)

type transactionResponse struct {
	ID            int64  `json:"id"`
	CategoryID    *int64 `json:"category_id"`
	Amount        string `json:"amount"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	Type          string `json:"type"`
	Date          string `json:"date"`
	Description   string `json:"description"`
	CategoryName  string `json:"category_name,omitempty"`
	CategoryColor string `json:"category_color,omitempty"`
	CategoryEmoji string `json:"category_emoji,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type addTransactionRequest struct {
	CategoryID  *int64 `json:"category_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"` // empty falls back to core.DefaultCurrency
	Type        string `json:"type"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:            tx.ID,
		CategoryID:    tx.CategoryID,
		Amount:        tx.Amount.String(),
		AmountCents:   tx.Amount.Cents,
		Currency:      tx.Currency,
		Type:          string(tx.Type),
		Date:          tx.Date.String(),
		Description:   tx.Description,
		CategoryName:  tx.CategoryName,
		CategoryColor: tx.CategoryColor,
		CategoryEmoji: tx.CategoryEmoji,
		CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request, limit int) {
	txs, err := s.backend.Store.ListTransactions(r.Context(), userIDFrom(r.Context()), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionResponse(tx)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	s.listTransactions(w, r, parseLimit(r, ledger.DefaultListLimit, 500))
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	s.listTransactions(w, r, ledger.RecentLimit)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req addTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, core.ValidationErrorf("invalid date %q: must be YYYY-MM-DD", req.Date))
		return
	}

	tx, err := s.backend.Store.AddTransaction(r.Context(), userIDFrom(r.Context()), core.NewTransaction{
		CategoryID:  req.CategoryID,
		Amount:      core.Money{Cents: cents},
		Currency:    sanitizeInput(req.Currency),
		Type:        core.TransactionType(req.Type),
		Date:        date,
		Description: sanitizeInput(req.Description),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(*tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.backend.Store.DeleteTransaction(r.Context(), id, userIDFrom(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

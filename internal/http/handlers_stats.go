package http

import (
	"net/http"
	"time"
)

type dashboardResponse struct {
	TotalIncome  string `json:"total_income"`
	TotalExpense string `json:"total_expense"`
	Balance      string `json:"balance"`

	TotalIncomeCents  int64 `json:"total_income_cents"`
	TotalExpenseCents int64 `json:"total_expense_cents"`
	BalanceCents      int64 `json:"balance_cents"`
}

type categoryTotalResponse struct {
	Name       string `json:"name"`
	Total      string `json:"total"`
	TotalCents int64  `json:"total_cents"`
}

type monthlyPointResponse struct {
	Label      string `json:"label"`
	Total      string `json:"total"`
	TotalCents int64  `json:"total_cents"`
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.backend.Stats.DashboardStats(r.Context(), userIDFrom(r.Context()), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		TotalIncome:       stats.TotalIncome.String(),
		TotalExpense:      stats.TotalExpense.String(),
		Balance:           stats.Balance.String(),
		TotalIncomeCents:  stats.TotalIncome.Cents,
		TotalExpenseCents: stats.TotalExpense.Cents,
		BalanceCents:      stats.Balance.Cents,
	})
}

func (s *Server) handleExpenseByCategory(w http.ResponseWriter, r *http.Request) {
	totals, err := s.backend.Stats.ExpenseByCategory(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]categoryTotalResponse, len(totals))
	for i, t := range totals {
		out[i] = categoryTotalResponse{
			Name:       t.Name,
			Total:      t.Total.String(),
			TotalCents: t.Total.Cents,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMonthlyExpenses(w http.ResponseWriter, r *http.Request) {
	points, err := s.backend.Stats.MonthlyExpenses(r.Context(), userIDFrom(r.Context()), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]monthlyPointResponse, len(points))
	for i, p := range points {
		out[i] = monthlyPointResponse{
			Label:      p.Label,
			Total:      p.Total.String(),
			TotalCents: p.Total.Cents,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

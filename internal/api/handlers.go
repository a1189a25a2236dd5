package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/susu-network/susu/internal/domain"
	"github.com/susu-network/susu/internal/infra/sqlite"
)

// ─── Accounts ───────────────────────────────────────────────────────────────

type createAccountRequest struct {
	ID             string          `json:"id"`
	Holder         string          `json:"holder"`
	Rate           decimal.Decimal `json:"rate"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// POST /api/accounts
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	acct, err := s.engine.CreateAccount(r.Context(), req.ID, req.Holder, req.Rate, req.OpeningBalance)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

// GET /api/accounts/{id}
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := s.engine.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// ─── Deposits & Withdrawals ─────────────────────────────────────────────────

type movementRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"` // YYYY-MM-DD; today when empty
}

func (m movementRequest) date() (time.Time, error) {
	if m.Date == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	return time.Parse(time.DateOnly, m.Date)
}

// POST /api/accounts/{id}/deposits
func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	date, err := req.date()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date: "+err.Error())
		return
	}

	res, err := s.engine.Deposit(r.Context(), chi.URLParam(r, "id"), req.Amount, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// POST /api/accounts/{id}/withdrawals
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	date, err := req.date()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date: "+err.Error())
		return
	}

	res, err := s.engine.ProcessWithdrawal(r.Context(), chi.URLParam(r, "id"), req.Amount, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ─── Reversals ──────────────────────────────────────────────────────────────

type reverseRequest struct {
	Reason string `json:"reason"`
}

// POST /api/withdrawals/{id}/reverse
func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	var req reverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.engine.ReverseWithdrawal(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ─── Rate ───────────────────────────────────────────────────────────────────

type rateRequest struct {
	Rate decimal.Decimal `json:"rate"`
}

// PUT /api/accounts/{id}/rate
func (s *Server) handleUpdateRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.engine.UpdateRate(r.Context(), chi.URLParam(r, "id"), req.Rate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Cycle ──────────────────────────────────────────────────────────────────

// GET /api/accounts/{id}/cycle
func (s *Server) handleCycleState(w http.ResponseWriter, r *http.Request) {
	cs, err := s.engine.CycleState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// POST /api/accounts/{id}/cycle/reset
func (s *Server) handleResetCycle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.engine.ResetCycle(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	cs, err := s.engine.CycleState(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

type adjustCycleRequest struct {
	Value decimal.Decimal `json:"value"`
}

// POST /api/accounts/{id}/cycle/adjust
func (s *Server) handleAdjustCycle(w http.ResponseWriter, r *http.Request) {
	var req adjustCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.engine.AdjustCycle(r.Context(), id, req.Value); err != nil {
		writeDomainError(w, err)
		return
	}
	cs, err := s.engine.CycleState(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// ─── Reports ────────────────────────────────────────────────────────────────

// GET /api/accounts/{id}/ledger?from=YYYY-MM-DD&to=YYYY-MM-DD&kind=commission
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	filter := sqlite.EntryFilter{AccountID: chi.URLParam(r, "id")}

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
		filter.To = t
	}
	if v := q.Get("kind"); v != "" {
		kind := domain.EntryKind(v)
		if !kind.Valid() {
			writeError(w, http.StatusBadRequest, "invalid kind")
			return
		}
		filter.Kind = kind
	}

	entries, err := s.engine.DB().ListEntries(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// GET /api/accounts/{id}/commissions
func (s *Server) handleCommissions(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.DB().CommissionHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"commissions": entries})
}

// GET /api/accounts/{id}/totals?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := time.Parse(time.DateOnly, q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from date is required (YYYY-MM-DD)")
		return
	}
	to, err := time.Parse(time.DateOnly, q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to date is required (YYYY-MM-DD)")
		return
	}

	totals, err := s.engine.DB().TotalsByDateRange(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// GET /api/accounts/{id}/audit
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "audit trail not enabled")
		return
	}
	records := s.audit.ForAccount(chi.URLParam(r, "id"))
	if records == nil {
		records = []domain.CommissionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

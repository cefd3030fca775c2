package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/listinggopher/listinggopher/internal/domain"
)

// ─── Credit Endpoints ───────────────────────────────────────────────────────
// Grant and refund are boundary hooks: grant is called by payment
// fulfillment after a successful checkout; refund is the reconciliation
// tool for attempts that were debited but never resolved.

// handleBalance returns both balances visible to the caller.
// GET /api/credits/balance
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	personal, domainOwner, err := callerIdentities(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing or malformed "+identityHeader+" header")
		return
	}

	pair, err := s.acct.Balances(r.Context(), personal, domainOwner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// grantRequest is the body for POST /api/credits/grant.
// Either owner (a raw owner identity) or email+scope must be set.
type grantRequest struct {
	Owner  string `json:"owner,omitempty"`
	Email  string `json:"email,omitempty"`
	Scope  string `json:"scope,omitempty"` // "personal" or "domain"
	Amount int64  `json:"amount"`
	Note   string `json:"note,omitempty"`
}

// handleGrant credits an owner after payment fulfillment.
// POST /api/credits/grant
func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	owner := req.Owner
	if owner == "" {
		var err error
		switch req.Scope {
		case "domain":
			owner, err = domain.DomainIdentity(req.Email)
		default:
			owner, err = domain.PersonalIdentity(req.Email)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	balance, err := s.acct.Grant(r.Context(), owner, req.Amount, req.Note)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidOwner) || errors.Is(err, domain.ErrInvalidAmount) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"owner":   owner,
		"granted": req.Amount,
		"balance": balance,
	})
}

// handleSignup grants the configured signup credits to a new caller.
// POST /api/credits/signup
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	personal, _, err := callerIdentities(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing or malformed "+identityHeader+" header")
		return
	}
	if s.SignupGrant <= 0 {
		writeError(w, http.StatusConflict, "signup grants are disabled")
		return
	}

	balance, err := s.acct.Grant(r.Context(), personal, s.SignupGrant, "signup grant")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"owner":   personal,
		"granted": s.SignupGrant,
		"balance": balance,
	})
}

// refundRequest is the body for POST /api/credits/refund.
type refundRequest struct {
	AttemptID string `json:"attempt_id"`
}

// handleRefund replays a refund for a debited attempt. Safe to call any
// number of times; the second and later calls report already_refunded.
// POST /api/credits/refund
func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	res, err := s.acct.Refund(r.Context(), req.AttemptID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoDebitRecorded):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrInvalidAttemptID):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleTransactions exposes the append-only ledger for audit tooling.
// GET /api/ledger/transactions?attempt_id=...  or  ?owner=...&limit=N
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	attemptID := r.URL.Query().Get("attempt_id")
	owner := r.URL.Query().Get("owner")

	var (
		txs []domain.Transaction
		err error
	)
	switch {
	case attemptID != "":
		txs, err = s.ledger.TransactionsByAttempt(r.Context(), attemptID)
	case owner != "":
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		txs, err = s.ledger.TransactionsByOwner(r.Context(), owner, limit)
	default:
		writeError(w, http.StatusBadRequest, "attempt_id or owner query parameter required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

// handleCostSummary returns the cost tracker snapshot.
// GET /api/costs/summary
func (s *Server) handleCostSummary(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "cost tracking not enabled")
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Summary())
}

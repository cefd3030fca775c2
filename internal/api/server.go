// Package api provides the HTTP server for ListingGopher.
// It exposes the generation endpoint, credit operations for payment
// fulfillment and reconciliation tooling, and the audit/cost endpoints.
//
// Authentication is an external collaborator's job: callers arrive behind a
// proxy that verifies identity and sets X-Listing-User to the agent's email.
// The core never authenticates — it only derives owner identities from that
// verified email.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/listinggopher/listinggopher/internal/app/accountant"
	"github.com/listinggopher/listinggopher/internal/app/costs"
	"github.com/listinggopher/listinggopher/internal/app/pipeline"
	"github.com/listinggopher/listinggopher/internal/domain"
)

// identityHeader carries the verified caller email, set by the auth proxy.
const identityHeader = "X-Listing-User"

// Server is the ListingGopher HTTP API server.
type Server struct {
	acct    *accountant.Accountant
	orch    *pipeline.Orchestrator
	ledger  domain.LedgerStore
	tracker *costs.Tracker

	// SignupGrant is the number of credits granted by the signup hook.
	SignupGrant int64
}

// NewServer creates a new API server.
func NewServer(acct *accountant.Accountant, orch *pipeline.Orchestrator, ledger domain.LedgerStore, tracker *costs.Tracker) *Server {
	return &Server{acct: acct, orch: orch, ledger: ledger, tracker: tracker}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/generate", s.handleGenerate)

	r.Route("/api/credits", func(r chi.Router) {
		r.Get("/balance", s.handleBalance)
		r.Post("/grant", s.handleGrant)
		r.Post("/signup", s.handleSignup)
		r.Post("/refund", s.handleRefund)
	})

	r.Get("/api/ledger/transactions", s.handleTransactions)
	r.Get("/api/costs/summary", s.handleCostSummary)

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// callerIdentities derives the personal and domain owner identities from
// the verified email header.
func callerIdentities(r *http.Request) (personal, domainOwner string, err error) {
	email := r.Header.Get(identityHeader)
	personal, err = domain.PersonalIdentity(email)
	if err != nil {
		return "", "", err
	}
	domainOwner, err = domain.DomainIdentity(email)
	if err != nil {
		return "", "", err
	}
	return personal, domainOwner, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for the web front end.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Listing-User")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

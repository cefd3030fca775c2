// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import "time"

// ─── Credit Types ───────────────────────────────────────────────────────────
// The credit ledger is append-only: every balance change is recorded as a
// Transaction row, and the pair (attempt_id, tx_type) is unique. That
// uniqueness is what makes debit and refund idempotent under retry.

// TxType represents the business reason for a ledger operation.
type TxType string

const (
	TxDebit  TxType = "DEBIT"
	TxRefund TxType = "REFUND"
	TxGrant  TxType = "GRANT"
)

// Source identifies which balance a debit was drawn from.
// Domain credits are shared across a brokerage; personal credits belong
// to one agent. Domain credits are always spent first.
type Source string

const (
	SourceDomain   Source = "domain"
	SourcePersonal Source = "personal"
)

// Transaction is a single row in the append-only credit ledger.
type Transaction struct {
	ID        int64     `json:"id"`
	AttemptID string    `json:"attempt_id"`
	Type      TxType    `json:"type"`
	Owner     string    `json:"owner"`
	Source    Source    `json:"source,omitempty"`
	Amount    int64     `json:"amount"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DebitResult is the outcome of a check-and-debit call.
type DebitResult struct {
	Success   bool   `json:"success"`
	Source    Source `json:"source,omitempty"`
	Remaining int64  `json:"remaining"`
	Message   string `json:"message,omitempty"`
	Replayed  bool   `json:"replayed,omitempty"` // this attempt was already debited
}

// RefundResult is the outcome of a refund call.
type RefundResult struct {
	Success         bool   `json:"success"`
	AlreadyRefunded bool   `json:"already_refunded"`
	Owner           string `json:"owner,omitempty"`
	Amount          int64  `json:"amount,omitempty"`
	Remaining       int64  `json:"remaining"` // owner balance after the refund
}

// BalancePair holds both balances visible to one caller.
type BalancePair struct {
	Personal        string `json:"personal"`
	Domain          string `json:"domain"`
	PersonalCredits int64  `json:"personal_credits"`
	DomainCredits   int64  `json:"domain_credits"`
}

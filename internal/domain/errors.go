package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Ledger errors
	ErrDuplicateTransaction = errors.New("transaction already recorded for this attempt")
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrNoDebitRecorded      = errors.New("no debit recorded for this attempt")

	// Validation errors
	ErrInvalidAttemptID = errors.New("attempt id must be a UUID")
	ErrInvalidOwner     = errors.New("owner identity is empty or malformed")
	ErrInvalidAmount    = errors.New("amount must be positive")

	// Provider errors
	ErrEmptyOutput  = errors.New("provider returned empty output")
	ErrNoProviders  = errors.New("no generation providers configured")
	ErrBadStageName = errors.New("unknown generation stage")
)

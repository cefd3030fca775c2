package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// LedgerStore abstracts the durable credit ledger. It is the single shared
// mutable resource in the system; all balance mutation goes through Apply,
// which is one atomic unit — the balance adjustment and the transaction
// append either both happen or neither does.
type LedgerStore interface {
	// Balance returns the credit balance for an owner.
	// Unknown owners are not an error — they have balance 0.
	Balance(ctx context.Context, owner string) (int64, error)

	// Apply atomically appends tx and adjusts the owner's balance.
	// Returns ErrDuplicateTransaction if (attempt_id, tx_type) already
	// exists, and ErrInsufficientCredits if a debit would take the balance
	// negative. Both checks happen inside the same store transaction.
	Apply(ctx context.Context, tx Transaction) error

	// DebitFor returns the debit transaction recorded for an attempt,
	// or ErrNoDebitRecorded.
	DebitFor(ctx context.Context, attemptID string) (*Transaction, error)

	// TransactionsByAttempt returns the ledger rows for one attempt.
	TransactionsByAttempt(ctx context.Context, attemptID string) ([]Transaction, error)

	// TransactionsByOwner returns the most recent ledger rows for an owner.
	TransactionsByOwner(ctx context.Context, owner string, limit int) ([]Transaction, error)
}

// Provider abstracts one AI content-generation backend.
type Provider interface {
	// Name identifies the provider in results and logs ("openai", "gemini").
	Name() string

	// Generate runs one generation request. Failures carry enough
	// information for the gateway to classify them per FailureClass.
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}

// Package accountant implements atomic credit debit, refund, and grant
// operations over the ledger store.
//
// The accountant enforces two business rules:
//  1. Domain-first spending — a brokerage's shared credits are always
//     consumed before an agent's personal credits.
//  2. Idempotency — replaying a debit or refund for the same attempt is
//     safe: the ledger's (attempt_id, tx_type) uniqueness turns the replay
//     into a no-op reported as success.
//
// The accountant performs no retries itself. Retrying is the caller's job;
// the idempotency guarantees are what make those retries safe.
package accountant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/listinggopher/listinggopher/internal/domain"
	"github.com/listinggopher/listinggopher/internal/infra/observability"
)

// DebitAmount is the cost of one generation attempt.
const DebitAmount = 1

// Accountant is the only component permitted to mutate balances.
type Accountant struct {
	store domain.LedgerStore
	log   *slog.Logger
}

// New creates an accountant over the given ledger store.
func New(store domain.LedgerStore) *Accountant {
	return &Accountant{store: store, log: slog.Default()}
}

// CheckAndDebit debits one credit for a fresh attempt, domain balance first.
//
// A duplicate attempt id is treated as a replay of the original debit: no
// second debit is written and the call reports success with the originally
// recorded source. Insufficient balance is a denial, not an error — no
// transaction is written and the returned message is safe to show users.
func (a *Accountant) CheckAndDebit(ctx context.Context, personal, domainOwner, attemptID string) (*domain.DebitResult, error) {
	if err := validateAttemptID(attemptID); err != nil {
		return nil, err
	}
	if !domain.ValidOwner(personal) || !domain.ValidOwner(domainOwner) {
		return nil, fmt.Errorf("%w: %q / %q", domain.ErrInvalidOwner, personal, domainOwner)
	}

	// Domain-first is a fixed business rule, not negotiable by the caller.
	for _, cand := range []struct {
		owner  string
		source domain.Source
	}{
		{domainOwner, domain.SourceDomain},
		{personal, domain.SourcePersonal},
	} {
		balance, err := a.store.Balance(ctx, cand.owner)
		if err != nil {
			return nil, fmt.Errorf("read %s balance: %w", cand.source, err)
		}
		if balance <= 0 {
			continue
		}

		err = a.store.Apply(ctx, domain.Transaction{
			AttemptID: attemptID,
			Type:      domain.TxDebit,
			Owner:     cand.owner,
			Source:    cand.source,
			Amount:    DebitAmount,
		})
		switch {
		case err == nil:
			remaining, rerr := a.store.Balance(ctx, cand.owner)
			if rerr != nil {
				return nil, fmt.Errorf("read balance after debit: %w", rerr)
			}
			observability.CreditDebits.WithLabelValues(string(cand.source)).Inc()
			a.log.Info("credit debited",
				"attempt_id", attemptID, "owner", cand.owner,
				"source", cand.source, "remaining", remaining)
			return &domain.DebitResult{
				Success:   true,
				Source:    cand.source,
				Remaining: remaining,
			}, nil

		case errors.Is(err, domain.ErrDuplicateTransaction):
			return a.replayDebit(ctx, attemptID)

		case errors.Is(err, domain.ErrInsufficientCredits):
			// Lost a race with a concurrent debit since the balance read.
			// The store rejected the adjustment atomically; try the next
			// source as if the balance had read zero.
			continue

		default:
			return nil, fmt.Errorf("apply debit: %w", err)
		}
	}

	observability.CreditDenials.Inc()
	return &domain.DebitResult{
		Success: false,
		Message: "No credits remaining. Purchase credits to keep generating listings.",
	}, nil
}

// replayDebit resolves an idempotent replay: the attempt was already
// debited, so report the original debit's source and the balance as it
// stands now. The caller must not be re-debited and must not see an error.
func (a *Accountant) replayDebit(ctx context.Context, attemptID string) (*domain.DebitResult, error) {
	debit, err := a.store.DebitFor(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("resolve replayed debit: %w", err)
	}
	remaining, err := a.store.Balance(ctx, debit.Owner)
	if err != nil {
		return nil, fmt.Errorf("read balance for replayed debit: %w", err)
	}
	a.log.Info("debit replayed", "attempt_id", attemptID, "owner", debit.Owner)
	return &domain.DebitResult{
		Success:   true,
		Source:    debit.Source,
		Remaining: remaining,
		Replayed:  true,
	}, nil
}

// Refund returns the debited credit for a failed attempt.
//
// The recorded debit is the source of truth for where the refund lands and
// how much it is. Refunding an attempt that was never debited is a ledger
// logic error surfaced to the caller, never silently accepted. Refunding
// twice is safe: the second call reports AlreadyRefunded.
func (a *Accountant) Refund(ctx context.Context, attemptID string) (*domain.RefundResult, error) {
	if err := validateAttemptID(attemptID); err != nil {
		return nil, err
	}

	debit, err := a.store.DebitFor(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("refund %s: %w", attemptID, err)
	}

	err = a.store.Apply(ctx, domain.Transaction{
		AttemptID: attemptID,
		Type:      domain.TxRefund,
		Owner:     debit.Owner,
		Source:    debit.Source,
		Amount:    debit.Amount,
	})
	switch {
	case err == nil:
		remaining, rerr := a.store.Balance(ctx, debit.Owner)
		if rerr != nil {
			return nil, fmt.Errorf("read balance after refund: %w", rerr)
		}
		observability.CreditRefunds.WithLabelValues("new").Inc()
		a.log.Info("credit refunded",
			"attempt_id", attemptID, "owner", debit.Owner, "amount", debit.Amount)
		return &domain.RefundResult{
			Success:   true,
			Owner:     debit.Owner,
			Amount:    debit.Amount,
			Remaining: remaining,
		}, nil

	case errors.Is(err, domain.ErrDuplicateTransaction):
		remaining, rerr := a.store.Balance(ctx, debit.Owner)
		if rerr != nil {
			return nil, fmt.Errorf("read balance after refund: %w", rerr)
		}
		observability.CreditRefunds.WithLabelValues("already_refunded").Inc()
		return &domain.RefundResult{
			Success:         true,
			AlreadyRefunded: true,
			Owner:           debit.Owner,
			Amount:          debit.Amount,
			Remaining:       remaining,
		}, nil

	default:
		return nil, fmt.Errorf("apply refund: %w", err)
	}
}

// Grant credits an owner outside the debit/refund flow — the payment
// fulfillment hook. Grants use their own transaction type and a synthetic
// attempt id, so they never collide with attempt idempotency rules.
func (a *Accountant) Grant(ctx context.Context, owner string, amount int64, note string) (int64, error) {
	if !domain.ValidOwner(owner) {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidOwner, owner)
	}
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	err := a.store.Apply(ctx, domain.Transaction{
		AttemptID: uuid.NewString(),
		Type:      domain.TxGrant,
		Owner:     owner,
		Amount:    amount,
		Note:      note,
	})
	if err != nil {
		return 0, fmt.Errorf("apply grant: %w", err)
	}

	observability.CreditGrants.Inc()
	balance, err := a.store.Balance(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("read balance after grant: %w", err)
	}
	a.log.Info("credits granted", "owner", owner, "amount", amount, "balance", balance)
	return balance, nil
}

// Balances returns both balances visible to one caller.
func (a *Accountant) Balances(ctx context.Context, personal, domainOwner string) (*domain.BalancePair, error) {
	p, err := a.store.Balance(ctx, personal)
	if err != nil {
		return nil, err
	}
	d, err := a.store.Balance(ctx, domainOwner)
	if err != nil {
		return nil, err
	}
	return &domain.BalancePair{
		Personal:        personal,
		Domain:          domainOwner,
		PersonalCredits: p,
		DomainCredits:   d,
	}, nil
}

// validateAttemptID rejects malformed attempt ids before touching the store.
func validateAttemptID(attemptID string) error {
	if _, err := uuid.Parse(attemptID); err != nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidAttemptID, attemptID)
	}
	return nil
}

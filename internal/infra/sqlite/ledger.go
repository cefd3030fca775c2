// Ledger schema and operations.
// Balances and the append-only transaction log live in the same database so
// a balance adjustment and its transaction row commit as one atomic unit.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/listinggopher/listinggopher/internal/domain"
)

// Ensure DB implements the domain contract.
var _ domain.LedgerStore = (*DB)(nil)

// ─── Ledger Schema ──────────────────────────────────────────────────────────

// LedgerMigrations returns the ledger schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func LedgerMigrations() []string {
	return []string{
		// One integer credit balance per owner identity.
		// Created on first grant, never deleted, only zeroed.
		`CREATE TABLE IF NOT EXISTS balances (
			owner      TEXT PRIMARY KEY,
			credits    INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Append-only transaction log. UNIQUE(attempt_id, tx_type) is the
		// idempotency mechanism: at most one debit and one refund per attempt.
		`CREATE TABLE IF NOT EXISTS transactions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			attempt_id TEXT NOT NULL,
			tx_type    TEXT NOT NULL,
			owner      TEXT NOT NULL,
			source     TEXT NOT NULL DEFAULT '',
			amount     INTEGER NOT NULL,
			note       TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			UNIQUE(attempt_id, tx_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_owner ON transactions(owner, id)`,
	}
}

// ─── Ledger Operations ──────────────────────────────────────────────────────

// Balance returns the credit balance for an owner, 0 for unknown owners.
func (d *DB) Balance(ctx context.Context, owner string) (int64, error) {
	var credits int64
	err := d.db.QueryRowContext(ctx,
		`SELECT credits FROM balances WHERE owner = ?`, owner,
	).Scan(&credits)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return credits, nil
}

// Apply atomically appends tx and adjusts the owner's balance.
//
// The transaction row is inserted first so a replayed attempt is detected as
// domain.ErrDuplicateTransaction before any balance check. Debits then
// decrement with a credits >= amount guard in the UPDATE itself; zero rows
// affected means the debit would go negative and the whole unit rolls back
// (domain.ErrInsufficientCredits). Refunds and grants upsert-increment.
func (d *DB) Apply(ctx context.Context, tx domain.Transaction) error {
	if tx.Amount <= 0 {
		return domain.ErrInvalidAmount
	}

	dbtx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbtx.Rollback()

	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = dbtx.ExecContext(ctx,
		`INSERT INTO transactions (attempt_id, tx_type, owner, source, amount, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.AttemptID, string(tx.Type), tx.Owner, string(tx.Source), tx.Amount, tx.Note,
		createdAt.Format(time.RFC3339Nano),
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateTransaction
	}
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}

	switch tx.Type {
	case domain.TxDebit:
		res, err := dbtx.ExecContext(ctx,
			`UPDATE balances SET credits = credits - ?, updated_at = datetime('now')
			 WHERE owner = ? AND credits >= ?`,
			tx.Amount, tx.Owner, tx.Amount,
		)
		if err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}
		if n == 0 {
			// No row, or guard failed: either way the owner cannot cover it.
			return domain.ErrInsufficientCredits
		}

	case domain.TxRefund, domain.TxGrant:
		_, err := dbtx.ExecContext(ctx,
			`INSERT INTO balances (owner, credits, updated_at) VALUES (?, ?, datetime('now'))
			 ON CONFLICT(owner) DO UPDATE SET
				credits    = credits + excluded.credits,
				updated_at = datetime('now')`,
			tx.Owner, tx.Amount,
		)
		if err != nil {
			return fmt.Errorf("credit balance: %w", err)
		}

	default:
		return fmt.Errorf("unknown transaction type %q", tx.Type)
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DebitFor returns the debit recorded for an attempt.
func (d *DB) DebitFor(ctx context.Context, attemptID string) (*domain.Transaction, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, attempt_id, tx_type, owner, source, amount, note, created_at
		 FROM transactions WHERE attempt_id = ? AND tx_type = ?`,
		attemptID, string(domain.TxDebit),
	)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNoDebitRecorded
	}
	if err != nil {
		return nil, fmt.Errorf("query debit: %w", err)
	}
	return tx, nil
}

// TransactionsByAttempt returns the ledger rows for one attempt, oldest first.
func (d *DB) TransactionsByAttempt(ctx context.Context, attemptID string) ([]domain.Transaction, error) {
	return d.queryTransactions(ctx,
		`SELECT id, attempt_id, tx_type, owner, source, amount, note, created_at
		 FROM transactions WHERE attempt_id = ? ORDER BY id`, attemptID)
}

// TransactionsByOwner returns the most recent ledger rows for an owner.
func (d *DB) TransactionsByOwner(ctx context.Context, owner string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	return d.queryTransactions(ctx,
		`SELECT id, attempt_id, tx_type, owner, source, amount, note, created_at
		 FROM transactions WHERE owner = ? ORDER BY id DESC LIMIT ?`, owner, limit)
}

func (d *DB) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		tx        domain.Transaction
		txType    string
		source    string
		createdAt string
	)
	err := row.Scan(&tx.ID, &tx.AttemptID, &txType, &tx.Owner, &source, &tx.Amount, &tx.Note, &createdAt)
	if err != nil {
		return nil, err
	}
	tx.Type = domain.TxType(txType)
	tx.Source = domain.Source(source)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		tx.CreatedAt = t
	}
	return &tx, nil
}

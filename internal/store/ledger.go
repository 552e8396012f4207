package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tmoore22/boostd/internal/order"
)

// ErrInsufficientFunds is returned by Debit when the account balance does
// not cover the requested amount. No ledger row is written in that case.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrNoSuchAccount is returned when a ledger operation references an
// account that was never created.
var ErrNoSuchAccount = errors.New("no such account")

// EnsureAccount creates the account row if it does not exist.
// Existing accounts are left untouched (idempotent).
func (s *Store) EnsureAccount(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id) VALUES (?)
		ON CONFLICT(user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ensure account %d: %w", userID, err)
	}
	return nil
}

// Balance returns the current balance for a user in cents.
func (s *Store) Balance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE user_id = ?`, userID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("balance for user %d: %w", userID, ErrNoSuchAccount)
	}
	if err != nil {
		return 0, fmt.Errorf("balance for user %d: %w", userID, err)
	}
	return balance, nil
}

// Debit atomically subtracts amount from a user's balance and records the
// ledger transaction. Returns ErrInsufficientFunds without writing anything
// when the balance does not cover the amount.
//
// The conditional UPDATE claims the funds atomically; the single-writer
// connection serializes concurrent debits for the same account.
func (s *Store) Debit(ctx context.Context, userID, amount int64, description string, relatedOrderID *int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("debit: begin tx: %w", err)
	}
	defer tx.Rollback()

	txnID, err := debitInTx(ctx, tx, userID, amount, description, relatedOrderID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("debit: commit: %w", err)
	}
	return txnID, nil
}

// Credit atomically adds amount to a user's balance and records the ledger
// transaction.
func (s *Store) Credit(ctx context.Context, userID, amount int64, txnType order.TransactionType, description string, relatedOrderID *int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("credit: begin tx: %w", err)
	}
	defer tx.Rollback()

	txnID, err := creditInTx(ctx, tx, userID, amount, txnType, description, relatedOrderID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("credit: commit: %w", err)
	}
	return txnID, nil
}

// debitInTx performs the conditional balance update plus ledger insert
// inside an existing transaction. Shared by Debit and CreateOrderWithDebit.
func debitInTx(ctx context.Context, tx *sql.Tx, userID, amount int64, description string, relatedOrderID *int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance - ?
		WHERE user_id = ? AND balance >= ?
	`, amount, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("debit: update balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("debit: rows affected: %w", err)
	}
	if affected == 0 {
		// Either the account is missing or the balance is short.
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM accounts WHERE user_id = ?`, userID,
		).Scan(&exists)
		if err != nil {
			return 0, fmt.Errorf("debit: check account: %w", err)
		}
		if exists == 0 {
			return 0, fmt.Errorf("debit user %d: %w", userID, ErrNoSuchAccount)
		}
		return 0, fmt.Errorf("debit user %d amount %d: %w", userID, amount, ErrInsufficientFunds)
	}

	return insertTransaction(ctx, tx, userID, -amount, order.TxnOrderDebit, description, relatedOrderID)
}

// creditInTx performs the balance update plus ledger insert inside an
// existing transaction. Shared by Credit and RefundOrderAtomic.
func creditInTx(ctx context.Context, tx *sql.Tx, userID, amount int64, txnType order.TransactionType, description string, relatedOrderID *int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance + ?
		WHERE user_id = ?
	`, amount, userID)
	if err != nil {
		return 0, fmt.Errorf("credit: update balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("credit: rows affected: %w", err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("credit user %d: %w", userID, ErrNoSuchAccount)
	}

	return insertTransaction(ctx, tx, userID, amount, txnType, description, relatedOrderID)
}

// insertTransaction appends an immutable ledger row.
func insertTransaction(ctx context.Context, tx *sql.Tx, userID, signedAmount int64, txnType order.TransactionType, description string, relatedOrderID *int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (user_id, amount, type, description, related_order_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, userID, signedAmount, string(txnType), description, relatedOrderID, encodeTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert transaction: last insert id: %w", err)
	}
	return id, nil
}

// DebitForOrder returns the original debit transaction for an order, used
// by compensation to determine the exact refund amount.
func (s *Store) DebitForOrder(ctx context.Context, orderID int64) (order.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, amount, type, description, related_order_id, created_at
		FROM transactions
		WHERE related_order_id = ? AND type = ?
		ORDER BY id ASC
		LIMIT 1
	`, orderID, string(order.TxnOrderDebit))

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order.Transaction{}, fmt.Errorf("debit for order %d: %w", orderID, sql.ErrNoRows)
	}
	if err != nil {
		return order.Transaction{}, fmt.Errorf("debit for order %d: %w", orderID, err)
	}
	return txn, nil
}

// ListTransactions returns a user's ledger history, newest first.
// Returns an empty slice (not nil) when no rows exist.
func (s *Store) ListTransactions(ctx context.Context, userID int64) ([]order.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, type, description, related_order_id, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := []order.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txns, nil
}

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (order.Transaction, error) {
	var (
		txn       order.Transaction
		txnType   string
		related   sql.NullInt64
		createdAt string
	)
	if err := row.Scan(&txn.ID, &txn.UserID, &txn.Amount, &txnType, &txn.Description, &related, &createdAt); err != nil {
		return order.Transaction{}, err
	}
	txn.Type = order.TransactionType(txnType)
	if related.Valid {
		v := related.Int64
		txn.RelatedOrderID = &v
	}
	created, err := decodeTime(createdAt)
	if err != nil {
		return order.Transaction{}, err
	}
	txn.CreatedAt = created
	return txn, nil
}

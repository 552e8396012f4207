package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tmoore22/boostd/internal/order"
)

// NewOrder carries the fields for order intake. ChargedAmount is the
// price computed by the caller; the store only records and debits it.
type NewOrder struct {
	Kind          order.Kind
	OwnerID       int64
	TargetLink    string
	Quantity      int64
	Content       string
	ServiceKind   string
	Speed         string
	ChargedAmount int64
}

// CreateOrderWithDebit atomically inserts the order row in status Pending
// and debits the owner's balance, in a single transaction. Either both the
// order and its debit transaction exist afterwards, or neither does.
//
// Returns ErrInsufficientFunds (and writes nothing) when the balance does
// not cover ChargedAmount.
func (s *Store) CreateOrderWithDebit(ctx context.Context, n NewOrder) (orderID, txnID int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("create order: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Insert the order first so the debit row can reference it.
	// A rollback on insufficient funds removes it again.
	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders
		(kind, owner_id, target_link, quantity, content, service_kind,
		 speed, charged_amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(n.Kind), n.OwnerID, n.TargetLink, n.Quantity, n.Content,
		n.ServiceKind, n.Speed, n.ChargedAmount,
		string(order.StatusPending), encodeTime(time.Now()),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("create order: insert: %w", err)
	}

	orderID, err = res.LastInsertId()
	if err != nil {
		return 0, 0, fmt.Errorf("create order: last insert id: %w", err)
	}

	description := fmt.Sprintf("%s order #%d for %s", n.Kind, orderID, n.TargetLink)
	txnID, err = debitInTx(ctx, tx, n.OwnerID, n.ChargedAmount, description, &orderID)
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("create order: commit: %w", err)
	}
	return orderID, txnID, nil
}

// RefundOrderAtomic atomically credits the owner's balance and transitions
// the order to Cancelled, appending the given annotation. Either both the
// credit transaction and the status transition are applied, or neither is.
//
// Returns refunded=false without writing anything when the order is
// already terminal (the compensation already happened, or the order
// completed in the meantime).
func (s *Store) RefundOrderAtomic(ctx context.Context, orderID, userID, amount int64, annotation string) (txnID int64, refunded bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("refund order: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Claim the transition first; a terminal row means nothing to do.
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE orders SET
			status = ?,
			error_annotation = CASE
				WHEN error_annotation = '' THEN ?
				ELSE error_annotation || '; ' || ?
			END
		WHERE id = ? AND status NOT IN %s
	`, terminalStatuses),
		string(order.StatusCancelled), annotation, annotation, orderID)
	if err != nil {
		return 0, false, fmt.Errorf("refund order %d: transition: %w", orderID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("refund order %d: rows affected: %w", orderID, err)
	}
	if affected == 0 {
		if err := tx.Commit(); err != nil {
			return 0, false, fmt.Errorf("refund order %d: commit (no-op): %w", orderID, err)
		}
		return 0, false, nil
	}

	description := fmt.Sprintf("refund for order #%d", orderID)
	txnID, err = creditInTx(ctx, tx, userID, amount, order.TxnRefundCredit, description, &orderID)
	if err != nil {
		return 0, false, err
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("refund order %d: commit: %w", orderID, err)
	}
	return txnID, true, nil
}

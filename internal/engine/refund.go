package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmoore22/boostd/internal/order"
	"github.com/tmoore22/boostd/internal/store"
)

// AutoRefund reverses an order's debit after a failed submission: the
// compensating credit and the Cancelled transition are applied atomically,
// with an annotation naming the originating failure.
//
// If the atomic refund itself fails, the order is marked
// ApiSubmissionFailed with both failures in its annotation and
// ErrCodeRefundFailed is returned. That state is fatal for automation -
// refunds are never retried automatically.
func (e *Engine) AutoRefund(ctx context.Context, orderID int64, cause error) (string, error) {
	ord, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}

	annotation := fmt.Sprintf("auto-refund: %v", cause)
	amount, refunded, err := e.refund(ctx, ord, annotation)
	if err != nil {
		return "", e.markRefundFailed(ctx, orderID, cause, err)
	}
	if !refunded {
		return fmt.Sprintf("order #%d was already refunded", orderID), nil
	}

	slog.Info("order auto-refunded",
		"order_id", orderID,
		"owner_id", ord.OwnerID,
		"amount", amount,
		"cause", cause,
	)
	return fmt.Sprintf("order #%d could not be submitted and the charge of %d was refunded", orderID, amount), nil
}

// ManualRefund is the operator-invoked compensation variant. It may be
// applied to any non-terminal order (e.g. cancelling an InProgress order
// at operator discretion) and is idempotent against an order that is
// already Cancelled.
func (e *Engine) ManualRefund(ctx context.Context, orderID int64) (RefundResult, error) {
	ord, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return RefundResult{}, err
	}

	if ord.Status == order.StatusCancelled {
		return RefundResult{
			OrderID:         orderID,
			AlreadyRefunded: true,
			Message:         fmt.Sprintf("order #%d is already refunded", orderID),
		}, nil
	}
	if ord.Status == order.StatusCompleted {
		return RefundResult{}, &Error{
			Code:    ErrCodeValidation,
			Message: "completed orders cannot be refunded",
			OrderID: orderID,
		}
	}

	amount, refunded, err := e.refund(ctx, ord, "manual refund by operator")
	if err != nil {
		return RefundResult{}, &Error{
			Code:    ErrCodeRefundFailed,
			Message: fmt.Sprintf("refund failed: %v", err),
			OrderID: orderID,
			Err:     err,
		}
	}
	if !refunded {
		// Lost a race against another refund of the same order.
		return RefundResult{
			OrderID:         orderID,
			AlreadyRefunded: true,
			Message:         fmt.Sprintf("order #%d is already refunded", orderID),
		}, nil
	}

	slog.Info("order manually refunded",
		"order_id", orderID,
		"owner_id", ord.OwnerID,
		"amount", amount,
	)
	return RefundResult{
		OrderID:        orderID,
		AmountRefunded: amount,
		Message:        fmt.Sprintf("order #%d refunded %d to user %d", orderID, amount, ord.OwnerID),
	}, nil
}

// refund looks up the original debit and applies the atomic
// credit-plus-cancel. The refund amount always equals the original debit
// exactly.
func (e *Engine) refund(ctx context.Context, ord order.Order, annotation string) (amount int64, refunded bool, err error) {
	debit, err := e.store.DebitForOrder(ctx, ord.ID)
	if err != nil {
		return 0, false, fmt.Errorf("locate original debit: %w", err)
	}
	amount = -debit.Amount

	_, refunded, err = e.store.RefundOrderAtomic(ctx, ord.ID, ord.OwnerID, amount, annotation)
	if err != nil {
		return 0, false, err
	}
	return amount, refunded, nil
}

// markRefundFailed records the fatal-for-automation state and builds the
// ErrCodeRefundFailed error carrying both failures.
func (e *Engine) markRefundFailed(ctx context.Context, orderID int64, cause, refundErr error) error {
	annotation := fmt.Sprintf("submission failed (%v) and refund failed (%v); manual review required", cause, refundErr)
	failed := order.StatusAPISubmissionFailed
	if uerr := e.store.UpdateFields(ctx, orderID, store.OrderPatch{
		Status:           &failed,
		AppendAnnotation: &annotation,
	}); uerr != nil {
		slog.Error("failed to mark order as refund-failed",
			"order_id", orderID,
			"error", uerr,
		)
	}

	slog.Error("automatic refund failed, operator intervention required",
		"order_id", orderID,
		"cause", cause,
		"refund_error", refundErr,
	)
	return &Error{
		Code:    ErrCodeRefundFailed,
		Message: fmt.Sprintf("submission failed (%v) and the automatic refund also failed (%v)", cause, refundErr),
		OrderID: orderID,
		Err:     refundErr,
	}
}

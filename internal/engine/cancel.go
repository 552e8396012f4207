package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmoore22/boostd/internal/order"
	"github.com/tmoore22/boostd/internal/store"
)

// Cancel cancels an order at the provider, then locally.
//
// An external cancel failure is propagated verbatim with no local state
// change. The two steps are not atomic: a crash between them leaves the
// order cancelled at the provider but not locally, and the next
// reconciliation poll converges to the provider's terminal state.
//
// No refund is issued here - cancelling an in-flight order is a distinct
// business decision from a failed submission (see ManualRefund).
func (e *Engine) Cancel(ctx context.Context, orderID int64) (CancelResult, error) {
	ord, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return CancelResult{}, err
	}

	switch {
	case ord.Status == order.StatusCancelled:
		return CancelResult{OK: true, Message: "order is already cancelled"}, nil

	case ord.Status == order.StatusCompleted:
		return CancelResult{}, &Error{
			Code:    ErrCodeNotCancellable,
			Message: "order is already completed",
			OrderID: orderID,
		}

	case ord.ExternalReference == "":
		return CancelResult{}, &Error{
			Code:    ErrCodeNotCancellable,
			Message: "order has not been accepted by the provider yet",
			OrderID: orderID,
		}

	case ord.Kind == order.KindComment:
		// The provider offers no cancel operation for comments.
		return CancelResult{}, &Error{
			Code:    ErrCodeNotCancellable,
			Message: "comment orders cannot be cancelled",
			OrderID: orderID,
		}
	}

	if err := e.client.CancelVoteOrder(ctx, ord.ExternalReference); err != nil {
		return CancelResult{}, fmt.Errorf("cancel order %d at provider: %w", orderID, err)
	}

	cancelled := order.StatusCancelled
	if err := e.store.UpdateFields(ctx, orderID, store.OrderPatch{Status: &cancelled}); err != nil {
		return CancelResult{}, err
	}

	slog.Info("order cancelled",
		"order_id", orderID,
		"external_reference", ord.ExternalReference,
	)
	return CancelResult{OK: true, Message: fmt.Sprintf("order #%d cancelled", orderID)}, nil
}

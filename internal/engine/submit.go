package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/tmoore22/boostd/internal/order"
	"github.com/tmoore22/boostd/internal/provider"
	"github.com/tmoore22/boostd/internal/store"
)

// OrderRequest is the intake payload for a new order.
type OrderRequest struct {
	OwnerID    int64
	Kind       order.Kind
	TargetLink string

	// Vote orders.
	Quantity    int64
	ServiceKind string
	Speed       string

	// Comment orders.
	Content string
}

// Submit validates the request, atomically debits the balance and creates
// the order, then dispatches it to the provider.
//
// Dispatch outcomes:
//   - accepted: the order carries its external reference and one seed
//     status poll has run;
//   - transport unreachable: the order is parked in PendingApiSubmission,
//     still debited, awaiting Resubmit - this is an operational condition,
//     not a customer-facing failure;
//   - rejected (or any other post-debit failure): the debit is refunded
//     and the returned error says so explicitly.
//
// Repeated calls with the same logical request create independent orders;
// de-duplication of accidental double submits is the UI's concern.
func (e *Engine) Submit(ctx context.Context, req OrderRequest) (SubmitResult, error) {
	n, err := e.validate(req)
	if err != nil {
		return SubmitResult{}, err
	}

	orderID, txnID, err := e.store.CreateOrderWithDebit(ctx, n)
	if errors.Is(err, store.ErrInsufficientFunds) {
		return SubmitResult{}, &Error{
			Code:    ErrCodeInsufficientFunds,
			Message: fmt.Sprintf("balance does not cover the order price of %d", n.ChargedAmount),
			Err:     err,
		}
	}
	if err != nil {
		return SubmitResult{}, fmt.Errorf("create order: %w", err)
	}

	slog.Info("order created",
		"order_id", orderID,
		"kind", n.Kind,
		"owner_id", n.OwnerID,
		"charged_amount", n.ChargedAmount,
		"txn_id", txnID,
	)

	return e.dispatch(ctx, orderID, n)
}

// Resubmit re-dispatches an order parked in PendingApiSubmission: the
// debit already exists, only the provider hand-off is retried.
func (e *Engine) Resubmit(ctx context.Context, orderID int64) (SubmitResult, error) {
	ord, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return SubmitResult{}, err
	}
	if ord.Status != order.StatusPendingAPISubmission {
		return SubmitResult{}, &Error{
			Code:    ErrCodeValidation,
			Message: fmt.Sprintf("only orders awaiting submission can be resubmitted, order is %s", ord.Status),
			OrderID: orderID,
		}
	}

	n := store.NewOrder{
		Kind:          ord.Kind,
		OwnerID:       ord.OwnerID,
		TargetLink:    ord.TargetLink,
		Quantity:      ord.Quantity,
		Content:       ord.Content,
		ServiceKind:   ord.ServiceKind,
		Speed:         ord.Speed,
		ChargedAmount: ord.ChargedAmount,
	}
	return e.dispatch(ctx, orderID, n)
}

// dispatch hands an already-debited order to the provider and records the
// outcome. Shared by Submit and Resubmit.
func (e *Engine) dispatch(ctx context.Context, orderID int64, n store.NewOrder) (SubmitResult, error) {
	var (
		reference string
		err       error
	)
	switch n.Kind {
	case order.KindVote:
		reference, err = e.client.SubmitVoteOrder(ctx, provider.VoteSubmission{
			Link:        n.TargetLink,
			Quantity:    n.Quantity,
			ServiceKind: n.ServiceKind,
			Speed:       n.Speed,
		})
	case order.KindComment:
		reference, err = e.client.SubmitCommentOrder(ctx, provider.CommentSubmission{
			Link:    n.TargetLink,
			Content: n.Content,
		})
	default:
		err = fmt.Errorf("unknown order kind %q", n.Kind)
	}

	switch {
	case err == nil:
		return e.recordAccepted(ctx, orderID, reference)

	case provider.IsUnreachable(err):
		// Operational condition: the order stays debited and waits for
		// resubmission. No compensation.
		annotation := fmt.Sprintf("submission endpoint unreachable: %v", err)
		pending := order.StatusPendingAPISubmission
		if uerr := e.store.UpdateFields(ctx, orderID, store.OrderPatch{
			Status:           &pending,
			AppendAnnotation: &annotation,
		}); uerr != nil {
			return SubmitResult{OrderID: orderID}, fmt.Errorf("park order %d: %w", orderID, uerr)
		}
		slog.Warn("submission endpoint unreachable, order parked",
			"order_id", orderID,
			"error", err,
		)
		return SubmitResult{
			OrderID: orderID,
			Status:  order.StatusPendingAPISubmission,
			Message: "submission endpoint unreachable; order is queued for resubmission and remains charged",
		}, nil

	default:
		// Provider rejection or any other post-debit failure: compensate.
		message, rerr := e.AutoRefund(ctx, orderID, err)
		if rerr != nil {
			return SubmitResult{OrderID: orderID}, rerr
		}
		return SubmitResult{
				OrderID:  orderID,
				Status:   order.StatusCancelled,
				Refunded: true,
				Message:  message,
			}, &Error{
				Code:    ErrCodeProviderRejected,
				Message: fmt.Sprintf("provider rejected the order and the charge was refunded: %v", err),
				OrderID: orderID,
				Err:     err,
			}
	}
}

// recordAccepted stores the external reference and runs one synchronous
// seed poll so the order reflects provider truth immediately instead of
// waiting for the next scheduled refresh.
func (e *Engine) recordAccepted(ctx context.Context, orderID int64, reference string) (SubmitResult, error) {
	pending := order.StatusPending
	if err := e.store.UpdateFields(ctx, orderID, store.OrderPatch{
		ExternalReference: &reference,
		Status:            &pending,
	}); err != nil {
		return SubmitResult{OrderID: orderID}, fmt.Errorf("record external reference for order %d: %w", orderID, err)
	}

	slog.Info("order accepted by provider",
		"order_id", orderID,
		"external_reference", reference,
	)

	result := SubmitResult{
		OrderID:           orderID,
		ExternalReference: reference,
		Status:            order.StatusPending,
		Message:           fmt.Sprintf("order #%d submitted, tracking id %s", orderID, reference),
	}

	// Seed poll failures are non-fatal; the order simply stays Pending
	// until the next refresh.
	seed, err := e.RefreshStatus(ctx, orderID)
	if err == nil && seed.Updated {
		result.Status = seed.Status
	}
	return result, nil
}

// validate checks the request against the service catalog and computes the
// price. Fails before any side effect.
func (e *Engine) validate(req OrderRequest) (store.NewOrder, error) {
	if strings.TrimSpace(req.TargetLink) == "" {
		return store.NewOrder{}, newValidationError("target link is required")
	}

	n := store.NewOrder{
		Kind:       req.Kind,
		OwnerID:    req.OwnerID,
		TargetLink: req.TargetLink,
	}

	switch req.Kind {
	case order.KindVote:
		vs, ok := e.catalog.VoteService(req.ServiceKind)
		if !ok {
			return store.NewOrder{}, newValidationError("unknown vote service %q", req.ServiceKind)
		}
		if req.Quantity < vs.MinQuantity || req.Quantity > vs.MaxQuantity {
			return store.NewOrder{}, newValidationError(
				"quantity %d outside the allowed range [%d, %d] for service %q",
				req.Quantity, vs.MinQuantity, vs.MaxQuantity, req.ServiceKind)
		}
		speed := req.Speed
		if speed == "" {
			speed = vs.Speeds[0]
		}
		if !vs.AllowsSpeed(speed) {
			return store.NewOrder{}, newValidationError(
				"speed %q not offered by service %q", speed, req.ServiceKind)
		}
		n.Quantity = req.Quantity
		n.ServiceKind = req.ServiceKind
		n.Speed = speed
		n.ChargedAmount = vs.VotePrice(req.Quantity)

	case order.KindComment:
		// The provider compares content byte-wise, so normalize to NFC
		// before it becomes part of the order record.
		content := norm.NFC.String(strings.TrimSpace(req.Content))
		if content == "" {
			return store.NewOrder{}, newValidationError("comment content is required")
		}
		if max := e.catalog.CommentService.MaxContentLength; int64(utf8.RuneCountInString(content)) > max {
			return store.NewOrder{}, newValidationError(
				"comment content exceeds the %d character limit", max)
		}
		n.Content = content
		n.ChargedAmount = e.catalog.CommentService.Price

	default:
		return store.NewOrder{}, newValidationError("unknown order kind %q", req.Kind)
	}

	return n, nil
}

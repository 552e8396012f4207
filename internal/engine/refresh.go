package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tmoore22/boostd/internal/order"
)

// RefreshStatus polls the provider for one order and merges the returned
// snapshot into the local record.
//
// Non-error short-circuits (Updated=false):
//   - the order has no external reference yet;
//   - the previous poll was inside the cooldown window.
//
// A provider failure is also swallowed into Updated=false: the cooldown
// timestamp still advances so a failing endpoint is not hot-looped, but
// order state is left untouched. Only store failures escape as errors.
func (e *Engine) RefreshStatus(ctx context.Context, orderID int64) (RefreshResult, error) {
	ord, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return RefreshResult{}, err
	}

	if ord.ExternalReference == "" {
		return RefreshResult{Updated: false, Message: "no tracking id yet"}, nil
	}

	now := e.clock.Now()
	if ord.LastCheckedAt != nil {
		if elapsed := now.Sub(*ord.LastCheckedAt); elapsed < e.cooldown {
			return RefreshResult{
				Updated: false,
				Message: fmt.Sprintf("Status checked %ds ago", int(elapsed.Seconds())),
			}, nil
		}
	}

	var (
		status    order.Status
		delivered int64
	)
	switch ord.Kind {
	case order.KindVote:
		st, perr := e.client.GetVoteOrderStatus(ctx, ord.ExternalReference)
		if perr != nil {
			return e.pollFailed(ctx, ord, perr)
		}
		status, delivered = st.Status, st.DeliveredCount
	case order.KindComment:
		st, perr := e.client.GetCommentOrderStatus(ctx, ord.ExternalReference)
		if perr != nil {
			return e.pollFailed(ctx, ord, perr)
		}
		status = st.Status
	default:
		return RefreshResult{}, fmt.Errorf("order %d has unknown kind %q", orderID, ord.Kind)
	}

	if err := e.store.MergeProviderState(ctx, orderID, status, delivered, now); err != nil {
		return RefreshResult{}, err
	}

	merged := clampDelivered(ord, delivered)
	slog.Debug("order status refreshed",
		"order_id", orderID,
		"status", status,
		"delivered_count", merged,
	)
	return RefreshResult{
		Updated:        true,
		Status:         status,
		DeliveredCount: merged,
		Message:        "status refreshed",
	}, nil
}

// pollFailed advances the cooldown timestamp and reports a non-update.
func (e *Engine) pollFailed(ctx context.Context, ord order.Order, perr error) (RefreshResult, error) {
	if err := e.store.TouchLastChecked(ctx, ord.ID, e.clock.Now()); err != nil {
		return RefreshResult{}, err
	}
	slog.Warn("status poll failed",
		"order_id", ord.ID,
		"external_reference", ord.ExternalReference,
		"error", perr,
	)
	return RefreshResult{Updated: false, Message: perr.Error()}, nil
}

// clampDelivered mirrors the store-side merge invariants so the result
// shape reports the value that was actually stored.
func clampDelivered(ord order.Order, reported int64) int64 {
	merged := max(ord.DeliveredCount, reported)
	return min(ord.Quantity, merged)
}

// RefreshMany refreshes orders in fixed-size batches: every member of a
// batch is polled concurrently, the batch is awaited, and a fixed pause
// separates batches. A per-order failure never aborts the batch or the
// run; every requested order is counted exactly once.
//
// Cancelling ctx stops the run at the next batch boundary and returns the
// counts accumulated so far alongside the context error.
func (e *Engine) RefreshMany(ctx context.Context, orderIDs []int64) (BulkRefreshResult, error) {
	var result BulkRefreshResult

	for start := 0; start < len(orderIDs); start += e.batchSize {
		batch := orderIDs[start:min(start+e.batchSize, len(orderIDs))]

		var (
			wg sync.WaitGroup
			mu sync.Mutex
		)
		for _, id := range batch {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := e.RefreshStatus(ctx, id)

				mu.Lock()
				defer mu.Unlock()
				if err == nil && res.Updated {
					result.UpdatedCount++
				} else {
					result.FailedCount++
				}
			}()
		}
		wg.Wait()

		if start+e.batchSize < len(orderIDs) && e.batchPause > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-e.clock.After(e.batchPause):
			}
		}
	}

	slog.Info("bulk refresh finished",
		"requested", len(orderIDs),
		"updated", result.UpdatedCount,
		"failed", result.FailedCount,
	)
	return result, nil
}

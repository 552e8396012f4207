package provider

import (
	"fmt"

	"github.com/tmoore22/boostd/internal/order"
)

// wireStatuses maps the provider's status vocabulary onto the local
// lifecycle. "Partial" is deliberately non-terminal: the local record keeps
// polling until an operator decides what to do with a short delivery.
var wireStatuses = map[string]order.Status{
	"Pending":     order.StatusPending,
	"In progress": order.StatusInProgress,
	"Processing":  order.StatusInProgress,
	"Partial":     order.StatusInProgress,
	"Completed":   order.StatusCompleted,
	"Canceled":    order.StatusCancelled,
	"Cancelled":   order.StatusCancelled,
}

// mapStatus translates a provider wire status into a local order status.
// An unknown status is an error: guessing a lifecycle state for vocabulary
// we have never seen risks a wrong terminal transition.
func mapStatus(wire string) (order.Status, error) {
	if st, ok := wireStatuses[wire]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown provider status %q", wire)
}

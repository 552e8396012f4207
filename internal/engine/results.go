package engine

import "github.com/tmoore22/boostd/internal/order"

// Result shapes are stable and serializable: the UI and CLI render them
// directly, without further interpretation.

// SubmitResult reports the outcome of an order submission.
type SubmitResult struct {
	OrderID           int64        `json:"order_id"`
	ExternalReference string       `json:"external_reference,omitempty"`
	Status            order.Status `json:"status"`

	// Refunded is true when the submission failed after the debit and
	// the charge was compensated.
	Refunded bool `json:"refunded,omitempty"`

	Message string `json:"message"`
}

// RefreshResult reports the outcome of a single status poll.
type RefreshResult struct {
	Updated        bool         `json:"updated"`
	Status         order.Status `json:"status,omitempty"`
	DeliveredCount int64        `json:"delivered_count,omitempty"`
	Message        string       `json:"message"`
}

// BulkRefreshResult accumulates per-order outcomes of a bulk refresh.
// Every requested order is counted exactly once.
type BulkRefreshResult struct {
	UpdatedCount int `json:"updated_count"`
	FailedCount  int `json:"failed_count"`
}

// CancelResult reports the outcome of a cancellation.
type CancelResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// RefundResult reports the outcome of a manual refund.
type RefundResult struct {
	OrderID         int64  `json:"order_id"`
	AmountRefunded  int64  `json:"amount_refunded,omitempty"`
	AlreadyRefunded bool   `json:"already_refunded,omitempty"`
	Message         string `json:"message"`
}

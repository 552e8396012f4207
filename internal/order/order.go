package order

import (
	"fmt"
	"time"
)

// Kind discriminates the two purchasable order kinds.
type Kind string

const (
	// KindVote is a bulk vote/engagement order with a target quantity.
	KindVote Kind = "vote"

	// KindComment is a single authored comment order.
	KindComment Kind = "comment"
)

// ParseKind validates a kind string from external input (CLI, scenarios).
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindVote, KindComment:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown order kind %q", s)
}

// Status is the local order lifecycle state.
//
// The provider is authoritative for InProgress/Completed/Cancelled once an
// order carries an external reference; the remaining states are local-only
// submission bookkeeping.
type Status string

const (
	// StatusPending: order accepted locally (and debited); awaiting or
	// just past provider acceptance.
	StatusPending Status = "PENDING"

	// StatusPendingAPISubmission: the dispatch boundary itself was
	// unreachable. The order stays debited and waits for resubmission.
	StatusPendingAPISubmission Status = "PENDING_API_SUBMISSION"

	// StatusInProgress: provider has started delivering.
	StatusInProgress Status = "IN_PROGRESS"

	// StatusCompleted: provider reports full delivery. Terminal.
	StatusCompleted Status = "COMPLETED"

	// StatusCancelled: cancelled at the provider, or compensated after a
	// failed submission. Terminal.
	StatusCancelled Status = "CANCELLED"

	// StatusAPISubmissionFailed: the submission failed AND the automatic
	// refund also failed. Requires operator intervention.
	StatusAPISubmissionFailed Status = "API_SUBMISSION_FAILED"
)

// Terminal reports whether a status admits no further lifecycle writes.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus validates a status string read from storage or scenarios.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusPendingAPISubmission, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusAPISubmissionFailed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Order is a purchased unit of engagement tracked from intake to
// provider-confirmed completion. Orders are never deleted; they are the
// audit trail for every balance debit.
type Order struct {
	ID      int64
	Kind    Kind
	OwnerID int64

	// TargetLink is opaque to the engine; validated upstream.
	TargetLink string

	// Quantity is the purchased vote count (vote orders only).
	Quantity int64

	// Content is the comment body (comment orders only).
	Content string

	// ServiceKind and Speed select the catalog service (vote orders only).
	ServiceKind string
	Speed       string

	// ChargedAmount is the debit applied at intake, in cents.
	ChargedAmount int64

	Status Status

	// ExternalReference is the provider's tracking id. Set at most once,
	// never cleared.
	ExternalReference string

	// DeliveredCount never exceeds Quantity and never decreases under
	// well-behaved reconciliation.
	DeliveredCount int64

	// LastCheckedAt gates the reconciliation cooldown.
	LastCheckedAt *time.Time

	// ErrorAnnotation accumulates human-readable failure context.
	ErrorAnnotation string

	CreatedAt time.Time
}

// Transaction is an immutable balance-ledger record. One row exists per
// balance mutation; rows are never updated or deleted.
type Transaction struct {
	ID             int64
	UserID         int64
	Amount         int64 // signed cents: debits negative, credits positive
	Type           TransactionType
	Description    string
	RelatedOrderID *int64
	CreatedAt      time.Time
}

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	// TxnOrderDebit is the charge applied when an order is created.
	TxnOrderDebit TransactionType = "ORDER_DEBIT"

	// TxnRefundCredit reverses an order debit during compensation.
	TxnRefundCredit TransactionType = "REFUND_CREDIT"

	// TxnDeposit funds an account. Produced by the payment-intake flow,
	// which is outside this engine; recorded here for a complete ledger.
	TxnDeposit TransactionType = "DEPOSIT"
)

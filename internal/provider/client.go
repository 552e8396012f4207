// Package provider wraps the external fulfillment provider's API behind a
// typed client. The provider is the authoritative source of truth for an
// order's delivery status; this package's only jobs are transport and
// error classification (KindUnreachable vs KindRejected).
package provider

import (
	"context"

	"github.com/tmoore22/boostd/internal/order"
)

// VoteSubmission is the payload for a vote order submission.
type VoteSubmission struct {
	Link        string
	Quantity    int64
	ServiceKind string
	Speed       string
}

// CommentSubmission is the payload for a comment order submission.
type CommentSubmission struct {
	Link    string
	Content string
}

// VoteStatus is the provider's snapshot of a vote order.
type VoteStatus struct {
	Status         order.Status
	DeliveredCount int64
}

// CommentStatus is the provider's snapshot of a comment order.
// Comments carry no delivery count; they are delivered whole or not at all.
type CommentStatus struct {
	Status order.Status
}

// Client is the set of provider operations the engine consumes.
// Implemented by HTTPClient (production) and the scripted provider in
// internal/testutil (tests).
//
// Every method returns either a result or a *provider.Error; a timed-out
// call surfaces as KindUnreachable, never as success.
type Client interface {
	SubmitVoteOrder(ctx context.Context, sub VoteSubmission) (reference string, err error)
	SubmitCommentOrder(ctx context.Context, sub CommentSubmission) (reference string, err error)
	GetVoteOrderStatus(ctx context.Context, reference string) (VoteStatus, error)
	GetCommentOrderStatus(ctx context.Context, reference string) (CommentStatus, error)

	// CancelVoteOrder cancels a vote order at the provider. There is no
	// cancel operation for comment orders.
	CancelVoteOrder(ctx context.Context, reference string) error
}

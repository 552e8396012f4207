// Package testutil provides test doubles shared by the engine tests and
// the scenario harness.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmoore22/boostd/internal/provider"
)

// SubmitReply scripts one submission outcome.
type SubmitReply struct {
	Reference string
	Err       error
}

// VoteStatusReply scripts one vote status poll outcome.
type VoteStatusReply struct {
	Status provider.VoteStatus
	Err    error
}

// CommentStatusReply scripts one comment status poll outcome.
type CommentStatusReply struct {
	Status provider.CommentStatus
	Err    error
}

// CancelReply scripts one cancel outcome.
type CancelReply struct {
	Err error
}

// ScriptedProvider is a provider.Client whose responses are scripted per
// operation, in order. Each call consumes the next scripted reply; a call
// with no scripted reply panics, which fails fast when a test issues more
// provider calls than it planned for (the seed poll after submission is an
// easy one to forget).
//
// Thread-safety: all methods lock internally; concurrent calls from
// RefreshMany batches are safe, though reply assignment within a batch is
// then first-come-first-served.
type ScriptedProvider struct {
	mu sync.Mutex

	VoteSubmits     []SubmitReply
	CommentSubmits  []SubmitReply
	VoteStatuses    []VoteStatusReply
	CommentStatuses []CommentStatusReply
	Cancels         []CancelReply

	// Calls records every operation in invocation order for assertions.
	Calls []string
}

var _ provider.Client = (*ScriptedProvider)(nil)

// SubmitVoteOrder implements provider.Client.
func (p *ScriptedProvider) SubmitVoteOrder(_ context.Context, sub provider.VoteSubmission) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, fmt.Sprintf("SubmitVoteOrder(%s,%d)", sub.Link, sub.Quantity))
	if len(p.VoteSubmits) == 0 {
		panic("ScriptedProvider: no scripted reply for SubmitVoteOrder")
	}
	reply := p.VoteSubmits[0]
	p.VoteSubmits = p.VoteSubmits[1:]
	return reply.Reference, reply.Err
}

// SubmitCommentOrder implements provider.Client.
func (p *ScriptedProvider) SubmitCommentOrder(_ context.Context, sub provider.CommentSubmission) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, fmt.Sprintf("SubmitCommentOrder(%s)", sub.Link))
	if len(p.CommentSubmits) == 0 {
		panic("ScriptedProvider: no scripted reply for SubmitCommentOrder")
	}
	reply := p.CommentSubmits[0]
	p.CommentSubmits = p.CommentSubmits[1:]
	return reply.Reference, reply.Err
}

// GetVoteOrderStatus implements provider.Client.
func (p *ScriptedProvider) GetVoteOrderStatus(_ context.Context, reference string) (provider.VoteStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, fmt.Sprintf("GetVoteOrderStatus(%s)", reference))
	if len(p.VoteStatuses) == 0 {
		panic("ScriptedProvider: no scripted reply for GetVoteOrderStatus")
	}
	reply := p.VoteStatuses[0]
	p.VoteStatuses = p.VoteStatuses[1:]
	return reply.Status, reply.Err
}

// GetCommentOrderStatus implements provider.Client.
func (p *ScriptedProvider) GetCommentOrderStatus(_ context.Context, reference string) (provider.CommentStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, fmt.Sprintf("GetCommentOrderStatus(%s)", reference))
	if len(p.CommentStatuses) == 0 {
		panic("ScriptedProvider: no scripted reply for GetCommentOrderStatus")
	}
	reply := p.CommentStatuses[0]
	p.CommentStatuses = p.CommentStatuses[1:]
	return reply.Status, reply.Err
}

// CancelVoteOrder implements provider.Client.
func (p *ScriptedProvider) CancelVoteOrder(_ context.Context, reference string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, fmt.Sprintf("CancelVoteOrder(%s)", reference))
	if len(p.Cancels) == 0 {
		panic("ScriptedProvider: no scripted reply for CancelVoteOrder")
	}
	reply := p.Cancels[0]
	p.Cancels = p.Cancels[1:]
	return reply.Err
}

// CallCount returns how many operations were invoked so far.
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

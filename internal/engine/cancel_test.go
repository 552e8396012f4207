package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmoore22/boostd/internal/order"
	"github.com/tmoore22/boostd/internal/provider"
	"github.com/tmoore22/boostd/internal/store"
	"github.com/tmoore22/boostd/internal/testutil"
)

func TestCancel_InFlightVoteOrder(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 1, 1000)
	id := submitTracked(t, env, "ext-1")

	env.provider.Cancels = []testutil.CancelReply{{}}
	res, err := env.engine.Cancel(context.Background(), id)
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, order.StatusCancelled, env.order(t, id).Status)
	assert.Contains(t, env.provider.Calls, "CancelVoteOrder(ext-1)")

	// Cancelling does not touch the ledger.
	assert.Equal(t, int64(950), env.balance(t, 1))
}

func TestCancel_AlreadyCancelledIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 1, 1000)
	id := submitTracked(t, env, "ext-1")

	env.provider.Cancels = []testutil.CancelReply{{}}
	_, err := env.engine.Cancel(context.Background(), id)
	require.NoError(t, err)

	calls := env.provider.CallCount()
	res, err := env.engine.Cancel(context.Background(), id)
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, "order is already cancelled", res.Message)
	assert.Equal(t, calls, env.provider.CallCount(), "no second provider call")
}

func TestCancel_CompletedOrderIsNotCancellable(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 1, 1000)
	id := submitTracked(t, env, "ext-1")

	env.clock.Advance(31 * time.Second)
	env.provider.VoteStatuses = []testutil.VoteStatusReply{
		{Status: provider.VoteStatus{Status: order.StatusCompleted, DeliveredCount: 10}},
	}
	_, err := env.engine.RefreshStatus(context.Background(), id)
	require.NoError(t, err)

	_, err = env.engine.Cancel(context.Background(), id)
	assert.True(t, IsNotCancellable(err))
	assert.Equal(t, order.StatusCompleted, env.order(t, id).Status)
}

func TestCancel_OrderWithoutTrackingID(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 1, 1000)
	env.provider.VoteSubmits = []testutil.SubmitReply{
		{Err: provider.NewUnreachable("submit vote order", assert.AnError)},
	}
	res, err := env.engine.Submit(context.Background(), voteRequest())
	require.NoError(t, err)

	_, err = env.engine.Cancel(context.Background(), res.OrderID)
	assert.True(t, IsNotCancellable(err))
}

func TestCancel_CommentOrdersAreNotCancellable(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 1, 1000)
	env.provider.CommentSubmits = []testutil.SubmitReply{{Reference: "cmt-1"}}
	env.provider.CommentStatuses = []testutil.CommentStatusReply{
		{Status: provider.CommentStatus{Status: order.StatusPending}},
	}

	res, err := env.engine.Submit(context.Background(), OrderRequest{
		OwnerID:    1,
		Kind:       order.KindComment,
		TargetLink: "https://example.com/p/1",
		Content:    "nice post",
	})
	require.NoError(t, err)

	calls := env.provider.CallCount()
	_, err = env.engine.Cancel(context.Background(), res.OrderID)
	assert.True(t, IsNotCancellable(err))
	assert.Equal(t, calls, env.provider.CallCount())
}

func TestCancel_ProviderFailureLeavesOrderUntouched(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 1, 1000)
	id := submitTracked(t, env, "ext-1")
	before := env.order(t, id)

	env.provider.Cancels = []testutil.CancelReply{
		{Err: provider.NewUnreachable("cancel vote order", assert.AnError)},
	}

	_, err := env.engine.Cancel(context.Background(), id)
	require.Error(t, err)
	assert.True(t, provider.IsUnreachable(err))

	after := env.order(t, id)
	assert.Equal(t, before.Status, after.Status)
}

func TestCancel_UnknownOrder(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Cancel(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrNoSuchOrder)
}

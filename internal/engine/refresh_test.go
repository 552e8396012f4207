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

// submitTracked creates one accepted vote order whose seed poll returned
// Pending, leaving the cooldown window open from the current clock time.
func submitTracked(t *testing.T, env *testEnv, ref string) int64 {
	t.Helper()
	env.provider.VoteSubmits = append(env.provider.VoteSubmits,
		testutil.SubmitReply{Reference: ref})
	env.provider.VoteStatuses = append(env.provider.VoteStatuses,
		testutil.VoteStatusReply{Status: provider.VoteStatus{Status: order.StatusPending}})

	res, err := env.engine.Submit(context.Background(), voteRequest())
	require.NoError(t, err)
	return res.OrderID
}

func TestRefreshStatus_NoTrackingID(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 1, 1000)
	env.provider.VoteSubmits = []testutil.SubmitReply{
		{Err: provider.NewUnreachable("submit vote order", assert.AnError)},
	}
	res, err := env.engine.Submit(context.Background(), voteRequest())
	require.NoError(t, err)

	calls := env.provider.CallCount()
	refreshed, err := env.engine.RefreshStatus(context.Background(), res.OrderID)
	require.NoError(t, err)

	assert.False(t, refreshed.Updated)
	assert.Equal(t, "no tracking id yet", refreshed.Message)
	assert.Equal(t, calls, env.provider.CallCount(), "provider must not be polled")
}

func TestRefreshStatus_CooldownWindow(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 1, 1000)
	id := submitTracked(t, env, "ext-1")

	env.clock.Advance(5 * time.Second)
	res, err := env.engine.RefreshStatus(context.Background(), id)
	require.NoError(t, err)

	assert.False(t, res.Updated)
	assert.Equal(t, "Status checked 5s ago", res.Message)
	// Only the seed poll reached the provider.
	assert.Equal(t, 2, env.provider.CallCount())
}

func TestRefreshStatus_MergesProviderSnapshotAfterCooldown(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 1, 1000)
	id := submitTracked(t, env, "ext-1")

	env.clock.Advance(31 * time.Second)
	env.provider.VoteStatuses = []testutil.VoteStatusReply{
		{Status: provider.VoteStatus{Status: order.StatusCompleted, DeliveredCount: 10}},
	}

	res, err := env.engine.RefreshStatus(context.Background(), id)
	require.NoError(t, err)

	assert.True(t, res.Updated)
	assert.Equal(t, order.StatusCompleted, res.Status)
	assert.Equal(t, int64(10), res.DeliveredCount)

	ord := env.order(t, id)
	assert.Equal(t, order.StatusCompleted, ord.Status)
	assert.Equal(t, int64(10), ord.DeliveredCount)
}

func TestRefreshStatus_IdempotentMerge(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 1, 1000)
	id := submitTracked(t, env, "ext-1")

	snapshot := provider.VoteStatus{Status: order.StatusInProgress, DeliveredCount: 4}

	env.clock.Advance(31 * time.Second)
	env.provider.VoteStatuses = []testutil.VoteStatusReply{{Status: snapshot}}
	_, err := env.engine.RefreshStatus(context.Background(), id)
	require.NoError(t, err)
	first := env.order(t, id)

	env.clock.Advance(31 * time.Second)
	env.provider.VoteStatuses = []testutil.VoteStatusReply{{Status: snapshot}}
	res, err := env.engine.RefreshStatus(context.Background(), id)
	require.NoError(t, err)
	second := env.order(t, id)

	assert.True(t, res.Updated)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.DeliveredCount, second.DeliveredCount)
}

func TestRefreshStatus_PollFailureAdvancesCooldownOnly(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 1, 1000)
	id := submitTracked(t, env, "ext-1")
	before := env.order(t, id)

	env.clock.Advance(31 * time.Second)
	env.provider.VoteStatuses = []testutil.VoteStatusReply{
		{Err: provider.NewUnreachable("get vote order status", assert.AnError)},
	}

	res, err := env.engine.RefreshStatus(context.Background(), id)
	require.NoError(t, err, "poll failures never escape the poller")
	assert.False(t, res.Updated)
	assert.NotEmpty(t, res.Message)

	after := env.order(t, id)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.DeliveredCount, after.DeliveredCount)
	assert.True(t, after.LastCheckedAt.After(*before.LastCheckedAt),
		"failed poll must still advance the cooldown")

	// The advanced cooldown now short-circuits the next poll.
	res, err = env.engine.RefreshStatus(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Contains(t, res.Message, "Status checked")
}

func TestRefreshStatus_TerminalOrderIsImmutable(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 1, 1000)
	id := submitTracked(t, env, "ext-1")

	env.clock.Advance(31 * time.Second)
	env.provider.VoteStatuses = []testutil.VoteStatusReply{
		{Status: provider.VoteStatus{Status: order.StatusCompleted, DeliveredCount: 10}},
	}
	_, err := env.engine.RefreshStatus(context.Background(), id)
	require.NoError(t, err)

	// Even a contradictory later snapshot cannot rewrite a terminal row.
	env.clock.Advance(31 * time.Second)
	env.provider.VoteStatuses = []testutil.VoteStatusReply{
		{Status: provider.VoteStatus{Status: order.StatusInProgress, DeliveredCount: 2}},
	}
	_, err = env.engine.RefreshStatus(context.Background(), id)
	require.NoError(t, err)

	ord := env.order(t, id)
	assert.Equal(t, order.StatusCompleted, ord.Status)
	assert.Equal(t, int64(10), ord.DeliveredCount)
	assert.Equal(t, "ext-1", ord.ExternalReference)
}

func TestRefreshStatus_UnknownOrder(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.RefreshStatus(context.Background(), 404)
	assert.ErrorIs(t, err, store.ErrNoSuchOrder)
}

func TestRefreshMany_BatchesOfFiveWithPause(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 1, 10000)

	ids := make([]int64, 0, 12)
	for i := 0; i < 12; i++ {
		ids = append(ids, submitTracked(t, env, "ext-batch"))
	}
	env.clock.Advance(31 * time.Second)

	for i := 0; i < 12; i++ {
		env.provider.VoteStatuses = append(env.provider.VoteStatuses,
			testutil.VoteStatusReply{Status: provider.VoteStatus{Status: order.StatusInProgress, DeliveredCount: 1}})
	}
	callsBefore := env.provider.CallCount()

	type outcome struct {
		res BulkRefreshResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := env.engine.RefreshMany(context.Background(), ids)
		done <- outcome{res, err}
	}()

	// 12 ids = 3 batches (5, 5, 2) separated by exactly two pauses.
	require.NoError(t, env.clock.WaitAdvance(time.Second, 5*time.Second, 1))
	require.NoError(t, env.clock.WaitAdvance(time.Second, 5*time.Second, 1))

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, 12, got.res.UpdatedCount)
	assert.Equal(t, 0, got.res.FailedCount)
	assert.Equal(t, 12, env.provider.CallCount()-callsBefore)
}

func TestRefreshMany_PerOrderFailuresDoNotAbortTheRun(t *testing.T) {
	env := newTestEnv(t, WithBatchPause(0))
	env.fund(t, 1, 10000)

	tracked := submitTracked(t, env, "ext-1")
	env.clock.Advance(31 * time.Second)

	// A second order with no tracking id counts as failed, not fatal.
	env.provider.VoteSubmits = append(env.provider.VoteSubmits,
		testutil.SubmitReply{Err: provider.NewUnreachable("submit vote order", assert.AnError)})
	parked, err := env.engine.Submit(context.Background(), voteRequest())
	require.NoError(t, err)

	env.provider.VoteStatuses = append(env.provider.VoteStatuses,
		testutil.VoteStatusReply{Status: provider.VoteStatus{Status: order.StatusInProgress, DeliveredCount: 2}})

	res, err := env.engine.RefreshMany(context.Background(), []int64{tracked, parked.OrderID})
	require.NoError(t, err)

	assert.Equal(t, 1, res.UpdatedCount)
	assert.Equal(t, 1, res.FailedCount)
	assert.Equal(t, 2, res.UpdatedCount+res.FailedCount, "every order counted exactly once")
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmoore22/boostd/internal/order"
)

func ptr[T any](v T) *T { return &v }

func TestGetOrder_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetOrder(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNoSuchOrder)
}

func TestUpdateFields_PartialUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 1000)
	orderID := createTestOrder(t, s, 1, 400)

	err := s.UpdateFields(ctx, orderID, OrderPatch{
		Status:            ptr(order.StatusInProgress),
		ExternalReference: ptr("ext-1"),
	})
	require.NoError(t, err)

	ord, err := s.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusInProgress, ord.Status)
	assert.Equal(t, "ext-1", ord.ExternalReference)
	// Untouched fields survive.
	assert.Equal(t, int64(10), ord.Quantity)
}

func TestUpdateFields_ExternalReferenceSetAtMostOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 1000)
	orderID := createTestOrder(t, s, 1, 400)

	require.NoError(t, s.UpdateFields(ctx, orderID, OrderPatch{
		ExternalReference: ptr("ext-1"),
	}))
	require.NoError(t, s.UpdateFields(ctx, orderID, OrderPatch{
		ExternalReference: ptr("ext-2"),
	}))

	ord, err := s.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, "ext-1", ord.ExternalReference, "reference must never be overwritten")
}

func TestUpdateFields_TerminalRowIsImmutable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 1000)
	orderID := createTestOrder(t, s, 1, 400)

	require.NoError(t, s.UpdateFields(ctx, orderID, OrderPatch{
		Status:            ptr(order.StatusCompleted),
		ExternalReference: ptr("ext-1"),
		DeliveredCount:    ptr(int64(10)),
	}))

	// Writes after Completed silently no-op.
	require.NoError(t, s.UpdateFields(ctx, orderID, OrderPatch{
		Status:         ptr(order.StatusInProgress),
		DeliveredCount: ptr(int64(3)),
	}))

	ord, err := s.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, ord.Status)
	assert.Equal(t, int64(10), ord.DeliveredCount)
}

func TestUpdateFields_UnknownOrder(t *testing.T) {
	s := openTestStore(t)

	err := s.UpdateFields(context.Background(), 404, OrderPatch{
		Status: ptr(order.StatusCancelled),
	})
	assert.ErrorIs(t, err, ErrNoSuchOrder)
}

func TestUpdateFields_AppendsAnnotation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 1000)
	orderID := createTestOrder(t, s, 1, 400)

	require.NoError(t, s.UpdateFields(ctx, orderID, OrderPatch{
		AppendAnnotation: ptr("first failure"),
	}))
	require.NoError(t, s.UpdateFields(ctx, orderID, OrderPatch{
		AppendAnnotation: ptr("second failure"),
	}))

	ord, err := s.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, "first failure; second failure", ord.ErrorAnnotation)
}

func TestMergeProviderState_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 1000)
	orderID := createTestOrder(t, s, 1, 400)
	now := time.Now()

	require.NoError(t, s.MergeProviderState(ctx, orderID, order.StatusInProgress, 4, now))
	first, err := s.GetOrder(ctx, orderID)
	require.NoError(t, err)

	// Applying the identical snapshot again changes nothing.
	require.NoError(t, s.MergeProviderState(ctx, orderID, order.StatusInProgress, 4, now))
	second, err := s.GetOrder(ctx, orderID)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.DeliveredCount, second.DeliveredCount)
	assert.Equal(t, first.LastCheckedAt.Unix(), second.LastCheckedAt.Unix())
}

func TestMergeProviderState_DeliveredCountClampedAndMonotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 1000)
	orderID := createTestOrder(t, s, 1, 400) // quantity 10

	require.NoError(t, s.MergeProviderState(ctx, orderID, order.StatusInProgress, 7, time.Now()))

	// A lower provider count never rolls the stored count back.
	require.NoError(t, s.MergeProviderState(ctx, orderID, order.StatusInProgress, 3, time.Now()))
	ord, err := s.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ord.DeliveredCount)

	// And the count never exceeds the ordered quantity.
	require.NoError(t, s.MergeProviderState(ctx, orderID, order.StatusInProgress, 25, time.Now()))
	ord, err = s.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), ord.DeliveredCount)
}

func TestTouchLastChecked_OnlyMovesTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 1000)
	orderID := createTestOrder(t, s, 1, 400)

	checked := time.Now()
	require.NoError(t, s.TouchLastChecked(ctx, orderID, checked))

	ord, err := s.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, ord.LastCheckedAt)
	assert.Equal(t, checked.UTC().Truncate(time.Millisecond), *ord.LastCheckedAt)
	assert.Equal(t, order.StatusPending, ord.Status)
	assert.Equal(t, int64(0), ord.DeliveredCount)
}

func TestListEligibleForRefresh(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 10000)

	noRef := createTestOrder(t, s, 1, 100)
	withRef := createTestOrder(t, s, 1, 100)
	terminal := createTestOrder(t, s, 1, 100)

	require.NoError(t, s.UpdateFields(ctx, withRef, OrderPatch{
		ExternalReference: ptr("ext-a"),
	}))
	require.NoError(t, s.UpdateFields(ctx, terminal, OrderPatch{
		ExternalReference: ptr("ext-b"),
		Status:            ptr(order.StatusCompleted),
	}))

	ids, err := s.ListEligibleForRefresh(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{withRef}, ids)
	assert.NotContains(t, ids, noRef)
	assert.NotContains(t, ids, terminal)
}

func TestListOrders_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 10000)

	first := createTestOrder(t, s, 1, 100)
	second := createTestOrder(t, s, 1, 100)

	orders, err := s.ListOrders(ctx, 1)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second, orders[0].ID)
	assert.Equal(t, first, orders[1].ID)
}

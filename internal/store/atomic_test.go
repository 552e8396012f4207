package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmoore22/boostd/internal/order"
)

func createTestOrder(t *testing.T, s *Store, ownerID, amount int64) int64 {
	t.Helper()
	orderID, _, err := s.CreateOrderWithDebit(context.Background(), NewOrder{
		Kind:          order.KindVote,
		OwnerID:       ownerID,
		TargetLink:    "https://example.com/p/1",
		Quantity:      10,
		ServiceKind:   "upvotes",
		Speed:         "normal",
		ChargedAmount: amount,
	})
	require.NoError(t, err)
	return orderID
}

func TestCreateOrderWithDebit_BothOrNeither(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 1000)

	orderID, txnID, err := s.CreateOrderWithDebit(ctx, NewOrder{
		Kind:          order.KindVote,
		OwnerID:       1,
		TargetLink:    "https://example.com/p/1",
		Quantity:      10,
		ServiceKind:   "upvotes",
		Speed:         "normal",
		ChargedAmount: 400,
	})
	require.NoError(t, err)
	assert.Greater(t, orderID, int64(0))
	assert.Greater(t, txnID, int64(0))

	ord, err := s.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, ord.Status)
	assert.Equal(t, int64(400), ord.ChargedAmount)
	assert.Empty(t, ord.ExternalReference)
	assert.Nil(t, ord.LastCheckedAt)

	balance, err := s.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(600), balance)
}

func TestCreateOrderWithDebit_InsufficientFundsLeavesNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 100)

	_, _, err := s.CreateOrderWithDebit(ctx, NewOrder{
		Kind:          order.KindVote,
		OwnerID:       1,
		TargetLink:    "https://example.com/p/1",
		Quantity:      100,
		ServiceKind:   "upvotes",
		ChargedAmount: 500,
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// No order row survived the rollback.
	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&count))
	assert.Equal(t, 0, count)

	// No debit row either; only the funding deposit remains.
	txns, err := s.ListTransactions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, txns, 1)

	balance, err := s.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

func TestRefundOrderAtomic_CreditsAndCancels(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 1000)
	orderID := createTestOrder(t, s, 1, 400)

	txnID, refunded, err := s.RefundOrderAtomic(ctx, orderID, 1, 400, "provider rejected: invalid link")
	require.NoError(t, err)
	assert.True(t, refunded)
	assert.Greater(t, txnID, int64(0))

	ord, err := s.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, ord.Status)
	assert.Contains(t, ord.ErrorAnnotation, "invalid link")

	// Credit matches the original debit exactly.
	balance, err := s.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	txns, err := s.ListTransactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, int64(400), txns[0].Amount)
	assert.Equal(t, order.TxnRefundCredit, txns[0].Type)
}

func TestRefundOrderAtomic_NoOpOnTerminalOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 1000)
	orderID := createTestOrder(t, s, 1, 400)

	_, refunded, err := s.RefundOrderAtomic(ctx, orderID, 1, 400, "first refund")
	require.NoError(t, err)
	require.True(t, refunded)

	// Second refund must not double-credit.
	_, refunded, err = s.RefundOrderAtomic(ctx, orderID, 1, 400, "second refund")
	require.NoError(t, err)
	assert.False(t, refunded)

	balance, err := s.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

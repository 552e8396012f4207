package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmoore22/boostd/internal/order"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func fundAccount(t *testing.T, s *Store, userID, cents int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.EnsureAccount(ctx, userID))
	_, err := s.Credit(ctx, userID, cents, order.TxnDeposit, "test deposit", nil)
	require.NoError(t, err)
}

func TestEnsureAccount_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureAccount(ctx, 1))
	require.NoError(t, s.EnsureAccount(ctx, 1))

	balance, err := s.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestBalance_UnknownAccount(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Balance(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNoSuchAccount)
}

func TestDebit_ReducesBalanceAndRecordsTransaction(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 1000)

	txnID, err := s.Debit(ctx, 1, 400, "test debit", nil)
	require.NoError(t, err)
	assert.Greater(t, txnID, int64(0))

	balance, err := s.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(600), balance)

	txns, err := s.ListTransactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txns, 2) // deposit + debit, newest first
	assert.Equal(t, int64(-400), txns[0].Amount)
	assert.Equal(t, order.TxnOrderDebit, txns[0].Type)
}

func TestDebit_InsufficientFunds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 100)

	_, err := s.Debit(ctx, 1, 500, "too much", nil)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// Balance untouched, no ledger row written.
	balance, err := s.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	txns, err := s.ListTransactions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestDebit_UnknownAccount(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Debit(context.Background(), 42, 100, "ghost", nil)
	assert.ErrorIs(t, err, ErrNoSuchAccount)
}

func TestDebit_RejectsNonPositiveAmount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 100)

	_, err := s.Debit(ctx, 1, 0, "zero", nil)
	assert.Error(t, err)

	_, err = s.Debit(ctx, 1, -5, "negative", nil)
	assert.Error(t, err)
}

func TestCredit_IncreasesBalance(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureAccount(ctx, 1))

	_, err := s.Credit(ctx, 1, 250, order.TxnRefundCredit, "refund", nil)
	require.NoError(t, err)

	balance, err := s.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(250), balance)
}

func TestDebitForOrder_FindsOriginalDebit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	fundAccount(t, s, 1, 1000)

	orderID, _, err := s.CreateOrderWithDebit(ctx, NewOrder{
		Kind:          order.KindVote,
		OwnerID:       1,
		TargetLink:    "https://example.com/p/1",
		Quantity:      10,
		ServiceKind:   "upvotes",
		Speed:         "normal",
		ChargedAmount: 300,
	})
	require.NoError(t, err)

	txn, err := s.DebitForOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(-300), txn.Amount)
	require.NotNil(t, txn.RelatedOrderID)
	assert.Equal(t, orderID, *txn.RelatedOrderID)
}

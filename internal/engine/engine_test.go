package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"

	"github.com/tmoore22/boostd/internal/catalog"
	"github.com/tmoore22/boostd/internal/order"
	"github.com/tmoore22/boostd/internal/store"
	"github.com/tmoore22/boostd/internal/testutil"
)

const testCatalogYAML = `
currency: USD
vote_services:
  upvotes:
    name: Post upvotes
    price_per_unit: 5
    min_quantity: 10
    max_quantity: 10000
    speeds: [slow, normal, fast]
comment_service:
  price: 120
  max_content_length: 500
`

// testEnv bundles the engine with its collaborators for assertions.
type testEnv struct {
	engine   *Engine
	store    *store.Store
	provider *testutil.ScriptedProvider
	clock    *testclock.Clock
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cat, err := catalog.Parse([]byte(testCatalogYAML))
	require.NoError(t, err)

	p := &testutil.ScriptedProvider{}
	clk := testclock.NewClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	opts = append([]Option{WithClock(clk)}, opts...)
	return &testEnv{
		engine:   New(s, p, cat, opts...),
		store:    s,
		provider: p,
		clock:    clk,
	}
}

func (env *testEnv) fund(t *testing.T, userID, cents int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.store.EnsureAccount(ctx, userID))
	_, err := env.store.Credit(ctx, userID, cents, order.TxnDeposit, "test deposit", nil)
	require.NoError(t, err)
}

func (env *testEnv) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	balance, err := env.store.Balance(context.Background(), userID)
	require.NoError(t, err)
	return balance
}

func (env *testEnv) order(t *testing.T, id int64) order.Order {
	t.Helper()
	ord, err := env.store.GetOrder(context.Background(), id)
	require.NoError(t, err)
	return ord
}

func voteRequest() OrderRequest {
	return OrderRequest{
		OwnerID:     1,
		Kind:        order.KindVote,
		TargetLink:  "https://example.com/p/1",
		Quantity:    10,
		ServiceKind: "upvotes",
		Speed:       "normal",
	}
}

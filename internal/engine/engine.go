package engine

import (
	"time"

	"github.com/juju/clock"

	"github.com/tmoore22/boostd/internal/catalog"
	"github.com/tmoore22/boostd/internal/provider"
	"github.com/tmoore22/boostd/internal/store"
)

// DefaultCooldown is the minimum interval between status polls for the
// same order. Enforced unconditionally, regardless of caller.
const DefaultCooldown = 30 * time.Second

// DefaultBatchSize bounds how many provider status calls a single
// RefreshMany run keeps in flight at once.
const DefaultBatchSize = 5

// DefaultBatchPause is the pause between RefreshMany batches - a simple,
// deliberately conservative form of backpressure toward the provider.
const DefaultBatchPause = 1 * time.Second

// Engine is the order fulfillment and reconciliation engine.
//
// It keeps the locally-recorded order state (status, delivered quantity,
// balance debit) consistent with the externally-fulfilled state at the
// provider, and guarantees the customer is never left charged for work the
// provider refused to perform.
//
// The engine is invoked from short-lived request handlers; it runs no
// background loop of its own. All methods are safe for concurrent use,
// with one documented exception: callers must not cancel an order
// concurrently with its initial submission.
type Engine struct {
	store   *store.Store
	client  provider.Client
	catalog *catalog.Catalog
	clock   clock.Clock

	cooldown   time.Duration
	batchSize  int
	batchPause time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock. Tests use juju's testclock so the
// cooldown window and batch pacing run without real sleeps.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithCooldown overrides the per-order status poll cooldown.
func WithCooldown(d time.Duration) Option {
	return func(e *Engine) {
		e.cooldown = d
	}
}

// WithBatchSize overrides the bulk-refresh batch size.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		e.batchSize = n
	}
}

// WithBatchPause overrides the pause between bulk-refresh batches.
// Zero disables the pause entirely.
func WithBatchPause(d time.Duration) Option {
	return func(e *Engine) {
		e.batchPause = d
	}
}

// New creates an Engine over the given store, provider client, and service
// catalog.
func New(s *store.Store, client provider.Client, cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		store:      s,
		client:     client,
		catalog:    cat,
		clock:      clock.WallClock,
		cooldown:   DefaultCooldown,
		batchSize:  DefaultBatchSize,
		batchPause: DefaultBatchPause,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying store for read-only callers (CLI listings).
func (e *Engine) Store() *store.Store {
	return e.store
}

// Package store provides durable SQLite-backed storage for orders and the
// prepaid balance ledger.
//
// The store owns the two correctness-critical write paths:
//
//   - CreateOrderWithDebit: an order row and its balance debit are created
//     in one transaction, never one without the other.
//   - RefundOrderAtomic: a compensating credit and the Cancelled status
//     transition are applied in one transaction.
//
// Every lifecycle update is guarded against terminal rows in SQL: once an
// order is Completed or Cancelled, further writes silently no-op. The
// external reference column is set at most once (COALESCE guard) and never
// cleared.
//
// SQLite runs in WAL mode with a single-writer connection pool, which also
// serializes debit/credit for the same account.
package store

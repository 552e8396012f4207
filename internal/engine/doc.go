// Package engine is the order fulfillment and reconciliation engine.
//
// An order is recorded locally, debited against a prepaid balance, and
// handed to an external fulfillment provider that delivers asynchronously
// over hours. The engine keeps the local record (status, delivered
// quantity, balance debit) consistent with provider truth across
// unreliable network calls, and guarantees a customer is never left
// charged for work the provider refused to perform.
//
// The four coordinators:
//
//   - Submit / Resubmit: validate, atomically debit + create, dispatch,
//     and on failure either park (transport unreachable) or compensate
//     (provider rejection).
//   - RefreshStatus / RefreshMany: caller-triggered reconciliation with a
//     per-order cooldown and batched, bounded concurrency toward the
//     provider.
//   - Cancel: external cancel first, local transition second; provider
//     status is authoritative if the two diverge.
//   - AutoRefund / ManualRefund: compensation; the only path that writes
//     the fatal ApiSubmissionFailed state.
//
// The provider is polled, never pushed to; it is treated as an
// eventually-consistent oracle and is authoritative for status and
// delivered count once an order carries an external reference.
package engine

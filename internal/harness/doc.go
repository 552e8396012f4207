// Package harness runs YAML-scripted end-to-end scenarios against a real
// engine: a fresh in-memory database, a scripted provider whose replies
// the scenario controls per call, and a test clock advanced by explicit
// scenario steps.
//
// A scenario seeds account balances, scripts the provider, executes a
// sequence of engine operations with per-step expectations, and asserts
// on the final order, ledger and provider-call state. Step outcomes are
// snapshotted against golden files for regression coverage of the
// serializable result shapes.
//
// Scenarios live in testdata/scenarios; golden files in testdata/golden.
package harness

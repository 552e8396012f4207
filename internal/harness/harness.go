package harness

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/juju/clock/testclock"

	"github.com/tmoore22/boostd/internal/catalog"
	"github.com/tmoore22/boostd/internal/engine"
	"github.com/tmoore22/boostd/internal/order"
	"github.com/tmoore22/boostd/internal/provider"
	"github.com/tmoore22/boostd/internal/store"
	"github.com/tmoore22/boostd/internal/testutil"
)

// defaultCatalogYAML is the catalog used when a scenario does not name
// its own.
const defaultCatalogYAML = `currency: USD
vote_services:
  upvotes:
    name: Upvotes
    price_per_unit: 5
    min_quantity: 10
    max_quantity: 10000
    speeds: [slow, normal, fast]
comment_service:
  price: 120
  max_content_length: 500
`

// scenarioEpoch is the fixed start time of every scenario clock.
var scenarioEpoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// StepOutcome records how one step went, in a serializable shape for
// golden comparison.
type StepOutcome struct {
	Op string `json:"op"`

	// Error is the outcome's error code; empty on success.
	Error string `json:"error,omitempty"`

	// Data is the operation's result shape, when one was produced.
	Data any `json:"data,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Steps holds one outcome per executed step.
	Steps []StepOutcome `json:"steps"`

	// Errors lists expect and assertion failures. Empty when Pass.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result to accumulate into.
func NewResult() *Result {
	return &Result{Pass: true, Steps: []StepOutcome{}, Errors: []string{}}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Harness drives one scenario against a fresh engine.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	provider *testutil.ScriptedProvider
	clock    *testclock.Clock
}

// Run executes a scenario in a fresh in-memory database and returns the
// accumulated result. Run itself errors only on infrastructure failures;
// expect and assertion mismatches are reported inside the Result.
//
// basePath resolves the scenario's catalog path; pass "" when the
// scenario uses the built-in catalog.
func Run(scenario *Scenario, basePath string) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("create in-memory store: %w", err)
	}
	defer st.Close()

	cat, err := loadCatalog(scenario, basePath)
	if err != nil {
		return nil, err
	}

	sp := buildProvider(scenario.Provider)
	clk := testclock.NewClock(scenarioEpoch)

	// Batch pauses would deadlock against the test clock with nothing
	// advancing it; scenarios express pacing with explicit advance steps.
	h := &Harness{
		store:    st,
		provider: sp,
		clock:    clk,
		engine: engine.New(st, sp, cat,
			engine.WithClock(clk),
			engine.WithBatchPause(0),
		),
	}

	ctx := context.Background()
	result := NewResult()

	for _, seed := range scenario.Accounts {
		if err := st.EnsureAccount(ctx, seed.User); err != nil {
			return nil, fmt.Errorf("seed account %d: %w", seed.User, err)
		}
		if seed.Balance > 0 {
			if _, err := st.Credit(ctx, seed.User, seed.Balance, order.TxnDeposit, "scenario seed", nil); err != nil {
				return nil, fmt.Errorf("seed balance for %d: %w", seed.User, err)
			}
		}
	}

	for i, step := range scenario.Steps {
		outcome := h.executeStep(ctx, step)
		result.Steps = append(result.Steps, outcome)
		checkExpect(result, i, step, outcome)
	}

	h.evaluateAssertions(ctx, scenario.Assertions, result)
	return result, nil
}

func loadCatalog(scenario *Scenario, basePath string) (*catalog.Catalog, error) {
	if scenario.Catalog == "" {
		return catalog.Parse([]byte(defaultCatalogYAML))
	}
	path := scenario.Catalog
	if !filepath.IsAbs(path) && basePath != "" {
		path = filepath.Join(basePath, path)
	}
	return catalog.Load(path)
}

// buildProvider converts the YAML reply script into a scripted client.
func buildProvider(script ProviderScript) *testutil.ScriptedProvider {
	sp := &testutil.ScriptedProvider{}
	for _, s := range script.VoteSubmits {
		sp.VoteSubmits = append(sp.VoteSubmits, testutil.SubmitReply{
			Reference: s.Reference,
			Err:       scriptError(s.Error, s.Reason, "submit vote order"),
		})
	}
	for _, s := range script.CommentSubmits {
		sp.CommentSubmits = append(sp.CommentSubmits, testutil.SubmitReply{
			Reference: s.Reference,
			Err:       scriptError(s.Error, s.Reason, "submit comment order"),
		})
	}
	for _, s := range script.VoteStatuses {
		sp.VoteStatuses = append(sp.VoteStatuses, testutil.VoteStatusReply{
			Status: provider.VoteStatus{
				Status:         order.Status(s.Status),
				DeliveredCount: s.Delivered,
			},
			Err: scriptError(s.Error, s.Reason, "get vote order status"),
		})
	}
	for _, s := range script.CommentStatuses {
		sp.CommentStatuses = append(sp.CommentStatuses, testutil.CommentStatusReply{
			Status: provider.CommentStatus{Status: order.Status(s.Status)},
			Err:    scriptError(s.Error, s.Reason, "get comment order status"),
		})
	}
	for _, s := range script.Cancels {
		sp.Cancels = append(sp.Cancels, testutil.CancelReply{
			Err: scriptError(s.Error, s.Reason, "cancel vote order"),
		})
	}
	return sp
}

func scriptError(kind, reason, op string) error {
	if reason == "" {
		reason = "scripted failure"
	}
	switch kind {
	case "":
		return nil
	case "unreachable":
		return provider.NewUnreachable(op, errors.New(reason))
	case "rejected":
		return provider.NewRejected(op, reason)
	default:
		return fmt.Errorf("%s: %s", kind, reason)
	}
}

func (h *Harness) executeStep(ctx context.Context, step Step) StepOutcome {
	outcome := StepOutcome{Op: step.Op}

	var (
		data any
		err  error
	)
	switch step.Op {
	case "submit_vote":
		data, err = h.engine.Submit(ctx, engine.OrderRequest{
			OwnerID:     step.User,
			Kind:        order.KindVote,
			TargetLink:  step.Link,
			Quantity:    step.Quantity,
			ServiceKind: step.Service,
			Speed:       step.Speed,
		})
	case "submit_comment":
		data, err = h.engine.Submit(ctx, engine.OrderRequest{
			OwnerID:    step.User,
			Kind:       order.KindComment,
			TargetLink: step.Link,
			Content:    step.Content,
		})
	case "resubmit":
		data, err = h.engine.Resubmit(ctx, step.Order)
	case "refresh":
		data, err = h.engine.RefreshStatus(ctx, step.Order)
	case "refresh_all":
		var ids []int64
		ids, err = h.store.ListEligibleForRefresh(ctx, step.User)
		if err == nil {
			data, err = h.engine.RefreshMany(ctx, ids)
		}
	case "cancel":
		data, err = h.engine.Cancel(ctx, step.Order)
	case "refund":
		data, err = h.engine.ManualRefund(ctx, step.Order)
	case "deposit":
		err = h.store.EnsureAccount(ctx, step.User)
		if err == nil {
			_, err = h.store.Credit(ctx, step.User, step.Amount, order.TxnDeposit, "deposit", nil)
		}
	case "advance":
		d, _ := time.ParseDuration(step.Duration)
		h.clock.Advance(d)
	}

	if err != nil {
		outcome.Error = errorCode(err)
	}
	if data != nil && !isZero(data) {
		outcome.Data = data
	}
	return outcome
}

// errorCode maps a step error to the code scenarios match on.
func errorCode(err error) string {
	var ee *engine.Error
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	if provider.IsUnreachable(err) {
		return "UNREACHABLE"
	}
	if provider.IsRejected(err) {
		return "REJECTED"
	}
	if errors.Is(err, store.ErrNoSuchOrder) {
		return "NO_SUCH_ORDER"
	}
	return "INTERNAL"
}

// isZero filters zero-valued result structs out of the golden snapshot
// (e.g. a rejected submit returns its result through the error path).
func isZero(v any) bool {
	return reflect.ValueOf(v).IsZero()
}

func checkExpect(result *Result, index int, step Step, outcome StepOutcome) {
	if step.Expect == nil {
		return
	}
	e := step.Expect

	if outcome.Error != e.Error {
		result.AddError("steps[%d] %s: error = %q, expected %q", index, step.Op, outcome.Error, e.Error)
	}

	switch data := outcome.Data.(type) {
	case engine.SubmitResult:
		if e.Status != "" && string(data.Status) != e.Status {
			result.AddError("steps[%d] %s: status = %q, expected %q", index, step.Op, data.Status, e.Status)
		}
		if e.Refunded != nil && data.Refunded != *e.Refunded {
			result.AddError("steps[%d] %s: refunded = %v, expected %v", index, step.Op, data.Refunded, *e.Refunded)
		}
	case engine.RefreshResult:
		if e.Status != "" && string(data.Status) != e.Status {
			result.AddError("steps[%d] %s: status = %q, expected %q", index, step.Op, data.Status, e.Status)
		}
		if e.Updated != nil && data.Updated != *e.Updated {
			result.AddError("steps[%d] %s: updated = %v, expected %v", index, step.Op, data.Updated, *e.Updated)
		}
	}
}

func (h *Harness) evaluateAssertions(ctx context.Context, assertions []Assertion, result *Result) {
	for i, a := range assertions {
		switch a.Type {
		case AssertOrderState:
			h.assertOrderState(ctx, i, a, result)
		case AssertBalance:
			balance, err := h.store.Balance(ctx, a.User)
			if err != nil {
				result.AddError("assertions[%d] balance: %v", i, err)
			} else if balance != a.Balance {
				result.AddError("assertions[%d]: balance of user %d = %d, expected %d", i, a.User, balance, a.Balance)
			}
		case AssertTxnCount:
			txns, err := h.store.ListTransactions(ctx, a.User)
			if err != nil {
				result.AddError("assertions[%d] txn_count: %v", i, err)
			} else if len(txns) != a.Count {
				result.AddError("assertions[%d]: user %d has %d transaction(s), expected %d", i, a.User, len(txns), a.Count)
			}
		case AssertProviderCalls:
			got := h.providerOps()
			if !reflect.DeepEqual(got, a.Ops) {
				result.AddError("assertions[%d]: provider calls %v, expected %v", i, got, a.Ops)
			}
		}
	}
}

func (h *Harness) assertOrderState(ctx context.Context, index int, a Assertion, result *Result) {
	ord, err := h.store.GetOrder(ctx, a.Order)
	if err != nil {
		result.AddError("assertions[%d] order_state: %v", index, err)
		return
	}

	fields := map[string]any{
		"kind":               string(ord.Kind),
		"status":             string(ord.Status),
		"quantity":           ord.Quantity,
		"delivered_count":    ord.DeliveredCount,
		"charged_amount":     ord.ChargedAmount,
		"external_reference": ord.ExternalReference,
		"error_annotation":   ord.ErrorAnnotation,
		"content":            ord.Content,
	}
	for key, expected := range a.Expect {
		actual, ok := fields[key]
		if !ok {
			result.AddError("assertions[%d]: unknown order field %q", index, key)
			continue
		}
		if !valuesEqual(actual, expected) {
			result.AddError("assertions[%d]: order %d %s = %v, expected %v", index, a.Order, key, actual, expected)
		}
	}
}

// valuesEqual compares a field value against its YAML-decoded
// counterpart; YAML decodes integers as int, the store uses int64.
func valuesEqual(actual, expected any) bool {
	if ei, ok := expected.(int); ok {
		if ai, ok := actual.(int64); ok {
			return ai == int64(ei)
		}
	}
	return reflect.DeepEqual(actual, expected)
}

// providerOps returns the provider's call log with arguments stripped.
func (h *Harness) providerOps() []string {
	ops := make([]string, 0, len(h.provider.Calls))
	for _, call := range h.provider.Calls {
		if i := strings.IndexByte(call, '('); i >= 0 {
			call = call[:i]
		}
		ops = append(ops, call)
	}
	return ops
}

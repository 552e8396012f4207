package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines one end-to-end test scenario: seeded accounts, a
// scripted provider, a sequence of engine operations and assertions on
// the final state.
type Scenario struct {
	// Name uniquely identifies this scenario; it is also the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is an optional path to a catalog YAML file, relative to
	// the scenario file. Empty means the built-in default catalog.
	Catalog string `yaml:"catalog,omitempty"`

	// Accounts seeds user balances before the first step.
	Accounts []AccountSeed `yaml:"accounts"`

	// Provider scripts the provider's replies, per operation, in order.
	Provider ProviderScript `yaml:"provider,omitempty"`

	// Steps is the operation sequence under test.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final order, ledger and provider-call
	// state after all steps ran.
	Assertions []Assertion `yaml:"assertions"`
}

// AccountSeed funds one account before the scenario starts.
type AccountSeed struct {
	User    int64 `yaml:"user"`
	Balance int64 `yaml:"balance"`
}

// ProviderScript holds per-operation reply scripts. Each entry is
// consumed by exactly one call, in order.
type ProviderScript struct {
	VoteSubmits     []SubmitScript `yaml:"vote_submits,omitempty"`
	CommentSubmits  []SubmitScript `yaml:"comment_submits,omitempty"`
	VoteStatuses    []StatusScript `yaml:"vote_statuses,omitempty"`
	CommentStatuses []StatusScript `yaml:"comment_statuses,omitempty"`
	Cancels         []CancelScript `yaml:"cancels,omitempty"`
}

// SubmitScript scripts one submission reply. Error is "unreachable" or
// "rejected"; empty means the submission succeeds with Reference.
type SubmitScript struct {
	Reference string `yaml:"reference,omitempty"`
	Error     string `yaml:"error,omitempty"`
	Reason    string `yaml:"reason,omitempty"`
}

// StatusScript scripts one status poll reply.
type StatusScript struct {
	Status    string `yaml:"status,omitempty"`
	Delivered int64  `yaml:"delivered,omitempty"`
	Error     string `yaml:"error,omitempty"`
	Reason    string `yaml:"reason,omitempty"`
}

// CancelScript scripts one cancel reply. The zero value is success.
type CancelScript struct {
	Error  string `yaml:"error,omitempty"`
	Reason string `yaml:"reason,omitempty"`
}

// Step is one engine operation (or a clock advance) in the scenario.
type Step struct {
	// Op selects the operation: submit_vote, submit_comment, resubmit,
	// refresh, refresh_all, cancel, refund, deposit, advance.
	Op string `yaml:"op"`

	// submit_vote / submit_comment / refresh_all / deposit.
	User int64 `yaml:"user,omitempty"`

	// submit_vote / submit_comment.
	Link     string `yaml:"link,omitempty"`
	Quantity int64  `yaml:"quantity,omitempty"`
	Service  string `yaml:"service,omitempty"`
	Speed    string `yaml:"speed,omitempty"`
	Content  string `yaml:"content,omitempty"`

	// resubmit / refresh / cancel / refund.
	Order int64 `yaml:"order,omitempty"`

	// deposit.
	Amount int64 `yaml:"amount,omitempty"`

	// advance moves the scenario clock forward, e.g. "31s".
	Duration string `yaml:"duration,omitempty"`

	// Expect validates the step outcome. Nil means any outcome passes.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect validates a step's outcome.
type Expect struct {
	// Error is the expected error code; empty means the step must
	// succeed.
	Error string `yaml:"error,omitempty"`

	// Status is the expected result status, when the op reports one.
	Status string `yaml:"status,omitempty"`

	// Updated matches the refresh result flag.
	Updated *bool `yaml:"updated,omitempty"`

	// Refunded matches the submit result flag.
	Refunded *bool `yaml:"refunded,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of: order_state, balance, txn_count, provider_calls.
	Type string `yaml:"type"`

	// order_state.
	Order  int64          `yaml:"order,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`

	// balance / txn_count.
	User    int64 `yaml:"user,omitempty"`
	Balance int64 `yaml:"balance,omitempty"`
	Count   int   `yaml:"count,omitempty"`

	// provider_calls: the exact operation-name sequence.
	Ops []string `yaml:"ops,omitempty"`
}

// Assertion type constants.
const (
	AssertOrderState    = "order_state"
	AssertBalance       = "balance"
	AssertTxnCount      = "txn_count"
	AssertProviderCalls = "provider_calls"
)

var stepOps = map[string]bool{
	"submit_vote":    true,
	"submit_comment": true,
	"resubmit":       true,
	"refresh":        true,
	"refresh_all":    true,
	"cancel":         true,
	"refund":         true,
	"deposit":        true,
	"advance":        true,
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently passing.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario yaml: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if !stepOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Op == "advance" {
			if _, err := time.ParseDuration(step.Duration); err != nil {
				return fmt.Errorf("steps[%d]: invalid duration %q", i, step.Duration)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertOrderState:
		if a.Order == 0 {
			return fmt.Errorf("assertions[%d]: order is required for order_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for order_state", index)
		}
	case AssertBalance:
		if a.User == 0 {
			return fmt.Errorf("assertions[%d]: user is required for balance", index)
		}
	case AssertTxnCount:
		if a.User == 0 {
			return fmt.Errorf("assertions[%d]: user is required for txn_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertProviderCalls:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for provider_calls", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

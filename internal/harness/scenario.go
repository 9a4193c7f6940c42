package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance test for the checkout flow.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// FlowToken is an optional fixed flow token for deterministic output.
	// Defaults to "test-flow-default".
	FlowToken string `yaml:"flow_token,omitempty"`

	// Session seeds the session cache before the run. A nil session or an
	// empty token means checkout runs signed out.
	Session *SessionSeed `yaml:"session,omitempty"`

	// Cart seeds the cart, in order.
	Cart []CartLine `yaml:"cart,omitempty"`

	// Outcomes scripts the purchase service per course: one entry per
	// expected unit registration, in call order.
	Outcomes map[string][]string `yaml:"outcomes,omitempty"`

	// ExpectError names a pre-check failure the run must end with:
	// "no_session" or "empty_cart". When set, the flow never reaches the
	// purchase service and assertions may be omitted.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the run result.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SessionSeed is the session state present before checkout.
type SessionSeed struct {
	Token    string `yaml:"token"`
	Username string `yaml:"username,omitempty"`
	TenantID string `yaml:"tenant_id,omitempty"`
}

// CartLine seeds one cart entry.
type CartLine struct {
	ID       string  `yaml:"id"`
	Title    string  `yaml:"title"`
	Price    float64 `yaml:"price"`
	Quantity int     `yaml:"quantity"`
}

// Assertion validates one aspect of the run result.
type Assertion struct {
	// Type selects the assertion: course_state, cart_cleared,
	// register_count, purchase_count.
	Type string `yaml:"type"`

	// Course is the course id (course_state, register_count).
	Course string `yaml:"course,omitempty"`

	// State is the expected terminal state (course_state).
	State string `yaml:"state,omitempty"`

	// Units is the expected number of purchased units (course_state,
	// optional).
	Units *int `yaml:"units,omitempty"`

	// Cleared is the expected cart outcome (cart_cleared).
	Cleared *bool `yaml:"cleared,omitempty"`

	// Count is the expected number of occurrences (register_count,
	// purchase_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertCourseState   = "course_state"
	AssertCartCleared   = "cart_cleared"
	AssertRegisterCount = "register_count"
	AssertPurchaseCount = "purchase_count"
)

// Outcome string prefixes understood by the scripted purchase service.
const (
	OutcomeOK           = "ok"
	OutcomeNetwork      = "network"
	outcomeRejectPrefix = "reject:"
)

// Expected pre-check errors.
const (
	ExpectNoSession = "no_session"
	ExpectEmptyCart = "empty_cart"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and coherent.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.ExpectError {
	case "", ExpectNoSession, ExpectEmptyCart:
	default:
		return fmt.Errorf("unknown expect_error %q", s.ExpectError)
	}
	if s.ExpectError == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}

	seen := map[string]bool{}
	for i, line := range s.Cart {
		if line.ID == "" {
			return fmt.Errorf("cart[%d]: id is required", i)
		}
		if seen[line.ID] {
			return fmt.Errorf("cart[%d]: duplicate course id %s", i, line.ID)
		}
		seen[line.ID] = true
		if line.Quantity < 1 {
			return fmt.Errorf("cart[%d]: quantity must be at least 1", i)
		}
	}

	for course, outcomes := range s.Outcomes {
		if !seen[course] {
			return fmt.Errorf("outcomes: course %s is not in the cart", course)
		}
		for j, o := range outcomes {
			if o != OutcomeOK && o != OutcomeNetwork && !strings.HasPrefix(o, outcomeRejectPrefix) {
				return fmt.Errorf("outcomes[%s][%d]: unknown outcome %q", course, j, o)
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
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCourseState:
		if a.Course == "" {
			return fmt.Errorf("assertions[%d]: course is required for course_state", index)
		}
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for course_state", index)
		}
		if !stateKnown(a.State) {
			return fmt.Errorf("assertions[%d]: unknown state %q", index, a.State)
		}
	case AssertCartCleared:
		if a.Cleared == nil {
			return fmt.Errorf("assertions[%d]: cleared is required for cart_cleared", index)
		}
	case AssertRegisterCount:
		if a.Course == "" {
			return fmt.Errorf("assertions[%d]: course is required for register_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertPurchaseCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

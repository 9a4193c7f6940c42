package harness

import (
	"fmt"

	"github.com/educloud/educloud-cli/internal/checkout"
)

// Verify checks a run result against the scenario's expectations: the
// expect_error clause first, then every assertion. All failures are
// collected so one run reports them together.
func Verify(scenario *Scenario, result *Result) error {
	var failures []string

	if scenario.ExpectError != "" {
		if result.Err != scenario.ExpectError {
			failures = append(failures, fmt.Sprintf("expected pre-check error %q, got %q", scenario.ExpectError, result.Err))
		}
		if len(result.Trace) != 0 {
			failures = append(failures, fmt.Sprintf("pre-check error run made %d purchase calls", len(result.Trace)))
		}
	} else if result.Err != "" {
		failures = append(failures, fmt.Sprintf("unexpected pre-check error %q", result.Err))
	}

	for i, a := range scenario.Assertions {
		if err := checkAssertion(&a, result); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	if len(failures) == 0 {
		return nil
	}
	msg := failures[0]
	for _, f := range failures[1:] {
		msg += "; " + f
	}
	return fmt.Errorf("%s", msg)
}

func checkAssertion(a *Assertion, result *Result) error {
	switch a.Type {
	case AssertCourseState:
		course, ok := result.courseResult(a.Course)
		if !ok {
			return fmt.Errorf("course %s has no result", a.Course)
		}
		if string(course.State) != a.State {
			return fmt.Errorf("course %s: expected state %s, got %s", a.Course, a.State, course.State)
		}
		if a.Units != nil && course.UnitsPurchased != *a.Units {
			return fmt.Errorf("course %s: expected %d purchased units, got %d", a.Course, *a.Units, course.UnitsPurchased)
		}
		return nil

	case AssertCartCleared:
		if result.Checkout == nil {
			return fmt.Errorf("checkout never started")
		}
		if result.Checkout.CartCleared != *a.Cleared {
			return fmt.Errorf("expected cart_cleared=%v, got %v", *a.Cleared, result.Checkout.CartCleared)
		}
		return nil

	case AssertRegisterCount:
		if got := result.registerCalls(a.Course); got != a.Count {
			return fmt.Errorf("course %s: expected %d registrations, got %d", a.Course, a.Count, got)
		}
		return nil

	case AssertPurchaseCount:
		if got := result.purchaseCount(); got != a.Count {
			return fmt.Errorf("expected %d recorded purchases, got %d", a.Count, got)
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// stateKnown reports whether a state string names a checkout state.
func stateKnown(s string) bool {
	switch checkout.State(s) {
	case checkout.StatePending, checkout.StateSubmitting, checkout.StateSucceeded, checkout.StateFailed:
		return true
	}
	return false
}

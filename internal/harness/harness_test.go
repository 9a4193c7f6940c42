package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func successScenario() *Scenario {
	return &Scenario{
		Name:        "inline_success",
		Description: "two units register",
		FlowToken:   "flow-test",
		Session:     &SessionSeed{Token: "tok"},
		Cart: []CartLine{
			{ID: "c-1", Title: "Course", Price: 10, Quantity: 2},
		},
		Outcomes: map[string][]string{"c-1": {"ok", "ok"}},
		Assertions: []Assertion{
			{Type: AssertCourseState, Course: "c-1", State: "succeeded", Units: intPtr(2)},
			{Type: AssertCartCleared, Cleared: boolPtr(true)},
		},
	}
}

func TestRun_Success(t *testing.T) {
	result, err := Run(successScenario())
	require.NoError(t, err)
	require.NotNil(t, result.Checkout)

	assert.Equal(t, "flow-test", result.Checkout.FlowToken)
	assert.Len(t, result.Trace, 2)
	assert.Equal(t, "p-1", result.Trace[0].PurchaseID)
	assert.Equal(t, "p-2", result.Trace[1].PurchaseID)
	assert.True(t, result.Checkout.CartCleared)

	require.NoError(t, Verify(successScenario(), result))
}

func TestRun_CartSeedingHonorsQuantity(t *testing.T) {
	scenario := successScenario()

	result, err := Run(scenario)
	require.NoError(t, err)

	// A quantity-2 line must produce two registrations, not one.
	assert.Equal(t, 2, result.registerCalls("c-1"))
	course, ok := result.courseResult("c-1")
	require.True(t, ok)
	assert.Equal(t, 2, course.UnitsRequested)
	assert.Equal(t, 2, course.UnitsPurchased)
}

func TestRun_RejectionEndsCourse(t *testing.T) {
	scenario := successScenario()
	scenario.Outcomes = map[string][]string{"c-1": {"reject:Compra rechazada"}}

	result, err := Run(scenario)
	require.NoError(t, err)

	require.Len(t, result.Trace, 1)
	assert.Equal(t, "rejected", result.Trace[0].Outcome)
	assert.Equal(t, "Compra rechazada", result.Trace[0].Message)

	course, ok := result.courseResult("c-1")
	require.True(t, ok)
	assert.Equal(t, "failed", string(course.State))
	assert.False(t, result.Checkout.CartCleared)

	// The success assertions no longer hold.
	assert.Error(t, Verify(scenario, result))
}

func TestRun_NoSession(t *testing.T) {
	scenario := successScenario()
	scenario.Session = nil
	scenario.ExpectError = ExpectNoSession
	scenario.Assertions = nil

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, ExpectNoSession, result.Err)
	assert.Empty(t, result.Trace)
	require.NoError(t, Verify(scenario, result))
}

func TestRun_UnusedScriptIsAnError(t *testing.T) {
	scenario := successScenario()
	scenario.Outcomes = map[string][]string{"c-1": {"ok", "ok", "ok"}}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never consumed")
}

func TestVerify_ReportsAllFailures(t *testing.T) {
	scenario := successScenario()
	scenario.Assertions = []Assertion{
		{Type: AssertCourseState, Course: "c-1", State: "failed"},
		{Type: AssertPurchaseCount, Count: 9},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	err = Verify(scenario, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected state failed")
	assert.Contains(t, err.Error(), "expected 9 recorded purchases")
}

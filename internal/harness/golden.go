package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/educloud/educloud-cli/internal/checkout"
)

// RunWithGolden executes a scenario, verifies its assertions, and compares
// the run transcript against a golden file.
//
// The golden file is stored in testdata/golden/{scenario.Name}.golden.
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if err := Verify(scenario, result); err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, renderTranscript(scenario, result))
	return nil
}

// renderTranscript produces the deterministic text form of a run.
func renderTranscript(scenario *Scenario, result *Result) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", scenario.Name)

	if result.Err != "" {
		fmt.Fprintf(&buf, "error: %s\n", result.Err)
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "flow_token: %s\n", result.Checkout.FlowToken)

	fmt.Fprintln(&buf, "trace:")
	for _, e := range result.Trace {
		fmt.Fprintf(&buf, "  %d %s unit %d %s", e.Seq, e.CourseID, e.Unit, e.Outcome)
		if e.PurchaseID != "" {
			fmt.Fprintf(&buf, " %s", e.PurchaseID)
		}
		if e.Message != "" {
			fmt.Fprintf(&buf, " %q", e.Message)
		}
		fmt.Fprintln(&buf)
	}

	fmt.Fprintln(&buf, "courses:")
	for _, c := range result.Checkout.Courses {
		fmt.Fprintf(&buf, "  %s %s units=%d/%d", c.CourseID, c.State, c.UnitsPurchased, c.UnitsRequested)
		if c.State == checkout.StateFailed && c.Reason != "" {
			fmt.Fprintf(&buf, " reason=%q", c.Reason)
		}
		fmt.Fprintln(&buf)
	}

	fmt.Fprintf(&buf, "summary: succeeded=%d failed=%d cart_cleared=%v",
		result.Checkout.Succeeded, result.Checkout.Failed, result.Checkout.CartCleared)
	if result.Checkout.CartCleared {
		fmt.Fprintf(&buf, " redirect_after=%s", result.Checkout.RedirectAfter)
	}
	fmt.Fprintln(&buf)
	return buf.Bytes()
}

// Package harness provides conformance testing for the checkout flow.
//
// The harness seeds a cart and session from a YAML scenario, runs the
// checkout processor against a scripted purchase service, and validates
// the resulting per-course states and cart outcome.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	flow_token: flow-0001
//	session:
//	  token: tok-harness
//	cart:
//	  - id: c-1
//	    title: Go desde cero
//	    price: 49.99
//	    quantity: 2
//	outcomes:
//	  c-1: [ok, ok]
//	assertions:
//	  - type: course_state
//	    course: c-1
//	    state: succeeded
//	  - type: cart_cleared
//	    cleared: true
//
// Each entry in outcomes scripts the purchase service's answer to one
// unit registration, in call order: "ok", "reject:<message>" (a 400 with
// that message), or "network" (a transport failure).
//
// # Assertion Types
//
//   - course_state: a course ended in the given state (and optionally units purchased)
//   - cart_cleared: whether the cart was cleared
//   - register_count: total unit registrations sent for a course
//   - purchase_count: total purchases recorded across the run
//
// # Deterministic Testing
//
// Runs use fixed flow tokens, scripted purchase outcomes, and an isolated
// state database per run, so transcripts are identical across runs and
// suitable for golden snapshot comparison.
package harness

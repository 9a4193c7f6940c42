package harness

import (
	"github.com/educloud/educloud-cli/internal/checkout"
)

// TraceEvent records one unit registration sent to the scripted purchase
// service.
type TraceEvent struct {
	// Seq is the 1-based call order across the whole run.
	Seq int `json:"seq"`

	// CourseID and Unit identify the registration: Unit counts within the
	// course, 1-based.
	CourseID string `json:"course_id"`
	Unit     int    `json:"unit"`

	// Outcome is the scripted answer: "ok", "rejected", or "network".
	Outcome string `json:"outcome"`

	// PurchaseID is set for accepted registrations.
	PurchaseID string `json:"purchase_id,omitempty"`

	// Message is the rejection message, when rejected.
	Message string `json:"message,omitempty"`
}

// Result captures a full scenario run.
type Result struct {
	// Checkout is the processor's result. Nil when the run ended in a
	// pre-check error.
	Checkout *checkout.Result

	// Err is the pre-check error name ("no_session", "empty_cart"), empty
	// on a started run.
	Err string

	// Trace lists every registration call in order.
	Trace []TraceEvent
}

// registerCalls counts trace events for one course.
func (r *Result) registerCalls(courseID string) int {
	n := 0
	for _, e := range r.Trace {
		if e.CourseID == courseID {
			n++
		}
	}
	return n
}

// purchaseCount counts accepted registrations across the run.
func (r *Result) purchaseCount() int {
	n := 0
	for _, e := range r.Trace {
		if e.Outcome == OutcomeOK {
			n++
		}
	}
	return n
}

// courseResult finds the terminal record for one course.
func (r *Result) courseResult(courseID string) (checkout.CourseResult, bool) {
	if r.Checkout == nil {
		return checkout.CourseResult{}, false
	}
	for _, c := range r.Checkout.Courses {
		if c.CourseID == courseID {
			return c, true
		}
	}
	return checkout.CourseResult{}, false
}

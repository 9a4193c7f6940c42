package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/educloud/educloud-cli/internal/api"
	"github.com/educloud/educloud-cli/internal/cart"
	"github.com/educloud/educloud-cli/internal/checkout"
	"github.com/educloud/educloud-cli/internal/session"
	"github.com/educloud/educloud-cli/internal/storage"
	"github.com/educloud/educloud-cli/internal/testutil"
)

// defaultFlowToken keeps unscripted scenarios deterministic.
const defaultFlowToken = "test-flow-default"

// harnessRedirectDelay is fixed so transcripts do not depend on config.
const harnessRedirectDelay = 3 * time.Second

// Run executes a scenario: seeds session and cart into a throwaway state
// database, runs the checkout processor against the scripted purchase
// service, and returns the trace and result.
//
// Scenario problems (script exhausted or unused) surface as errors;
// expected pre-check failures land in Result.Err instead.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "educloud-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := storage.Open(filepath.Join(dir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	defer st.Close()

	sessions := session.NewCache(st)
	if scenario.Session != nil && scenario.Session.Token != "" {
		seed := session.Session{
			Token:    scenario.Session.Token,
			Username: scenario.Session.Username,
			TenantID: scenario.Session.TenantID,
		}
		if err := sessions.Login(seed, false); err != nil {
			return nil, fmt.Errorf("failed to seed session: %w", err)
		}
	}

	cartStore := cart.New(st)
	for _, line := range scenario.Cart {
		item := cart.Item{
			ID:        line.ID,
			Title:     line.Title,
			UnitPrice: line.Price,
			Quantity:  line.Quantity,
		}
		if err := cartStore.Add(item); err != nil {
			return nil, fmt.Errorf("failed to seed cart line %s: %w", line.ID, err)
		}
		// Add always inserts with quantity 1; raise it afterwards like a
		// user would.
		if line.Quantity > 1 {
			if err := cartStore.UpdateQuantity(line.ID, line.Quantity); err != nil {
				return nil, fmt.Errorf("failed to seed cart line %s: %w", line.ID, err)
			}
		}
	}

	purchases := newScriptedPurchases(scenario.Outcomes)
	flowToken := scenario.FlowToken
	if flowToken == "" {
		flowToken = defaultFlowToken
	}

	proc := checkout.New(cartStore, sessions, purchases, harnessRedirectDelay,
		testutil.NewFixedFlowGenerator(flowToken))

	res, err := proc.Run(context.Background())
	switch {
	case errors.Is(err, checkout.ErrNoSession):
		return &Result{Err: ExpectNoSession, Trace: purchases.trace}, nil
	case errors.Is(err, checkout.ErrEmptyCart):
		return &Result{Err: ExpectEmptyCart, Trace: purchases.trace}, nil
	case err != nil:
		return nil, err
	}

	if n := purchases.remaining(); n > 0 {
		return nil, fmt.Errorf("%d scripted outcomes were never consumed", n)
	}
	return &Result{Checkout: res, Trace: purchases.trace}, nil
}

// scriptedPurchases answers unit registrations from the scenario script.
// Implements checkout.PurchaseClient.
type scriptedPurchases struct {
	script map[string][]string
	units  map[string]int
	trace  []TraceEvent
	seq    int
	nextID int
}

func newScriptedPurchases(outcomes map[string][]string) *scriptedPurchases {
	script := make(map[string][]string, len(outcomes))
	for course, list := range outcomes {
		script[course] = append([]string(nil), list...)
	}
	return &scriptedPurchases{script: script, units: map[string]int{}}
}

func (s *scriptedPurchases) RegisterPurchase(ctx context.Context, req api.PurchaseRequest) (string, error) {
	queue := s.script[req.CourseID]
	if len(queue) == 0 {
		return "", fmt.Errorf("no scripted outcome left for course %s", req.CourseID)
	}
	outcome := queue[0]
	s.script[req.CourseID] = queue[1:]

	s.seq++
	s.units[req.CourseID]++
	event := TraceEvent{
		Seq:      s.seq,
		CourseID: req.CourseID,
		Unit:     s.units[req.CourseID],
	}

	switch {
	case outcome == OutcomeOK:
		s.nextID++
		event.Outcome = OutcomeOK
		event.PurchaseID = fmt.Sprintf("p-%d", s.nextID)
		s.trace = append(s.trace, event)
		return event.PurchaseID, nil
	case outcome == OutcomeNetwork:
		event.Outcome = OutcomeNetwork
		s.trace = append(s.trace, event)
		return "", &api.TransportError{Err: errors.New("connection refused")}
	case strings.HasPrefix(outcome, outcomeRejectPrefix):
		event.Outcome = "rejected"
		event.Message = strings.TrimPrefix(outcome, outcomeRejectPrefix)
		s.trace = append(s.trace, event)
		return "", &api.StatusError{Status: 400, Message: event.Message}
	}
	return "", fmt.Errorf("unknown scripted outcome %q", outcome)
}

func (s *scriptedPurchases) remaining() int {
	n := 0
	for _, queue := range s.script {
		n += len(queue)
	}
	return n
}

// Package checkout turns the locally-held cart into server-confirmed
// purchases. The purchase ledger is one row per unit, so a cart line with
// quantity N becomes N independent registration calls; courses are processed
// strictly in cart order so a failure is always attributable to one course
// without request correlation.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/educloud/educloud-cli/internal/api"
	"github.com/educloud/educloud-cli/internal/cart"
)

var (
	// ErrNoSession means checkout was attempted without a cached token.
	// Raised before any network call.
	ErrNoSession = errors.New("sign in before checking out")

	// ErrEmptyCart means there is nothing to purchase. Raised before any
	// network call.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInProgress means another checkout is already running. The
	// in-flight guard serializes user-triggered submissions.
	ErrInProgress = errors.New("checkout already in progress")
)

// State tracks one course through the reconciliation flow.
type State string

const (
	StatePending    State = "pending"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// PurchaseClient is the slice of the API client checkout needs.
type PurchaseClient interface {
	RegisterPurchase(ctx context.Context, req api.PurchaseRequest) (string, error)
}

// TokenSource answers whether a session token is cached.
type TokenSource interface {
	Token() (string, bool)
}

// FlowTokenGenerator produces the per-run flow token used for log
// attribution across the unit submissions of one checkout.
type FlowTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 flow tokens.
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 as a hyphenated string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// CourseResult is the terminal record for one cart line.
type CourseResult struct {
	CourseID       string
	Title          string
	State          State
	UnitsRequested int
	UnitsPurchased int
	PurchaseIDs    []string
	Reason         string
}

// Result aggregates a full checkout run.
type Result struct {
	FlowToken string
	Courses   []CourseResult

	// Succeeded and Failed count courses, not units. A course whose later
	// unit failed counts as failed even though earlier units were recorded;
	// recorded purchases are never rolled back.
	Succeeded int
	Failed    int

	// CartCleared is true only when every course succeeded.
	CartCleared bool

	// RedirectAfter is non-zero when the caller should move to the
	// purchase-history view after the given pause. Set together with
	// CartCleared.
	RedirectAfter time.Duration
}

// Processor runs the reconciliation flow. Construct once and inject; the
// internal mutex is the "processing" flag that keeps repeated triggers from
// submitting twice.
type Processor struct {
	mu sync.Mutex

	cart          *cart.Store
	sessions      TokenSource
	purchases     PurchaseClient
	flowGen       FlowTokenGenerator
	redirectDelay time.Duration
}

// New creates a checkout processor. flowGen may be nil, defaulting to
// UUIDv7Generator.
func New(cartStore *cart.Store, sessions TokenSource, purchases PurchaseClient, redirectDelay time.Duration, flowGen FlowTokenGenerator) *Processor {
	if flowGen == nil {
		flowGen = UUIDv7Generator{}
	}
	return &Processor{
		cart:          cartStore,
		sessions:      sessions,
		purchases:     purchases,
		flowGen:       flowGen,
		redirectDelay: redirectDelay,
	}
}

// Run executes the flow:
//
//  1. Pre-checks: cached token and non-empty cart, no network on violation.
//  2. Per course in cart order, one registration call per unit. The first
//     failed unit of a course ends that course (no retry of its remaining
//     units) and the flow moves to the next course.
//  3. Outcome: all courses succeeded - clear the cart and schedule the
//     redirect; any failure - leave the cart untouched so the failed
//     courses can be retried.
//
// Transport and non-2xx failures land in the same failure bucket; they are
// distinguished in the log only.
func (p *Processor) Run(ctx context.Context) (*Result, error) {
	if !p.mu.TryLock() {
		return nil, ErrInProgress
	}
	defer p.mu.Unlock()

	if _, ok := p.sessions.Token(); !ok {
		return nil, ErrNoSession
	}
	items := p.cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	result := &Result{FlowToken: p.flowGen.Generate()}
	log := slog.With("flow", result.FlowToken)
	log.Info("checkout started", "courses", len(items), "units", p.cart.ItemCount())

	for _, item := range items {
		result.Courses = append(result.Courses, p.submitCourse(ctx, log, item))
	}

	for _, cr := range result.Courses {
		switch cr.State {
		case StateSucceeded:
			result.Succeeded++
		case StateFailed:
			result.Failed++
		}
	}

	if result.Succeeded > 0 && result.Failed == 0 {
		if err := p.cart.Clear(); err != nil {
			log.Error("failed to clear cart after checkout", "error", err)
		} else {
			result.CartCleared = true
			result.RedirectAfter = p.redirectDelay
		}
	}

	log.Info("checkout finished",
		"succeeded", result.Succeeded, "failed", result.Failed, "cart_cleared", result.CartCleared)
	return result, nil
}

// submitCourse drives one cart line through the per-course state machine:
// pending -> submitting(unit i) -> succeeded | failed, terminal on the first
// failed unit.
func (p *Processor) submitCourse(ctx context.Context, log *slog.Logger, item cart.Item) CourseResult {
	cr := CourseResult{
		CourseID:       item.ID,
		Title:          item.Title,
		State:          StatePending,
		UnitsRequested: item.Quantity,
	}

	for unit := 0; unit < item.Quantity; unit++ {
		cr.State = StateSubmitting

		purchaseID, err := p.purchases.RegisterPurchase(ctx, api.PurchaseRequest{
			CourseID:   item.ID,
			CourseName: item.Title,
			AmountPaid: item.UnitPrice,
		})
		if err != nil {
			cr.State = StateFailed
			cr.Reason = err.Error()

			// Transport vs. rejected matters for the log, not the user.
			var transportErr *api.TransportError
			if errors.As(err, &transportErr) {
				log.Warn("purchase unit failed: transport",
					"course", item.ID, "unit", unit+1, "error", transportErr.Unwrap())
			} else {
				log.Warn("purchase unit failed: rejected",
					"course", item.ID, "unit", unit+1, "error", err)
			}
			return cr
		}

		cr.UnitsPurchased++
		cr.PurchaseIDs = append(cr.PurchaseIDs, purchaseID)
		log.Debug("purchase unit recorded", "course", item.ID, "unit", unit+1, "purchase_id", purchaseID)
	}

	cr.State = StateSucceeded
	return cr
}

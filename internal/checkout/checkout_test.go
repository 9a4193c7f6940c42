package checkout

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educloud/educloud-cli/internal/api"
	"github.com/educloud/educloud-cli/internal/cart"
	"github.com/educloud/educloud-cli/internal/storage"
	"github.com/educloud/educloud-cli/internal/testutil"
)

type fakeTokens struct {
	token string
}

func (f fakeTokens) Token() (string, bool) { return f.token, f.token != "" }

// scriptedPurchases returns canned outcomes keyed by course id, consumed in
// order per course. An exhausted script succeeds.
type scriptedPurchases struct {
	mu       sync.Mutex
	failures map[string][]error // per-course outcome queue; nil entry = success
	calls    []api.PurchaseRequest
	nextID   int
}

func (s *scriptedPurchases) RegisterPurchase(_ context.Context, req api.PurchaseRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, req)
	if queue := s.failures[req.CourseID]; len(queue) > 0 {
		outcome := queue[0]
		s.failures[req.CourseID] = queue[1:]
		if outcome != nil {
			return "", outcome
		}
	}
	s.nextID++
	return fmt.Sprintf("p-%d", s.nextID), nil
}

func newTestCart(t *testing.T, items ...cart.Item) *cart.Store {
	t.Helper()
	t.Setenv("EDUCLOUD_SESSION", "checkout-test")

	backing, err := storage.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { backing.Close() })

	store := cart.New(backing)
	for _, item := range items {
		require.NoError(t, store.Add(item))
		if item.Quantity > 1 {
			require.NoError(t, store.UpdateQuantity(item.ID, item.Quantity))
		}
	}
	return store
}

func newProcessor(cartStore *cart.Store, tokens fakeTokens, purchases PurchaseClient) *Processor {
	return New(cartStore, tokens, purchases, 3*time.Second, testutil.NewFixedFlowGenerator("flow-1"))
}

func TestRun_AllUnitsSucceed(t *testing.T) {
	// Scenario: one course, quantity 2, both submissions succeed.
	cartStore := newTestCart(t, cart.Item{ID: "c1", Title: "Go desde cero", UnitPrice: 10, Quantity: 2})
	purchases := &scriptedPurchases{}

	result, err := newProcessor(cartStore, fakeTokens{token: "tok"}, purchases).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "flow-1", result.FlowToken)
	assert.Equal(t, 1, result.Succeeded)
	assert.Zero(t, result.Failed)
	assert.True(t, result.CartCleared)
	assert.Equal(t, 3*time.Second, result.RedirectAfter)
	assert.Empty(t, cartStore.Items(), "cart must be cleared on full success")

	require.Len(t, result.Courses, 1)
	cr := result.Courses[0]
	assert.Equal(t, StateSucceeded, cr.State)
	assert.Equal(t, 2, cr.UnitsPurchased)
	assert.Equal(t, []string{"p-1", "p-2"}, cr.PurchaseIDs)

	require.Len(t, purchases.calls, 2)
	assert.Equal(t, api.PurchaseRequest{CourseID: "c1", CourseName: "Go desde cero", AmountPaid: 10}, purchases.calls[0])
}

func TestRun_FirstUnitFailureSkipsRemainingUnits(t *testing.T) {
	// Scenario: c1 qty 2 fails on its first unit, c2 qty 1 succeeds.
	cartStore := newTestCart(t,
		cart.Item{ID: "c1", Title: "Curso A", UnitPrice: 10, Quantity: 2},
		cart.Item{ID: "c2", Title: "Curso B", UnitPrice: 20, Quantity: 1},
	)
	purchases := &scriptedPurchases{failures: map[string][]error{
		"c1": {&api.StatusError{Status: 500, Message: "ledger unavailable"}},
	}}

	result, err := newProcessor(cartStore, fakeTokens{token: "tok"}, purchases).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.CartCleared)
	assert.Zero(t, result.RedirectAfter)
	assert.Len(t, cartStore.Items(), 2, "cart must stay intact for retry")

	require.Len(t, result.Courses, 2)
	assert.Equal(t, StateFailed, result.Courses[0].State)
	assert.Equal(t, "ledger unavailable", result.Courses[0].Reason)
	assert.Zero(t, result.Courses[0].UnitsPurchased)
	assert.Equal(t, StateSucceeded, result.Courses[1].State)

	// One failed attempt for c1 (no retry of the second unit), one for c2.
	require.Len(t, purchases.calls, 2)
	assert.Equal(t, "c1", purchases.calls[0].CourseID)
	assert.Equal(t, "c2", purchases.calls[1].CourseID)
}

func TestRun_SecondUnitFailureKeepsRecordedSuccesses(t *testing.T) {
	cartStore := newTestCart(t, cart.Item{ID: "c1", Title: "Curso A", UnitPrice: 10, Quantity: 3})
	purchases := &scriptedPurchases{failures: map[string][]error{
		"c1": {nil, &api.StatusError{Status: 409, Message: "duplicate"}},
	}}

	result, err := newProcessor(cartStore, fakeTokens{token: "tok"}, purchases).Run(context.Background())
	require.NoError(t, err)

	cr := result.Courses[0]
	assert.Equal(t, StateFailed, cr.State)
	assert.Equal(t, 1, cr.UnitsPurchased, "successes before the failure are not rolled back")
	assert.Len(t, cr.PurchaseIDs, 1)
	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, result.Succeeded)
	assert.False(t, result.CartCleared)
	assert.Len(t, purchases.calls, 2, "third unit must not be attempted")
}

func TestRun_NoSession(t *testing.T) {
	// Scenario: no token cached - no network call, immediate error.
	cartStore := newTestCart(t, cart.Item{ID: "c1", UnitPrice: 10, Quantity: 1})
	purchases := &scriptedPurchases{}

	_, err := newProcessor(cartStore, fakeTokens{}, purchases).Run(context.Background())

	require.ErrorIs(t, err, ErrNoSession)
	assert.Empty(t, purchases.calls)
	assert.Len(t, cartStore.Items(), 1)
}

func TestRun_EmptyCart(t *testing.T) {
	cartStore := newTestCart(t)
	purchases := &scriptedPurchases{}

	_, err := newProcessor(cartStore, fakeTokens{token: "tok"}, purchases).Run(context.Background())

	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, purchases.calls)
}

func TestRun_AllCoursesFail(t *testing.T) {
	cartStore := newTestCart(t, cart.Item{ID: "c1", Title: "Curso A", UnitPrice: 10, Quantity: 1})
	purchases := &scriptedPurchases{failures: map[string][]error{
		"c1": {&api.TransportError{Err: errors.New("dial tcp: refused")}},
	}}

	result, err := newProcessor(cartStore, fakeTokens{token: "tok"}, purchases).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.CartCleared)
	assert.Len(t, cartStore.Items(), 1)
	// Transport failures surface the generic connectivity message.
	assert.Equal(t, "connection error, check your network and try again", result.Courses[0].Reason)
}

func TestRun_InFlightGuard(t *testing.T) {
	cartStore := newTestCart(t, cart.Item{ID: "c1", Title: "Curso A", UnitPrice: 10, Quantity: 1})

	started := make(chan struct{})
	release := make(chan struct{})
	blocking := &blockingPurchases{started: started, release: release}
	p := newProcessor(cartStore, fakeTokens{token: "tok"}, blocking)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := p.Run(context.Background())
		assert.NoError(t, err)
	}()

	<-started
	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, ErrInProgress)

	close(release)
	<-done
}

type blockingPurchases struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *blockingPurchases) RegisterPurchase(context.Context, api.PurchaseRequest) (string, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return "p-1", nil
}

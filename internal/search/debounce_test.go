package search

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects debouncer callbacks with enough locking to be read
// safely from the test goroutine.
type recorder struct {
	mu      sync.Mutex
	queries []string
	clears  int
}

func (r *recorder) onQuery(q string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
}

func (r *recorder) onClear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears++
}

func (r *recorder) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...), r.clears
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestDebouncer_FiresAfterQuietWindow(t *testing.T) {
	r := &recorder{}
	d := NewDebouncer(20*time.Millisecond, 2, r.onQuery, r.onClear)
	defer d.Stop()

	d.Input("go basics")

	waitFor(t, func() bool { qs, _ := r.snapshot(); return len(qs) == 1 })
	qs, _ := r.snapshot()
	assert.Equal(t, []string{"go basics"}, qs)
}

func TestDebouncer_BurstCollapsesToLastQuery(t *testing.T) {
	r := &recorder{}
	d := NewDebouncer(30*time.Millisecond, 2, r.onQuery, r.onClear)
	defer d.Stop()

	d.Input("go")
	d.Input("go b")
	d.Input("go basics")

	waitFor(t, func() bool { qs, _ := r.snapshot(); return len(qs) >= 1 })
	time.Sleep(60 * time.Millisecond) // no further firings
	qs, _ := r.snapshot()
	require.Equal(t, []string{"go basics"}, qs)
}

func TestDebouncer_ShortQueryClearsInsteadOfFiring(t *testing.T) {
	r := &recorder{}
	d := NewDebouncer(10*time.Millisecond, 2, r.onQuery, r.onClear)
	defer d.Stop()

	d.Input("g")
	d.Input("  ") // whitespace only trims to empty

	time.Sleep(50 * time.Millisecond)
	qs, clears := r.snapshot()
	assert.Empty(t, qs)
	assert.Equal(t, 2, clears)
}

func TestDebouncer_ShortInputCancelsPendingQuery(t *testing.T) {
	r := &recorder{}
	d := NewDebouncer(40*time.Millisecond, 2, r.onQuery, r.onClear)
	defer d.Stop()

	d.Input("go basics")
	d.Input("g") // user deleted the query before the window elapsed

	time.Sleep(100 * time.Millisecond)
	qs, clears := r.snapshot()
	assert.Empty(t, qs, "cancelled query must not fire")
	assert.Equal(t, 1, clears)
}

func TestDebouncer_FlushFiresImmediately(t *testing.T) {
	r := &recorder{}
	d := NewDebouncer(time.Hour, 2, r.onQuery, r.onClear)
	defer d.Stop()

	d.Input("go basics")
	d.Flush()

	qs, _ := r.snapshot()
	assert.Equal(t, []string{"go basics"}, qs)

	// Flushing again is a no-op.
	d.Flush()
	qs, _ = r.snapshot()
	assert.Len(t, qs, 1)
}

func TestDebouncer_StopCancels(t *testing.T) {
	r := &recorder{}
	d := NewDebouncer(30*time.Millisecond, 2, r.onQuery, r.onClear)

	d.Input("go basics")
	d.Stop()

	time.Sleep(80 * time.Millisecond)
	qs, _ := r.snapshot()
	assert.Empty(t, qs)
}

// Package search drives search-as-you-type against the search service.
// Keystroke bursts are collapsed so only the final resting query hits the
// network, mirroring the storefront's 300ms autocomplete window.
package search

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Defaults used by the live search command.
const (
	DefaultDelay      = 300 * time.Millisecond
	DefaultMinRunes   = 2
	AutocompleteLimit = 8
)

// Debouncer fires onQuery only after delay has passed with no further
// input. Queries shorter than minRunes (after trimming) never fire; they
// invoke onClear instead, so stale suggestions disappear as the user
// deletes their query.
type Debouncer struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending string

	delay    time.Duration
	minRunes int
	onQuery  func(query string)
	onClear  func()
}

// NewDebouncer creates a debouncer. onClear may be nil.
func NewDebouncer(delay time.Duration, minRunes int, onQuery func(string), onClear func()) *Debouncer {
	if onClear == nil {
		onClear = func() {}
	}
	return &Debouncer{
		delay:    delay,
		minRunes: minRunes,
		onQuery:  onQuery,
		onClear:  onClear,
	}
}

// Input feeds the current query text. Each call resets the quiet window.
func (d *Debouncer) Input(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()

	query := strings.TrimSpace(text)
	if utf8.RuneCountInString(query) < d.minRunes {
		d.onClear()
		return
	}

	d.pending = query
	d.timer = time.AfterFunc(d.delay, func() { d.onQuery(query) })
}

// Flush fires the pending query immediately (the Enter key path), as if the
// quiet window had just elapsed. A no-op when nothing eligible is pending.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer == nil || !d.timer.Stop() {
		d.mu.Unlock()
		return
	}
	query := d.pending
	d.timer = nil
	d.mu.Unlock()

	d.onQuery(query)
}

// Stop cancels any pending query without firing it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

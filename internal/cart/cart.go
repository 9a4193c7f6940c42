// Package cart maintains the local shopping cart: the authoritative client-side
// view of the courses the user intends to buy. The cart has no server mirror
// until checkout; it is persisted in full to the durable storage scope after
// every mutation so it survives restarts.
package cart

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/educloud/educloud-cli/internal/storage"
)

// StorageKey is the durable-scope key holding the serialized cart snapshot.
const StorageKey = "cart"

// ErrAlreadyInCart is returned by Add when the course is already present.
// Duplicate adds never change quantity; that is what UpdateQuantity is for.
var ErrAlreadyInCart = errors.New("course already in cart")

// Item is one cart line. At most one Item exists per course id.
// The JSON field names match the persisted snapshot format.
type Item struct {
	ID         string  `json:"id"`
	Title      string  `json:"nombre"`
	UnitPrice  float64 `json:"precio"`
	Category   string  `json:"categoria,omitempty"`
	Instructor string  `json:"instructor,omitempty"`
	Quantity   int     `json:"quantity"`
}

// Store holds the cart items and keeps them durable across runs.
// Construct one per process with New and inject it into consumers.
//
// Store is not safe for concurrent use; all client state is mutated from a
// single command invocation at a time.
type Store struct {
	items   []Item
	backing *storage.Store
}

// New loads the cart snapshot from storage. An absent or corrupt snapshot
// starts an empty cart - the snapshot is a cache, recovery is discard.
// Items persisted without a quantity default to 1.
func New(backing *storage.Store) *Store {
	s := &Store{backing: backing}

	raw, ok, err := backing.Get(storage.ScopeDurable, StorageKey)
	if err != nil || !ok {
		return s
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return s
	}
	for i := range items {
		if items[i].Quantity < 1 {
			items[i].Quantity = 1
		}
	}
	s.items = items
	return s
}

// Add inserts a course with quantity 1. Adding a course that is already in
// the cart returns ErrAlreadyInCart and leaves the cart unchanged.
func (s *Store) Add(item Item) error {
	if item.ID == "" {
		return errors.New("course id is required")
	}
	if s.find(item.ID) >= 0 {
		return ErrAlreadyInCart
	}

	item.Quantity = 1
	s.items = append(s.items, item)
	return s.persist()
}

// Remove deletes the item with the given course id. Removing an absent id
// is a no-op (still persists, so the snapshot stays in step).
func (s *Store) Remove(id string) error {
	idx := s.find(id)
	if idx >= 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
	}
	return s.persist()
}

// UpdateQuantity overwrites the quantity for a course. A quantity of zero or
// less behaves exactly like Remove.
func (s *Store) UpdateQuantity(id string, quantity int) error {
	if quantity <= 0 {
		return s.Remove(id)
	}

	if idx := s.find(id); idx >= 0 {
		s.items[idx].Quantity = quantity
	}
	return s.persist()
}

// Clear empties the cart and persists the empty snapshot.
func (s *Store) Clear() error {
	s.items = nil
	return s.persist()
}

// Items returns a copy of the cart lines in insertion order.
func (s *Store) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Total is the sum of unit price times quantity over all lines.
func (s *Store) Total() float64 {
	var total float64
	for _, item := range s.items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// ItemCount is the sum of quantities over all lines.
func (s *Store) ItemCount() int {
	var count int
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

func (s *Store) find(id string) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// persist serializes the full item list and writes it under StorageKey.
// Every mutating operation calls this synchronously.
func (s *Store) persist() error {
	items := s.items
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("serialize cart: %w", err)
	}
	if err := s.backing.Put(storage.ScopeDurable, StorageKey, string(data)); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

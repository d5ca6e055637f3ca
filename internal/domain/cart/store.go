// internal/domain/cart/store.go
package cart

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Store is the in-memory state of one shopper's cart. It owns the quantity
// invariant: every line satisfies 1 <= Quantity <= MaxQuantity, and no two
// lines share an id or a product/variant pair.
type Store struct {
	mu    sync.RWMutex
	items []CartItem
}

// NewStore rebuilds a store from persisted lines, re-applying the invariants
// to whatever was stored
func NewStore(items []CartItem) *Store {
	s := &Store{}
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		s.addLocked(item, item.Quantity)
	}
	return s
}

// AddItem merges item into an existing line or appends a new one.
// Quantities below 1 count as 1 and totals above MaxQuantity are clamped.
func (s *Store) AddItem(item CartItem, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.addLocked(item, quantity)
}

func (s *Store) addLocked(item CartItem, quantity int) {
	if item.ID == "" {
		item.ID = ItemKey(item.ProductID, item.VariantID)
	}
	if item.MaxQuantity < 1 {
		item.MaxQuantity = DefaultMaxQuantity
	}

	for i := range s.items {
		existing := &s.items[i]
		if !existing.sameLine(item) {
			continue
		}

		// Catalog data may have moved since the line was created
		existing.Name = item.Name
		existing.Price = item.Price
		existing.ComparePrice = item.ComparePrice
		existing.Image = item.Image
		existing.MaxQuantity = item.MaxQuantity
		existing.Quantity = min(existing.Quantity+quantity, existing.MaxQuantity)
		return
	}

	item.Quantity = min(quantity, item.MaxQuantity)
	s.items = append(s.items, item)
}

// RemoveItem drops the line with the given id; unknown ids are ignored
func (s *Store) RemoveItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(id)
}

func (s *Store) removeLocked(id string) {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// UpdateQuantity sets a line's quantity, clamped to its MaxQuantity.
// A quantity of zero or less removes the line.
func (s *Store) UpdateQuantity(id string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLocked(id)
		return
	}

	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Quantity = min(quantity, s.items[i].MaxQuantity)
			return
		}
	}
}

// Clear empties the cart
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
}

// TotalItems is the sum of all line quantities
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// TotalPrice is the sum of price * quantity over all lines
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Items returns a copy of the current lines
func (s *Store) Items() []CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]CartItem, len(s.items))
	copy(items, s.items)
	return items
}

// Snapshot returns an immutable view of the cart
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return NewSnapshot(s.items)
}

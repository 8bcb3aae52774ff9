// Package cache keeps the client's read-mostly copy of the orders in the
// current view and folds server-confirmed status changes into it.
//
// A status patched in here can go stale if another actor changes the same
// order from a different session; the next ReplaceAll corrects it.
package cache

import (
	"sync"

	"storefront/internal/model"
)

type Store struct {
	mu     sync.RWMutex
	orders []model.Order
	index  map[string]int
	// gen counts applied status patches.
	gen uint64
}

func New() *Store {
	return &Store{index: make(map[string]int)}
}

// ReplaceAll swaps in a fresh list as received. A repeated id replaces the
// earlier entry in place, so the store never holds two orders with one id.
func (s *Store) ReplaceAll(orders []model.Order) {
	next, index := dedupe(orders)

	s.mu.Lock()
	s.orders = next
	s.index = index
	s.mu.Unlock()
}

// Generation changes every time ApplyStatus patches an order.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// ReplaceAllSince is ReplaceAll for a list fetched when the store was at
// generation gen. If a status was patched since then the list predates it and
// is dropped; the result reports whether it was applied.
func (s *Store) ReplaceAllSince(orders []model.Order, gen uint64) bool {
	next, index := dedupe(orders)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.orders = next
	s.index = index
	return true
}

func dedupe(orders []model.Order) ([]model.Order, map[string]int) {
	next := make([]model.Order, 0, len(orders))
	index := make(map[string]int, len(orders))
	for _, o := range orders {
		if i, ok := index[o.ID]; ok {
			next[i] = o.Clone()
			continue
		}
		index[o.ID] = len(next)
		next = append(next, o.Clone())
	}
	return next, index
}

// ApplyStatus rewrites only the status of the matching order. It reports
// whether the order was present.
func (s *Store) ApplyStatus(orderID string, status model.Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[orderID]
	if !ok {
		return false
	}
	s.orders[i].OrderStatus = status
	s.gen++
	return true
}

func (s *Store) Get(orderID string) (model.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[orderID]
	if !ok {
		return model.Order{}, false
	}
	return s.orders[i].Clone(), true
}

// ProjectByStatus returns the orders whose status equals filter, in cache
// order. model.FilterAll returns every order. The store itself is untouched.
func (s *Store) ProjectByStatus(filter string) []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if filter == model.FilterAll || string(o.OrderStatus) == filter {
			out = append(out, o.Clone())
		}
	}
	return out
}

func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.orders))
	for i, o := range s.orders {
		ids[i] = o.ID
	}
	return ids
}

// Counts tallies orders per status.
func (s *Store) Counts() map[model.Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[model.Status]int, len(model.Statuses))
	for _, o := range s.orders {
		counts[o.OrderStatus]++
	}
	return counts
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// Package cart is the per-user booking cart repository. Items keep their
// insertion order; every mutation is announced on the change bus so cart
// badges and other listeners can re-read without referencing the mutator.
package cart

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"eventmart/internal/bus"
	"eventmart/internal/metrics"
	"eventmart/internal/store"
	"eventmart/models"
)

// ErrDuplicateItem signals an add for a worker id already in the cart.
var ErrDuplicateItem = errors.New("worker is already in the cart")

// Service stores each user's cart under its own key. Corrupt or missing
// cart data always reads back as an empty cart.
type Service struct {
	store store.Store
	bus   *bus.Bus

	// Serializes read-modify-write cycles per process.
	mu sync.Mutex
}

// NewService wires the cart repository to its store and bus.
func NewService(st store.Store, b *bus.Bus) *Service {
	return &Service{store: st, bus: b}
}

// GetCart returns userID's cart items in insertion order.
func (s *Service) GetCart(userID string) []models.CartItem {
	return store.ReadJSON(s.store, store.CartKey(userID), []models.CartItem{})
}

// AddToCart appends item to userID's cart. Fails with ErrDuplicateItem
// when an item with the same id is already present; the cart is left
// unchanged in that case.
func (s *Service) AddToCart(userID string, item models.CartItem) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.GetCart(userID)
	for _, existing := range items {
		if existing.ID == item.ID {
			metrics.CartOps.WithLabelValues("add", metrics.OutcomeConflict).Inc()
			return items, ErrDuplicateItem
		}
	}

	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}
	items = append(items, item)

	if err := store.WriteJSON(s.store, store.CartKey(userID), items); err != nil {
		metrics.CartOps.WithLabelValues("add", metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("persist cart: %w", err)
	}

	log.Printf("[cart] add userId=%s workerId=%s size=%d", userID, item.ID, len(items))
	metrics.CartOps.WithLabelValues("add", metrics.OutcomeOK).Inc()
	s.bus.Publish(bus.Event{Topic: bus.TopicCartChanged, UserID: userID})
	return items, nil
}

// RemoveFromCart removes the item with itemID if present. Removing an
// absent id is a no-op, not an error.
func (s *Service) RemoveFromCart(userID, itemID string) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.GetCart(userID)
	kept := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}

	if err := store.WriteJSON(s.store, store.CartKey(userID), kept); err != nil {
		metrics.CartOps.WithLabelValues("remove", metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("persist cart: %w", err)
	}

	metrics.CartOps.WithLabelValues("remove", metrics.OutcomeOK).Inc()
	s.bus.Publish(bus.Event{Topic: bus.TopicCartChanged, UserID: userID})
	return kept, nil
}

// ClearCart deletes userID's cart key entirely.
func (s *Service) ClearCart(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Remove(store.CartKey(userID)); err != nil {
		metrics.CartOps.WithLabelValues("clear", metrics.OutcomeError).Inc()
		return fmt.Errorf("clear cart: %w", err)
	}

	log.Printf("[cart] clear userId=%s", userID)
	metrics.CartOps.WithLabelValues("clear", metrics.OutcomeOK).Inc()
	s.bus.Publish(bus.Event{Topic: bus.TopicCartChanged, UserID: userID})
	return nil
}

// Total sums the prices of userID's cart items.
func (s *Service) Total(userID string) float64 {
	var total float64
	for _, item := range s.GetCart(userID) {
		total += item.Price
	}
	return total
}

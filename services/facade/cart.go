// Package facade holds the reactive wrappers UI surfaces talk to. Each
// facade keeps an in-memory snapshot of the current user's data and
// re-reads from its repository whenever the bus announces a change or
// the session switches users.
package facade

import (
	"errors"
	"sync"

	"eventmart/internal/bus"
	"eventmart/models"
	"eventmart/services/cart"
	"eventmart/services/session"
)

// ErrSignInRequired short-circuits mutating calls made while anonymous.
var ErrSignInRequired = errors.New("please sign in to continue")

// CartFacade mirrors the authenticated user's cart. Reads are served
// from the snapshot; mutations are forwarded to the repository keyed by
// the session's user and the snapshot catches up via the bus.
type CartFacade struct {
	session *session.Manager
	carts   *cart.Service
	sub     *bus.Subscription

	mu    sync.RWMutex
	items []models.CartItem
}

// NewCartFacade builds the facade and starts its refresh loop.
func NewCartFacade(sess *session.Manager, carts *cart.Service, b *bus.Bus) *CartFacade {
	f := &CartFacade{
		session: sess,
		carts:   carts,
		sub:     b.Subscribe(bus.TopicCartChanged, bus.TopicProfileChanged, bus.TopicStoreChanged),
	}
	f.Refresh()
	go func() {
		for range f.sub.C {
			f.Refresh()
		}
	}()
	return f
}

// Close stops the refresh loop.
func (f *CartFacade) Close() {
	f.sub.Cancel()
}

// Refresh re-reads the snapshot from the repository for the current
// session user, or empties it while anonymous.
func (f *CartFacade) Refresh() {
	var items []models.CartItem
	if userID, ok := f.session.CurrentID(); ok {
		items = f.carts.GetCart(userID)
	}

	f.mu.Lock()
	f.items = items
	f.mu.Unlock()
}

// Items returns a copy of the snapshot in insertion order.
func (f *CartFacade) Items() []models.CartItem {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]models.CartItem(nil), f.items...)
}

// IsInCart reports whether the worker id is in the snapshot. Recomputed
// from the list on each call; a personal cart is small enough that no
// index is worth maintaining.
func (f *CartFacade) IsInCart(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, item := range f.items {
		if item.ID == id {
			return true
		}
	}
	return false
}

// Count returns the number of items in the snapshot.
func (f *CartFacade) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}

// Total sums the snapshot's item prices.
func (f *CartFacade) Total() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var total float64
	for _, item := range f.items {
		total += item.Price
	}
	return total
}

// Add puts item in the current user's cart. The snapshot adopts the
// repository's list immediately, so a read right after the call sees
// the item without waiting for the bus.
func (f *CartFacade) Add(item models.CartItem) error {
	userID, ok := f.session.CurrentID()
	if !ok {
		return ErrSignInRequired
	}
	items, err := f.carts.AddToCart(userID, item)
	if err != nil {
		return err
	}
	f.setItems(items)
	return nil
}

// Remove takes the worker id out of the current user's cart.
func (f *CartFacade) Remove(itemID string) error {
	userID, ok := f.session.CurrentID()
	if !ok {
		return ErrSignInRequired
	}
	items, err := f.carts.RemoveFromCart(userID, itemID)
	if err != nil {
		return err
	}
	f.setItems(items)
	return nil
}

// Clear empties the current user's cart, e.g. after checkout.
func (f *CartFacade) Clear() error {
	userID, ok := f.session.CurrentID()
	if !ok {
		return ErrSignInRequired
	}
	if err := f.carts.ClearCart(userID); err != nil {
		return err
	}
	f.setItems(nil)
	return nil
}

func (f *CartFacade) setItems(items []models.CartItem) {
	f.mu.Lock()
	f.items = items
	f.mu.Unlock()
}

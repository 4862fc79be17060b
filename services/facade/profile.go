package facade

import (
	"sync"

	"eventmart/internal/bus"
	"eventmart/models"
	"eventmart/services/session"
)

// ProfileFacade mirrors the authenticated user's record. It is the read
// side only; profile mutations go through the users service, which
// enforces the session itself.
type ProfileFacade struct {
	session *session.Manager
	sub     *bus.Subscription

	mu   sync.RWMutex
	user models.User
	auth bool
}

// NewProfileFacade builds the facade and starts its refresh loop.
func NewProfileFacade(sess *session.Manager, b *bus.Bus) *ProfileFacade {
	f := &ProfileFacade{
		session: sess,
		sub:     b.Subscribe(bus.TopicProfileChanged, bus.TopicStoreChanged),
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
func (f *ProfileFacade) Close() {
	f.sub.Cancel()
}

// Refresh re-reads the snapshot from the session.
func (f *ProfileFacade) Refresh() {
	user, ok := f.session.Current()

	f.mu.Lock()
	f.user = user
	f.auth = ok
	f.mu.Unlock()
}

// User returns the snapshot user, or false while anonymous.
func (f *ProfileFacade) User() (models.User, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.user, f.auth
}

// IsFavorite reports whether the worker id is in the snapshot favorites.
func (f *ProfileFacade) IsFavorite(workerID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, id := range f.user.Profile.Favorites {
		if id == workerID {
			return true
		}
	}
	return false
}

// Favorites returns a copy of the snapshot favorites.
func (f *ProfileFacade) Favorites() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.user.Profile.Favorites...)
}

// History returns a copy of the snapshot event history, newest first.
func (f *ProfileFacade) History() []models.EventRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]models.EventRecord(nil), f.user.Profile.EventHistory...)
}

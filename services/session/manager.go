// Package session owns the "current user" marker and the HTTP session
// tokens that represent it. Repositories receive the manager by
// injection instead of reading ambient global state.
package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-pkgz/auth/v2/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"eventmart/internal/bus"
	"eventmart/internal/store"
	"eventmart/models"
)

// Manager tracks the single authenticated user. The marker is persisted
// under the current_user key so a restart resumes the session, matching
// the durable client-side session it models.
type Manager struct {
	store  store.Store
	bus    *bus.Bus
	tokens *token.Service
	ttl    time.Duration
}

// NewManager builds a session manager signing tokens with secret.
func NewManager(st store.Store, b *bus.Bus, secret string, ttl time.Duration) *Manager {
	tokens := token.NewService(token.Opts{
		SecretReader: token.SecretFunc(func(string) (string, error) {
			return secret, nil
		}),
		TokenDuration:  ttl,
		CookieDuration: ttl,
		Issuer:         "eventmart",
		DisableXSRF:    true,
	})

	return &Manager{store: st, bus: b, tokens: tokens, ttl: ttl}
}

// Current returns the authenticated user, or false while anonymous.
func (m *Manager) Current() (models.User, bool) {
	user := store.ReadJSON(m.store, store.CurrentUserKey, models.User{})
	if user.ID == "" {
		return models.User{}, false
	}
	return user, true
}

// CurrentID returns the authenticated user's id, or false while anonymous.
func (m *Manager) CurrentID() (string, bool) {
	user, ok := m.Current()
	return user.ID, ok
}

// IsCurrent reports whether userID is the authenticated user.
func (m *Manager) IsCurrent(userID string) bool {
	current, ok := m.CurrentID()
	return ok && current == userID
}

// SetCurrent marks user as authenticated and announces the change.
func (m *Manager) SetCurrent(user models.User) error {
	if err := store.WriteJSON(m.store, store.CurrentUserKey, user); err != nil {
		return fmt.Errorf("persist current user: %w", err)
	}
	m.bus.Publish(bus.Event{Topic: bus.TopicProfileChanged, UserID: user.ID})
	return nil
}

// Clear removes the current-user marker only; registered user records
// are untouched.
func (m *Manager) Clear() error {
	userID, _ := m.CurrentID()
	if err := m.store.Remove(store.CurrentUserKey); err != nil {
		return fmt.Errorf("clear current user: %w", err)
	}
	m.bus.Publish(bus.Event{Topic: bus.TopicProfileChanged, UserID: userID})
	return nil
}

// IssueCookie writes a signed session cookie for user on the response.
func (m *Manager) IssueCookie(w http.ResponseWriter, user models.User) error {
	now := time.Now()
	claims := token.Claims{
		User: &token.User{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    "eventmart",
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	if _, err := m.tokens.Set(w, claims); err != nil {
		return fmt.Errorf("issue session cookie: %w", err)
	}
	return nil
}

// ResetCookie expires the session cookie on the response.
func (m *Manager) ResetCookie(w http.ResponseWriter) {
	m.tokens.Reset(w)
}

// UserFromRequest resolves the request's session cookie to the
// authenticated user. The token must both verify and still match the
// current-user marker; a stale cookie from a logged-out session is
// rejected.
func (m *Manager) UserFromRequest(r *http.Request) (models.User, bool) {
	claims, _, err := m.tokens.Get(r)
	if err != nil || claims.User == nil {
		return models.User{}, false
	}
	current, ok := m.Current()
	if !ok || current.ID != claims.User.ID {
		return models.User{}, false
	}
	return current, true
}

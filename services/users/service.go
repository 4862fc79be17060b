// Package users is the registry of marketplace accounts and their
// profiles: registration, login, profile merge-updates, favorites,
// event history, and the access-controlled per-user data namespace.
package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-password/password"
	"golang.org/x/crypto/bcrypt"

	"eventmart/internal/bus"
	"eventmart/internal/metrics"
	"eventmart/internal/store"
	"eventmart/models"
	"eventmart/services/session"
	"eventmart/utils"
	langutil "eventmart/utils/language"
)

var (
	ErrUserExists      = errors.New("a user with this email already exists")
	ErrUserNotFound    = errors.New("no registered user matches this email")
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrAlreadyFavorite = errors.New("worker is already a favorite")
	ErrAccessDenied    = errors.New("access denied")
	ErrInvalidUpdate   = errors.New("invalid profile update")
)

// Service owns the registered_users list and every per-user profile
// mutation. The session manager is injected so the repository never
// consults ambient global state for identity.
type Service struct {
	store     store.Store
	bus       *bus.Bus
	session   *session.Manager
	languages *langutil.Matcher

	// Serializes read-modify-write cycles on the registered_users list.
	mu sync.Mutex
}

// NewService wires the user repository to its store, bus and session.
func NewService(st store.Store, b *bus.Bus, sess *session.Manager, languages *langutil.Matcher) *Service {
	return &Service{store: st, bus: b, session: sess, languages: languages}
}

// RegisterInput carries the fields accepted at account creation.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password,omitempty"`
}

// Register creates an account with a fresh id and a default profile,
// persists it to the registered-users list and makes it current. Fails
// with ErrUserExists when the email is taken; the current user is left
// unchanged in that case.
func (s *Service) Register(in RegisterInput) (models.User, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" {
		return models.User{}, fmt.Errorf("%w: name and email are required", ErrInvalidUpdate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	registered := s.registered()
	for _, existing := range registered {
		if normalizeEmail(existing.Email) == email {
			metrics.ProfileOps.WithLabelValues("register", metrics.OutcomeConflict).Inc()
			return models.User{}, ErrUserExists
		}
	}

	now := time.Now()
	user := models.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(in.Phone),
		CreatedAt: now,
		Profile:   models.DefaultProfile(now),
	}

	// Passwords are stored hashed but deliberately not consulted at
	// login; see Login.
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	apiKey, err := password.Generate(40, 10, 0, false, true)
	if err != nil {
		return models.User{}, fmt.Errorf("generate api key: %w", err)
	}
	user.APIKey = apiKey

	registered = append(registered, user)
	if err := store.WriteJSON(s.store, store.RegisteredUsersKey, registered); err != nil {
		metrics.ProfileOps.WithLabelValues("register", metrics.OutcomeError).Inc()
		return models.User{}, fmt.Errorf("persist registered users: %w", err)
	}
	if err := s.session.SetCurrent(user); err != nil {
		return models.User{}, err
	}

	log.Printf("[users] registered id=%s email=%s", user.ID, user.Email)
	metrics.ProfileOps.WithLabelValues("register", metrics.OutcomeOK).Inc()
	return user, nil
}

// Login makes the registered user with the given email current. Only the
// email is checked: the stored password hash is intentionally not
// verified, preserving the observed behavior of the system this models.
func (s *Service) Login(email string) (models.User, error) {
	email = normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.registered() {
		if normalizeEmail(user.Email) == email {
			if err := s.session.SetCurrent(user); err != nil {
				return models.User{}, err
			}
			log.Printf("[users] login id=%s email=%s", user.ID, user.Email)
			metrics.ProfileOps.WithLabelValues("login", metrics.OutcomeOK).Inc()
			return user, nil
		}
	}

	metrics.ProfileOps.WithLabelValues("login", metrics.OutcomeConflict).Inc()
	return models.User{}, ErrUserNotFound
}

// Logout clears the current-user marker only.
func (s *Service) Logout() error {
	metrics.ProfileOps.WithLabelValues("logout", metrics.OutcomeOK).Inc()
	return s.session.Clear()
}

// Current returns the authenticated user, or false while anonymous.
func (s *Service) Current() (models.User, bool) {
	return s.session.Current()
}

// GetByID looks a registered user up by id.
func (s *Service) GetByID(userID string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.registered() {
		if user.ID == userID {
			return user, true
		}
	}
	return models.User{}, false
}

// UpdateProfile validates update and merges it into the current user's
// profile. Only fields present in the update change; updated_at is
// refreshed on every call.
func (s *Service) UpdateProfile(update models.ProfileUpdate) (models.User, error) {
	return s.mutateCurrent("update_profile", func(user *models.User) error {
		if update.Pincode != nil && *update.Pincode != "" && !utils.ValidatePincode(*update.Pincode) {
			return fmt.Errorf("%w: pincode %q is not a valid 6-digit code", ErrInvalidUpdate, *update.Pincode)
		}
		if update.Preferences != nil && update.Preferences.Language != nil {
			normalized, ok := s.languages.Normalize(*update.Preferences.Language)
			if !ok {
				return fmt.Errorf("%w: unsupported language %q", ErrInvalidUpdate, *update.Preferences.Language)
			}
			update.Preferences.Language = &normalized
		}

		mergeProfile(&user.Profile, update)
		return nil
	})
}

// AddToFavorites appends workerID to the current user's favorites. Fails
// with ErrAlreadyFavorite when it is already present, so a retried call
// can never produce a duplicate.
func (s *Service) AddToFavorites(workerID string) (models.User, error) {
	return s.mutateCurrent("favorite_add", func(user *models.User) error {
		for _, id := range user.Profile.Favorites {
			if id == workerID {
				return ErrAlreadyFavorite
			}
		}
		user.Profile.Favorites = append(user.Profile.Favorites, workerID)
		return nil
	})
}

// RemoveFromFavorites removes workerID if present; removing a
// non-favorite is a no-op, not an error.
func (s *Service) RemoveFromFavorites(workerID string) (models.User, error) {
	return s.mutateCurrent("favorite_remove", func(user *models.User) error {
		favorites := user.Profile.Favorites[:0]
		for _, id := range user.Profile.Favorites {
			if id != workerID {
				favorites = append(favorites, id)
			}
		}
		user.Profile.Favorites = favorites
		return nil
	})
}

// AddEventToHistory prepends record to the current user's event history
// and silently drops entries beyond the most recent MaxEventHistory.
func (s *Service) AddEventToHistory(record models.EventRecord) (models.User, error) {
	return s.mutateCurrent("history_add", func(user *models.User) error {
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		if record.Date.IsZero() {
			record.Date = time.Now()
		}
		history := append([]models.EventRecord{record}, user.Profile.EventHistory...)
		if len(history) > models.MaxEventHistory {
			history = history[:models.MaxEventHistory]
		}
		user.Profile.EventHistory = history
		return nil
	})
}

// UserData reads the namespaced per-user payload stored for userID. The
// call is access-controlled: unless userID is the authenticated user the
// read is denied, a warning is logged, and def is returned without
// touching the other user's data.
func (s *Service) UserData(userID, dataType string, def json.RawMessage) json.RawMessage {
	if !s.session.IsCurrent(userID) {
		slog.Warn("users.userdata_access_denied", "userId", userID, "dataType", dataType)
		metrics.AccessDenials.Inc()
		return def
	}
	return store.ReadJSON(s.store, store.UserDataKey(userID, dataType), def)
}

// SetUserData writes the namespaced per-user payload for userID, subject
// to the same ownership check as UserData. Returns false when denied or
// when the write fails.
func (s *Service) SetUserData(userID, dataType string, value json.RawMessage) bool {
	if !s.session.IsCurrent(userID) {
		slog.Warn("users.userdata_access_denied", "userId", userID, "dataType", dataType)
		metrics.AccessDenials.Inc()
		return false
	}
	if err := s.store.Set(store.UserDataKey(userID, dataType), value); err != nil {
		log.Printf("[users] user data write failed userId=%s dataType=%s: %v", userID, dataType, err)
		return false
	}
	s.bus.Publish(bus.Event{Topic: bus.TopicProfileChanged, UserID: userID})
	return true
}

// mutateCurrent applies fn to the authenticated user, bumps updated_at,
// and persists both the current-user marker and the registered-users
// entry before announcing the change.
func (s *Service) mutateCurrent(op string, fn func(*models.User) error) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.session.Current()
	if !ok {
		metrics.ProfileOps.WithLabelValues(op, metrics.OutcomeConflict).Inc()
		return models.User{}, ErrNotLoggedIn
	}

	if err := fn(&user); err != nil {
		metrics.ProfileOps.WithLabelValues(op, metrics.OutcomeConflict).Inc()
		return models.User{}, err
	}
	user.Profile.UpdatedAt = time.Now()

	registered := s.registered()
	for i := range registered {
		if registered[i].ID == user.ID {
			registered[i] = user
			break
		}
	}
	if err := store.WriteJSON(s.store, store.RegisteredUsersKey, registered); err != nil {
		metrics.ProfileOps.WithLabelValues(op, metrics.OutcomeError).Inc()
		return models.User{}, fmt.Errorf("persist registered users: %w", err)
	}
	if err := s.session.SetCurrent(user); err != nil {
		metrics.ProfileOps.WithLabelValues(op, metrics.OutcomeError).Inc()
		return models.User{}, err
	}

	metrics.ProfileOps.WithLabelValues(op, metrics.OutcomeOK).Inc()
	return user, nil
}

func (s *Service) registered() []models.User {
	return store.ReadJSON(s.store, store.RegisteredUsersKey, []models.User{})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func mergeProfile(profile *models.UserProfile, update models.ProfileUpdate) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&profile.Bio, update.Bio)
	setString(&profile.Address, update.Address)
	setString(&profile.City, update.City)
	setString(&profile.State, update.State)
	setString(&profile.Pincode, update.Pincode)
	setString(&profile.DateOfBirth, update.DateOfBirth)
	setString(&profile.Gender, update.Gender)
	setString(&profile.Occupation, update.Occupation)
	setString(&profile.Company, update.Company)
	setString(&profile.Avatar, update.Avatar)

	if update.SocialLinks != nil {
		if profile.SocialLinks == nil {
			profile.SocialLinks = map[string]string{}
		}
		for k, v := range update.SocialLinks {
			if v == "" {
				delete(profile.SocialLinks, k)
				continue
			}
			profile.SocialLinks[k] = v
		}
	}

	if update.Preferences != nil {
		if update.Preferences.Language != nil {
			profile.Preferences.Language = *update.Preferences.Language
		}
		if update.Preferences.Notifications != nil {
			profile.Preferences.Notifications = *update.Preferences.Notifications
		}
		if update.Preferences.EmailUpdates != nil {
			profile.Preferences.EmailUpdates = *update.Preferences.EmailUpdates
		}
	}
}

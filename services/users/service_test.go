package users_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"

	"eventmart/internal/bus"
	"eventmart/internal/store"
	"eventmart/models"
	"eventmart/services/session"
	"eventmart/services/users"
	langutil "eventmart/utils/language"
)

func newService(t *testing.T) (*users.Service, *session.Manager, store.Store) {
	t.Helper()
	st, err := store.NewFileStore(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	b := bus.New()
	sess := session.NewManager(st, b, "test-secret", time.Hour)
	svc := users.NewService(st, b, sess, langutil.NewMatcher([]string{"en", "hi", "es"}))
	return svc, sess, st
}

func register(t *testing.T, svc *users.Service, email string) models.User {
	t.Helper()
	user, err := svc.Register(users.RegisterInput{Name: "Asha", Email: email, Password: "secret"})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	return user
}

func TestRegisterSetsCurrentUser(t *testing.T) {
	svc, sess, _ := newService(t)

	user := register(t, svc, "a@x.com")
	if user.ID == "" {
		t.Fatalf("expected a generated id")
	}
	if user.Profile.Preferences.Language != "en" {
		t.Fatalf("expected default language, got %q", user.Profile.Preferences.Language)
	}
	if user.APIKey == "" {
		t.Fatalf("expected a generated api key")
	}

	current, ok := sess.Current()
	if !ok || current.ID != user.ID {
		t.Fatalf("expected registered user to be current, got %+v", current)
	}
}

func TestRegisterDuplicateEmailKeepsCurrentUnchanged(t *testing.T) {
	svc, sess, _ := newService(t)

	first := register(t, svc, "a@x.com")

	_, err := svc.Register(users.RegisterInput{Name: "Other", Email: "A@X.com"})
	if !errors.Is(err, users.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	current, ok := sess.Current()
	if !ok || current.ID != first.ID {
		t.Fatalf("expected current user unchanged after failed register, got %+v", current)
	}
}

func TestRegisterStoresHashedPasswordOnly(t *testing.T) {
	svc, _, _ := newService(t)

	user := register(t, svc, "a@x.com")
	if user.PasswordHash == "" || user.PasswordHash == "secret" {
		t.Fatalf("expected a hashed password, got %q", user.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret")); err != nil {
		t.Fatalf("stored hash does not match the password: %v", err)
	}
}

func TestLoginChecksEmailOnly(t *testing.T) {
	svc, sess, _ := newService(t)

	register(t, svc, "a@x.com")
	if err := svc.Logout(); err != nil {
		t.Fatalf("logout returned error: %v", err)
	}
	if _, ok := sess.Current(); ok {
		t.Fatalf("expected anonymous after logout")
	}

	// Any registered email authenticates; no credential is verified.
	user, err := svc.Login("a@x.com")
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}
	if !sess.IsCurrent(user.ID) {
		t.Fatalf("expected login to make the user current")
	}

	_, err = svc.Login("nobody@x.com")
	if !errors.Is(err, users.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestLogoutKeepsRegisteredRecords(t *testing.T) {
	svc, _, st := newService(t)

	register(t, svc, "a@x.com")
	svc.Logout()

	registered := store.ReadJSON(st, store.RegisteredUsersKey, []models.User{})
	if len(registered) != 1 {
		t.Fatalf("expected registered record to survive logout, got %d", len(registered))
	}
}

func TestUpdateProfileRequiresLogin(t *testing.T) {
	svc, _, _ := newService(t)

	bio := "hello"
	_, err := svc.UpdateProfile(models.ProfileUpdate{Bio: &bio})
	if !errors.Is(err, users.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestUpdateProfileMergesPartial(t *testing.T) {
	svc, _, st := newService(t)

	user := register(t, svc, "a@x.com")

	bio := "event planner"
	city := "Bengaluru"
	if _, err := svc.UpdateProfile(models.ProfileUpdate{Bio: &bio, City: &city}); err != nil {
		t.Fatalf("first update returned error: %v", err)
	}

	// A later update of another field must not clobber the first.
	occupation := "planner"
	updated, err := svc.UpdateProfile(models.ProfileUpdate{Occupation: &occupation})
	if err != nil {
		t.Fatalf("second update returned error: %v", err)
	}
	if updated.Profile.Bio != "event planner" || updated.Profile.City != "Bengaluru" || updated.Profile.Occupation != "planner" {
		t.Fatalf("merge lost fields: %+v", updated.Profile)
	}
	if !updated.Profile.UpdatedAt.After(user.Profile.UpdatedAt) {
		t.Fatalf("expected updated_at to be bumped")
	}

	// The registered-users entry must carry the same profile.
	registered := store.ReadJSON(st, store.RegisteredUsersKey, []models.User{})
	if len(registered) != 1 || registered[0].Profile.Bio != "event planner" {
		t.Fatalf("registered entry out of sync: %+v", registered)
	}
}

func TestUpdateProfileValidatesBeforeMerge(t *testing.T) {
	svc, _, _ := newService(t)
	register(t, svc, "a@x.com")

	bad := "12ab56"
	_, err := svc.UpdateProfile(models.ProfileUpdate{Pincode: &bad})
	if !errors.Is(err, users.ErrInvalidUpdate) {
		t.Fatalf("expected ErrInvalidUpdate for bad pincode, got %v", err)
	}

	lang := "klingon"
	_, err = svc.UpdateProfile(models.ProfileUpdate{Preferences: &models.PreferencesUpdate{Language: &lang}})
	if !errors.Is(err, users.ErrInvalidUpdate) {
		t.Fatalf("expected ErrInvalidUpdate for unknown language, got %v", err)
	}

	name := "Spanish"
	updated, err := svc.UpdateProfile(models.ProfileUpdate{Preferences: &models.PreferencesUpdate{Language: &name}})
	if err != nil {
		t.Fatalf("language update returned error: %v", err)
	}
	if updated.Profile.Preferences.Language != "es" {
		t.Fatalf("expected language normalized to es, got %q", updated.Profile.Preferences.Language)
	}
}

func TestFavoritesAreUnique(t *testing.T) {
	svc, _, _ := newService(t)
	register(t, svc, "a@x.com")

	if _, err := svc.AddToFavorites("w1"); err != nil {
		t.Fatalf("first add returned error: %v", err)
	}

	_, err := svc.AddToFavorites("w1")
	if !errors.Is(err, users.ErrAlreadyFavorite) {
		t.Fatalf("expected ErrAlreadyFavorite, got %v", err)
	}

	user, _ := svc.Current()
	if len(user.Profile.Favorites) != 1 || user.Profile.Favorites[0] != "w1" {
		t.Fatalf("expected exactly one favorite, got %v", user.Profile.Favorites)
	}

	// Removing a non-favorite is a no-op.
	user, err = svc.RemoveFromFavorites("missing")
	if err != nil {
		t.Fatalf("remove of absent favorite returned error: %v", err)
	}
	if len(user.Profile.Favorites) != 1 {
		t.Fatalf("expected favorites unchanged, got %v", user.Profile.Favorites)
	}

	user, err = svc.RemoveFromFavorites("w1")
	if err != nil {
		t.Fatalf("remove returned error: %v", err)
	}
	if len(user.Profile.Favorites) != 0 {
		t.Fatalf("expected favorites empty, got %v", user.Profile.Favorites)
	}
}

func TestEventHistoryBoundedNewestFirst(t *testing.T) {
	svc, _, _ := newService(t)
	register(t, svc, "a@x.com")

	var user models.User
	var err error
	for i := 0; i < models.MaxEventHistory+10; i++ {
		user, err = svc.AddEventToHistory(models.EventRecord{
			EventType: fmt.Sprintf("event-%d", i),
		})
		if err != nil {
			t.Fatalf("add history %d returned error: %v", i, err)
		}
	}

	history := user.Profile.EventHistory
	if len(history) != models.MaxEventHistory {
		t.Fatalf("expected history capped at %d, got %d", models.MaxEventHistory, len(history))
	}
	if history[0].EventType != fmt.Sprintf("event-%d", models.MaxEventHistory+9) {
		t.Fatalf("expected newest record first, got %q", history[0].EventType)
	}
	if history[0].ID == "" || history[0].Date.IsZero() {
		t.Fatalf("expected id and date to be filled in: %+v", history[0])
	}
}

func TestUserDataDeniesCrossUserAccess(t *testing.T) {
	svc, _, st := newService(t)

	user := register(t, svc, "a@x.com")

	// Plant another user's data directly in the store.
	if err := st.Set(store.UserDataKey("intruded", "secrets"), []byte(`{"pin":"1234"}`)); err != nil {
		t.Fatalf("failed to plant record: %v", err)
	}

	got := svc.UserData("intruded", "secrets", json.RawMessage(`{}`))
	if string(got) != `{}` {
		t.Fatalf("cross-user read leaked data: %s", got)
	}

	if svc.SetUserData("intruded", "secrets", json.RawMessage(`{}`)) {
		t.Fatalf("cross-user write was allowed")
	}
	raw, _ := st.Get(store.UserDataKey("intruded", "secrets"))
	if string(raw) != `{"pin":"1234"}` {
		t.Fatalf("cross-user write modified data: %s", raw)
	}

	// The owner can read and write freely.
	if !svc.SetUserData(user.ID, "drafts", json.RawMessage(`{"note":"hi"}`)) {
		t.Fatalf("owner write was denied")
	}
	own := svc.UserData(user.ID, "drafts", json.RawMessage(`null`))
	if string(own) != `{"note":"hi"}` {
		t.Fatalf("owner read mismatch: %s", own)
	}
}

func TestUserDataDeniedWhileAnonymous(t *testing.T) {
	svc, _, _ := newService(t)

	got := svc.UserData("anyone", "drafts", json.RawMessage(`"default"`))
	if string(got) != `"default"` {
		t.Fatalf("anonymous read returned %s", got)
	}
	if svc.SetUserData("anyone", "drafts", json.RawMessage(`{}`)) {
		t.Fatalf("anonymous write was allowed")
	}
}

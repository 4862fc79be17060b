package store_test

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/afero"

	"eventmart/internal/store"
	"eventmart/models"
)

func newBackends(t *testing.T) map[string]store.Store {
	t.Helper()

	fileStore, err := store.NewFileStore(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}

	sqliteStore, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "eventmart.db"))
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]store.Store{
		"file":   fileStore,
		"sqlite": sqliteStore,
	}
}

func TestSetGetRemove(t *testing.T) {
	for name, s := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok := s.Get("missing"); ok {
				t.Fatalf("expected missing key to be absent")
			}

			if err := s.Set(store.CartKey("u1"), []byte(`[{"id":"w1"}]`)); err != nil {
				t.Fatalf("set returned error: %v", err)
			}

			raw, ok := s.Get(store.CartKey("u1"))
			if !ok {
				t.Fatalf("expected key to exist after set")
			}
			if string(raw) != `[{"id":"w1"}]` {
				t.Fatalf("unexpected value: %s", raw)
			}

			if err := s.Set(store.CartKey("u1"), []byte(`[]`)); err != nil {
				t.Fatalf("overwrite returned error: %v", err)
			}
			raw, _ = s.Get(store.CartKey("u1"))
			if string(raw) != `[]` {
				t.Fatalf("expected overwrite to replace value, got %s", raw)
			}

			if err := s.Remove(store.CartKey("u1")); err != nil {
				t.Fatalf("remove returned error: %v", err)
			}
			if _, ok := s.Get(store.CartKey("u1")); ok {
				t.Fatalf("expected key to be gone after remove")
			}

			// Removing again must stay a no-op.
			if err := s.Remove(store.CartKey("u1")); err != nil {
				t.Fatalf("remove of absent key returned error: %v", err)
			}
		})
	}
}

func TestKeysPrefix(t *testing.T) {
	for name, s := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{
				store.UserDataKey("u1", "drafts"),
				store.UserDataKey("u1", "theme"),
				store.UserDataKey("u2", "drafts"),
				// Ids that extend the requested one differ only at the
				// position of a '_' in the prefix; both backends must
				// treat the prefix literally and exclude them.
				store.UserDataKey("u1x", "secrets"),
				store.UserDataKey("u10", "secrets"),
				store.CartKey("u1"),
			} {
				if err := s.Set(key, []byte(`{}`)); err != nil {
					t.Fatalf("set %s: %v", key, err)
				}
			}

			keys, err := s.Keys("user_u1_")
			if err != nil {
				t.Fatalf("keys returned error: %v", err)
			}
			sort.Strings(keys)
			want := []string{"user_u1_drafts", "user_u1_theme"}
			if len(keys) != len(want) {
				t.Fatalf("expected %d keys, got %v", len(want), keys)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Fatalf("expected keys %v, got %v", want, keys)
				}
			}
		})
	}
}

func TestReadJSONRoundTrip(t *testing.T) {
	for name, s := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			items := []models.CartItem{
				{ID: "w1", Name: "DJ Arjun", Price: 50, Category: "music"},
				{ID: "w2", Name: "Caterer Mia", Price: 30},
			}
			if err := store.WriteJSON(s, store.CartKey("u1"), items); err != nil {
				t.Fatalf("write returned error: %v", err)
			}

			got := store.ReadJSON(s, store.CartKey("u1"), []models.CartItem{})
			if len(got) != 2 || got[0].ID != "w1" || got[1].ID != "w2" {
				t.Fatalf("round trip mismatch: %+v", got)
			}
			if got[0].Price != 50 || got[0].Name != "DJ Arjun" {
				t.Fatalf("round trip lost fields: %+v", got[0])
			}
		})
	}
}

func TestReadJSONRecoversFromCorruptRecord(t *testing.T) {
	for name, s := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(store.CartKey("u1"), []byte("{not json")); err != nil {
				t.Fatalf("set returned error: %v", err)
			}

			got := store.ReadJSON(s, store.CartKey("u1"), []models.CartItem{})
			if len(got) != 0 {
				t.Fatalf("expected default for corrupt record, got %+v", got)
			}
		})
	}
}

func TestUserKeys(t *testing.T) {
	for name, s := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(store.CartKey("u1"), []byte(`[]`)); err != nil {
				t.Fatalf("set cart: %v", err)
			}
			if err := s.Set(store.UserDataKey("u1", "drafts"), []byte(`{}`)); err != nil {
				t.Fatalf("set user data: %v", err)
			}
			if err := s.Set(store.CartKey("u2"), []byte(`[]`)); err != nil {
				t.Fatalf("set other cart: %v", err)
			}
			// A user whose id extends u1 must stay invisible to u1.
			if err := s.Set(store.UserDataKey("u1x", "secrets"), []byte(`{"pin":"1234"}`)); err != nil {
				t.Fatalf("set overlapping user data: %v", err)
			}

			keys, err := store.UserKeys(s, "u1")
			if err != nil {
				t.Fatalf("user keys returned error: %v", err)
			}
			if len(keys) != 2 {
				t.Fatalf("expected 2 keys for u1, got %v", keys)
			}
			for _, key := range keys {
				if key == store.CartKey("u2") || key == store.UserDataKey("u1x", "secrets") {
					t.Fatalf("user keys leaked another user's key: %v", keys)
				}
			}
		})
	}
}

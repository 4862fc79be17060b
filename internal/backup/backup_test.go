package backup_test

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"eventmart/internal/backup"
	"eventmart/internal/store"
	"eventmart/models"
)

func seededStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewFileStore(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	cart := []models.CartItem{{ID: "w1", Name: "DJ Arjun", Price: 250}}
	if err := store.WriteJSON(st, store.CartKey("u1"), cart); err != nil {
		t.Fatalf("failed to seed cart: %v", err)
	}
	if err := st.Set(store.UserDataKey("u1", "drafts"), []byte(`{"note":"hi"}`)); err != nil {
		t.Fatalf("failed to seed user data: %v", err)
	}
	// Another user's key and a non-user key must never travel.
	if err := st.Set(store.CartKey("u2"), []byte(`[]`)); err != nil {
		t.Fatalf("failed to seed other cart: %v", err)
	}
	if err := st.Set(store.RegisteredUsersKey, []byte(`[]`)); err != nil {
		t.Fatalf("failed to seed registry: %v", err)
	}
	return st
}

func restore(t *testing.T, data []byte) {
	t.Helper()
	dst, err := store.NewFileStore(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("failed to create destination store: %v", err)
	}

	written, err := backup.Import(dst, "u1", data)
	if err != nil {
		t.Fatalf("import returned error: %v", err)
	}
	if written != 2 {
		t.Fatalf("expected 2 restored keys, got %d", written)
	}

	cart := store.ReadJSON(dst, store.CartKey("u1"), []models.CartItem{})
	if len(cart) != 1 || cart[0].ID != "w1" {
		t.Fatalf("cart did not survive the round trip: %+v", cart)
	}
	raw, ok := dst.Get(store.UserDataKey("u1", "drafts"))
	if !ok || string(raw) != `{"note":"hi"}` {
		t.Fatalf("user data did not survive the round trip: %s", raw)
	}
	if _, ok := dst.Get(store.CartKey("u2")); ok {
		t.Fatalf("another user's key leaked into the restore")
	}
	if _, ok := dst.Get(store.RegisteredUsersKey); ok {
		t.Fatalf("shared key leaked into the restore")
	}
}

func TestRoundTripPlain(t *testing.T) {
	st := seededStore(t)

	data, err := backup.Export(st, "u1", false)
	if err != nil {
		t.Fatalf("export returned error: %v", err)
	}
	var snapshot backup.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		t.Fatalf("export is not plain JSON: %v", err)
	}
	if snapshot.UserID != "u1" || len(snapshot.Keys) != 2 {
		t.Fatalf("unexpected snapshot contents: %+v", snapshot)
	}

	restore(t, data)
}

func TestRoundTripCompressed(t *testing.T) {
	st := seededStore(t)

	data, err := backup.Export(st, "u1", true)
	if err != nil {
		t.Fatalf("export returned error: %v", err)
	}
	if json.Valid(data) {
		t.Fatalf("expected a gzip payload, got plain JSON")
	}

	// Import detects the compression itself.
	restore(t, data)
}

func TestExportSkipsCorruptRecords(t *testing.T) {
	st := seededStore(t)
	if err := st.Set(store.UserDataKey("u1", "broken"), []byte(`{not json`)); err != nil {
		t.Fatalf("failed to seed corrupt record: %v", err)
	}

	data, err := backup.Export(st, "u1", false)
	if err != nil {
		t.Fatalf("export returned error: %v", err)
	}
	var snapshot backup.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if _, ok := snapshot.Keys[store.UserDataKey("u1", "broken")]; ok {
		t.Fatalf("corrupt record was carried into the snapshot")
	}
	if len(snapshot.Keys) != 2 {
		t.Fatalf("expected the healthy keys only, got %v", snapshot.Keys)
	}
}

func TestExportExcludesOverlappingUserIDs(t *testing.T) {
	// The sqlite backend matches key prefixes with LIKE; a user id that
	// extends the exporting user's must never ride along in the snapshot.
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "eventmart.db"))
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	defer st.Close()

	if err := st.Set(store.UserDataKey("u1", "drafts"), []byte(`{"note":"hi"}`)); err != nil {
		t.Fatalf("failed to seed user data: %v", err)
	}
	if err := st.Set(store.UserDataKey("u1x", "secrets"), []byte(`{"pin":"1234"}`)); err != nil {
		t.Fatalf("failed to seed overlapping user data: %v", err)
	}

	data, err := backup.Export(st, "u1", false)
	if err != nil {
		t.Fatalf("export returned error: %v", err)
	}
	var snapshot backup.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if _, ok := snapshot.Keys[store.UserDataKey("u1x", "secrets")]; ok {
		t.Fatalf("snapshot leaked another user's key: %v", snapshot.Keys)
	}
	if len(snapshot.Keys) != 1 {
		t.Fatalf("expected only u1's key, got %v", snapshot.Keys)
	}
}

func TestImportRejectsWrongOwner(t *testing.T) {
	st := seededStore(t)

	data, err := backup.Export(st, "u1", false)
	if err != nil {
		t.Fatalf("export returned error: %v", err)
	}

	dst, err := store.NewFileStore(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("failed to create destination store: %v", err)
	}
	_, err = backup.Import(dst, "u2", data)
	if !errors.Is(err, backup.ErrWrongOwner) {
		t.Fatalf("expected ErrWrongOwner, got %v", err)
	}
	keys, _ := dst.Keys("")
	if len(keys) != 0 {
		t.Fatalf("rejected import wrote keys: %v", keys)
	}
}

func TestImportRejectsMalformedPayload(t *testing.T) {
	dst, err := store.NewFileStore(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("failed to create destination store: %v", err)
	}

	for _, payload := range [][]byte{
		[]byte("not a snapshot"),
		{0x1f, 0x8b, 0x00, 0x00}, // gzip magic with a truncated stream
	} {
		if _, err := backup.Import(dst, "u1", payload); !errors.Is(err, backup.ErrMalformedSnapshot) {
			t.Fatalf("expected ErrMalformedSnapshot for %q, got %v", payload, err)
		}
	}
}

func TestImportSkipsForeignKeysInSnapshot(t *testing.T) {
	// A hand-edited snapshot claiming u1 but smuggling u2's keys.
	snapshot := backup.Snapshot{
		Version: 1,
		UserID:  "u1",
		Keys: map[string]json.RawMessage{
			store.CartKey("u1"):                json.RawMessage(`[]`),
			store.CartKey("u2"):                json.RawMessage(`[]`),
			store.UserDataKey("u2", "secrets"): json.RawMessage(`{}`),
			store.RegisteredUsersKey:           json.RawMessage(`[]`),
		},
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		t.Fatalf("failed to encode snapshot: %v", err)
	}

	dst, err := store.NewFileStore(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("failed to create destination store: %v", err)
	}
	written, err := backup.Import(dst, "u1", data)
	if err != nil {
		t.Fatalf("import returned error: %v", err)
	}
	if written != 1 {
		t.Fatalf("expected only u1's key restored, got %d", written)
	}
	if _, ok := dst.Get(store.CartKey("u2")); ok {
		t.Fatalf("foreign cart key was restored")
	}
	if _, ok := dst.Get(store.RegisteredUsersKey); ok {
		t.Fatalf("shared key was restored")
	}
}

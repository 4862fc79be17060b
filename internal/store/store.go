package store

import (
	"encoding/json"
	"log/slog"
)

// Store is the keyed persistence layer backing carts, user records and
// namespaced per-user data. A single key's write is atomic; there is no
// atomicity guarantee across keys.
type Store interface {
	// Get returns the raw value for key, or false when the key is absent.
	Get(key string) ([]byte, bool)
	// Set persists value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
	// Keys lists all stored keys that start with prefix.
	Keys(prefix string) ([]string, error)
	// Close releases backend resources.
	Close() error
}

// Key layout. All application state lives under these names.
const (
	CurrentUserKey     = "current_user"
	RegisteredUsersKey = "registered_users"
	cartKeyPrefix      = "cart_"
	userDataKeyPrefix  = "user_"
)

// CartKey returns the storage key holding userID's cart items.
func CartKey(userID string) string {
	return cartKeyPrefix + userID
}

// UserDataKey returns the namespaced key for a user's arbitrary payload.
func UserDataKey(userID, dataType string) string {
	return userDataKeyPrefix + userID + "_" + dataType
}

// UserKeys lists every key owned by userID, for export and teardown.
func UserKeys(s Store, userID string) ([]string, error) {
	keys := []string{}
	if _, ok := s.Get(CartKey(userID)); ok {
		keys = append(keys, CartKey(userID))
	}
	namespaced, err := s.Keys(userDataKeyPrefix + userID + "_")
	if err != nil {
		return nil, err
	}
	return append(keys, namespaced...), nil
}

// ReadJSON decodes the value stored under key into T. A missing key or a
// record that no longer parses yields def; corruption is logged and
// recovered, never surfaced to the caller.
func ReadJSON[T any](s Store, key string, def T) T {
	raw, ok := s.Get(key)
	if !ok {
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.Warn("store.corrupt_record_discarded", "key", key, "error", err)
		return def
	}
	return v
}

// WriteJSON encodes v and persists it under key.
func WriteJSON(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(key, raw)
}

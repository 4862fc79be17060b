// Package backup moves one user's stored state in and out of the keyed
// store as a portable snapshot, plain or gzip-compressed. It is the
// migration path between store backends.
package backup

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"eventmart/internal/store"
)

// ErrWrongOwner signals an import of a snapshot exported for another user.
var ErrWrongOwner = errors.New("snapshot belongs to a different user")

// ErrMalformedSnapshot signals a payload that is neither a snapshot nor a
// gzip of one.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

const snapshotVersion = 1

// Snapshot is the serialized form of one user's keys.
type Snapshot struct {
	Version    int                        `json:"version"`
	UserID     string                     `json:"userId"`
	ExportedAt time.Time                  `json:"exportedAt"`
	Keys       map[string]json.RawMessage `json:"keys"`
}

// Export collects every key owned by userID into a snapshot.
func Export(s store.Store, userID string, compress bool) ([]byte, error) {
	keys, err := store.UserKeys(s, userID)
	if err != nil {
		return nil, fmt.Errorf("collect user keys: %w", err)
	}

	snapshot := Snapshot{
		Version:    snapshotVersion,
		UserID:     userID,
		ExportedAt: time.Now(),
		Keys:       make(map[string]json.RawMessage, len(keys)),
	}
	for _, key := range keys {
		raw, ok := s.Get(key)
		if !ok {
			continue
		}
		if !json.Valid(raw) {
			// Corrupt records are dropped from the export rather than
			// carried into the new backend.
			continue
		}
		snapshot.Keys[key] = json.RawMessage(raw)
	}

	encoded, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if !compress {
		return encoded, nil
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(encoded); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Import restores a snapshot for userID and returns the number of keys
// written. The payload format is detected, so callers can hand over
// either the plain or the compressed form. Keys in the snapshot that do
// not belong to userID are skipped.
func Import(s store.Store, userID string, data []byte) (int, error) {
	payload := data
	if kind := mimetype.Detect(data); kind.Is("application/gzip") || kind.Is("application/x-gzip") {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
		defer gz.Close()
		payload, err = io.ReadAll(gz)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
	}

	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if snapshot.UserID != userID {
		return 0, ErrWrongOwner
	}

	written := 0
	for key, value := range snapshot.Keys {
		if !ownedBy(key, userID) {
			continue
		}
		if err := s.Set(key, value); err != nil {
			return written, fmt.Errorf("restore %s: %w", key, err)
		}
		written++
	}
	return written, nil
}

func ownedBy(key, userID string) bool {
	return key == store.CartKey(userID) || strings.HasPrefix(key, "user_"+userID+"_")
}

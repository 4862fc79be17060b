package handlers

import (
	"fmt"
	"io"
	"net/http"

	"eventmart/internal/backup"
	"eventmart/internal/bus"
	"eventmart/internal/store"
)

// Snapshot uploads are small JSON documents; cap them at 8 MiB.
const maxSnapshotBytes = 8 << 20

// BackupHandler exports and restores the session user's stored state.
type BackupHandler struct {
	store store.Store
	bus   *bus.Bus
}

// NewBackupHandler creates a new backup handler.
func NewBackupHandler(st store.Store, b *bus.Bus) *BackupHandler {
	return &BackupHandler{store: st, bus: b}
}

// Export streams the user's keys as a snapshot; ?compress=1 gzips it.
// GET /api/backup
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUserFromContext(r.Context())
	if !ok {
		jsonError(w, "please sign in", http.StatusUnauthorized)
		return
	}

	compress := r.URL.Query().Get("compress") == "1"
	data, err := backup.Export(h.store, user.ID, compress)
	if err != nil {
		serviceError(w, err)
		return
	}

	if compress {
		w.Header().Set("Content-Type", "application/gzip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "eventmart-"+user.ID+".json.gz"))
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "eventmart-"+user.ID+".json"))
	}
	w.Write(data)
}

// Import restores a previously exported snapshot for the session user.
// POST /api/backup
func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUserFromContext(r.Context())
	if !ok {
		jsonError(w, "please sign in", http.StatusUnauthorized)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxSnapshotBytes))
	if err != nil {
		jsonError(w, "read request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	restored, err := backup.Import(h.store, user.ID, data)
	if err != nil {
		serviceError(w, err)
		return
	}

	// The import wrote past the repositories, so mounted snapshots have
	// to be told to re-read.
	if restored > 0 {
		h.bus.Publish(bus.Event{Topic: bus.TopicStoreChanged, UserID: user.ID})
	}
	writeJSON(w, map[string]any{"restoredKeys": restored})
}

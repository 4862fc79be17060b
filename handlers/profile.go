package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"eventmart/models"
	"eventmart/services/facade"
	"eventmart/services/users"
)

// ProfileHandler serves profile, favorites, history and the namespaced
// per-user data endpoints. All routes sit behind RequireSession. Reads
// come from the profile facade's snapshot; mutations go through the
// users service.
type ProfileHandler struct {
	users   *users.Service
	profile *facade.ProfileFacade
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(usersService *users.Service, profileFacade *facade.ProfileFacade) *ProfileHandler {
	return &ProfileHandler{users: usersService, profile: profileFacade}
}

// GetProfile returns the snapshot of the current user.
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.profile.User()
	if !ok {
		// The snapshot can lag a just-issued session by a beat.
		user, ok = sessionUserFromContext(r.Context())
	}
	if !ok {
		jsonError(w, "please sign in", http.StatusUnauthorized)
		return
	}
	writeJSON(w, toUserResponse(user))
}

// ListFavorites returns the snapshot favorites.
// GET /api/profile/favorites
func (h *ProfileHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"favorites": h.profile.Favorites()})
}

// ListHistory returns the snapshot event history, newest first.
// GET /api/profile/history
func (h *ProfileHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"eventHistory": h.profile.History()})
}

// UpdateProfile merges a partial update into the current profile.
// PATCH /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update models.ProfileUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&update); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.users.UpdateProfile(update)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, toUserResponse(user))
}

// AddFavorite adds a worker id to the current user's favorites.
// POST /api/profile/favorites/{workerID}
func (h *ProfileHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.AddToFavorites(mux.Vars(r)["workerID"])
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"favorites": user.Profile.Favorites})
}

// RemoveFavorite removes a worker id; removing a non-favorite succeeds.
// DELETE /api/profile/favorites/{workerID}
func (h *ProfileHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.RemoveFromFavorites(mux.Vars(r)["workerID"])
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"favorites": user.Profile.Favorites})
}

// AddHistory prepends an event record to the current user's history.
// POST /api/profile/history
func (h *ProfileHandler) AddHistory(w http.ResponseWriter, r *http.Request) {
	var record models.EventRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.users.AddEventToHistory(record)
	if err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]any{"eventHistory": user.Profile.EventHistory})
}

// GetUserData reads a namespaced payload. The user id in the path must
// match the session user; the service denies anything else and the
// response falls back to the supplied default (null when none).
// GET /api/users/{userID}/data/{dataType}
func (h *ProfileHandler) GetUserData(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	payload := h.users.UserData(vars["userID"], vars["dataType"], json.RawMessage("null"))
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// SetUserData writes a namespaced payload, subject to the same ownership
// check as GetUserData.
// PUT /api/users/{userID}/data/{dataType}
func (h *ProfileHandler) SetUserData(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		jsonError(w, "read request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		jsonError(w, "request body must be valid JSON", http.StatusBadRequest)
		return
	}

	if !h.users.SetUserData(vars["userID"], vars["dataType"], body) {
		jsonError(w, "access denied", http.StatusForbidden)
		return
	}
	writeJSON(w, map[string]string{"status": "saved"})
}

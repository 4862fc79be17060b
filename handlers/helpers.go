package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"eventmart/internal/backup"
	"eventmart/services/cart"
	"eventmart/services/catalog"
	"eventmart/services/facade"
	"eventmart/services/users"
)

// jsonError writes a JSON error body with the given status.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes v as the JSON response body.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// serviceError maps a service failure to its HTTP status and writes it.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrDuplicateItem),
		errors.Is(err, users.ErrUserExists),
		errors.Is(err, users.ErrAlreadyFavorite):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, users.ErrUserNotFound),
		errors.Is(err, catalog.ErrWorkerNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, users.ErrNotLoggedIn),
		errors.Is(err, facade.ErrSignInRequired):
		jsonError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, users.ErrAccessDenied),
		errors.Is(err, backup.ErrWrongOwner):
		jsonError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, users.ErrInvalidUpdate),
		errors.Is(err, backup.ErrMalformedSnapshot):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

package handlers

import (
	"context"
	"net/http"

	"eventmart/models"
	"eventmart/services/session"
)

type contextKey string

const sessionUserKey contextKey = "eventmart.sessionUser"

// RequireSession rejects requests without a valid session cookie and
// stashes the resolved user on the request context.
func RequireSession(sess *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := sess.UserFromRequest(r)
			if !ok {
				jsonError(w, "please sign in", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), sessionUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionUserFromContext returns the user resolved by RequireSession.
func sessionUserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(sessionUserKey).(models.User)
	return user, ok
}

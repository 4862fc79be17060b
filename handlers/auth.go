package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"eventmart/models"
	"eventmart/services/session"
	"eventmart/services/users"
)

// AuthHandler serves registration, login and session endpoints.
type AuthHandler struct {
	users   *users.Service
	session *session.Manager
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(usersService *users.Service, sess *session.Manager) *AuthHandler {
	return &AuthHandler{users: usersService, session: sess}
}

// UserResponse is the public JSON shape of a user record. The password
// hash never leaves the process; the API key only accompanies the
// registration response.
type UserResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Phone     string             `json:"phone,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	Profile   models.UserProfile `json:"profile"`
	APIKey    string             `json:"apiKey,omitempty"`
}

func toUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
		Profile:   u.Profile,
	}
}

// Register creates an account and signs the new user in.
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input users.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.users.Register(input)
	if err != nil {
		serviceError(w, err)
		return
	}

	if err := h.session.IssueCookie(w, user); err != nil {
		serviceError(w, err)
		return
	}

	response := toUserResponse(user)
	response.APIKey = user.APIKey
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, response)
}

// Login signs in the registered user with the supplied email.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.users.Login(credentials.Email)
	if err != nil {
		serviceError(w, err)
		return
	}

	if err := h.session.IssueCookie(w, user); err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, toUserResponse(user))
}

// Logout clears the current session; registered accounts are untouched.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Logout(); err != nil {
		serviceError(w, err)
		return
	}
	h.session.ResetCookie(w)
	writeJSON(w, map[string]string{"status": "signed out"})
}

// Me returns the authenticated user.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.session.UserFromRequest(r)
	if !ok {
		jsonError(w, "please sign in", http.StatusUnauthorized)
		return
	}
	writeJSON(w, toUserResponse(user))
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"eventmart/models"
	"eventmart/services/facade"
	"eventmart/services/users"
)

// CartHandler serves cart endpoints through the cart facade, so every
// response reflects the same snapshot a mounted cart badge would show.
type CartHandler struct {
	cart  *facade.CartFacade
	users *users.Service
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(cartFacade *facade.CartFacade, usersService *users.Service) *CartHandler {
	return &CartHandler{cart: cartFacade, users: usersService}
}

// CartResponse is the JSON shape of the current cart.
type CartResponse struct {
	Items []models.CartItem `json:"items"`
	Count int               `json:"count"`
	Total float64           `json:"total"`
}

func (h *CartHandler) respond(w http.ResponseWriter) {
	writeJSON(w, CartResponse{
		Items: h.cart.Items(),
		Count: h.cart.Count(),
		Total: h.cart.Total(),
	})
}

// List returns the current user's cart in insertion order.
// GET /api/cart
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	h.respond(w)
}

// Contains reports whether a worker is in the cart, for add-button state.
// GET /api/cart/contains/{workerID}
func (h *CartHandler) Contains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{"inCart": h.cart.IsInCart(mux.Vars(r)["workerID"])})
}

// Add puts a worker in the cart. A second add of the same worker id is a
// conflict and leaves the cart unchanged.
// POST /api/cart
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var item models.CartItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(item.ID) == "" {
		jsonError(w, "item id is required", http.StatusBadRequest)
		return
	}

	if err := h.cart.Add(item); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	h.respond(w)
}

// Remove drops a worker from the cart; an absent id is still a success.
// DELETE /api/cart/{workerID}
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Remove(mux.Vars(r)["workerID"]); err != nil {
		serviceError(w, err)
		return
	}
	h.respond(w)
}

// Clear empties the cart.
// DELETE /api/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(); err != nil {
		serviceError(w, err)
		return
	}
	h.respond(w)
}

// Checkout books every worker in the cart: an event record with the cart
// total is prepended to the user's history, then the cart is cleared.
// POST /api/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var request struct {
		EventType string `json:"eventType"`
	}
	if r.Body != nil {
		// The body is optional; a bare POST books a generic event.
		_ = json.NewDecoder(r.Body).Decode(&request)
	}
	if request.EventType == "" {
		request.EventType = "booking"
	}

	items := h.cart.Items()
	if len(items) == 0 {
		jsonError(w, "cart is empty", http.StatusBadRequest)
		return
	}

	workers := make([]string, 0, len(items))
	for _, item := range items {
		workers = append(workers, item.ID)
	}

	user, err := h.users.AddEventToHistory(models.EventRecord{
		EventType: request.EventType,
		Workers:   workers,
		Amount:    h.cart.Total(),
	})
	if err != nil {
		serviceError(w, err)
		return
	}
	if err := h.cart.Clear(); err != nil {
		serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]any{
		"status":       "booked",
		"eventHistory": user.Profile.EventHistory,
	})
}

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"eventmart/internal/bus"
	"eventmart/internal/store"
	"eventmart/services/catalog"
	"eventmart/services/facade"
	"eventmart/services/session"
	"eventmart/services/users"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Store   store.Store
	Bus     *bus.Bus
	Session *session.Manager
	Users   *users.Service
	Cart    *facade.CartFacade
	Profile *facade.ProfileFacade
	Catalog *catalog.Service
}

// Register mounts all API routes on the router.
func Register(r *mux.Router, deps Deps) {
	auth := NewAuthHandler(deps.Users, deps.Session)
	profile := NewProfileHandler(deps.Users, deps.Profile)
	cartHandler := NewCartHandler(deps.Cart, deps.Users)
	catalogHandler := NewCatalogHandler(deps.Catalog)
	backupHandler := NewBackupHandler(deps.Store, deps.Bus)

	api := r.PathPrefix("/api").Subrouter()

	// Open endpoints.
	api.HandleFunc("/auth/register", auth.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", auth.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", auth.Logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", auth.Me).Methods(http.MethodGet)
	api.HandleFunc("/workers", catalogHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/workers/{workerID}", catalogHandler.GetWorker).Methods(http.MethodGet)
	api.HandleFunc("/categories", catalogHandler.Categories).Methods(http.MethodGet)

	// Session-gated endpoints.
	authed := api.NewRoute().Subrouter()
	authed.Use(RequireSession(deps.Session))
	authed.HandleFunc("/profile", profile.GetProfile).Methods(http.MethodGet)
	authed.HandleFunc("/profile", profile.UpdateProfile).Methods(http.MethodPatch)
	authed.HandleFunc("/profile/favorites", profile.ListFavorites).Methods(http.MethodGet)
	authed.HandleFunc("/profile/favorites/{workerID}", profile.AddFavorite).Methods(http.MethodPost)
	authed.HandleFunc("/profile/favorites/{workerID}", profile.RemoveFavorite).Methods(http.MethodDelete)
	authed.HandleFunc("/profile/history", profile.ListHistory).Methods(http.MethodGet)
	authed.HandleFunc("/profile/history", profile.AddHistory).Methods(http.MethodPost)
	authed.HandleFunc("/users/{userID}/data/{dataType}", profile.GetUserData).Methods(http.MethodGet)
	authed.HandleFunc("/users/{userID}/data/{dataType}", profile.SetUserData).Methods(http.MethodPut)
	authed.HandleFunc("/cart", cartHandler.List).Methods(http.MethodGet)
	authed.HandleFunc("/cart", cartHandler.Add).Methods(http.MethodPost)
	authed.HandleFunc("/cart", cartHandler.Clear).Methods(http.MethodDelete)
	authed.HandleFunc("/cart/checkout", cartHandler.Checkout).Methods(http.MethodPost)
	authed.HandleFunc("/cart/contains/{workerID}", cartHandler.Contains).Methods(http.MethodGet)
	authed.HandleFunc("/cart/{workerID}", cartHandler.Remove).Methods(http.MethodDelete)
	authed.HandleFunc("/backup", backupHandler.Export).Methods(http.MethodGet)
	authed.HandleFunc("/backup", backupHandler.Import).Methods(http.MethodPost)
}

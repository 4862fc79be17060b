package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"eventmart/services/catalog"
)

// CatalogHandler exposes the worker catalog.
type CatalogHandler struct {
	catalog *catalog.Service
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalogService *catalog.Service) *CatalogHandler {
	return &CatalogHandler{catalog: catalogService}
}

// GetWorker returns a single worker record.
// GET /api/workers/{workerID}
func (h *CatalogHandler) GetWorker(w http.ResponseWriter, r *http.Request) {
	worker, err := h.catalog.Worker(r.Context(), mux.Vars(r)["workerID"])
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, worker)
}

// Search lists workers filtered by query, category and language.
// GET /api/workers?query=&category=&lang=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	workers, err := h.catalog.Search(r.Context(), q.Get("query"), q.Get("category"), q.Get("lang"))
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"workers": workers, "count": len(workers)})
}

// Categories lists the marketplace's service categories.
// GET /api/categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"categories": categories})
}

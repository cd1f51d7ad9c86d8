package orders

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/confirm", h.handleConfirm)
	r.Post("/{id}/cancel", h.handleCancel)
	r.Patch("/{id}/items/{itemID}", h.handleUpdateItem)
}

func urlParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

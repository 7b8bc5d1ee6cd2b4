package locator

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Get("/service-types", h.GetServiceTypes)
	r.Get("/services/nearby", h.GetNearby)
	r.Get("/services/in-bounds", h.GetInBounds)
	r.Get("/services/{id}", h.GetLocation)

	return r
}

// SetupAdminRoutes mounts under /admin/locations behind the admin token.
func SetupAdminRoutes(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Post("/{id}/closures", h.CreateClosure)
	r.Delete("/{id}", h.DeleteLocation)

	return r
}

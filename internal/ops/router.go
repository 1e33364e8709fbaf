package ops

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mvolkov/accmarket-bot/internal/middleware"
)

// SetupRouter настраивает маршруты служебной HTTP-поверхности.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Middleware)

		r.Get("/stats", h.Stats)
		r.Post("/backup", h.Backup)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	return r
}

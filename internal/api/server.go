// Package api exposes the bonus engine over HTTP: bonus queries, cache
// introspection and admin invalidation.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/user", func(r chi.Router) {
			r.Get("/bonuses", h.GetUserBonuses)
		})

		r.Route("/bonuses", func(r chi.Router) {
			r.Get("/rules", h.ListRules)
		})

		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", h.CacheStats)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/clear-cache", h.ClearCache)
			r.Post("/reconnect-cache", h.ReconnectCache)
		})
	})

	return r
}

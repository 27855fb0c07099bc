package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса расчёта стоимости.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/pricing", func(r chi.Router) {
		r.Use(h.authMiddleware.Optional)
		r.Use(h.rateLimiter.Middleware)

		r.Post("/calculate", h.Calculate)
		r.Post("/batch", h.CalculateBatch)
		r.Get("/cache/stats", h.CacheStats)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Put("/config", h.UpdateConfig)
		r.Post("/cache/warmup", h.WarmUpCache)
		r.Post("/cache/invalidate", h.InvalidateCache)
	})

	r.Get("/health", h.Health)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

/**
 * @description
 * HTTP router setup for the penalty service using go-chi/chi.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the penalty routes.
func NewRouter(h *Handler, auth AuthConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:     []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type", "X-Internal-API-Key"},
		OptionsPassthrough: true,
		MaxAge:             300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Penalty service is healthy"))
	})

	r.Options("/calculate-penalties", h.handlePreflight)
	r.With(TriggerAuthMiddleware(auth)).Post("/calculate-penalties", h.handleCalculatePenalties)

	return r
}

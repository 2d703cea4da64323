package handler

import (
	"net/http"
	"time"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// RateLimit configures per-IP throttling. Zero Limit disables it.
type RateLimit struct {
	Limit  int
	Window time.Duration
}

// NewRouter builds the full HTTP surface.
func NewRouter(events *EventHandler, requests *RequestHandler, dir *DirectoryHandler, rl RateLimit) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger)
	r.Use(CORS)

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if rl.Limit > 0 {
			r.Use(httprate.LimitByIP(rl.Limit, rl.Window))
		}

		r.Route("/users/{userId}", func(r chi.Router) {
			r.Route("/events", func(r chi.Router) {
				r.Post("/", events.CreateEvent)
				r.Get("/", events.ListOwnEvents)
				r.Get("/{eventId}", events.GetOwnEvent)
				r.Patch("/{eventId}", events.UpdateOwnEvent)
				r.Get("/{eventId}/requests", requests.ListEventRequests)
				r.Patch("/{eventId}/requests", requests.Moderate)
			})
			r.Route("/requests", func(r chi.Router) {
				r.Post("/", requests.CreateRequest)
				r.Get("/", requests.ListOwnRequests)
				r.Patch("/{requestId}/cancel", requests.CancelRequest)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/events", events.SearchAdmin)
			r.Patch("/events/{eventId}", events.UpdateAdmin)
			r.Post("/users", dir.CreateUser)
			r.Post("/categories", dir.CreateCategory)
		})

		r.Get("/events", events.SearchPublic)
		r.Get("/events/{eventId}", events.GetPublic)
	})

	return r
}

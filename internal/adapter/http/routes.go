package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the API router with standard middleware.
func NewRouter(h *Handlers) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	MountRoutes(r, h)
	return r
}

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/meetings", func(r chi.Router) {
			r.Post("/", h.ScheduleMeeting)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetMeeting)
				r.Delete("/", h.DeleteMeeting)
				r.Post("/start", h.StartMeeting)
				r.Post("/advance", h.AdvanceAgenda)
				r.Post("/complete", h.CompleteMeeting)
				r.Post("/cancel", h.CancelMeeting)
				r.Get("/agenda", h.GetAgenda)
				r.Get("/participants/{agentID}", h.GetParticipation)
			})
		})

		r.Get("/events", h.ListEvents)
	})
}

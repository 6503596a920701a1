package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates the router serving the assessment API.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(h.log))
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.token))
			r.Get("/assessment/targets", h.ListTargets)
			r.Get("/assessment/targets/{id}/evaluation", h.GetEvaluation)
			r.Post("/assessment/targets/{id}/evaluation", h.SubmitEvaluation)
			r.Get("/assessment/targets/{id}/submissions", h.ListSubmissions)
			r.Put("/assessment/plans/{id}", h.UpdatePlan)
		})
	})

	return r
}

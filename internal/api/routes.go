package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes. Everything under /api/v1 is
// workspace-scoped and requires an API key; /health is open.
func SetupRoutes(h *Handlers, health *HealthChecker, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key", "X-Admin-Key"},
		MaxAge:         300,
	}))

	r.Get("/health", health.HandleHealth)
	r.Get("/health/live", health.HandleLiveness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.withWorkspace)

		r.Post("/verify", h.VerifyStateless)

		r.Route("/leads", func(r chi.Router) {
			r.Post("/", h.CreateLead)
			r.Get("/", h.ListLeads)
			r.Get("/{id}", h.GetLead)
			r.Patch("/{id}", h.UpdateLead)
			r.Post("/{id}/verify", h.EnqueueVerify)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.ListJobs)
			r.Get("/{jobID}", h.GetJob)
			r.Post("/{jobID}/cancel", h.CancelJob)
		})

		r.Get("/config", h.GetConfig)
		r.Put("/config", h.UpdateConfig)

		r.Get("/usage", h.GetUsage)
		r.Post("/exports", h.EnqueueExport)

		r.Route("/webhooks", func(r chi.Router) {
			r.Get("/", h.ListWebhooks)
			r.Post("/", h.CreateWebhook)
			r.Delete("/{id}", h.DeleteWebhook)
		})

		// Admin-only diagnostics.
		r.Route("/admin", func(r chi.Router) {
			r.Get("/smtp-status", h.SMTPStatus)
			r.Delete("/smtp-status", h.ClearSMTPStatus)
		})
	})

	return r
}

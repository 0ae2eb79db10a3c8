package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hostwise/guestline-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/hostwise/guestline-ai-platform/internal/http/middleware"
	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger           *logging.Logger
	WebhookHandler   *handlers.WebhookHandler
	ThreadsHandler   *handlers.ThreadsHandler
	RemindersHandler *handlers.RemindersHandler
	AdminHandler     *handlers.AdminHandler
	AdminAuthSecret  string
	MetricsHandler   http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/healthz", handlers.Healthz)
		if cfg.WebhookHandler != nil {
			public.Route("/webhooks", func(r chi.Router) {
				r.Post("/twilio/sms", cfg.WebhookHandler.HandleSMS)
				r.Post("/email/inbound", cfg.WebhookHandler.HandleEmail)
			})
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Operator console routes
	if cfg.ThreadsHandler != nil {
		r.Get("/threads/{threadID}/suggestion", cfg.ThreadsHandler.GetSuggestion)
	}
	if cfg.RemindersHandler != nil {
		r.Route("/stays/{stayID}/reminders", func(reminders chi.Router) {
			reminders.Post("/schedule", cfg.RemindersHandler.Schedule)
			reminders.Post("/reschedule", cfg.RemindersHandler.Reschedule)
			reminders.Post("/cancel", cfg.RemindersHandler.Cancel)
		})
	}

	// Admin routes (protected by JWT)
	if cfg.AdminHandler != nil && cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Post("/assistant/invalidate", cfg.AdminHandler.InvalidateAssistantConfig)
		})
	}

	return r
}

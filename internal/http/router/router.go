// Package router assembles the chi router for the receptionist API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"receptionist/internal/http/handlers"
	httpmiddleware "receptionist/internal/http/middleware"
	"receptionist/pkg/logging"
)

// Config holds router configuration. Nil handlers disable their routes.
type Config struct {
	Logger         *logging.Logger
	Chat           *handlers.ChatHandler
	Appointments   *handlers.AppointmentsHandler
	Availability   *handlers.AvailabilityHandler
	Visitors       *handlers.VisitorsHandler
	Doctors        *handlers.DoctorsHandler
	MetricsHandler http.Handler
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Chat != nil {
		r.Route("/chat", func(r chi.Router) {
			r.Post("/start", cfg.Chat.Start)
			r.Post("/message", cfg.Chat.Message)
		})
	}

	if cfg.Appointments != nil {
		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", cfg.Appointments.List)
			r.Post("/", cfg.Appointments.Book)
			r.Post("/cancel", cfg.Appointments.Cancel)
			r.Post("/{id}/complete", cfg.Appointments.Complete)
			r.Post("/{id}/confirmation", cfg.Appointments.Confirm)
		})
	}

	if cfg.Availability != nil {
		r.Route("/availability", func(r chi.Router) {
			r.Get("/next", cfg.Availability.NextSlot)
			r.Get("/check", cfg.Availability.Check)
		})
	}

	if cfg.Visitors != nil {
		r.Route("/visitors", func(r chi.Router) {
			r.Get("/", cfg.Visitors.List)
			r.Post("/", cfg.Visitors.Register)
		})
	}

	if cfg.Doctors != nil {
		r.Route("/doctors", func(r chi.Router) {
			r.Get("/", cfg.Doctors.List)
			r.Get("/{name}", cfg.Doctors.Get)
		})
	}

	return r
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig wires the router's collaborators.
type RouterConfig struct {
	Handler     *Handler
	Log         *slog.Logger
	CORSOrigins []string
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the HTTP routing tree.
func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handler
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(log))
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(Identity)

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	r.Get("/health", HealthCheck)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.Get("/{id}/stock", h.Stock)

		r.Group(func(r chi.Router) {
			r.Use(RequireIdentity)
			r.Post("/", h.CreateEvent)
			r.Patch("/{id}", h.UpdateEvent)
			r.Delete("/{id}", h.DeleteEvent)
			r.Post("/{id}/status", h.TransitionStatus)
			r.Post("/{id}/register", h.Register)
			r.Get("/{id}/registrations", h.ListRegistrations)
			r.Post("/{id}/teams", h.CreateTeam)
			r.Post("/{id}/teams/join", h.JoinTeam)
			r.Get("/{id}/teams/mine", h.MyTeam)
		})
	})

	r.Route("/tickets/{ticketId}", func(r chi.Router) {
		r.Use(RequireIdentity)
		r.Get("/", h.GetTicket)
		r.Post("/attendance", h.MarkAttendance)
		r.Post("/cancel", h.CancelTicket)
	})

	return r
}

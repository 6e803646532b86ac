package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vetdesk/appointment-service/internal/appointment"
)

type RouterConfig struct {
	Service   *appointment.Service
	PgPool    *pgxpool.Pool // nil when running on the memory store
	Redis     *redis.Client // nil when running with the local locker
	JWTSecret string        // empty enables header-based dev auth
	Env       string
	Version   string
	Logger    zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	metrics := NewMetrics()
	r.Use(metrics.Middleware)

	// Health and metrics stay outside auth.
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		svc := cfg.Service
		r.Post("/appointments", requestAppointmentHandler(svc))
		r.Post("/appointments/schedule", scheduleAppointmentHandler(svc))
		r.Get("/appointments", listAppointmentsHandler(svc))
		r.Get("/appointments/{id}", getAppointmentHandler(svc))
		r.Patch("/appointments/{id}", modifyAppointmentHandler(svc))

		r.Post("/appointments/{id}/approve", transitionHandler(func(req *http.Request, actor appointment.Actor, id uuid.UUID) (*appointment.Appointment, error) {
			return svc.Approve(req.Context(), actor, id)
		}))
		r.Post("/appointments/{id}/deny", transitionHandler(func(req *http.Request, actor appointment.Actor, id uuid.UUID) (*appointment.Appointment, error) {
			return svc.Deny(req.Context(), actor, id)
		}))
		r.Post("/appointments/{id}/complete", transitionHandler(func(req *http.Request, actor appointment.Actor, id uuid.UUID) (*appointment.Appointment, error) {
			return svc.Complete(req.Context(), actor, id)
		}))
		r.Post("/appointments/{id}/cancel", transitionHandler(func(req *http.Request, actor appointment.Actor, id uuid.UUID) (*appointment.Appointment, error) {
			return svc.Cancel(req.Context(), actor, id)
		}))
	})

	return r
}

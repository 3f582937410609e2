package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clinicore/consult-booking/internal/booking"
	"github.com/clinicore/consult-booking/internal/scheduling"
)

type RouterConfig struct {
	Availability *scheduling.AvailabilityService
	Slots        *scheduling.SlotService
	Booking      *booking.Service
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Logger       *zap.Logger
	Env          string
	Version      string
}

// NewRouter wires all HTTP routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(SubjectMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/doctors/{doctorID}", func(r chi.Router) {
		r.Put("/schedule-type", updateScheduleTypeHandler(cfg.Availability, cfg.Logger))

		r.Route("/availabilities", func(r chi.Router) {
			r.Post("/", createAvailabilityHandler(cfg.Availability, cfg.Logger))
			r.Patch("/{availabilityID}", updateAvailabilityHandler(cfg.Availability, cfg.Logger))
			r.Delete("/{availabilityID}", deleteAvailabilityHandler(cfg.Availability, cfg.Logger))
		})

		r.Route("/timeslots", func(r chi.Router) {
			r.Get("/", listAvailableTimeSlotsHandler(cfg.Slots, cfg.Logger))
			r.Post("/", createTimeSlotHandler(cfg.Slots, cfg.Logger))
			r.Patch("/{timeslotID}", updateTimeSlotHandler(cfg.Slots, cfg.Logger))
			r.Delete("/{timeslotID}", deleteTimeSlotHandler(cfg.Slots, cfg.Logger))
		})

		r.Post("/reschedule", rescheduleHandler(cfg.Booking, cfg.Logger))
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Get("/", listAppointmentsHandler(cfg.Booking, cfg.Logger))
		r.Post("/", bookAppointmentHandler(cfg.Booking, cfg.Logger))
		r.Post("/{appointmentID}/cancel", cancelAppointmentHandler(cfg.Booking, cfg.Logger))
	})

	return r
}

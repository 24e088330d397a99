// Package bookings provides the call booking domain module.
package bookings

import (
	"leadcrm_backend/internal/bookings/handler"
	"leadcrm_backend/internal/bookings/repository"
	"leadcrm_backend/internal/bookings/service"
	"leadcrm_backend/internal/email"
	"leadcrm_backend/internal/events"
	apphttp "leadcrm_backend/internal/http"
	"leadcrm_backend/internal/scheduler"
	"leadcrm_backend/platform/clock"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the bookings domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
	Repo    *repository.Repository
}

// NewModule creates a new bookings module with all dependencies wired.
// The lead and user directories come from other modules via adapters.
func NewModule(
	pool *pgxpool.Pool,
	val *validator.Validator,
	eventBus events.Bus,
	leads service.LeadDirectory,
	users service.UserDirectory,
	emailSender email.Sender,
	reminderScheduler scheduler.ReminderScheduler,
	clk clock.Clock,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, leads, users, emailSender, eventBus, reminderScheduler, clk, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
		Repo:    repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "bookings"
}

// RegisterRoutes registers the module's routes under /api/v1/bookings
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	bookings := ctx.Protected.Group("/bookings")
	m.handler.RegisterRoutes(bookings)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

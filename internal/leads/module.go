// Package leads provides the lead management domain module: lifecycle
// transitions, call completion, and the not-connected auto-retry flow.
package leads

import (
	"leadcrm_backend/internal/events"
	apphttp "leadcrm_backend/internal/http"
	"leadcrm_backend/internal/leads/handler"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/internal/leads/service"
	"leadcrm_backend/platform/clock"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the leads domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
	Repo    *repository.Repository
}

// NewModule creates a new leads module with all dependencies wired.
// The converter and call scheduler come from other modules via adapters.
func NewModule(
	pool *pgxpool.Pool,
	val *validator.Validator,
	eventBus events.Bus,
	converter service.Converter,
	calls service.CallScheduler,
	clk clock.Clock,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, converter, calls, eventBus, clk, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
		Repo:    repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes registers the module's routes under /api/v1/leads
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leads := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leads)

	adminLeads := ctx.Admin.Group("/leads")
	m.handler.RegisterAdminRoutes(adminLeads)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

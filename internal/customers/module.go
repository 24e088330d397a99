// Package customers provides the customer book domain module and the
// lead-to-customer conversion policy.
package customers

import (
	"leadcrm_backend/internal/customers/handler"
	"leadcrm_backend/internal/customers/repository"
	"leadcrm_backend/internal/customers/service"
	apphttp "leadcrm_backend/internal/http"
	"leadcrm_backend/platform/clock"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the customers domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new customers module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator, clk clock.Clock, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, clk, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "customers"
}

// RegisterRoutes registers the module's routes under /api/v1/customers
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	customers := ctx.Protected.Group("/customers")
	m.handler.RegisterRoutes(customers)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

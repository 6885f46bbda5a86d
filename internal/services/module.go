// Package services provides the service lifecycle bounded context: the
// engagement created by a confirmed payment, from scheduling through
// completion, reviews, rehires and warranty claims.
package services

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "marketplace_backend/internal/http"
	"marketplace_backend/internal/services/handler"
	"marketplace_backend/internal/services/ports"
	"marketplace_backend/internal/services/repository"
	"marketplace_backend/internal/services/service"
	"marketplace_backend/platform/httpkit"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/validator"
)

// Module is the services bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the services module. The rehirer may be wired later
// through Service().SetRehirer.
func NewModule(pool *pgxpool.Pool, accounts ports.AccountGuard, rehirer ports.Rehirer, notifier ports.Notifier, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), accounts, rehirer, notifier, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "services"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts service lifecycle routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	providerOnly := httpkit.RequireRole(httpkit.RoleProvider)
	clientOnly := httpkit.RequireRole(httpkit.RoleClient)

	g := ctx.Protected.Group("/services")
	g.GET("", m.handler.ListMine)
	g.GET("/:id", m.handler.Get)
	g.GET("/:id/history", m.handler.History)
	g.POST("/:id/on-route", providerOnly, m.handler.MarkOnRoute)
	g.POST("/:id/in-progress", providerOnly, m.handler.MarkInProgress)
	g.POST("/:id/complete", providerOnly, m.handler.MarkCompleted)
	g.POST("/:id/cancel", m.handler.Cancel)
	g.POST("/:id/review", clientOnly, m.handler.SubmitReview)
	g.POST("/:id/rehire", clientOnly, m.handler.Rehire)
	g.POST("/:id/warranty", clientOnly, m.handler.ClaimWarranty)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

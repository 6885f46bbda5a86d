// Package requests owns the service-request lifecycle: posting, editing,
// payment confirmation and cancellation.
package requests

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "marketplace_backend/internal/http"
	"marketplace_backend/internal/requests/handler"
	"marketplace_backend/internal/requests/repository"
	"marketplace_backend/internal/requests/service"
	"marketplace_backend/platform/httpkit"
	"marketplace_backend/platform/validator"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, deps service.Deps, val *validator.Validator) *Module {
	svc := service.New(repository.New(pool), deps)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "requests"
}

// Service is used by the services module to open rehire requests.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	clientOnly := httpkit.RequireRole(httpkit.RoleClient)
	providerOnly := httpkit.RequireRole(httpkit.RoleProvider)

	ctx.Protected.POST("/requests", clientOnly, m.handler.Create)
	ctx.Protected.GET("/requests", clientOnly, m.handler.ListMine)
	ctx.Protected.GET("/requests/open", providerOnly, m.handler.ListOpen)
	ctx.Protected.POST("/requests/uploads", clientOnly, m.handler.PresignUpload)
	ctx.Protected.GET("/requests/:id", m.handler.Get)
	ctx.Protected.PATCH("/requests/:id", clientOnly, m.handler.Update)
	ctx.Protected.POST("/requests/:id/confirm-payment", clientOnly, ctx.Idempotency, m.handler.ConfirmPayment)
	ctx.Protected.POST("/requests/:id/cancel", clientOnly, m.handler.Cancel)
}

var _ apphttp.Module = (*Module)(nil)

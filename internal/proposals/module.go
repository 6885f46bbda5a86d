// Package proposals is the ledger of provider bids against service requests.
package proposals

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "marketplace_backend/internal/http"
	"marketplace_backend/internal/proposals/handler"
	"marketplace_backend/internal/proposals/ports"
	"marketplace_backend/internal/proposals/repository"
	"marketplace_backend/internal/proposals/service"
	"marketplace_backend/platform/httpkit"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/validator"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, providers ports.ProviderResolver, notifier ports.Notifier, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), providers, notifier, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "proposals"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	providerOnly := httpkit.RequireRole(httpkit.RoleProvider)

	ctx.Protected.POST("/requests/:id/proposals", providerOnly, m.handler.Submit)
	ctx.Protected.GET("/requests/:id/proposals", m.handler.ListForRequest)
	ctx.Protected.POST("/proposals/:id/withdraw", providerOnly, m.handler.Withdraw)
	ctx.Protected.GET("/provider/proposals", providerOnly, m.handler.ListMine)
}

var _ apphttp.Module = (*Module)(nil)

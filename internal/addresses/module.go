// Package addresses manages the client addresses requests are placed at.
package addresses

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace_backend/internal/addresses/handler"
	"marketplace_backend/internal/addresses/repository"
	"marketplace_backend/internal/addresses/service"
	apphttp "marketplace_backend/internal/http"
	"marketplace_backend/platform/validator"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	svc := service.New(repository.New(pool))
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "addresses"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	g := ctx.Protected.Group("/addresses")
	g.GET("", m.handler.List)
	g.POST("", m.handler.Create)
	g.DELETE("/:id", m.handler.Delete)
}

var _ apphttp.Module = (*Module)(nil)

// Package accounts exposes user accounts and provider profiles to the other
// bounded contexts. Accounts themselves are provisioned by the identity
// provider that issues access tokens.
package accounts

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace_backend/internal/accounts/handler"
	"marketplace_backend/internal/accounts/repository"
	"marketplace_backend/internal/accounts/service"
	apphttp "marketplace_backend/internal/http"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool) *Module {
	svc := service.New(repository.New(pool))
	return &Module{handler: handler.New(svc), service: svc}
}

func (m *Module) Name() string {
	return "accounts"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/me", m.handler.Me)
}

var _ apphttp.Module = (*Module)(nil)

// Package tags owns the shared skill vocabulary and links requests and
// provider licenses to it, either from client input or the LLM classifier.
package tags

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace_backend/internal/events"
	apphttp "marketplace_backend/internal/http"
	"marketplace_backend/internal/tags/handler"
	"marketplace_backend/internal/tags/ports"
	"marketplace_backend/internal/tags/repository"
	"marketplace_backend/internal/tags/service"
	"marketplace_backend/platform/httpkit"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/validator"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the module. suggester may be nil when no LLM is configured.
func NewModule(pool *pgxpool.Pool, suggester ports.Suggester, providers ports.ProviderResolver, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), suggester, providers, eventBus, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "tags"
}

func (m *Module) Service() *service.Service {
	return m.service
}

// SetTaggingScheduler routes tagging through the background worker.
func (m *Module) SetTaggingScheduler(scheduler ports.AutoTagScheduler) {
	m.service.SetScheduler(scheduler)
}

// Subscribe registers the module's event handlers on the bus.
func (m *Module) Subscribe(bus events.Bus) {
	bus.Subscribe(events.ServiceRequestCreated{}.EventName(), m)
	bus.Subscribe(events.ProviderLicenseCreated{}.EventName(), m)
}

// Handle schedules tagging for new requests and licenses.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ServiceRequestCreated:
		if e.SkipTagging {
			return nil
		}
		m.service.ScheduleTagging(ctx, ports.TargetRequest, e.RequestID)
	case events.ProviderLicenseCreated:
		m.service.ScheduleTagging(ctx, ports.TargetLicense, e.LicenseID)
	default:
		return fmt.Errorf("tags: unexpected event %s", event.EventName())
	}
	return nil
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/tags", m.handler.List)
	ctx.Protected.POST("/provider/licenses", httpkit.RequireRole(httpkit.RoleProvider), m.handler.CreateLicense)
}

var (
	_ apphttp.Module = (*Module)(nil)
	_ events.Handler = (*Module)(nil)
)

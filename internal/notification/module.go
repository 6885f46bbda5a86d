// Package notification queues user notifications in an outbox and delivers
// them to the in-app inbox, the push gateway and e-mail.
package notification

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace_backend/internal/email"
	apphttp "marketplace_backend/internal/http"
	"marketplace_backend/internal/notification/handler"
	"marketplace_backend/internal/notification/inapp"
	"marketplace_backend/internal/notification/outbox"
	"marketplace_backend/platform/logger"
)

type Module struct {
	service *Service
	handler *handler.HTTPHandler
}

// Channels are the optional delivery channels. Nil fields are skipped.
type Channels struct {
	Pusher     Pusher
	Mailer     email.Sender
	Recipients RecipientLookup
}

func NewModule(pool *pgxpool.Pool, channels Channels, log *logger.Logger) *Module {
	inbox := inapp.NewService(inapp.NewRepository(pool), log)
	svc := NewService(Options{
		Outbox:     outbox.New(pool),
		Inbox:      inbox,
		Pusher:     channels.Pusher,
		Mailer:     channels.Mailer,
		Recipients: channels.Recipients,
		Log:        log,
	})
	return &Module{
		service: svc,
		handler: handler.NewHTTPHandler(inbox),
	}
}

func (m *Module) Name() string {
	return "notification"
}

// Service is the Notifier handed to the domain modules and the delivery
// entry point of the scheduler worker.
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

var _ apphttp.Module = (*Module)(nil)

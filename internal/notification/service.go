package notification

import (
	"context"
	"fmt"
	"time"

	"marketplace_backend/internal/notification/inapp"
	"marketplace_backend/internal/notification/outbox"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/broker"
	"marketplace_backend/platform/logger"

	"github.com/google/uuid"
)

// maxDeliveryAttempts matches the asynq retry budget of the outbox task.
const maxDeliveryAttempts = 5

// OutboxStore is the outbox persistence used by Notify and Deliver.
type OutboxStore interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

// Inbox stores the in-app copy of a notification.
type Inbox interface {
	Send(ctx context.Context, p inapp.CreateParams) error
}

// Pusher hands a notification to the mobile push gateway.
type Pusher interface {
	Publish(ctx context.Context, msg broker.PushMessage) error
}

// Mailer sends the e-mail copy of a notification.
type Mailer interface {
	SendNotificationEmail(ctx context.Context, toEmail, toName, title, body string) error
}

// Recipient is the contact data of a notified user.
type Recipient struct {
	Email string
	Name  string
}

// RecipientLookup resolves contact data for e-mail delivery.
type RecipientLookup interface {
	Recipient(ctx context.Context, userID uuid.UUID) (Recipient, error)
}

// Service queues notifications and delivers them from the scheduler.
// Pusher, Mailer and Recipients are optional channels.
type Service struct {
	outbox     OutboxStore
	inbox      Inbox
	pusher     Pusher
	mailer     Mailer
	recipients RecipientLookup
	now        func() time.Time
	log        *logger.Logger
}

type Options struct {
	Outbox     OutboxStore
	Inbox      Inbox
	Pusher     Pusher
	Mailer     Mailer
	Recipients RecipientLookup
	Log        *logger.Logger
}

func NewService(opts Options) *Service {
	return &Service{
		outbox:     opts.Outbox,
		inbox:      opts.Inbox,
		pusher:     opts.Pusher,
		mailer:     opts.Mailer,
		recipients: opts.Recipients,
		now:        func() time.Time { return time.Now().UTC() },
		log:        opts.Log,
	}
}

// Notify writes a push row to the outbox. Delivery happens in the scheduler.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) error {
	if userID == uuid.Nil {
		return apperr.Validation("notification recipient is required")
	}
	if title == "" {
		return apperr.Validation("notification title is required")
	}

	id, err := s.outbox.Insert(ctx, outbox.InsertParams{
		UserID:   userID,
		Kind:     outbox.KindPush,
		Template: outbox.TemplateGeneric,
		Payload:  outbox.Message{Title: title, Body: body, Data: data},
		RunAt:    s.now(),
	})
	if err != nil {
		return fmt.Errorf("queue notification: %w", err)
	}
	s.log.Debug("notification queued", "outboxId", id, "userId", userID)
	return nil
}

// Deliver sends one outbox row to every channel. The in-app copy is
// required; push and e-mail failures are logged. A returned error asks the
// task runner to retry, until the attempt budget is spent and the row is
// marked failed.
func (s *Service) Deliver(ctx context.Context, outboxID uuid.UUID) error {
	rec, err := s.outbox.GetByID(ctx, outboxID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.log.Warn("outbox record vanished", "outboxId", outboxID)
			return nil
		}
		return err
	}
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		return nil
	}
	if rec.Kind != outbox.KindPush {
		return s.outbox.MarkFailed(ctx, rec.ID, "unsupported kind "+rec.Kind)
	}

	msg, err := rec.Message()
	if err != nil {
		return s.outbox.MarkFailed(ctx, rec.ID, err.Error())
	}

	if err := s.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}

	err = s.inbox.Send(ctx, inapp.CreateParams{
		ID:     rec.ID,
		UserID: rec.UserID,
		Title:  msg.Title,
		Body:   msg.Body,
		Data:   msg.Data,
	})
	if err != nil {
		if rec.Attempts+1 >= maxDeliveryAttempts {
			s.log.Error("notification delivery failed", "outboxId", rec.ID, "error", err)
			return s.outbox.MarkFailed(ctx, rec.ID, err.Error())
		}
		return err
	}

	s.push(ctx, rec.UserID, msg)
	s.mail(ctx, rec.UserID, msg)

	return s.outbox.MarkSucceeded(ctx, rec.ID)
}

func (s *Service) push(ctx context.Context, userID uuid.UUID, msg outbox.Message) {
	if s.pusher == nil {
		return
	}
	err := s.pusher.Publish(ctx, broker.PushMessage{
		UserID: userID,
		Title:  msg.Title,
		Body:   msg.Body,
		Data:   msg.Data,
		SentAt: s.now(),
	})
	if err != nil {
		s.log.WithContext(ctx).SideEffectFailed("push", err, "userId", userID)
	}
}

func (s *Service) mail(ctx context.Context, userID uuid.UUID, msg outbox.Message) {
	if s.mailer == nil || s.recipients == nil {
		return
	}
	to, err := s.recipients.Recipient(ctx, userID)
	if err != nil {
		s.log.WithContext(ctx).SideEffectFailed("email_recipient", err, "userId", userID)
		return
	}
	if to.Email == "" {
		return
	}
	if err := s.mailer.SendNotificationEmail(ctx, to.Email, to.Name, msg.Title, msg.Body); err != nil {
		s.log.WithContext(ctx).SideEffectFailed("email", err, "userId", userID)
	}
}

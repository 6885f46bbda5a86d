package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"marketplace_backend/internal/notification/inapp"
	"marketplace_backend/internal/notification/outbox"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/broker"
	"marketplace_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeOutbox struct {
	records map[uuid.UUID]*outbox.Record
	errors  map[uuid.UUID]string
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{records: map[uuid.UUID]*outbox.Record{}, errors: map[uuid.UUID]string{}}
}

func (f *fakeOutbox) Insert(_ context.Context, p outbox.InsertParams) (uuid.UUID, error) {
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	f.records[id] = &outbox.Record{
		ID: id, UserID: p.UserID, Kind: p.Kind, Template: p.Template,
		Payload: payload, RunAt: p.RunAt, Status: outbox.StatusPending,
	}
	return id, nil
}

func (f *fakeOutbox) GetByID(_ context.Context, id uuid.UUID) (outbox.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return outbox.Record{}, apperr.NotFound("outbox record not found")
	}
	return *rec, nil
}

func (f *fakeOutbox) MarkProcessing(_ context.Context, id uuid.UUID) error {
	f.records[id].Status = outbox.StatusProcessing
	f.records[id].Attempts++
	return nil
}

func (f *fakeOutbox) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	f.records[id].Status = outbox.StatusSucceeded
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, lastError string) error {
	f.records[id].Status = outbox.StatusFailed
	f.errors[id] = lastError
	return nil
}

type fakeInbox struct {
	sent []inapp.CreateParams
	err  error
}

func (f *fakeInbox) Send(_ context.Context, p inapp.CreateParams) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, p)
	return nil
}

type fakePusher struct {
	messages []broker.PushMessage
	err      error
}

func (f *fakePusher) Publish(_ context.Context, msg broker.PushMessage) error {
	f.messages = append(f.messages, msg)
	return f.err
}

type fakeMailer struct {
	to []string
}

func (f *fakeMailer) SendNotificationEmail(_ context.Context, toEmail, _, _, _ string) error {
	f.to = append(f.to, toEmail)
	return nil
}

type fakeRecipients map[uuid.UUID]Recipient

func (f fakeRecipients) Recipient(_ context.Context, userID uuid.UUID) (Recipient, error) {
	r, ok := f[userID]
	if !ok {
		return Recipient{}, apperr.NotFound("account not found")
	}
	return r, nil
}

type fixture struct {
	svc    *Service
	outbox *fakeOutbox
	inbox  *fakeInbox
	pusher *fakePusher
	mailer *fakeMailer
	userID uuid.UUID
}

func newFixture() *fixture {
	userID := uuid.New()
	f := &fixture{
		outbox: newFakeOutbox(),
		inbox:  &fakeInbox{},
		pusher: &fakePusher{},
		mailer: &fakeMailer{},
		userID: userID,
	}
	f.svc = NewService(Options{
		Outbox:     f.outbox,
		Inbox:      f.inbox,
		Pusher:     f.pusher,
		Mailer:     f.mailer,
		Recipients: fakeRecipients{userID: {Email: "ana@example.com", Name: "Ana"}},
		Log:        logger.Discard(),
	})
	f.svc.now = func() time.Time { return time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) queue(t *testing.T) uuid.UUID {
	t.Helper()
	err := f.svc.Notify(context.Background(), f.userID, "Pago confirmado", "510.00 ARS", map[string]string{"serviceId": "abc"})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(f.outbox.records) != 1 {
		t.Fatalf("expected one outbox row, got %d", len(f.outbox.records))
	}
	for id := range f.outbox.records {
		return id
	}
	return uuid.Nil
}

func TestNotifyWritesPendingPushRow(t *testing.T) {
	f := newFixture()
	id := f.queue(t)

	rec := f.outbox.records[id]
	if rec.Kind != outbox.KindPush || rec.Status != outbox.StatusPending {
		t.Fatalf("unexpected row %+v", rec)
	}
	msg, err := rec.Message()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Title != "Pago confirmado" || msg.Data["serviceId"] != "abc" {
		t.Fatalf("unexpected payload %+v", msg)
	}
	if len(f.inbox.sent) != 0 {
		t.Fatalf("notify must not deliver synchronously")
	}
}

func TestNotifyValidatesInput(t *testing.T) {
	f := newFixture()
	if err := f.svc.Notify(context.Background(), uuid.Nil, "x", "", nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for missing user, got %v", err)
	}
	if err := f.svc.Notify(context.Background(), f.userID, "", "", nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for missing title, got %v", err)
	}
}

func TestDeliverFansOutToEveryChannel(t *testing.T) {
	f := newFixture()
	id := f.queue(t)

	if err := f.svc.Deliver(context.Background(), id); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if len(f.inbox.sent) != 1 || f.inbox.sent[0].ID != id || f.inbox.sent[0].UserID != f.userID {
		t.Fatalf("expected in-app copy keyed by outbox id, got %+v", f.inbox.sent)
	}
	if len(f.pusher.messages) != 1 || f.pusher.messages[0].Body != "510.00 ARS" {
		t.Fatalf("expected one push message, got %+v", f.pusher.messages)
	}
	if len(f.mailer.to) != 1 || f.mailer.to[0] != "ana@example.com" {
		t.Fatalf("expected one e-mail, got %v", f.mailer.to)
	}
	if f.outbox.records[id].Status != outbox.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", f.outbox.records[id].Status)
	}
}

func TestDeliverSkipsFinishedRows(t *testing.T) {
	f := newFixture()
	id := f.queue(t)
	f.outbox.records[id].Status = outbox.StatusSucceeded

	if err := f.svc.Deliver(context.Background(), id); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(f.inbox.sent) != 0 || len(f.pusher.messages) != 0 {
		t.Fatalf("finished rows must not be delivered again")
	}
}

func TestDeliverIgnoresMissingRow(t *testing.T) {
	f := newFixture()
	if err := f.svc.Deliver(context.Background(), uuid.New()); err != nil {
		t.Fatalf("expected nil for missing row, got %v", err)
	}
}

func TestDeliverPushFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.pusher.err = errors.New("broker down")
	id := f.queue(t)

	if err := f.svc.Deliver(context.Background(), id); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if f.outbox.records[id].Status != outbox.StatusSucceeded {
		t.Fatalf("push failure must not fail delivery")
	}
}

func TestDeliverRetriesThenFails(t *testing.T) {
	f := newFixture()
	f.inbox.err = errors.New("db down")
	id := f.queue(t)

	for attempt := 1; attempt < maxDeliveryAttempts; attempt++ {
		if err := f.svc.Deliver(context.Background(), id); err == nil {
			t.Fatalf("attempt %d: expected error so the task is retried", attempt)
		}
		f.outbox.records[id].Status = outbox.StatusEnqueued
	}

	if err := f.svc.Deliver(context.Background(), id); err != nil {
		t.Fatalf("last attempt should mark the row failed, got %v", err)
	}
	if f.outbox.records[id].Status != outbox.StatusFailed || f.outbox.errors[id] != "db down" {
		t.Fatalf("expected failed row, got %+v", f.outbox.records[id])
	}
	if len(f.pusher.messages) != 0 {
		t.Fatalf("push must wait for the in-app copy")
	}
}

func TestDeliverWithoutEmailSkipsMailer(t *testing.T) {
	f := newFixture()
	f.svc.recipients = fakeRecipients{f.userID: {Name: "Ana"}}
	id := f.queue(t)

	if err := f.svc.Deliver(context.Background(), id); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(f.mailer.to) != 0 {
		t.Fatalf("expected no e-mail, got %v", f.mailer.to)
	}
}

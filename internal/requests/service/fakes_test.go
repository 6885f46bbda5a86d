package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"marketplace_backend/internal/events"
	proposaldomain "marketplace_backend/internal/proposals/domain"
	"marketplace_backend/internal/requests/domain"
	"marketplace_backend/internal/requests/ports"
	"marketplace_backend/internal/requests/repository"
	servicedomain "marketplace_backend/internal/services/domain"
	"marketplace_backend/platform/apperr"
)

type historyRow struct {
	serviceID uuid.UUID
	from      *servicedomain.Status
	to        servicedomain.Status
	actor     uuid.UUID
}

type fakeRepo struct {
	requests  map[uuid.UUID]domain.ServiceRequest
	images    map[uuid.UUID][]domain.Image
	tags      map[uuid.UUID][]domain.TagLink
	proposals []proposaldomain.Proposal
	services  map[uuid.UUID]servicedomain.Service
	history   []historyRow
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		requests: map[uuid.UUID]domain.ServiceRequest{},
		images:   map[uuid.UUID][]domain.Image{},
		tags:     map[uuid.UUID][]domain.TagLink{},
		services: map[uuid.UUID]servicedomain.Service{},
	}
}

func (f *fakeRepo) WithTx(_ context.Context, fn func(repository.Repository) error) error {
	return fn(f)
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.ServiceRequest, error) {
	sr, ok := f.requests[id]
	if !ok {
		return domain.ServiceRequest{}, apperr.NotFound("request not found")
	}
	return sr, nil
}

func (f *fakeRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.ServiceRequest, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeRepo) ListByClient(_ context.Context, clientID uuid.UUID) ([]domain.ServiceRequest, error) {
	var out []domain.ServiceRequest
	for _, sr := range f.requests {
		if sr.ClientID == clientID {
			out = append(out, sr)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListOpen(_ context.Context, filter repository.OpenFilter) ([]domain.ServiceRequest, error) {
	var out []domain.ServiceRequest
	for _, sr := range f.requests {
		if sr.Status != domain.StatusPublished {
			continue
		}
		if sr.BiddingDeadline != nil && !sr.BiddingDeadline.After(filter.Now) {
			continue
		}
		if sr.Type == domain.TypeRecontratacion && (sr.TargetProviderID == nil || *sr.TargetProviderID != filter.ProviderID) {
			continue
		}
		out = append(out, sr)
	}
	return out, nil
}

func (f *fakeRepo) ProviderInvolved(_ context.Context, requestID, providerID uuid.UUID) (bool, error) {
	if sr, ok := f.requests[requestID]; ok && sr.TargetProviderID != nil && *sr.TargetProviderID == providerID {
		return true, nil
	}
	for _, p := range f.proposals {
		if p.RequestID == requestID && p.ProviderID != nil && *p.ProviderID == providerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ListImages(_ context.Context, requestID uuid.UUID) ([]domain.Image, error) {
	return f.images[requestID], nil
}

func (f *fakeRepo) ListTags(_ context.Context, requestID uuid.UUID) ([]domain.TagLink, error) {
	return f.tags[requestID], nil
}

func (f *fakeRepo) ListProposals(_ context.Context, requestID uuid.UUID) ([]proposaldomain.Proposal, error) {
	var out []proposaldomain.Proposal
	for _, p := range f.proposals {
		if p.RequestID == requestID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListProposalsForUpdate(ctx context.Context, requestID uuid.UUID) ([]proposaldomain.Proposal, error) {
	return f.ListProposals(ctx, requestID)
}

func (f *fakeRepo) CountProposals(ctx context.Context, requestID uuid.UUID) (int, error) {
	items, _ := f.ListProposals(ctx, requestID)
	return len(items), nil
}

func (f *fakeRepo) GetService(_ context.Context, requestID uuid.UUID) (*repository.ServiceSummary, error) {
	s, ok := f.services[requestID]
	if !ok {
		return nil, nil
	}
	return &repository.ServiceSummary{
		ID:               s.ID,
		Status:           s.Status,
		ProviderID:       s.ProviderID,
		TotalPriceCents:  s.TotalPriceCents,
		Currency:         s.Currency,
		ScheduledStartAt: s.ScheduledStartAt,
		ScheduledEndAt:   s.ScheduledEndAt,
	}, nil
}

func (f *fakeRepo) Create(_ context.Context, sr domain.ServiceRequest) error {
	if (sr.Type == domain.TypeLicitacion) != (sr.BiddingDeadline != nil) {
		return apperr.Conflict("service_requests_deadline_check")
	}
	f.requests[sr.ID] = sr
	return nil
}

func (f *fakeRepo) AddImages(_ context.Context, images []domain.Image) error {
	for _, img := range images {
		f.images[img.RequestID] = append(f.images[img.RequestID], img)
	}
	return nil
}

func (f *fakeRepo) LinkTags(_ context.Context, requestID uuid.UUID, tagIDs []uuid.UUID, source domain.TagSource) error {
	for _, id := range tagIDs {
		f.tags[requestID] = append(f.tags[requestID], domain.TagLink{TagID: id, Confidence: 1, Source: source})
	}
	return nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, u repository.StatusUpdate) error {
	sr, ok := f.requests[u.ID]
	if !ok {
		return apperr.NotFound("request not found")
	}
	if sr.Version != u.ExpectedVersion {
		return apperr.Conflict("stale")
	}
	if (u.Type == domain.TypeLicitacion) != (u.BiddingDeadline != nil) {
		return apperr.Conflict("service_requests_deadline_check")
	}
	sr.Status = u.Status
	sr.Type = u.Type
	sr.BiddingDeadline = u.BiddingDeadline
	sr.Version++
	sr.UpdatedAt = u.At
	f.requests[u.ID] = sr
	return nil
}

func (f *fakeRepo) RejectOpenProposals(_ context.Context, requestID uuid.UUID, _ time.Time) ([]uuid.UUID, error) {
	var users []uuid.UUID
	for i := range f.proposals {
		p := &f.proposals[i]
		if p.RequestID != requestID {
			continue
		}
		if p.Status == proposaldomain.StatusPending || p.Status == proposaldomain.StatusAccepted {
			p.Status = proposaldomain.StatusRejected
			if p.ProviderUserID != nil && !p.IsOrphan() {
				users = append(users, *p.ProviderUserID)
			}
		}
	}
	return users, nil
}

func (f *fakeRepo) ConfirmPayment(_ context.Context, c repository.Confirmation) error {
	if _, exists := f.services[c.RequestID]; exists {
		return apperr.Conflict("payment already confirmed for this request")
	}
	sr := f.requests[c.RequestID]
	if sr.Version != c.ExpectedVersion {
		return apperr.Conflict("stale")
	}
	rejected := map[uuid.UUID]bool{}
	for _, id := range c.RejectedProposalIDs {
		rejected[id] = true
	}
	for i := range f.proposals {
		switch {
		case f.proposals[i].ID == c.AcceptedProposalID:
			f.proposals[i].Status = proposaldomain.StatusAccepted
		case rejected[f.proposals[i].ID]:
			f.proposals[i].Status = proposaldomain.StatusRejected
		}
	}
	sr.Status = domain.StatusClosed
	sr.Version++
	f.requests[c.RequestID] = sr
	f.services[c.RequestID] = c.Service
	f.history = append(f.history, historyRow{serviceID: c.Service.ID, to: servicedomain.StatusConfirmed, actor: c.ActorID})
	return nil
}

type fakeAccounts struct {
	clients   map[uuid.UUID]bool
	providers map[uuid.UUID]uuid.UUID
}

func (f fakeAccounts) RequireActiveClient(_ context.Context, userID uuid.UUID) error {
	if !f.clients[userID] {
		return apperr.Forbidden("only active clients may do this")
	}
	return nil
}

func (f fakeAccounts) ActiveProviderID(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	id, ok := f.providers[userID]
	if !ok {
		return uuid.Nil, apperr.Forbidden("only provider accounts may do this")
	}
	return id, nil
}

type fakeAddresses map[uuid.UUID]struct {
	owner uuid.UUID
	addr  ports.Address
}

func (f fakeAddresses) GetActiveAddress(_ context.Context, userID, addressID uuid.UUID) (ports.Address, error) {
	a, ok := f[addressID]
	if !ok || a.owner != userID {
		return ports.Address{}, apperr.NotFound("address not found")
	}
	return a.addr, nil
}

func (f fakeAddresses) GetAddress(_ context.Context, addressID uuid.UUID) (ports.Address, error) {
	a, ok := f[addressID]
	if !ok {
		return ports.Address{}, apperr.NotFound("address not found")
	}
	return a.addr, nil
}

type fakeTags map[uuid.UUID]bool

func (f fakeTags) MissingTags(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var missing []uuid.UUID
	for _, id := range ids {
		if !f[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

type sentNotification struct {
	userID uuid.UUID
	title  string
}

type recordingNotifier struct {
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, title, _ string, _ map[string]string) error {
	n.sent = append(n.sent, sentNotification{userID: userID, title: title})
	return n.err
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) { b.published = append(b.published, e) }
func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

type fakeStorage struct {
	objects map[string]bool
	err     error
}

func (s *fakeStorage) PresignUpload(_ context.Context, key, _ string) (string, time.Time, error) {
	if s.err != nil {
		return "", time.Time{}, s.err
	}
	return "https://storage.test/" + key, time.Date(2026, 1, 1, 0, 15, 0, 0, time.UTC), nil
}

func (s *fakeStorage) Exists(_ context.Context, key string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.objects[key], nil
}

var errNotifierDown = errors.New("notifier down")

func errorsAs(err error, target **apperr.Error) bool {
	return errors.As(err, target)
}

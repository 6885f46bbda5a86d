package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"marketplace_backend/internal/services/domain"
	"marketplace_backend/internal/services/ports"
	"marketplace_backend/internal/services/repository"
	"marketplace_backend/internal/services/transport"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/clock"
	"marketplace_backend/platform/logger"
)

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type fakeRepo struct {
	services         map[uuid.UUID]domain.Service
	history          []repository.Transition
	cancelledRequest []uuid.UUID
	reviews          map[[2]uuid.UUID]domain.Review
	ratings          map[uuid.UUID]repository.ProviderRating
	// uniqueRace makes CreateReview fail like a concurrent duplicate insert.
	uniqueRace bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		services: map[uuid.UUID]domain.Service{},
		reviews:  map[[2]uuid.UUID]domain.Review{},
		ratings:  map[uuid.UUID]repository.ProviderRating{},
	}
}

func (f *fakeRepo) WithTx(_ context.Context, fn func(repository.Repository) error) error {
	return fn(f)
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Service, error) {
	svc, ok := f.services[id]
	if !ok {
		return domain.Service{}, apperr.NotFound("service not found")
	}
	return svc, nil
}

func (f *fakeRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Service, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeRepo) ListByParticipant(_ context.Context, userID uuid.UUID) ([]domain.Service, error) {
	var out []domain.Service
	for _, svc := range f.services {
		if svc.IsParticipant(userID) {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (f *fakeRepo) History(_ context.Context, serviceID uuid.UUID) ([]domain.StatusChange, error) {
	var out []domain.StatusChange
	for _, t := range f.history {
		if t.ServiceID != serviceID {
			continue
		}
		from := t.From
		out = append(out, domain.StatusChange{ID: uuid.New(), ServiceID: t.ServiceID, FromStatus: &from, ToStatus: t.To, ActorID: t.ActorID, ChangedAt: t.At})
	}
	return out, nil
}

func (f *fakeRepo) ApplyTransition(_ context.Context, t repository.Transition) error {
	svc := f.services[t.ServiceID]
	if svc.Status != t.From {
		return apperr.Conflict("stale")
	}
	svc.Status = t.To
	svc.UpdatedAt = t.At
	if t.CompletedAt != nil {
		svc.CompletedAt = t.CompletedAt
	}
	if t.WarrantyExpiresAt != nil {
		svc.WarrantyExpiresAt = t.WarrantyExpiresAt
	}
	if t.WarrantyClaimDescription != nil {
		svc.WarrantyClaimDescription = t.WarrantyClaimDescription
	}
	f.services[t.ServiceID] = svc
	f.history = append(f.history, t)
	return nil
}

func (f *fakeRepo) CancelWithRequest(ctx context.Context, t repository.Transition, requestID uuid.UUID) error {
	if err := f.ApplyTransition(ctx, t); err != nil {
		return err
	}
	f.cancelledRequest = append(f.cancelledRequest, requestID)
	return nil
}

func (f *fakeRepo) HasReview(_ context.Context, serviceID, raterID uuid.UUID) (bool, error) {
	_, ok := f.reviews[[2]uuid.UUID{serviceID, raterID}]
	return ok, nil
}

func (f *fakeRepo) CreateReview(_ context.Context, r domain.Review) error {
	if f.uniqueRace {
		return apperr.Conflict("service already reviewed")
	}
	f.reviews[[2]uuid.UUID{r.ServiceID, r.RaterID}] = r
	return nil
}

func (f *fakeRepo) LockProviderRating(_ context.Context, providerID uuid.UUID) (repository.ProviderRating, error) {
	return f.ratings[providerID], nil
}

func (f *fakeRepo) UpdateProviderRating(_ context.Context, providerID uuid.UUID, rating repository.ProviderRating) error {
	f.ratings[providerID] = rating
	return nil
}

type fakeAccounts map[uuid.UUID]bool

func (f fakeAccounts) RequireActiveClient(_ context.Context, userID uuid.UUID) error {
	if !f[userID] {
		return apperr.Forbidden("only active clients may do this")
	}
	return nil
}

type recordingRehirer struct {
	got []ports.RehireRequest
}

func (r *recordingRehirer) CreateRehire(_ context.Context, req ports.RehireRequest) (ports.RehireResult, error) {
	r.got = append(r.got, req)
	return ports.RehireResult{RequestID: uuid.New(), Title: "revisar instalación"}, nil
}

type recordingNotifier struct {
	to  []uuid.UUID
	err error
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, _, _ string, _ map[string]string) error {
	n.to = append(n.to, userID)
	return n.err
}

type fixture struct {
	svc          *Service
	repo         *fakeRepo
	notifier     *recordingNotifier
	rehirer      *recordingRehirer
	clientID     uuid.UUID
	providerID   uuid.UUID
	providerUser uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:         newFakeRepo(),
		notifier:     &recordingNotifier{},
		rehirer:      &recordingRehirer{},
		clientID:     uuid.New(),
		providerID:   uuid.New(),
		providerUser: uuid.New(),
	}
	f.svc = New(f.repo, fakeAccounts{f.clientID: true}, f.rehirer, f.notifier, logger.Discard())
	f.svc.now = clock.Fixed(testNow)
	return f
}

func (f *fixture) seed(status domain.Status, mutate ...func(*domain.Service)) domain.Service {
	city := "CABA"
	svc := domain.Service{
		ID:              uuid.New(),
		RequestID:       uuid.New(),
		ProposalID:      uuid.New(),
		ClientID:        f.clientID,
		ProviderID:      &f.providerID,
		ProviderUserID:  &f.providerUser,
		Status:          status,
		TotalPriceCents: 51000,
		Currency:        "ARS",
		AddressSnapshot: &domain.AddressSnapshot{Street: "Av. Corrientes 1234", City: &city},
		CreatedAt:       testNow.Add(-48 * time.Hour),
		UpdatedAt:       testNow.Add(-48 * time.Hour),
	}
	for _, m := range mutate {
		m(&svc)
	}
	f.repo.services[svc.ID] = svc
	return svc
}

func (f *fixture) status(id uuid.UUID) domain.Status {
	return f.repo.services[id].Status
}

func TestProgressionHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := testNow.Add(-time.Hour)
	svc := f.seed(domain.StatusConfirmed, func(s *domain.Service) { s.ScheduledStartAt = &start })

	if _, err := f.svc.MarkOnRoute(ctx, f.providerUser, svc.ID); err != nil {
		t.Fatalf("on route: %v", err)
	}
	if _, err := f.svc.MarkInProgress(ctx, f.providerUser, svc.ID); err != nil {
		t.Fatalf("in progress: %v", err)
	}
	out, err := f.svc.MarkCompleted(ctx, f.providerUser, svc.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if out.Status != string(domain.StatusCompleted) {
		t.Fatalf("expected COMPLETED, got %s", out.Status)
	}
	if out.CompletedAt == nil || !out.CompletedAt.Equal(testNow) {
		t.Fatalf("expected completion time, got %v", out.CompletedAt)
	}
	if out.WarrantyExpiresAt == nil || !out.WarrantyExpiresAt.Equal(testNow.Add(30*24*time.Hour)) {
		t.Fatalf("expected warranty +30d, got %v", out.WarrantyExpiresAt)
	}

	want := []domain.Status{domain.StatusOnRoute, domain.StatusInProgress, domain.StatusCompleted}
	if len(f.repo.history) != len(want) {
		t.Fatalf("expected %d history rows, got %d", len(want), len(f.repo.history))
	}
	for i, h := range f.repo.history {
		if h.To != want[i] || h.ActorID != f.providerUser {
			t.Fatalf("history row %d: unexpected %+v", i, h)
		}
	}
	if len(f.notifier.to) != 3 || f.notifier.to[0] != f.clientID {
		t.Fatalf("expected the client notified at every step, got %v", f.notifier.to)
	}
}

func TestMarkOnRouteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := f.seed(domain.StatusOnRoute)

	out, err := f.svc.MarkOnRoute(context.Background(), f.providerUser, svc.ID)
	if err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if out.Status != string(domain.StatusOnRoute) || len(f.repo.history) != 0 || len(f.notifier.to) != 0 {
		t.Fatalf("repeat must not write or notify")
	}
}

func TestMarkInProgressRespectsScheduledStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	later := testNow.Add(time.Minute)
	early := f.seed(domain.StatusConfirmed, func(s *domain.Service) { s.ScheduledStartAt = &later })
	if _, err := f.svc.MarkInProgress(ctx, f.providerUser, early.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict before scheduled start, got %v", err)
	}
	if f.status(early.ID) != domain.StatusConfirmed {
		t.Fatalf("status must be unchanged")
	}

	exact := testNow
	onTime := f.seed(domain.StatusOnRoute, func(s *domain.Service) { s.ScheduledStartAt = &exact })
	if _, err := f.svc.MarkInProgress(ctx, f.providerUser, onTime.ID); err != nil {
		t.Fatalf("start at the scheduled time must succeed: %v", err)
	}

	unscheduled := f.seed(domain.StatusConfirmed)
	if _, err := f.svc.MarkInProgress(ctx, f.providerUser, unscheduled.ID); err != nil {
		t.Fatalf("missing start must be allowed: %v", err)
	}
}

func TestLifecycleRequiresTheProvider(t *testing.T) {
	f := newFixture(t)
	svc := f.seed(domain.StatusConfirmed)

	if _, err := f.svc.MarkOnRoute(context.Background(), f.clientID, svc.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for the client, got %v", err)
	}
	if _, err := f.svc.MarkCompleted(context.Background(), uuid.New(), svc.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for a stranger, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	allowed := []domain.Status{domain.StatusConfirmed, domain.StatusOnRoute}
	for _, status := range allowed {
		t.Run("from "+string(status), func(t *testing.T) {
			f := newFixture(t)
			svc := f.seed(status)
			out, err := f.svc.Cancel(ctx, f.clientID, svc.ID)
			if err != nil {
				t.Fatalf("cancel: %v", err)
			}
			if out.Status != string(domain.StatusCanceled) {
				t.Fatalf("expected CANCELED, got %s", out.Status)
			}
			if len(f.repo.cancelledRequest) != 1 || f.repo.cancelledRequest[0] != svc.RequestID {
				t.Fatalf("request must be cancelled with the service")
			}
			if len(f.notifier.to) != 1 || f.notifier.to[0] != f.providerUser {
				t.Fatalf("expected provider notified, got %v", f.notifier.to)
			}
		})
	}

	rejected := []domain.Status{domain.StatusInProgress, domain.StatusCompleted, domain.StatusCanceled}
	for _, status := range rejected {
		t.Run("from "+string(status), func(t *testing.T) {
			f := newFixture(t)
			svc := f.seed(status)
			if _, err := f.svc.Cancel(ctx, f.providerUser, svc.ID); !apperr.Is(err, apperr.KindConflict) {
				t.Fatalf("expected conflict, got %v", err)
			}
			if f.status(svc.ID) != status || len(f.repo.cancelledRequest) != 0 {
				t.Fatalf("status must be unchanged")
			}
		})
	}

	t.Run("provider cancel notifies the client", func(t *testing.T) {
		f := newFixture(t)
		svc := f.seed(domain.StatusConfirmed)
		if _, err := f.svc.Cancel(ctx, f.providerUser, svc.ID); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if len(f.notifier.to) != 1 || f.notifier.to[0] != f.clientID {
			t.Fatalf("expected client notified, got %v", f.notifier.to)
		}
	})
}

func TestSubmitReviewUpdatesRating(t *testing.T) {
	f := newFixture(t)
	svc := f.seed(domain.StatusCompleted)
	f.repo.ratings[f.providerID] = repository.ProviderRating{Average: 400, Count: 2}

	out, err := f.svc.SubmitReview(context.Background(), f.clientID, svc.ID, transport.SubmitReviewRequest{Rating: 5, Comment: "<b>excelente</b>"})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if out.ProviderRatingAvg != "4.33" || out.ProviderTotalReviews != 3 {
		t.Fatalf("expected 4.33 over 3 reviews, got %s over %d", out.ProviderRatingAvg, out.ProviderTotalReviews)
	}
	if out.Comment != "excelente" {
		t.Fatalf("expected sanitized comment, got %q", out.Comment)
	}
	if len(f.notifier.to) != 1 || f.notifier.to[0] != f.providerUser {
		t.Fatalf("expected provider notified")
	}

	_, err = f.svc.SubmitReview(context.Background(), f.clientID, svc.ID, transport.SubmitReviewRequest{Rating: 3})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for a second review, got %v", err)
	}
	if f.repo.ratings[f.providerID].Count != 3 {
		t.Fatalf("rating must not change on a rejected review")
	}
}

func TestSubmitReviewRejections(t *testing.T) {
	tests := []struct {
		name   string
		status domain.Status
		mutate func(*domain.Service)
		race   bool
		kind   apperr.Kind
	}{
		{name: "not completed", status: domain.StatusInProgress, kind: apperr.KindConflict},
		{name: "no provider", status: domain.StatusCompleted, mutate: func(s *domain.Service) { s.ProviderID = nil }, kind: apperr.KindConflict},
		{name: "concurrent duplicate", status: domain.StatusCompleted, race: true, kind: apperr.KindConflict},
		{name: "other client", status: domain.StatusCompleted, mutate: func(s *domain.Service) { s.ClientID = uuid.New() }, kind: apperr.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var mutate []func(*domain.Service)
			if tt.mutate != nil {
				mutate = append(mutate, tt.mutate)
			}
			svc := f.seed(tt.status, mutate...)
			f.repo.uniqueRace = tt.race

			_, err := f.svc.SubmitReview(context.Background(), f.clientID, svc.ID, transport.SubmitReviewRequest{Rating: 4})
			if apperr.GetKind(err) != tt.kind {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
			if _, ok := f.repo.ratings[f.providerID]; ok {
				t.Fatalf("rating must not be written")
			}
		})
	}
}

func TestClaimWarrantyBoundary(t *testing.T) {
	completed := testNow.Add(-30 * 24 * time.Hour)
	tests := []struct {
		name    string
		mutate  func(*domain.Service)
		wantErr bool
	}{
		{
			name:   "exactly at the stored deadline",
			mutate: func(s *domain.Service) { exp := testNow; s.CompletedAt = &completed; s.WarrantyExpiresAt = &exp },
		},
		{
			name: "one second after the stored deadline",
			mutate: func(s *domain.Service) {
				exp := testNow.Add(-time.Second)
				s.CompletedAt = &completed
				s.WarrantyExpiresAt = &exp
			},
			wantErr: true,
		},
		{
			name:   "derived from completion",
			mutate: func(s *domain.Service) { s.CompletedAt = &completed },
		},
		{
			name: "derived deadline passed",
			mutate: func(s *domain.Service) {
				c := completed.Add(-time.Second)
				s.CompletedAt = &c
			},
			wantErr: true,
		},
		{
			name:    "no provider",
			mutate:  func(s *domain.Service) { s.CompletedAt = &completed; s.ProviderID = nil },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			svc := f.seed(domain.StatusCompleted, tt.mutate)

			out, err := f.svc.ClaimWarranty(context.Background(), f.clientID, svc.ID, transport.WarrantyClaimRequest{Description: "volvió a perder agua"})
			if tt.wantErr {
				if !apperr.Is(err, apperr.KindConflict) {
					t.Fatalf("expected conflict, got %v", err)
				}
				if f.status(svc.ID) != domain.StatusCompleted {
					t.Fatalf("status must be unchanged")
				}
				return
			}
			if err != nil {
				t.Fatalf("claim: %v", err)
			}
			if out.Status != string(domain.StatusConfirmed) || out.ID != svc.ID {
				t.Fatalf("expected the same service reopened, got %+v", out)
			}
			if out.WarrantyClaimDescription == nil || *out.WarrantyClaimDescription != "volvió a perder agua" {
				t.Fatalf("expected claim description stored")
			}
			h := f.repo.history[0]
			if h.From != domain.StatusCompleted || h.To != domain.StatusConfirmed || h.ActorID != f.clientID {
				t.Fatalf("unexpected history %+v", h)
			}
		})
	}
}

func TestClaimWarrantyRequiresCompletedService(t *testing.T) {
	f := newFixture(t)
	svc := f.seed(domain.StatusInProgress)
	_, err := f.svc.ClaimWarranty(context.Background(), f.clientID, svc.ID, transport.WarrantyClaimRequest{Description: "no funciona"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRehire(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.seed(domain.StatusCompleted)

	out, err := f.svc.Rehire(ctx, f.clientID, svc.ID, transport.RehireRequest{})
	if err != nil {
		t.Fatalf("rehire: %v", err)
	}
	if out.TargetProviderID != f.providerID || out.OriginServiceID != svc.ID {
		t.Fatalf("unexpected response %+v", out)
	}
	got := f.rehirer.got[0]
	if got.OriginRequestID != svc.RequestID || got.TargetProviderID != f.providerID || got.City == nil || *got.City != "CABA" {
		t.Fatalf("unexpected rehire input %+v", got)
	}
	if len(f.notifier.to) != 1 || f.notifier.to[0] != f.providerUser {
		t.Fatalf("expected target provider notified")
	}

	open := f.seed(domain.StatusInProgress)
	if _, err := f.svc.Rehire(ctx, f.clientID, open.ID, transport.RehireRequest{}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for a service not completed, got %v", err)
	}
	foreign := f.seed(domain.StatusCompleted, func(s *domain.Service) { s.ClientID = uuid.New() })
	if _, err := f.svc.Rehire(ctx, f.clientID, foreign.ID, transport.RehireRequest{}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(f.rehirer.got) != 1 {
		t.Fatalf("rejected rehires must not create requests")
	}
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("push gateway down")
	svc := f.seed(domain.StatusConfirmed)

	if _, err := f.svc.MarkOnRoute(context.Background(), f.providerUser, svc.ID); err != nil {
		t.Fatalf("notification failure must be swallowed: %v", err)
	}
	if f.status(svc.ID) != domain.StatusOnRoute {
		t.Fatalf("transition must be committed")
	}
}

func TestReadsAreLimitedToParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.seed(domain.StatusConfirmed)
	if _, err := f.svc.MarkOnRoute(ctx, f.providerUser, svc.ID); err != nil {
		t.Fatalf("on route: %v", err)
	}

	got, err := f.svc.Get(ctx, f.providerUser, svc.ID)
	if err != nil || got.TotalPrice != "510.00" || got.Address == nil {
		t.Fatalf("provider must see the service: %+v %v", got, err)
	}
	history, err := f.svc.History(ctx, f.clientID, svc.ID)
	if err != nil || len(history.Items) != 1 || *history.Items[0].FromStatus != "CONFIRMED" {
		t.Fatalf("unexpected history %+v %v", history, err)
	}
	if _, err := f.svc.Get(ctx, uuid.New(), svc.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	list, err := f.svc.ListMine(ctx, f.clientID)
	if err != nil || len(list.Items) != 1 {
		t.Fatalf("expected one service, got %+v %v", list, err)
	}
}

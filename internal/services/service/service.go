// Package service drives a confirmed service through its lifecycle. Each
// transition locks the service row, checks the state machine and appends a
// history row in one transaction; notifications follow the commit.
package service

import (
	"context"
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

type Service struct {
	repo     repository.Repository
	accounts ports.AccountGuard
	rehirer  ports.Rehirer
	notifier ports.Notifier
	log      *logger.Logger
	now      clock.Clock
}

func New(repo repository.Repository, accounts ports.AccountGuard, rehirer ports.Rehirer, notifier ports.Notifier, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		rehirer:  rehirer,
		notifier: notifier,
		log:      log,
		now:      clock.Now,
	}
}

// SetRehirer wires the request module after both modules are built.
func (s *Service) SetRehirer(r ports.Rehirer) {
	s.rehirer = r
}

type actor int

const (
	actorProvider actor = iota
	actorClient
	actorEither
)

// step describes one lifecycle operation for transition.
type step struct {
	action domain.Action
	who    actor
	// guard runs after the state machine accepted a real change.
	guard func(svc domain.Service, now time.Time) error
	// fill sets the extra fields written with the change.
	fill func(t *repository.Transition, svc domain.Service)
	// write replaces the default ApplyTransition.
	write func(ctx context.Context, tx repository.Repository, t repository.Transition, svc domain.Service) error
}

// transition runs st against the service and reports whether anything changed.
func (s *Service) transition(ctx context.Context, userID, serviceID uuid.UUID, st step) (domain.Service, bool, error) {
	var (
		svc     domain.Service
		changed bool
	)
	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		current, err := tx.GetForUpdate(ctx, serviceID)
		if err != nil {
			return err
		}
		if err := authorize(current, userID, st.who); err != nil {
			return err
		}

		to, ok, err := domain.Transition(current.Status, st.action)
		if err != nil {
			return err
		}
		svc = current
		if !ok {
			return nil
		}

		now := s.now()
		if st.guard != nil {
			if err := st.guard(current, now); err != nil {
				return err
			}
		}
		t := repository.Transition{
			ServiceID: current.ID,
			From:      current.Status,
			To:        to,
			ActorID:   userID,
			At:        now,
		}
		if st.fill != nil {
			st.fill(&t, current)
		}
		write := func(ctx context.Context, tx repository.Repository, t repository.Transition, _ domain.Service) error {
			return tx.ApplyTransition(ctx, t)
		}
		if st.write != nil {
			write = st.write
		}
		if err := write(ctx, tx, t, current); err != nil {
			return err
		}

		svc.Status = to
		svc.UpdatedAt = now
		if t.CompletedAt != nil {
			svc.CompletedAt = t.CompletedAt
		}
		if t.WarrantyExpiresAt != nil {
			svc.WarrantyExpiresAt = t.WarrantyExpiresAt
		}
		if t.WarrantyClaimDescription != nil {
			svc.WarrantyClaimDescription = t.WarrantyClaimDescription
		}
		changed = true
		return nil
	})
	if err != nil {
		return domain.Service{}, false, err
	}
	if changed {
		s.log.Info("service status changed", "serviceId", svc.ID, "status", svc.Status, "actorId", userID)
	}
	return svc, changed, nil
}

func authorize(svc domain.Service, userID uuid.UUID, who actor) error {
	isProvider := svc.ProviderUserID != nil && *svc.ProviderUserID == userID
	switch who {
	case actorProvider:
		if !isProvider {
			return apperr.Forbidden("only the provider of this service may do this")
		}
	case actorClient:
		if svc.ClientID != userID {
			return apperr.Forbidden("only the client of this service may do this")
		}
	default:
		if !isProvider && svc.ClientID != userID {
			return apperr.Forbidden("not a participant of this service")
		}
	}
	return nil
}

// MarkOnRoute is a no-op when the provider is already on route.
func (s *Service) MarkOnRoute(ctx context.Context, userID, serviceID uuid.UUID) (transport.ServiceResponse, error) {
	svc, changed, err := s.transition(ctx, userID, serviceID, step{action: domain.ActionMarkOnRoute, who: actorProvider})
	if err != nil {
		return transport.ServiceResponse{}, err
	}
	if changed {
		s.notify(ctx, svc.ClientID, "Proveedor en camino", "El proveedor está en camino", svc)
	}
	return toResponse(svc), nil
}

// MarkInProgress starts the work. A service with a scheduled start cannot be
// started early.
func (s *Service) MarkInProgress(ctx context.Context, userID, serviceID uuid.UUID) (transport.ServiceResponse, error) {
	svc, changed, err := s.transition(ctx, userID, serviceID, step{
		action: domain.ActionMarkInProgress,
		who:    actorProvider,
		guard: func(svc domain.Service, now time.Time) error {
			if svc.ScheduledStartAt != nil && now.Before(*svc.ScheduledStartAt) {
				return apperr.Conflict("service cannot start before its scheduled start").
					WithDetails(map[string]time.Time{"scheduledStartAt": *svc.ScheduledStartAt})
			}
			return nil
		},
	})
	if err != nil {
		return transport.ServiceResponse{}, err
	}
	if changed {
		s.notify(ctx, svc.ClientID, "Servicio iniciado", "El proveedor comenzó el trabajo", svc)
	}
	return toResponse(svc), nil
}

// MarkCompleted finishes the work and opens the warranty window.
func (s *Service) MarkCompleted(ctx context.Context, userID, serviceID uuid.UUID) (transport.ServiceResponse, error) {
	svc, _, err := s.transition(ctx, userID, serviceID, step{
		action: domain.ActionMarkCompleted,
		who:    actorProvider,
		fill: func(t *repository.Transition, _ domain.Service) {
			completed := t.At
			expires := completed.Add(domain.WarrantyPeriod)
			t.CompletedAt = &completed
			t.WarrantyExpiresAt = &expires
		},
	})
	if err != nil {
		return transport.ServiceResponse{}, err
	}
	s.notify(ctx, svc.ClientID, "Servicio completado", "El proveedor marcó el servicio como completado", svc)
	return toResponse(svc), nil
}

// Cancel cancels the service and its request together. Either participant
// may cancel before the work starts; the other one is notified.
func (s *Service) Cancel(ctx context.Context, userID, serviceID uuid.UUID) (transport.ServiceResponse, error) {
	svc, _, err := s.transition(ctx, userID, serviceID, step{
		action: domain.ActionCancel,
		who:    actorEither,
		write: func(ctx context.Context, tx repository.Repository, t repository.Transition, svc domain.Service) error {
			return tx.CancelWithRequest(ctx, t, svc.RequestID)
		},
	})
	if err != nil {
		return transport.ServiceResponse{}, err
	}

	counterpart := svc.ProviderUserID
	if svc.ClientID != userID {
		counterpart = &svc.ClientID
	}
	if counterpart != nil {
		s.notify(ctx, *counterpart, "Servicio cancelado", "El servicio fue cancelado", svc)
	}
	return toResponse(svc), nil
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, title, body string, svc domain.Service) {
	s.send(ctx, userID, title, body, map[string]string{
		"serviceId": svc.ID.String(),
		"requestId": svc.RequestID.String(),
		"status":    string(svc.Status),
	})
}

func (s *Service) send(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, title, body, data); err != nil {
		s.log.WithContext(ctx).SideEffectFailed("notify", err, "userId", userID, "title", title)
	}
}

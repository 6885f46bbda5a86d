package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	proposaldomain "marketplace_backend/internal/proposals/domain"
	"marketplace_backend/internal/requests/domain"
	"marketplace_backend/internal/requests/repository"
	"marketplace_backend/internal/requests/transport"
	servicedomain "marketplace_backend/internal/services/domain"
	"marketplace_backend/platform/apperr"
)

// ConfirmPayment accepts one proposal and creates the service. The request
// row and its proposals are locked for the whole transaction, so concurrent
// confirmations serialize and the loser sees the existing service.
func (s *Service) ConfirmPayment(ctx context.Context, clientID, requestID uuid.UUID, req transport.ConfirmPaymentRequest) (transport.RequestResponse, error) {
	if err := s.accounts.RequireActiveClient(ctx, clientID); err != nil {
		return transport.RequestResponse{}, err
	}

	var (
		sr     domain.ServiceRequest
		winner proposaldomain.Proposal
		svc    servicedomain.Service
	)
	err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		current, err := tx.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if current.ClientID != clientID {
			return apperr.Forbidden("request belongs to another client")
		}

		existing, err := tx.GetService(ctx, requestID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("payment already confirmed for this request").
				WithDetails(map[string]string{"serviceId": existing.ID.String()})
		}
		if !domain.CanConfirmPayment(current.Status) {
			return apperr.Conflict("request does not accept payments in status " + string(current.Status)).
				WithDetails(map[string]string{"status": string(current.Status)})
		}

		proposals, err := tx.ListProposalsForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		chosen, rejected, err := selectWinner(proposals, req.ProposalID)
		if err != nil {
			return err
		}

		now := s.now()
		svc, err = s.buildService(ctx, current, chosen, now)
		if err != nil {
			return err
		}
		if err := tx.ConfirmPayment(ctx, repository.Confirmation{
			RequestID:           current.ID,
			ExpectedVersion:     current.Version,
			AcceptedProposalID:  chosen.ID,
			RejectedProposalIDs: rejected,
			Service:             svc,
			ActorID:             clientID,
			At:                  now,
		}); err != nil {
			return err
		}

		sr = current
		sr.Status = domain.StatusClosed
		sr.Version = current.Version + 1
		sr.UpdatedAt = now
		winner = chosen
		return nil
	})
	if err != nil {
		return transport.RequestResponse{}, err
	}

	s.log.Info("payment confirmed", "requestId", sr.ID, "serviceId", svc.ID, "proposalId", winner.ID,
		"totalPriceCents", svc.TotalPriceCents)
	if winner.ProviderUserID != nil {
		s.notify(ctx, *winner.ProviderUserID, "Propuesta aceptada",
			"El cliente confirmó el pago de \""+sr.Title+"\"", map[string]string{
				"requestId": sr.ID.String(),
				"serviceId": svc.ID.String(),
			})
	}
	return s.loadAggregate(ctx, sr, nil, viewAsOwner)
}

// selectWinner picks the chosen proposal and the ids to reject. Orphaned
// proposals cannot win and are left untouched; proposals that are already
// terminal stay as they are.
func selectWinner(proposals []proposaldomain.Proposal, chosenID uuid.UUID) (proposaldomain.Proposal, []uuid.UUID, error) {
	if len(proposals) == 0 {
		return proposaldomain.Proposal{}, nil, apperr.Conflict("request has no proposals to accept")
	}

	var (
		chosen proposaldomain.Proposal
		found  bool
	)
	for _, p := range proposals {
		if p.ID == chosenID {
			chosen, found = p, true
			break
		}
	}
	if !found {
		return proposaldomain.Proposal{}, nil, apperr.NotFound("proposal not found for this request")
	}
	if chosen.IsOrphan() {
		return proposaldomain.Proposal{}, nil, apperr.Conflict("the provider of this proposal is no longer available, choose another proposal")
	}
	if !chosen.Status.IsSelectable() {
		return proposaldomain.Proposal{}, nil, apperr.Conflict("proposal cannot be accepted in status " + string(chosen.Status)).
			WithDetails(map[string]string{"status": string(chosen.Status)})
	}

	var rejected []uuid.UUID
	for _, p := range proposals {
		if p.ID == chosen.ID || p.IsOrphan() || p.Status.IsTerminal() {
			continue
		}
		rejected = append(rejected, p.ID)
	}
	return chosen, rejected, nil
}

// buildService derives the service row from the request and the winning
// proposal. FAST requests start at confirmation time; the others keep the
// proposed start.
func (s *Service) buildService(ctx context.Context, sr domain.ServiceRequest, p proposaldomain.Proposal, now time.Time) (servicedomain.Service, error) {
	svc := servicedomain.Service{
		ID:              uuid.New(),
		RequestID:       sr.ID,
		ProposalID:      p.ID,
		ClientID:        sr.ClientID,
		ProviderID:      p.ProviderID,
		ProviderUserID:  p.ProviderUserID,
		ScheduledEndAt:  p.ProposedEndAt,
		Status:          servicedomain.StatusConfirmed,
		TotalPriceCents: servicedomain.TotalPriceCents(p.QuotedPriceCents),
		Currency:        p.Currency,
		ParentServiceID: sr.OriginServiceID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if sr.Type == domain.TypeFast {
		start := now
		svc.ScheduledStartAt = &start
	} else {
		svc.ScheduledStartAt = p.ProposedStartAt
	}

	if sr.AddressID != nil {
		snapshot := &servicedomain.AddressSnapshot{
			AddressID: sr.AddressID,
			City:      sr.City,
			Latitude:  sr.Latitude,
			Longitude: sr.Longitude,
		}
		a, err := s.addresses.GetAddress(ctx, *sr.AddressID)
		switch {
		case err == nil:
			snapshot.Street = a.Street
		case !apperr.Is(err, apperr.KindNotFound):
			return servicedomain.Service{}, err
		}
		svc.AddressSnapshot = snapshot
	}
	return svc, nil
}

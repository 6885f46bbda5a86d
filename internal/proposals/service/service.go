// Package service implements the proposal ledger: submission with
// versioning, withdrawal, listing and expiry.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"marketplace_backend/internal/proposals/domain"
	"marketplace_backend/internal/proposals/ports"
	"marketplace_backend/internal/proposals/repository"
	"marketplace_backend/internal/proposals/transport"
	requestdomain "marketplace_backend/internal/requests/domain"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/clock"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/sanitize"
)

type Service struct {
	repo      repository.Repository
	providers ports.ProviderResolver
	notifier  ports.Notifier
	log       *logger.Logger
	now       clock.Clock
}

func New(repo repository.Repository, providers ports.ProviderResolver, notifier ports.Notifier, log *logger.Logger) *Service {
	return &Service{repo: repo, providers: providers, notifier: notifier, log: log, now: clock.Now}
}

// Submit stores a bid. A provider resubmitting on the same request gets the
// next version and its earlier pending versions are withdrawn.
func (s *Service) Submit(ctx context.Context, userID, requestID uuid.UUID, req transport.SubmitProposalRequest) (transport.ProposalResponse, error) {
	provider, err := s.providers.ActiveProvider(ctx, userID)
	if err != nil {
		return transport.ProposalResponse{}, err
	}

	now := s.now()
	draft, err := domain.Draft{
		QuotedPriceCents: req.QuotedPriceCents,
		Currency:         req.Currency,
		ProposedStartAt:  clock.NaivePtr(req.ProposedStartAt),
		ProposedEndAt:    clock.NaivePtr(req.ProposedEndAt),
		ValidUntil:       clock.NaivePtr(req.ValidUntil),
		Notes:            sanitize.Text(req.Notes),
	}.Normalize(now)
	if err != nil {
		return transport.ProposalResponse{}, err
	}

	var (
		created  domain.Proposal
		clientID uuid.UUID
	)
	err = s.repo.WithTx(ctx, func(tx repository.Repository) error {
		request, err := tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if err := checkBiddable(request, provider.ID, now); err != nil {
			return err
		}
		clientID = request.ClientID

		existing, err := tx.ListByRequestAndProvider(ctx, requestID, provider.ID)
		if err != nil {
			return err
		}
		if _, err := tx.WithdrawPending(ctx, requestID, provider.ID, now); err != nil {
			return err
		}

		providerID := provider.ID
		providerUserID := provider.UserID
		created = domain.Proposal{
			ID:               uuid.New(),
			RequestID:        requestID,
			ProviderID:       &providerID,
			ProviderUserID:   &providerUserID,
			ProviderName:     provider.DisplayName,
			Version:          domain.NextVersion(existing),
			QuotedPriceCents: draft.QuotedPriceCents,
			Currency:         draft.Currency,
			Status:           domain.StatusPending,
			ProposedStartAt:  draft.ProposedStartAt,
			ProposedEndAt:    draft.ProposedEndAt,
			ValidUntil:       *draft.ValidUntil,
			Notes:            draft.Notes,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		return tx.Create(ctx, created)
	})
	if err != nil {
		return transport.ProposalResponse{}, err
	}

	s.log.Info("proposal submitted", "proposalId", created.ID, "requestId", requestID, "version", created.Version)
	s.notify(ctx, clientID, "Nueva propuesta", provider.DisplayName+" envió una propuesta para tu solicitud", map[string]string{
		"requestId":  requestID.String(),
		"proposalId": created.ID.String(),
	})
	return ToResponse(created), nil
}

func checkBiddable(request repository.RequestRef, providerID uuid.UUID, now time.Time) error {
	if request.Status != requestdomain.StatusPublished {
		return apperr.Conflict("request is not open for proposals").
			WithDetails(map[string]string{"status": string(request.Status)})
	}
	switch request.Type {
	case requestdomain.TypeLicitacion:
		if request.BiddingDeadline != nil && now.After(*request.BiddingDeadline) {
			return apperr.Conflict("bidding deadline has passed")
		}
	case requestdomain.TypeRecontratacion:
		if request.TargetProviderID == nil || *request.TargetProviderID != providerID {
			return apperr.Forbidden("only the rehired provider may bid on this request")
		}
	}
	return nil
}

// Withdraw retracts one of the caller's pending proposals.
func (s *Service) Withdraw(ctx context.Context, userID, proposalID uuid.UUID) (transport.ProposalResponse, error) {
	provider, err := s.providers.ActiveProvider(ctx, userID)
	if err != nil {
		return transport.ProposalResponse{}, err
	}

	var updated domain.Proposal
	err = s.repo.WithTx(ctx, func(tx repository.Repository) error {
		p, err := tx.GetForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}
		if p.ProviderID == nil || *p.ProviderID != provider.ID {
			return apperr.Forbidden("proposal belongs to another provider")
		}
		if p.Status != domain.StatusPending {
			return apperr.Conflict("only pending proposals can be withdrawn").
				WithDetails(map[string]string{"status": string(p.Status)})
		}
		now := s.now()
		if err := tx.UpdateStatus(ctx, p.ID, domain.StatusWithdrawn, now); err != nil {
			return err
		}
		p.Status = domain.StatusWithdrawn
		p.UpdatedAt = now
		updated = p
		return nil
	})
	if err != nil {
		return transport.ProposalResponse{}, err
	}
	return ToResponse(updated), nil
}

// ListForRequest shows the request owner every proposal and a provider only
// its own.
func (s *Service) ListForRequest(ctx context.Context, userID, requestID uuid.UUID) (transport.ProposalListResponse, error) {
	request, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return transport.ProposalListResponse{}, err
	}

	if request.ClientID == userID {
		items, err := s.repo.ListByRequest(ctx, requestID)
		if err != nil {
			return transport.ProposalListResponse{}, err
		}
		return toListResponse(items), nil
	}

	provider, err := s.providers.ActiveProvider(ctx, userID)
	if err != nil {
		return transport.ProposalListResponse{}, apperr.Forbidden("not allowed to view these proposals")
	}
	items, err := s.repo.ListByRequestAndProvider(ctx, requestID, provider.ID)
	if err != nil {
		return transport.ProposalListResponse{}, err
	}
	return toListResponse(items), nil
}

// ListMine returns the caller's proposals across all requests.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) (transport.ProposalListResponse, error) {
	provider, err := s.providers.ActiveProvider(ctx, userID)
	if err != nil {
		return transport.ProposalListResponse{}, err
	}
	items, err := s.repo.ListByProvider(ctx, provider.ID)
	if err != nil {
		return transport.ProposalListResponse{}, err
	}
	return toListResponse(items), nil
}

// ExpireDue marks lapsed pending proposals as expired and tells their
// providers. It returns how many were expired.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	expired, err := s.repo.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, e := range expired {
		if e.ProviderUserID == nil {
			continue
		}
		s.notify(ctx, *e.ProviderUserID, "Propuesta vencida", "Tu propuesta venció sin ser aceptada", map[string]string{
			"requestId":  e.RequestID.String(),
			"proposalId": e.ID.String(),
		})
	}
	if len(expired) > 0 {
		s.log.Info("proposals expired", "count", len(expired))
	}
	return len(expired), nil
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, title, body, data); err != nil {
		s.log.WithContext(ctx).SideEffectFailed("notify", err, "userId", userID, "title", title)
	}
}

func toListResponse(items []domain.Proposal) transport.ProposalListResponse {
	resp := transport.ProposalListResponse{Items: make([]transport.ProposalResponse, 0, len(items))}
	for _, p := range items {
		resp.Items = append(resp.Items, ToResponse(p))
	}
	return resp
}

// ToResponse maps a proposal onto its wire shape.
func ToResponse(p domain.Proposal) transport.ProposalResponse {
	return transport.ProposalResponse{
		ID:               p.ID,
		RequestID:        p.RequestID,
		ProviderID:       p.ProviderID,
		ProviderName:     p.ProviderName,
		Version:          p.Version,
		QuotedPriceCents: p.QuotedPriceCents,
		Currency:         p.Currency,
		Status:           string(p.Status),
		ProposedStartAt:  p.ProposedStartAt,
		ProposedEndAt:    p.ProposedEndAt,
		ValidUntil:       p.ValidUntil,
		Notes:            p.Notes,
		CreatedAt:        p.CreatedAt,
	}
}

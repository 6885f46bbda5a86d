package service

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	proposaldomain "marketplace_backend/internal/proposals/domain"
	"marketplace_backend/internal/requests/domain"
	"marketplace_backend/internal/requests/ports"
	"marketplace_backend/internal/requests/repository"
	"marketplace_backend/internal/requests/transport"
	servicedomain "marketplace_backend/internal/services/domain"
	"marketplace_backend/platform/apperr"
)

const openPageSize = 50

// viewer decides which proposals of a request the caller may see.
type viewer struct {
	owner      bool
	providerID uuid.UUID
}

var viewAsOwner = viewer{owner: true}

func (v viewer) sees(p proposaldomain.Proposal) bool {
	return v.owner || (p.ProviderID != nil && *p.ProviderID == v.providerID)
}

// Get returns the aggregate to the owner, or to a provider when the request
// is open for bidding or the provider is involved in it.
func (s *Service) Get(ctx context.Context, userID, requestID uuid.UUID) (transport.RequestResponse, error) {
	sr, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return transport.RequestResponse{}, err
	}
	if sr.ClientID == userID {
		return s.loadAggregate(ctx, sr, nil, viewAsOwner)
	}

	providerID, err := s.accounts.ActiveProviderID(ctx, userID)
	if err != nil {
		return transport.RequestResponse{}, apperr.Forbidden("not allowed to view this request")
	}
	involved, err := s.repo.ProviderInvolved(ctx, requestID, providerID)
	if err != nil {
		return transport.RequestResponse{}, err
	}
	openToAll := sr.Status == domain.StatusPublished && sr.Type != domain.TypeRecontratacion
	if !involved && !openToAll {
		return transport.RequestResponse{}, apperr.Forbidden("not allowed to view this request")
	}
	return s.loadAggregate(ctx, sr, nil, viewer{providerID: providerID})
}

// ListMine lists the caller's requests, newest first.
func (s *Service) ListMine(ctx context.Context, clientID uuid.UUID) (transport.RequestListResponse, error) {
	items, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return transport.RequestListResponse{}, err
	}
	return toListResponse(items), nil
}

// ListOpen lists published requests the calling provider can bid on.
func (s *Service) ListOpen(ctx context.Context, userID uuid.UUID, page int) (transport.RequestListResponse, error) {
	providerID, err := s.accounts.ActiveProviderID(ctx, userID)
	if err != nil {
		return transport.RequestListResponse{}, err
	}
	if page < 1 {
		page = 1
	}
	items, err := s.repo.ListOpen(ctx, repository.OpenFilter{
		ProviderID: providerID,
		Now:        s.now(),
		Limit:      openPageSize,
		Offset:     (page - 1) * openPageSize,
	})
	if err != nil {
		return transport.RequestListResponse{}, err
	}
	return toListResponse(items), nil
}

// loadAggregate reads the related rows concurrently after commit. address
// may be passed when the caller already resolved it.
func (s *Service) loadAggregate(ctx context.Context, sr domain.ServiceRequest, address *ports.Address, v viewer) (transport.RequestResponse, error) {
	var (
		images    []domain.Image
		tags      []domain.TagLink
		proposals []proposaldomain.Proposal
		summary   *repository.ServiceSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		images, err = s.repo.ListImages(gctx, sr.ID)
		return err
	})
	g.Go(func() error {
		var err error
		tags, err = s.repo.ListTags(gctx, sr.ID)
		return err
	})
	g.Go(func() error {
		var err error
		proposals, err = s.repo.ListProposals(gctx, sr.ID)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = s.repo.GetService(gctx, sr.ID)
		return err
	})
	if address == nil && sr.AddressID != nil {
		g.Go(func() error {
			a, err := s.addresses.GetAddress(gctx, *sr.AddressID)
			if err != nil {
				if apperr.Is(err, apperr.KindNotFound) {
					return nil
				}
				return err
			}
			address = &a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return transport.RequestResponse{}, err
	}

	resp := toResponse(sr)
	if address != nil {
		resp.Address = &transport.AddressResponse{
			ID:        address.ID,
			Label:     address.Label,
			Street:    address.Street,
			City:      address.City,
			Latitude:  address.Latitude,
			Longitude: address.Longitude,
		}
	}
	for _, img := range images {
		resp.Images = append(resp.Images, transport.ImageResponse{
			ID:          img.ID,
			StorageKey:  img.StorageKey,
			ContentType: img.ContentType,
			Position:    img.Position,
		})
	}
	for _, t := range tags {
		resp.Tags = append(resp.Tags, transport.TagResponse{
			ID:         t.TagID,
			Slug:       t.Slug,
			Name:       t.Name,
			Confidence: t.Confidence,
			Source:     string(t.Source),
		})
	}
	for _, p := range proposals {
		if !v.sees(p) {
			continue
		}
		resp.Proposals = append(resp.Proposals, toProposalResponse(p))
	}
	if summary != nil {
		resp.Service = &transport.ServiceSummaryResponse{
			ID:               summary.ID,
			Status:           string(summary.Status),
			ProviderID:       summary.ProviderID,
			TotalPriceCents:  summary.TotalPriceCents,
			TotalPrice:       servicedomain.FormatCents(summary.TotalPriceCents),
			Currency:         summary.Currency,
			ScheduledStartAt: summary.ScheduledStartAt,
			ScheduledEndAt:   summary.ScheduledEndAt,
		}
	}
	return resp, nil
}

func toResponse(sr domain.ServiceRequest) transport.RequestResponse {
	return transport.RequestResponse{
		ID:               sr.ID,
		ClientID:         sr.ClientID,
		Title:            sr.Title,
		Description:      sr.Description,
		RequestType:      string(sr.Type),
		Status:           string(sr.Status),
		City:             sr.City,
		Latitude:         sr.Latitude,
		Longitude:        sr.Longitude,
		PreferredStartAt: sr.PreferredStartAt,
		PreferredEndAt:   sr.PreferredEndAt,
		BiddingDeadline:  sr.BiddingDeadline,
		TargetProviderID: sr.TargetProviderID,
		OriginServiceID:  sr.OriginServiceID,
		Version:          sr.Version,
		CreatedAt:        sr.CreatedAt,
		UpdatedAt:        sr.UpdatedAt,
		Images:           []transport.ImageResponse{},
		Tags:             []transport.TagResponse{},
		Proposals:        []transport.ProposalResponse{},
	}
}

func toProposalResponse(p proposaldomain.Proposal) transport.ProposalResponse {
	return transport.ProposalResponse{
		ID:               p.ID,
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
		Selectable:       !p.IsOrphan() && p.Status.IsSelectable(),
	}
}

func toListResponse(items []domain.ServiceRequest) transport.RequestListResponse {
	resp := transport.RequestListResponse{Items: make([]transport.RequestSummary, 0, len(items))}
	for _, sr := range items {
		resp.Items = append(resp.Items, transport.RequestSummary{
			ID:              sr.ID,
			Title:           sr.Title,
			RequestType:     string(sr.Type),
			Status:          string(sr.Status),
			City:            sr.City,
			BiddingDeadline: sr.BiddingDeadline,
			CreatedAt:       sr.CreatedAt,
		})
	}
	return resp
}

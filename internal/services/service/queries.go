package service

import (
	"context"

	"github.com/google/uuid"

	"marketplace_backend/internal/services/domain"
	"marketplace_backend/internal/services/transport"
	"marketplace_backend/platform/apperr"
)

// Get returns a service to its client or provider.
func (s *Service) Get(ctx context.Context, userID, serviceID uuid.UUID) (transport.ServiceResponse, error) {
	svc, err := s.repo.GetByID(ctx, serviceID)
	if err != nil {
		return transport.ServiceResponse{}, err
	}
	if !svc.IsParticipant(userID) {
		return transport.ServiceResponse{}, apperr.Forbidden("not a participant of this service")
	}
	return toResponse(svc), nil
}

// History returns the status changes of a service, oldest first.
func (s *Service) History(ctx context.Context, userID, serviceID uuid.UUID) (transport.HistoryResponse, error) {
	svc, err := s.repo.GetByID(ctx, serviceID)
	if err != nil {
		return transport.HistoryResponse{}, err
	}
	if !svc.IsParticipant(userID) {
		return transport.HistoryResponse{}, apperr.Forbidden("not a participant of this service")
	}
	rows, err := s.repo.History(ctx, serviceID)
	if err != nil {
		return transport.HistoryResponse{}, err
	}

	resp := transport.HistoryResponse{Items: make([]transport.HistoryEntry, 0, len(rows))}
	for _, h := range rows {
		entry := transport.HistoryEntry{
			ID:        h.ID,
			ToStatus:  string(h.ToStatus),
			ActorID:   h.ActorID,
			ChangedAt: h.ChangedAt,
		}
		if h.FromStatus != nil {
			from := string(*h.FromStatus)
			entry.FromStatus = &from
		}
		resp.Items = append(resp.Items, entry)
	}
	return resp, nil
}

// ListMine lists the services the caller takes part in.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) (transport.ServiceListResponse, error) {
	items, err := s.repo.ListByParticipant(ctx, userID)
	if err != nil {
		return transport.ServiceListResponse{}, err
	}
	resp := transport.ServiceListResponse{Items: make([]transport.ServiceResponse, 0, len(items))}
	for _, svc := range items {
		resp.Items = append(resp.Items, toResponse(svc))
	}
	return resp, nil
}

func toResponse(svc domain.Service) transport.ServiceResponse {
	resp := transport.ServiceResponse{
		ID:                       svc.ID,
		RequestID:                svc.RequestID,
		ProposalID:               svc.ProposalID,
		ClientID:                 svc.ClientID,
		ProviderID:               svc.ProviderID,
		Status:                   string(svc.Status),
		TotalPriceCents:          svc.TotalPriceCents,
		TotalPrice:               domain.FormatCents(svc.TotalPriceCents),
		Currency:                 svc.Currency,
		ScheduledStartAt:         svc.ScheduledStartAt,
		ScheduledEndAt:           svc.ScheduledEndAt,
		CompletedAt:              svc.CompletedAt,
		WarrantyExpiresAt:        svc.WarrantyExpiresAt,
		WarrantyClaimDescription: svc.WarrantyClaimDescription,
		ParentServiceID:          svc.ParentServiceID,
		CreatedAt:                svc.CreatedAt,
		UpdatedAt:                svc.UpdatedAt,
	}
	if a := svc.AddressSnapshot; a != nil {
		resp.Address = &transport.AddressSnapshotResponse{
			AddressID: a.AddressID,
			Street:    a.Street,
			City:      a.City,
			Latitude:  a.Latitude,
			Longitude: a.Longitude,
		}
	}
	return resp
}

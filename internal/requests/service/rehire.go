package service

import (
	"context"

	"github.com/google/uuid"

	"marketplace_backend/internal/events"
	"marketplace_backend/internal/requests/domain"
	"marketplace_backend/internal/requests/repository"
	"marketplace_backend/internal/requests/transport"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/sanitize"
)

// RehireInput describes a repeat hire of the provider of a completed service.
// The location fields are used when the original request is gone.
type RehireInput struct {
	ClientID         uuid.UUID
	OriginServiceID  uuid.UUID
	OriginRequestID  uuid.UUID
	TargetProviderID uuid.UUID
	Description      *string
	AddressID        *uuid.UUID
	City             *string
	Latitude         *float64
	Longitude        *float64
}

// CreateRehire opens a RECONTRATACION request for the same provider. It is
// not auto-tagged. Ownership and service status are checked by the caller.
func (s *Service) CreateRehire(ctx context.Context, in RehireInput) (transport.RequestResponse, error) {
	now := s.now()
	sr := domain.ServiceRequest{
		ID:               uuid.New(),
		ClientID:         in.ClientID,
		AddressID:        in.AddressID,
		City:             in.City,
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		Type:             domain.TypeRecontratacion,
		Status:           domain.StatusPublished,
		TargetProviderID: &in.TargetProviderID,
		OriginServiceID:  &in.OriginServiceID,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var description string
	origin, err := s.repo.GetByID(ctx, in.OriginRequestID)
	switch {
	case err == nil:
		sr.AddressID = origin.AddressID
		sr.City = origin.City
		sr.Latitude = origin.Latitude
		sr.Longitude = origin.Longitude
		description = origin.Description
	case !apperr.Is(err, apperr.KindNotFound):
		return transport.RequestResponse{}, err
	}
	if in.Description != nil {
		if d := sanitize.Text(*in.Description); d != "" {
			description = d
		}
	}
	if description == "" {
		return transport.RequestResponse{}, apperr.Validation("description is required")
	}
	sr.Description = description
	sr.Title = domain.ResolveTitle(nil, description, sr.Type)

	if err := s.repo.WithTx(ctx, func(tx repository.Repository) error {
		return tx.Create(ctx, sr)
	}); err != nil {
		return transport.RequestResponse{}, err
	}

	s.log.Info("rehire request created", "requestId", sr.ID, "originServiceId", in.OriginServiceID)
	s.eventBus.Publish(ctx, events.ServiceRequestCreated{
		BaseEvent:   events.NewBaseEvent(now),
		RequestID:   sr.ID,
		ClientID:    sr.ClientID,
		RequestType: string(sr.Type),
		SkipTagging: true,
	})
	return s.loadAggregate(ctx, sr, nil, viewAsOwner)
}

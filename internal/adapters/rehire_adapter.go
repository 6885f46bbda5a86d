package adapters

import (
	"context"

	requestservice "marketplace_backend/internal/requests/service"
	"marketplace_backend/internal/requests/transport"
	serviceports "marketplace_backend/internal/services/ports"
)

// RequestCreator is the rehire entry point of the requests module.
type RequestCreator interface {
	CreateRehire(ctx context.Context, in requestservice.RehireInput) (transport.RequestResponse, error)
}

// Rehirer lets the services module open RECONTRATACION requests.
type Rehirer struct {
	requests RequestCreator
}

func NewRehirer(requests RequestCreator) *Rehirer {
	return &Rehirer{requests: requests}
}

func (r *Rehirer) CreateRehire(ctx context.Context, req serviceports.RehireRequest) (serviceports.RehireResult, error) {
	created, err := r.requests.CreateRehire(ctx, requestservice.RehireInput{
		ClientID:         req.ClientID,
		OriginServiceID:  req.OriginServiceID,
		OriginRequestID:  req.OriginRequestID,
		TargetProviderID: req.TargetProviderID,
		Description:      req.Description,
		AddressID:        req.AddressID,
		City:             req.City,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
	})
	if err != nil {
		return serviceports.RehireResult{}, err
	}
	return serviceports.RehireResult{RequestID: created.ID, Title: created.Title}, nil
}

var _ serviceports.Rehirer = (*Rehirer)(nil)

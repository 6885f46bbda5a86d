package service

import (
	"context"

	"github.com/google/uuid"

	"marketplace_backend/internal/addresses/repository"
	"marketplace_backend/internal/addresses/transport"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/phone"
	"marketplace_backend/platform/sanitize"
)

type Service struct {
	repo repository.Repository
}

func New(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

// GetActiveAddress is the lookup used by request creation.
func (s *Service) GetActiveAddress(ctx context.Context, userID, addressID uuid.UUID) (repository.Address, error) {
	return s.repo.GetActiveAddress(ctx, userID, addressID)
}

// GetByID returns an address regardless of owner or state.
func (s *Service) GetByID(ctx context.Context, addressID uuid.UUID) (repository.Address, error) {
	return s.repo.GetByID(ctx, addressID)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) (transport.AddressListResponse, error) {
	items, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return transport.AddressListResponse{}, err
	}
	resp := transport.AddressListResponse{Items: make([]transport.AddressResponse, 0, len(items))}
	for _, a := range items {
		resp.Items = append(resp.Items, toResponse(a))
	}
	return resp, nil
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, req transport.CreateAddressRequest) (transport.AddressResponse, error) {
	var contactPhone *string
	if req.ContactPhone != nil {
		normalized, ok := phone.ParseE164(*req.ContactPhone)
		if !ok {
			return transport.AddressResponse{}, apperr.Validation("invalid contact phone").
				WithDetails(map[string]string{"contactPhone": *req.ContactPhone})
		}
		contactPhone = &normalized
	}

	a, err := s.repo.Create(ctx, repository.CreateParams{
		UserID:       userID,
		Label:        sanitize.Text(req.Label),
		Street:       sanitize.Text(req.Street),
		City:         sanitize.Text(req.City),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		ContactPhone: contactPhone,
	})
	if err != nil {
		return transport.AddressResponse{}, err
	}
	return toResponse(a), nil
}

// Deactivate hides an address from new requests. Existing requests keep
// their snapshot.
func (s *Service) Deactivate(ctx context.Context, userID, addressID uuid.UUID) error {
	return s.repo.Deactivate(ctx, userID, addressID)
}

func toResponse(a repository.Address) transport.AddressResponse {
	return transport.AddressResponse{
		ID:           a.ID,
		Label:        a.Label,
		Street:       a.Street,
		City:         a.City,
		Latitude:     a.Latitude,
		Longitude:    a.Longitude,
		ContactPhone: a.ContactPhone,
	}
}

package adapters

import (
	"context"

	"github.com/google/uuid"

	addressrepo "marketplace_backend/internal/addresses/repository"
	requestports "marketplace_backend/internal/requests/ports"
)

// AddressReader is the part of the addresses service requests need.
type AddressReader interface {
	GetActiveAddress(ctx context.Context, userID, addressID uuid.UUID) (addressrepo.Address, error)
	GetByID(ctx context.Context, addressID uuid.UUID) (addressrepo.Address, error)
}

// RequestAddressLookup adapts the addresses module for request snapshots.
type RequestAddressLookup struct {
	addresses AddressReader
}

func NewRequestAddressLookup(addresses AddressReader) *RequestAddressLookup {
	return &RequestAddressLookup{addresses: addresses}
}

func (a *RequestAddressLookup) GetActiveAddress(ctx context.Context, userID, addressID uuid.UUID) (requestports.Address, error) {
	addr, err := a.addresses.GetActiveAddress(ctx, userID, addressID)
	if err != nil {
		return requestports.Address{}, err
	}
	return toRequestAddress(addr), nil
}

func (a *RequestAddressLookup) GetAddress(ctx context.Context, addressID uuid.UUID) (requestports.Address, error) {
	addr, err := a.addresses.GetByID(ctx, addressID)
	if err != nil {
		return requestports.Address{}, err
	}
	return toRequestAddress(addr), nil
}

func toRequestAddress(addr addressrepo.Address) requestports.Address {
	return requestports.Address{
		ID:        addr.ID,
		Label:     addr.Label,
		Street:    addr.Street,
		City:      addr.City,
		Latitude:  addr.Latitude,
		Longitude: addr.Longitude,
	}
}

var _ requestports.AddressLookup = (*RequestAddressLookup)(nil)

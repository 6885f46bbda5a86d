package transport

import "github.com/google/uuid"

type CreateAddressRequest struct {
	Label        string   `json:"label" validate:"max=60"`
	Street       string   `json:"street" validate:"required,min=3,max=200"`
	City         string   `json:"city" validate:"required,min=2,max=100"`
	Latitude     *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	ContactPhone *string  `json:"contactPhone,omitempty" validate:"omitempty,max=30"`
}

type AddressResponse struct {
	ID           uuid.UUID `json:"id"`
	Label        string    `json:"label"`
	Street       string    `json:"street"`
	City         string    `json:"city"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	ContactPhone *string   `json:"contactPhone,omitempty"`
}

type AddressListResponse struct {
	Items []AddressResponse `json:"items"`
}

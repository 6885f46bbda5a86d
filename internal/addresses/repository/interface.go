package repository

import (
	"context"

	"github.com/google/uuid"
)

type Address struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Label     string
	Street    string
	City      string
	Latitude  *float64
	Longitude *float64
	// ContactPhone is E.164 formatted.
	ContactPhone *string
	IsActive     bool
}

type CreateParams struct {
	UserID       uuid.UUID
	Label        string
	Street       string
	City         string
	Latitude     *float64
	Longitude    *float64
	ContactPhone *string
}

type Repository interface {
	// GetActiveAddress returns NotFound unless the address exists, is active
	// and belongs to userID.
	GetActiveAddress(ctx context.Context, userID, addressID uuid.UUID) (Address, error)
	// GetByID ignores ownership and the active flag; used to rebuild snapshots.
	GetByID(ctx context.Context, addressID uuid.UUID) (Address, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]Address, error)
	Create(ctx context.Context, params CreateParams) (Address, error)
	Deactivate(ctx context.Context, userID, addressID uuid.UUID) error
}

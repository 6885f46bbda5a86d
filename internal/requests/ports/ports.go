// Package ports declares what the request lifecycle needs from the other
// modules. Implementations live in internal/adapters.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountGuard checks callers before any mutation.
type AccountGuard interface {
	// RequireActiveClient fails with forbidden unless userID is an active client.
	RequireActiveClient(ctx context.Context, userID uuid.UUID) error
	// ActiveProviderID returns the live provider profile of an active provider.
	ActiveProviderID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// Address is the part of a stored address a request snapshots.
type Address struct {
	ID        uuid.UUID
	Label     string
	Street    string
	City      string
	Latitude  *float64
	Longitude *float64
}

type AddressLookup interface {
	// GetActiveAddress fails with not-found unless the address exists, is
	// active and belongs to userID.
	GetActiveAddress(ctx context.Context, userID, addressID uuid.UUID) (Address, error)
	GetAddress(ctx context.Context, addressID uuid.UUID) (Address, error)
}

type TagCatalog interface {
	MissingTags(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) error
}

// ObjectStore issues upload URLs and checks uploaded attachments.
type ObjectStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (url string, expiresAt time.Time, err error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Package ports declares what the service lifecycle needs from other modules.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// AccountGuard rejects callers that are not active client accounts.
type AccountGuard interface {
	RequireActiveClient(ctx context.Context, userID uuid.UUID) error
}

// RehireRequest opens a repeat request for the provider of a completed
// service. The location fields are the service's snapshot, used when the
// original request no longer carries one.
type RehireRequest struct {
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

type RehireResult struct {
	RequestID uuid.UUID
	Title     string
}

// Rehirer creates RECONTRATACION requests.
type Rehirer interface {
	CreateRehire(ctx context.Context, req RehireRequest) (RehireResult, error)
}

// Notifier sends a best-effort notification to a user.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) error
}

// Package ports declares what the proposal ledger needs from other modules.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// ProviderRef is the live provider profile behind an account.
type ProviderRef struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	DisplayName string
}

// ProviderResolver returns the provider profile of an active provider
// account, or a forbidden error.
type ProviderResolver interface {
	ActiveProvider(ctx context.Context, userID uuid.UUID) (ProviderRef, error)
}

// Notifier sends a best-effort notification to a user.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) error
}

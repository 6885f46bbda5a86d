// Package ports declares what the tags module needs from other modules.
package ports

import (
	"context"

	"github.com/google/uuid"

	"marketplace_backend/internal/tags/agent"
)

// Suggester proposes professions for a free-text description.
type Suggester interface {
	SuggestTags(ctx context.Context, prompt string, existing []string) ([]agent.Suggestion, error)
}

// ProviderResolver returns the live provider profile id of an active
// provider account.
type ProviderResolver interface {
	ActiveProviderID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// Tagging targets accepted by AutoTagScheduler.
const (
	TargetRequest = "request"
	TargetLicense = "license"
)

// AutoTagScheduler hands tagging to the background worker.
type AutoTagScheduler interface {
	EnqueueAutoTag(ctx context.Context, target string, id uuid.UUID) error
}

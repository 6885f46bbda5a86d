package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"marketplace_backend/internal/services/domain"
)

// Transition is one committed status change plus the fields it sets.
// Nil pointers leave the stored value untouched.
type Transition struct {
	ServiceID                uuid.UUID
	From                     domain.Status
	To                       domain.Status
	ActorID                  uuid.UUID
	At                       time.Time
	CompletedAt              *time.Time
	WarrantyExpiresAt        *time.Time
	WarrantyClaimDescription *string
}

// ProviderRating is the running review aggregate of a provider.
type ProviderRating struct {
	Average domain.Rating
	Count   int
}

// ServiceReader provides read operations for services.
type ServiceReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Service, error)
	// GetForUpdate locks the service row until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Service, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID) ([]domain.Service, error)
	History(ctx context.Context, serviceID uuid.UUID) ([]domain.StatusChange, error)
}

// ServiceWriter applies status changes. Every write appends a history row.
type ServiceWriter interface {
	ApplyTransition(ctx context.Context, t Transition) error
	// CancelWithRequest cancels the service and its request together.
	CancelWithRequest(ctx context.Context, t Transition, requestID uuid.UUID) error
}

// ReviewStore keeps reviews and the provider rating aggregate.
type ReviewStore interface {
	HasReview(ctx context.Context, serviceID, raterID uuid.UUID) (bool, error)
	CreateReview(ctx context.Context, r domain.Review) error
	LockProviderRating(ctx context.Context, providerID uuid.UUID) (ProviderRating, error)
	UpdateProviderRating(ctx context.Context, providerID uuid.UUID, rating ProviderRating) error
}

// Repository combines all service repository operations.
type Repository interface {
	ServiceReader
	ServiceWriter
	ReviewStore
	WithTx(ctx context.Context, fn func(Repository) error) error
}

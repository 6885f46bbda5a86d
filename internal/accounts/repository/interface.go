package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Account is a marketplace user as seen by authorization checks.
type Account struct {
	ID       uuid.UUID
	Email    string
	FullName string
	Role     string
	IsActive bool
}

// ProviderProfile is the public face of a provider account.
type ProviderProfile struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	DisplayName  string
	RatingCents  int64 // average rating in hundredths
	TotalReviews int
	DeletedAt    *time.Time
}

// Repository reads accounts and provider profiles.
type Repository interface {
	GetAccount(ctx context.Context, userID uuid.UUID) (Account, error)
	GetProviderProfileByUser(ctx context.Context, userID uuid.UUID) (ProviderProfile, error)
	GetProviderProfile(ctx context.Context, profileID uuid.UUID) (ProviderProfile, error)
}

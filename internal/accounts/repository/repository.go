package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace_backend/platform/apperr"
)

const (
	accountNotFoundMessage  = "account not found"
	providerNotFoundMessage = "provider profile not found"
)

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

func (r *Repo) GetAccount(ctx context.Context, userID uuid.UUID) (Account, error) {
	query := `
		SELECT id, email, full_name, role, is_active
		FROM users
		WHERE id = $1`

	var a Account
	err := r.pool.QueryRow(ctx, query, userID).Scan(&a.ID, &a.Email, &a.FullName, &a.Role, &a.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, apperr.NotFound(accountNotFoundMessage)
		}
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (r *Repo) GetProviderProfileByUser(ctx context.Context, userID uuid.UUID) (ProviderProfile, error) {
	return r.getProfile(ctx, "user_id", userID)
}

func (r *Repo) GetProviderProfile(ctx context.Context, profileID uuid.UUID) (ProviderProfile, error) {
	return r.getProfile(ctx, "id", profileID)
}

func (r *Repo) getProfile(ctx context.Context, column string, id uuid.UUID) (ProviderProfile, error) {
	query := `
		SELECT id, user_id, display_name, (rating_avg * 100)::bigint, total_reviews, deleted_at
		FROM provider_profiles
		WHERE ` + column + ` = $1`

	var p ProviderProfile
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.UserID, &p.DisplayName, &p.RatingCents, &p.TotalReviews, &p.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProviderProfile{}, apperr.NotFound(providerNotFoundMessage)
		}
		return ProviderProfile{}, fmt.Errorf("get provider profile: %w", err)
	}
	return p, nil
}

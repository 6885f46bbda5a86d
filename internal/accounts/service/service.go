// Package service answers "who is calling" questions for the other modules.
package service

import (
	"context"

	"github.com/google/uuid"

	"marketplace_backend/internal/accounts/repository"
	"marketplace_backend/internal/accounts/transport"
	"marketplace_backend/platform/apperr"
)

type Service struct {
	repo repository.Repository
}

func New(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

// RequireActive loads the caller and checks the role and the active flag.
// A missing account is reported as forbidden so callers cannot probe ids.
func (s *Service) RequireActive(ctx context.Context, userID uuid.UUID, role string) (repository.Account, error) {
	acc, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return repository.Account{}, apperr.Forbidden("account not allowed")
		}
		return repository.Account{}, err
	}
	if !acc.IsActive {
		return repository.Account{}, apperr.Forbidden("account is inactive")
	}
	if role != "" && acc.Role != role {
		return repository.Account{}, apperr.Forbidden("only " + role + " accounts may do this")
	}
	return acc, nil
}

// RequireActiveProvider returns the live provider profile of the caller.
func (s *Service) RequireActiveProvider(ctx context.Context, userID uuid.UUID) (repository.ProviderProfile, error) {
	if _, err := s.RequireActive(ctx, userID, "provider"); err != nil {
		return repository.ProviderProfile{}, err
	}
	profile, err := s.repo.GetProviderProfileByUser(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return repository.ProviderProfile{}, apperr.Forbidden("provider profile missing")
		}
		return repository.ProviderProfile{}, err
	}
	if profile.DeletedAt != nil {
		return repository.ProviderProfile{}, apperr.Forbidden("provider profile deleted")
	}
	return profile, nil
}

// Account returns the account with the given id.
func (s *Service) Account(ctx context.Context, userID uuid.UUID) (repository.Account, error) {
	return s.repo.GetAccount(ctx, userID)
}

// ProviderProfile returns a profile by its id, deleted or not.
func (s *Service) ProviderProfile(ctx context.Context, profileID uuid.UUID) (repository.ProviderProfile, error) {
	return s.repo.GetProviderProfile(ctx, profileID)
}

// Me describes the caller, including the provider profile when there is one.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (transport.MeResponse, error) {
	acc, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		return transport.MeResponse{}, err
	}
	resp := transport.MeResponse{
		ID:       acc.ID,
		Email:    acc.Email,
		FullName: acc.FullName,
		Role:     acc.Role,
		IsActive: acc.IsActive,
	}
	if acc.Role != "provider" {
		return resp, nil
	}
	profile, err := s.repo.GetProviderProfileByUser(ctx, userID)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return transport.MeResponse{}, err
	}
	if err == nil && profile.DeletedAt == nil {
		resp.Provider = &transport.ProviderProfileResponse{
			ID:           profile.ID,
			DisplayName:  profile.DisplayName,
			RatingAvg:    float64(profile.RatingCents) / 100,
			TotalReviews: profile.TotalReviews,
		}
	}
	return resp, nil
}

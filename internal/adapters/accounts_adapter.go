// Package adapters connects the bounded contexts through their ports.
package adapters

import (
	"context"

	"github.com/google/uuid"

	accountsrepo "marketplace_backend/internal/accounts/repository"
	"marketplace_backend/internal/notification"
	proposalports "marketplace_backend/internal/proposals/ports"
	requestports "marketplace_backend/internal/requests/ports"
	serviceports "marketplace_backend/internal/services/ports"
	tagports "marketplace_backend/internal/tags/ports"
	"marketplace_backend/platform/httpkit"
)

// AccountReader is the part of the accounts service the adapters use.
type AccountReader interface {
	RequireActive(ctx context.Context, userID uuid.UUID, role string) (accountsrepo.Account, error)
	RequireActiveProvider(ctx context.Context, userID uuid.UUID) (accountsrepo.ProviderProfile, error)
	Account(ctx context.Context, userID uuid.UUID) (accountsrepo.Account, error)
}

// AccountDirectory answers caller checks for every module that needs them.
type AccountDirectory struct {
	accounts AccountReader
}

func NewAccountDirectory(accounts AccountReader) *AccountDirectory {
	return &AccountDirectory{accounts: accounts}
}

func (a *AccountDirectory) RequireActiveClient(ctx context.Context, userID uuid.UUID) error {
	_, err := a.accounts.RequireActive(ctx, userID, httpkit.RoleClient)
	return err
}

func (a *AccountDirectory) ActiveProviderID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	profile, err := a.accounts.RequireActiveProvider(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	return profile.ID, nil
}

func (a *AccountDirectory) ActiveProvider(ctx context.Context, userID uuid.UUID) (proposalports.ProviderRef, error) {
	profile, err := a.accounts.RequireActiveProvider(ctx, userID)
	if err != nil {
		return proposalports.ProviderRef{}, err
	}
	return proposalports.ProviderRef{
		ID:          profile.ID,
		UserID:      profile.UserID,
		DisplayName: profile.DisplayName,
	}, nil
}

// Recipient returns e-mail contact data. Inactive accounts get no e-mail.
func (a *AccountDirectory) Recipient(ctx context.Context, userID uuid.UUID) (notification.Recipient, error) {
	acc, err := a.accounts.Account(ctx, userID)
	if err != nil {
		return notification.Recipient{}, err
	}
	if !acc.IsActive {
		return notification.Recipient{}, nil
	}
	return notification.Recipient{Email: acc.Email, Name: acc.FullName}, nil
}

var (
	_ requestports.AccountGuard      = (*AccountDirectory)(nil)
	_ serviceports.AccountGuard      = (*AccountDirectory)(nil)
	_ proposalports.ProviderResolver = (*AccountDirectory)(nil)
	_ tagports.ProviderResolver      = (*AccountDirectory)(nil)
	_ notification.RecipientLookup   = (*AccountDirectory)(nil)
)

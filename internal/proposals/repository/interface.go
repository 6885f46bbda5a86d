// Package repository persists proposals.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"marketplace_backend/internal/proposals/domain"
	requestdomain "marketplace_backend/internal/requests/domain"
)

// RequestRef is the part of a service request the ledger checks bids against.
type RequestRef struct {
	ID               uuid.UUID
	ClientID         uuid.UUID
	Type             requestdomain.RequestType
	Status           requestdomain.Status
	BiddingDeadline  *time.Time
	TargetProviderID *uuid.UUID
}

// ExpiredProposal identifies a proposal moved to expired by the sweeper.
type ExpiredProposal struct {
	ID             uuid.UUID
	RequestID      uuid.UUID
	ProviderUserID *uuid.UUID
}

type Repository interface {
	// WithTx runs fn against a transactional copy of the repository.
	WithTx(ctx context.Context, fn func(Repository) error) error

	GetRequest(ctx context.Context, requestID uuid.UUID) (RequestRef, error)
	// LockRequest reads the request FOR UPDATE so bids and payment
	// confirmation on the same request serialize.
	LockRequest(ctx context.Context, requestID uuid.UUID) (RequestRef, error)

	GetByID(ctx context.Context, id uuid.UUID) (domain.Proposal, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Proposal, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]domain.Proposal, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]domain.Proposal, error)
	ListByRequestAndProvider(ctx context.Context, requestID, providerID uuid.UUID) ([]domain.Proposal, error)

	Create(ctx context.Context, p domain.Proposal) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, now time.Time) error
	// WithdrawPending withdraws every pending proposal of the provider on the request.
	WithdrawPending(ctx context.Context, requestID, providerID uuid.UUID, now time.Time) (int64, error)
	// ExpireDue expires pending proposals whose validity ended before now.
	ExpireDue(ctx context.Context, now time.Time) ([]ExpiredProposal, error)
}

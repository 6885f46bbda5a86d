// Package repository persists service requests, their attachments and tag
// links, and performs the multi-table writes of payment confirmation.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	proposaldomain "marketplace_backend/internal/proposals/domain"
	"marketplace_backend/internal/requests/domain"
	servicedomain "marketplace_backend/internal/services/domain"
)

// ServiceSummary is the confirmed service shown inside a request aggregate.
type ServiceSummary struct {
	ID               uuid.UUID
	Status           servicedomain.Status
	ProviderID       *uuid.UUID
	TotalPriceCents  int64
	Currency         string
	ScheduledStartAt *time.Time
	ScheduledEndAt   *time.Time
}

// StatusUpdate is a guarded change of status and/or type. The version must
// match for the write to apply.
type StatusUpdate struct {
	ID              uuid.UUID
	Status          domain.Status
	Type            domain.RequestType
	BiddingDeadline *time.Time
	ExpectedVersion int
	At              time.Time
}

// Confirmation carries every write of an accepted payment.
type Confirmation struct {
	RequestID           uuid.UUID
	ExpectedVersion     int
	AcceptedProposalID  uuid.UUID
	RejectedProposalIDs []uuid.UUID
	Service             servicedomain.Service
	ActorID             uuid.UUID
	At                  time.Time
}

// OpenFilter narrows the requests a provider may bid on.
type OpenFilter struct {
	ProviderID uuid.UUID
	Now        time.Time
	Limit      int
	Offset     int
}

type RequestReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.ServiceRequest, error)
	// GetForUpdate locks the request row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.ServiceRequest, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.ServiceRequest, error)
	ListOpen(ctx context.Context, filter OpenFilter) ([]domain.ServiceRequest, error)
	// ProviderInvolved reports whether the provider bid on or is targeted by the request.
	ProviderInvolved(ctx context.Context, requestID, providerID uuid.UUID) (bool, error)
}

type AggregateReader interface {
	ListImages(ctx context.Context, requestID uuid.UUID) ([]domain.Image, error)
	ListTags(ctx context.Context, requestID uuid.UUID) ([]domain.TagLink, error)
	ListProposals(ctx context.Context, requestID uuid.UUID) ([]proposaldomain.Proposal, error)
	// ListProposalsForUpdate locks every proposal of the request.
	ListProposalsForUpdate(ctx context.Context, requestID uuid.UUID) ([]proposaldomain.Proposal, error)
	CountProposals(ctx context.Context, requestID uuid.UUID) (int, error)
	// GetService returns nil when no service was confirmed for the request.
	GetService(ctx context.Context, requestID uuid.UUID) (*ServiceSummary, error)
}

type RequestWriter interface {
	Create(ctx context.Context, r domain.ServiceRequest) error
	AddImages(ctx context.Context, images []domain.Image) error
	LinkTags(ctx context.Context, requestID uuid.UUID, tagIDs []uuid.UUID, source domain.TagSource) error
	UpdateStatus(ctx context.Context, u StatusUpdate) error
	// RejectOpenProposals rejects pending and accepted proposals and returns
	// the user ids of the affected providers.
	RejectOpenProposals(ctx context.Context, requestID uuid.UUID, at time.Time) ([]uuid.UUID, error)
	// ConfirmPayment accepts one proposal, rejects the others, closes the
	// request and inserts the service with its first history row.
	ConfirmPayment(ctx context.Context, c Confirmation) error
}

type Repository interface {
	RequestReader
	AggregateReader
	RequestWriter
	WithTx(ctx context.Context, fn func(Repository) error) error
}

package transport

import (
	"time"

	"github.com/google/uuid"
)

type SubmitProposalRequest struct {
	QuotedPriceCents int64      `json:"quotedPriceCents" validate:"required,gt=0"`
	Currency         string     `json:"currency" validate:"omitempty,currency"`
	ProposedStartAt  *time.Time `json:"proposedStartAt"`
	ProposedEndAt    *time.Time `json:"proposedEndAt"`
	ValidUntil       *time.Time `json:"validUntil"`
	Notes            string     `json:"notes" validate:"max=2000"`
}

type ProposalResponse struct {
	ID               uuid.UUID  `json:"id"`
	RequestID        uuid.UUID  `json:"requestId"`
	ProviderID       *uuid.UUID `json:"providerId"`
	ProviderName     string     `json:"providerName,omitempty"`
	Version          int        `json:"version"`
	QuotedPriceCents int64      `json:"quotedPriceCents"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	ProposedStartAt  *time.Time `json:"proposedStartAt,omitempty"`
	ProposedEndAt    *time.Time `json:"proposedEndAt,omitempty"`
	ValidUntil       time.Time  `json:"validUntil"`
	Notes            string     `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

type ProposalListResponse struct {
	Items []ProposalResponse `json:"items"`
}

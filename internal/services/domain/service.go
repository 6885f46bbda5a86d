// Package domain holds the confirmed-service rules: the status machine, the
// price and rating arithmetic and the warranty window.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusConfirmed  Status = "CONFIRMED"
	StatusOnRoute    Status = "ON_ROUTE"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCanceled   Status = "CANCELED"
)

// WarrantyPeriod is how long after completion a client may reopen a service.
const WarrantyPeriod = 30 * 24 * time.Hour

// AddressSnapshot is copied onto the service at confirmation so later edits
// to the address never rewrite history.
type AddressSnapshot struct {
	AddressID *uuid.UUID `json:"addressId,omitempty"`
	Street    string     `json:"street,omitempty"`
	City      *string    `json:"city,omitempty"`
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
}

// Service is the engagement created from one accepted proposal.
type Service struct {
	ID                       uuid.UUID
	RequestID                uuid.UUID
	ProposalID               uuid.UUID
	ClientID                 uuid.UUID
	ProviderID               *uuid.UUID
	ProviderUserID           *uuid.UUID
	AddressSnapshot          *AddressSnapshot
	ScheduledStartAt         *time.Time
	ScheduledEndAt           *time.Time
	Status                   Status
	TotalPriceCents          int64
	Currency                 string
	CompletedAt              *time.Time
	WarrantyExpiresAt        *time.Time
	WarrantyClaimDescription *string
	ParentServiceID          *uuid.UUID
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// WarrantyDeadline is the stored expiry, or completion + 30 days when unset.
// ok is false when neither is known.
func (s Service) WarrantyDeadline() (time.Time, bool) {
	if s.WarrantyExpiresAt != nil {
		return *s.WarrantyExpiresAt, true
	}
	if s.CompletedAt != nil {
		return s.CompletedAt.Add(WarrantyPeriod), true
	}
	return time.Time{}, false
}

// IsParticipant reports whether userID is the client or the provider.
func (s Service) IsParticipant(userID uuid.UUID) bool {
	if s.ClientID == userID {
		return true
	}
	return s.ProviderUserID != nil && *s.ProviderUserID == userID
}

// StatusChange is one row of the append-only status history.
type StatusChange struct {
	ID         uuid.UUID
	ServiceID  uuid.UUID
	FromStatus *Status
	ToStatus   Status
	ActorID    uuid.UUID
	ChangedAt  time.Time
}

// Review is one rating of a completed service.
type Review struct {
	ID         uuid.UUID
	ServiceID  uuid.UUID
	RaterID    uuid.UUID
	ProviderID uuid.UUID
	Rating     int
	Comment    string
	CreatedAt  time.Time
}

package transport

import (
	"time"

	"github.com/google/uuid"
)

type AddressSnapshotResponse struct {
	AddressID *uuid.UUID `json:"addressId,omitempty"`
	Street    string     `json:"street,omitempty"`
	City      *string    `json:"city,omitempty"`
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
}

type ServiceResponse struct {
	ID                       uuid.UUID                `json:"id"`
	RequestID                uuid.UUID                `json:"requestId"`
	ProposalID               uuid.UUID                `json:"proposalId"`
	ClientID                 uuid.UUID                `json:"clientId"`
	ProviderID               *uuid.UUID               `json:"providerId"`
	Status                   string                   `json:"status"`
	TotalPriceCents          int64                    `json:"totalPriceCents"`
	TotalPrice               string                   `json:"totalPrice"`
	Currency                 string                   `json:"currency"`
	Address                  *AddressSnapshotResponse `json:"address,omitempty"`
	ScheduledStartAt         *time.Time               `json:"scheduledStartAt,omitempty"`
	ScheduledEndAt           *time.Time               `json:"scheduledEndAt,omitempty"`
	CompletedAt              *time.Time               `json:"completedAt,omitempty"`
	WarrantyExpiresAt        *time.Time               `json:"warrantyExpiresAt,omitempty"`
	WarrantyClaimDescription *string                  `json:"warrantyClaimDescription,omitempty"`
	ParentServiceID          *uuid.UUID               `json:"parentServiceId,omitempty"`
	CreatedAt                time.Time                `json:"createdAt"`
	UpdatedAt                time.Time                `json:"updatedAt"`
}

type ServiceListResponse struct {
	Items []ServiceResponse `json:"items"`
}

type HistoryEntry struct {
	ID         uuid.UUID `json:"id"`
	FromStatus *string   `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	ActorID    uuid.UUID `json:"actorId"`
	ChangedAt  time.Time `json:"changedAt"`
}

type HistoryResponse struct {
	Items []HistoryEntry `json:"items"`
}

type SubmitReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type ReviewResponse struct {
	ID                   uuid.UUID `json:"id"`
	ServiceID            uuid.UUID `json:"serviceId"`
	Rating               int       `json:"rating"`
	Comment              string    `json:"comment,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	ProviderRatingAvg    string    `json:"providerRatingAvg"`
	ProviderTotalReviews int       `json:"providerTotalReviews"`
}

type RehireRequest struct {
	Description *string `json:"description" validate:"omitempty,min=5,max=5000"`
}

type RehireResponse struct {
	RequestID        uuid.UUID `json:"requestId"`
	Title            string    `json:"title"`
	OriginServiceID  uuid.UUID `json:"originServiceId"`
	TargetProviderID uuid.UUID `json:"targetProviderId"`
}

type WarrantyClaimRequest struct {
	Description string `json:"description" validate:"required,min=5,max=2000"`
}

package transport

import (
	"time"

	"github.com/google/uuid"
)

type AttachmentInput struct {
	StorageKey  string `json:"storageKey" validate:"required,max=512"`
	ContentType string `json:"contentType" validate:"omitempty,max=100"`
}

type CreateRequestRequest struct {
	Title            *string           `json:"title" validate:"omitempty,max=150"`
	Description      string            `json:"description" validate:"required,min=5,max=5000"`
	RequestType      string            `json:"requestType" validate:"required,oneof=FAST LICITACION"`
	Status           string            `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED"`
	AddressID        *uuid.UUID        `json:"addressId"`
	PreferredStartAt *time.Time        `json:"preferredStartAt"`
	PreferredEndAt   *time.Time        `json:"preferredEndAt"`
	BiddingDeadline  *time.Time        `json:"biddingDeadline"`
	TagIDs           []uuid.UUID       `json:"tagIds" validate:"max=20"`
	Attachments      []AttachmentInput `json:"attachments" validate:"dive"`
}

// UpdateRequestRequest changes status and/or type; at least one is required.
type UpdateRequestRequest struct {
	Status      *string `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED CLOSED CANCELLED"`
	RequestType *string `json:"requestType" validate:"omitempty,oneof=FAST LICITACION RECONTRATACION"`
}

type ConfirmPaymentRequest struct {
	ProposalID uuid.UUID `json:"proposalId" validate:"required"`
}

type PresignUploadRequest struct {
	ContentType string `json:"contentType" validate:"required,max=100"`
}

type PresignUploadResponse struct {
	UploadURL  string    `json:"uploadUrl"`
	StorageKey string    `json:"storageKey"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type AddressResponse struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label,omitempty"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
}

type ImageResponse struct {
	ID          uuid.UUID `json:"id"`
	StorageKey  string    `json:"storageKey"`
	ContentType string    `json:"contentType,omitempty"`
	Position    int       `json:"position"`
}

type TagResponse struct {
	ID         uuid.UUID `json:"id"`
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
}

type ProposalResponse struct {
	ID               uuid.UUID  `json:"id"`
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
	// Selectable is false for proposals whose provider no longer exists.
	Selectable bool `json:"selectable"`
}

type ServiceSummaryResponse struct {
	ID               uuid.UUID  `json:"id"`
	Status           string     `json:"status"`
	ProviderID       *uuid.UUID `json:"providerId"`
	TotalPriceCents  int64      `json:"totalPriceCents"`
	TotalPrice       string     `json:"totalPrice"`
	Currency         string     `json:"currency"`
	ScheduledStartAt *time.Time `json:"scheduledStartAt,omitempty"`
	ScheduledEndAt   *time.Time `json:"scheduledEndAt,omitempty"`
}

// RequestResponse is the full request aggregate.
type RequestResponse struct {
	ID               uuid.UUID               `json:"id"`
	ClientID         uuid.UUID               `json:"clientId"`
	Title            string                  `json:"title"`
	Description      string                  `json:"description"`
	RequestType      string                  `json:"requestType"`
	Status           string                  `json:"status"`
	City             *string                 `json:"city,omitempty"`
	Latitude         *float64                `json:"latitude,omitempty"`
	Longitude        *float64                `json:"longitude,omitempty"`
	PreferredStartAt *time.Time              `json:"preferredStartAt,omitempty"`
	PreferredEndAt   *time.Time              `json:"preferredEndAt,omitempty"`
	BiddingDeadline  *time.Time              `json:"biddingDeadline,omitempty"`
	TargetProviderID *uuid.UUID              `json:"targetProviderId,omitempty"`
	OriginServiceID  *uuid.UUID              `json:"originServiceId,omitempty"`
	Version          int                     `json:"version"`
	CreatedAt        time.Time               `json:"createdAt"`
	UpdatedAt        time.Time               `json:"updatedAt"`
	Address          *AddressResponse        `json:"address,omitempty"`
	Images           []ImageResponse         `json:"images"`
	Tags             []TagResponse           `json:"tags"`
	Proposals        []ProposalResponse      `json:"proposals"`
	Service          *ServiceSummaryResponse `json:"service,omitempty"`
}

// RequestSummary is the list item shape.
type RequestSummary struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	RequestType     string     `json:"requestType"`
	Status          string     `json:"status"`
	City            *string    `json:"city,omitempty"`
	BiddingDeadline *time.Time `json:"biddingDeadline,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type RequestListResponse struct {
	Items []RequestSummary `json:"items"`
}

// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"marketplace_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Request Domain Events
// =============================================================================

// ServiceRequestCreated is published after a request and its attachments are
// committed. SkipTagging is set for rehire requests.
type ServiceRequestCreated struct {
	BaseEvent
	RequestID   uuid.UUID `json:"requestId"`
	ClientID    uuid.UUID `json:"clientId"`
	RequestType string    `json:"requestType"`
	SkipTagging bool      `json:"skipTagging"`
}

func (e ServiceRequestCreated) EventName() string { return "requests.request.created" }

// =============================================================================
// Provider Domain Events
// =============================================================================

// ProviderLicenseCreated is published when a provider registers a license.
type ProviderLicenseCreated struct {
	BaseEvent
	LicenseID  uuid.UUID `json:"licenseId"`
	ProviderID uuid.UUID `json:"providerId"`
}

func (e ProviderLicenseCreated) EventName() string { return "tags.license.created" }


// Package domain holds the service-request rules: types, statuses, the
// allowed transitions and the derived fields computed at creation time.
package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/sanitize"

	"github.com/google/uuid"
)

type RequestType string

const (
	TypeFast           RequestType = "FAST"
	TypeLicitacion     RequestType = "LICITACION"
	TypeRecontratacion RequestType = "RECONTRATACION"
)

func (t RequestType) Valid() bool {
	switch t {
	case TypeFast, TypeLicitacion, TypeRecontratacion:
		return true
	}
	return false
}

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

const (
	MaxAttachments = 5
	BiddingWindow  = 72 * time.Hour
	TitleMaxLength = 150
	titleWordCount = 8
	titleEllipsis  = "…"
)

// ServiceRequest is a client-owned posting.
type ServiceRequest struct {
	ID               uuid.UUID
	ClientID         uuid.UUID
	AddressID        *uuid.UUID
	City             *string
	Latitude         *float64
	Longitude        *float64
	Title            string
	Description      string
	Type             RequestType
	Status           Status
	PreferredStartAt *time.Time
	PreferredEndAt   *time.Time
	BiddingDeadline  *time.Time
	TargetProviderID *uuid.UUID
	OriginServiceID  *uuid.UUID
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Image is an attachment uploaded to object storage.
type Image struct {
	ID          uuid.UUID
	RequestID   uuid.UUID
	StorageKey  string
	ContentType string
	Position    int
}

type TagSource string

const (
	TagSourceClient TagSource = "client"
	TagSourceLLM    TagSource = "llm"
)

// TagLink attaches a vocabulary tag to a request.
type TagLink struct {
	TagID      uuid.UUID
	Slug       string
	Name       string
	Confidence float64
	Source     TagSource
}

// BuildTitle derives a title from the first words of the description,
// prefixed by the type marker.
func BuildTitle(description string, t RequestType) string {
	words := strings.Fields(sanitize.CollapseSpaces(description))
	if len(words) > titleWordCount {
		words = words[:titleWordCount]
	}
	title := strings.Join(words, " ")
	switch t {
	case TypeFast:
		title = "[FAST] " + title
	case TypeLicitacion:
		title = "[LIC] " + title
	}
	return TruncateTitle(title)
}

// ResolveTitle keeps an explicit title and derives one otherwise.
func ResolveTitle(title *string, description string, t RequestType) string {
	if title != nil {
		if trimmed := sanitize.CollapseSpaces(*title); trimmed != "" {
			return TruncateTitle(trimmed)
		}
	}
	return BuildTitle(description, t)
}

// TruncateTitle cuts s to TitleMaxLength runes, ending in an ellipsis when cut.
func TruncateTitle(s string) string {
	if utf8.RuneCountInString(s) <= TitleMaxLength {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:TitleMaxLength-1]), " ") + titleEllipsis
}

// DefaultBiddingDeadline is the deadline assigned to a bidding request that
// did not provide one.
func DefaultBiddingDeadline(now time.Time) time.Time {
	return now.Add(BiddingWindow)
}

// ResolveBiddingDeadline enforces the type/deadline invariant: only
// LICITACION carries a deadline, defaulted when absent and otherwise required
// to lie in (now, now+72h].
func ResolveBiddingDeadline(now time.Time, t RequestType, requested *time.Time) (*time.Time, error) {
	if t != TypeLicitacion {
		return nil, nil
	}
	if requested == nil {
		d := DefaultBiddingDeadline(now)
		return &d, nil
	}
	if !requested.After(now) {
		return nil, apperr.Validation("bidding deadline must be in the future")
	}
	if requested.After(now.Add(BiddingWindow)) {
		return nil, apperr.Validation("bidding deadline cannot be more than 72 hours ahead")
	}
	d := *requested
	return &d, nil
}

// ValidateWindow rejects a preferred window that ends before it starts.
func ValidateWindow(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return apperr.Validation("preferred end must not precede preferred start")
	}
	return nil
}

// ValidateAttachments enforces the attachment limit and key uniqueness.
func ValidateAttachments(keys []string) error {
	if len(keys) > MaxAttachments {
		return apperr.Validation("too many attachments").WithDetails(map[string]int{"max": MaxAttachments})
	}
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			return apperr.Validation("duplicate attachment").WithDetails(map[string]string{"storageKey": k})
		}
		seen[k] = struct{}{}
	}
	return nil
}

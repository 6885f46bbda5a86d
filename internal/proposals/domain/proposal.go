// Package domain holds the proposal ledger rules.
package domain

import (
	"regexp"
	"strings"
	"time"

	"marketplace_backend/platform/apperr"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
	StatusExpired   Status = "expired"
)

// IsTerminal reports whether a proposal can no longer change.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusWithdrawn, StatusExpired:
		return true
	}
	return false
}

// IsSelectable reports whether a client may accept a proposal in this status.
func (s Status) IsSelectable() bool {
	return s == StatusPending || s == StatusAccepted
}

const (
	DefaultCurrency = "ARS"
	DefaultValidity = 72 * time.Hour
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Proposal is a provider's bid against a request.
type Proposal struct {
	ID               uuid.UUID
	RequestID        uuid.UUID
	ProviderID       *uuid.UUID
	ProviderUserID   *uuid.UUID
	ProviderName     string
	ProviderDeleted  bool
	Version          int
	QuotedPriceCents int64
	Currency         string
	Status           Status
	ProposedStartAt  *time.Time
	ProposedEndAt    *time.Time
	ValidUntil       time.Time
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsOrphan reports whether the bidding provider no longer exists: the profile
// row was removed (provider_id nulled) or soft-deleted.
func (p Proposal) IsOrphan() bool {
	return p.ProviderID == nil || p.ProviderDeleted
}

// Draft is a proposal submission before it is stored.
type Draft struct {
	QuotedPriceCents int64
	Currency         string
	ProposedStartAt  *time.Time
	ProposedEndAt    *time.Time
	ValidUntil       *time.Time
	Notes            string
}

// Normalize applies defaults and validates the draft against now.
func (d Draft) Normalize(now time.Time) (Draft, error) {
	if d.QuotedPriceCents <= 0 {
		return Draft{}, apperr.Validation("quoted price must be positive")
	}
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
	if d.Currency == "" {
		d.Currency = DefaultCurrency
	}
	if !currencyPattern.MatchString(d.Currency) {
		return Draft{}, apperr.Validation("currency must be a 3-letter code")
	}
	if d.ProposedStartAt != nil && d.ProposedEndAt != nil && d.ProposedEndAt.Before(*d.ProposedStartAt) {
		return Draft{}, apperr.Validation("proposed end must not precede proposed start")
	}
	if d.ValidUntil == nil {
		v := now.Add(DefaultValidity)
		d.ValidUntil = &v
	} else if !d.ValidUntil.After(now) {
		return Draft{}, apperr.Validation("validity must end in the future")
	}
	return d, nil
}

// NextVersion returns the version a resubmission receives given the
// provider's existing proposals on the same request.
func NextVersion(existing []Proposal) int {
	highest := 0
	for _, p := range existing {
		if p.Version > highest {
			highest = p.Version
		}
	}
	return highest + 1
}

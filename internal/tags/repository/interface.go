package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Tag struct {
	ID          uuid.UUID
	Slug        string
	Name        string
	Description string
}

type License struct {
	ID          uuid.UUID
	ProviderID  uuid.UUID
	Title       string
	Description string
	CreatedAt   time.Time
}

// TaggingSubject is the text the classifier reads for a request or license.
type TaggingSubject struct {
	Title       string
	Description string
	// Tagged reports whether tags from the classifier are already linked.
	Tagged bool
}

type TagReader interface {
	// TagsExist returns the subset of ids present in the vocabulary.
	TagsExist(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error)
	List(ctx context.Context) ([]Tag, error)
	ListNames(ctx context.Context, limit int) ([]string, error)
	ListLicenseTags(ctx context.Context, licenseID uuid.UUID) ([]Tag, error)
}

type TagWriter interface {
	// CreateOrGet inserts the tag or returns the existing one with that slug.
	CreateOrGet(ctx context.Context, slug, name, description string) (Tag, error)
}

type TaggingStore interface {
	RequestSubject(ctx context.Context, requestID uuid.UUID) (TaggingSubject, error)
	LicenseSubject(ctx context.Context, licenseID uuid.UUID) (TaggingSubject, error)
	LinkRequestTag(ctx context.Context, requestID, tagID uuid.UUID, confidence float64) error
	LinkLicenseTag(ctx context.Context, licenseID, tagID uuid.UUID, confidence float64) error
}

type LicenseWriter interface {
	CreateLicense(ctx context.Context, license License) error
}

type Repository interface {
	TagReader
	TagWriter
	TaggingStore
	LicenseWriter
}

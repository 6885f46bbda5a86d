package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace_backend/platform/apperr"
)

type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

func (r *Repo) TagsExist(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	found := make(map[uuid.UUID]struct{}, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id FROM tags WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("check tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tag id: %w", err)
		}
		found[id] = struct{}{}
	}
	return found, rows.Err()
}

func (r *Repo) List(ctx context.Context) ([]Tag, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, slug, name, description FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

func (r *Repo) ListNames(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM tags ORDER BY name LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list tag names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan tag name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *Repo) ListLicenseTags(ctx context.Context, licenseID uuid.UUID) ([]Tag, error) {
	query := `
		SELECT t.id, t.slug, t.name, t.description
		FROM license_tags lt
		JOIN tags t ON t.id = lt.tag_id
		WHERE lt.license_id = $1
		ORDER BY lt.confidence DESC, t.name`

	rows, err := r.pool.Query(ctx, query, licenseID)
	if err != nil {
		return nil, fmt.Errorf("list license tags: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

func (r *Repo) CreateOrGet(ctx context.Context, slug, name, description string) (Tag, error) {
	// the no-op update makes RETURNING yield the existing row on conflict
	query := `
		INSERT INTO tags (id, slug, name, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id, slug, name, description`

	var t Tag
	err := r.pool.QueryRow(ctx, query, uuid.New(), slug, name, description).Scan(&t.ID, &t.Slug, &t.Name, &t.Description)
	if err != nil {
		return Tag{}, fmt.Errorf("create or get tag: %w", err)
	}
	return t, nil
}

func (r *Repo) RequestSubject(ctx context.Context, requestID uuid.UUID) (TaggingSubject, error) {
	query := `
		SELECT sr.title, sr.description,
			EXISTS (SELECT 1 FROM service_request_tags WHERE request_id = sr.id AND source = 'llm')
		FROM service_requests sr
		WHERE sr.id = $1`

	var s TaggingSubject
	if err := r.pool.QueryRow(ctx, query, requestID).Scan(&s.Title, &s.Description, &s.Tagged); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TaggingSubject{}, apperr.NotFound("request not found")
		}
		return TaggingSubject{}, fmt.Errorf("load request for tagging: %w", err)
	}
	return s, nil
}

func (r *Repo) LicenseSubject(ctx context.Context, licenseID uuid.UUID) (TaggingSubject, error) {
	query := `
		SELECT l.title, l.description,
			EXISTS (SELECT 1 FROM license_tags WHERE license_id = l.id)
		FROM provider_licenses l
		WHERE l.id = $1`

	var s TaggingSubject
	if err := r.pool.QueryRow(ctx, query, licenseID).Scan(&s.Title, &s.Description, &s.Tagged); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TaggingSubject{}, apperr.NotFound("license not found")
		}
		return TaggingSubject{}, fmt.Errorf("load license for tagging: %w", err)
	}
	return s, nil
}

func (r *Repo) LinkRequestTag(ctx context.Context, requestID, tagID uuid.UUID, confidence float64) error {
	query := `
		INSERT INTO service_request_tags (request_id, tag_id, confidence, source)
		VALUES ($1, $2, $3, 'llm')
		ON CONFLICT (request_id, tag_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, query, requestID, tagID, confidence); err != nil {
		return fmt.Errorf("link request tag: %w", err)
	}
	return nil
}

func (r *Repo) LinkLicenseTag(ctx context.Context, licenseID, tagID uuid.UUID, confidence float64) error {
	query := `
		INSERT INTO license_tags (license_id, tag_id, confidence)
		VALUES ($1, $2, $3)
		ON CONFLICT (license_id, tag_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, query, licenseID, tagID, confidence); err != nil {
		return fmt.Errorf("link license tag: %w", err)
	}
	return nil
}

func (r *Repo) CreateLicense(ctx context.Context, l License) error {
	query := `
		INSERT INTO provider_licenses (id, provider_id, title, description, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.pool.Exec(ctx, query, l.ID, l.ProviderID, l.Title, l.Description, l.CreatedAt); err != nil {
		return fmt.Errorf("create license: %w", err)
	}
	return nil
}

func scanTags(rows pgx.Rows) ([]Tag, error) {
	items := make([]Tag, 0)
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Slug, &t.Name, &t.Description); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

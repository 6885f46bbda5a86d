package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace_backend/internal/services/domain"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/db"
)

const (
	serviceNotFoundMsg = "service not found"
	staleServiceMsg    = "service was modified concurrently, reload and retry"
)

const serviceSelect = `
	SELECT s.id, s.request_id, s.proposal_id, s.client_id, s.provider_id, pp.user_id,
		s.address_snapshot, s.scheduled_start_at, s.scheduled_end_at, s.status,
		s.total_price_cents, s.currency, s.completed_at, s.warranty_expires_at,
		s.warranty_claim_description, s.parent_service_id, s.created_at, s.updated_at
	FROM services s
	LEFT JOIN provider_profiles pp ON pp.id = s.provider_id`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
	q    db.Querier
}

// New creates a new services repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool, q: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func (r *Repo) WithTx(ctx context.Context, fn func(Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repo{pool: r.pool, q: tx})
	})
}

// GetByID retrieves a service by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Service, error) {
	return r.getOne(ctx, serviceSelect+` WHERE s.id = $1`, id)
}

func (r *Repo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Service, error) {
	return r.getOne(ctx, serviceSelect+` WHERE s.id = $1 FOR UPDATE OF s`, id)
}

func (r *Repo) getOne(ctx context.Context, query string, id uuid.UUID) (domain.Service, error) {
	svc, err := scanService(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Service{}, apperr.NotFound(serviceNotFoundMsg)
		}
		return domain.Service{}, fmt.Errorf("get service: %w", err)
	}
	return svc, nil
}

// ListByParticipant lists services where the user is the client or the
// provider, newest first.
func (r *Repo) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]domain.Service, error) {
	rows, err := r.q.Query(ctx, serviceSelect+`
		WHERE s.client_id = $1 OR pp.user_id = $1
		ORDER BY s.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var items []domain.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		items = append(items, svc)
	}
	return items, rows.Err()
}

func (r *Repo) History(ctx context.Context, serviceID uuid.UUID) ([]domain.StatusChange, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, service_id, from_status, to_status, actor_id, changed_at
		FROM service_status_history
		WHERE service_id = $1
		ORDER BY changed_at, id`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("list service history: %w", err)
	}
	defer rows.Close()

	var items []domain.StatusChange
	for rows.Next() {
		var h domain.StatusChange
		if err := rows.Scan(&h.ID, &h.ServiceID, &h.FromStatus, &h.ToStatus, &h.ActorID, &h.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan service history: %w", err)
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

// ApplyTransition updates the service only if it is still in t.From and
// records the change.
func (r *Repo) ApplyTransition(ctx context.Context, t Transition) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE services
		SET status = $2,
			completed_at = COALESCE($3, completed_at),
			warranty_expires_at = COALESCE($4, warranty_expires_at),
			warranty_claim_description = COALESCE($5, warranty_claim_description),
			updated_at = $6
		WHERE id = $1 AND status = $7`,
		t.ServiceID, t.To, t.CompletedAt, t.WarrantyExpiresAt, t.WarrantyClaimDescription, t.At, t.From,
	)
	if err != nil {
		return apperr.FromDB(err, "service violates a data constraint")
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict(staleServiceMsg)
	}
	return r.insertHistory(ctx, t)
}

func (r *Repo) CancelWithRequest(ctx context.Context, t Transition, requestID uuid.UUID) error {
	if err := r.ApplyTransition(ctx, t); err != nil {
		return err
	}
	if _, err := r.q.Exec(ctx, `
		UPDATE service_requests
		SET status = 'CANCELLED', version = version + 1, updated_at = $2
		WHERE id = $1`,
		requestID, t.At,
	); err != nil {
		return fmt.Errorf("cancel request of service: %w", err)
	}
	return nil
}

func (r *Repo) insertHistory(ctx context.Context, t Transition) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO service_status_history (id, service_id, from_status, to_status, actor_id, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), t.ServiceID, t.From, t.To, t.ActorID, t.At,
	)
	if err != nil {
		return fmt.Errorf("insert service history: %w", err)
	}
	return nil
}

func (r *Repo) HasReview(ctx context.Context, serviceID, raterID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM service_reviews WHERE service_id = $1 AND rater_id = $2)`,
		serviceID, raterID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check review: %w", err)
	}
	return exists, nil
}

// CreateReview inserts a review; a second review by the same rater is a conflict.
func (r *Repo) CreateReview(ctx context.Context, rv domain.Review) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO service_reviews (id, service_id, rater_id, provider_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rv.ID, rv.ServiceID, rv.RaterID, rv.ProviderID, rv.Rating, rv.Comment, rv.CreatedAt,
	)
	if err != nil {
		if apperr.IsUniqueViolation(err, "service_reviews_service_rater_key") {
			return apperr.Conflict("service already reviewed")
		}
		return apperr.FromDB(err, "review violates a data constraint")
	}
	return nil
}

func (r *Repo) LockProviderRating(ctx context.Context, providerID uuid.UUID) (ProviderRating, error) {
	var (
		avg   int64
		count int
	)
	err := r.q.QueryRow(ctx, `
		SELECT (rating_avg * 100)::bigint, total_reviews
		FROM provider_profiles
		WHERE id = $1
		FOR UPDATE`, providerID,
	).Scan(&avg, &count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProviderRating{}, apperr.NotFound("provider not found")
		}
		return ProviderRating{}, fmt.Errorf("lock provider rating: %w", err)
	}
	return ProviderRating{Average: domain.Rating(avg), Count: count}, nil
}

func (r *Repo) UpdateProviderRating(ctx context.Context, providerID uuid.UUID, rating ProviderRating) error {
	_, err := r.q.Exec(ctx, `
		UPDATE provider_profiles
		SET rating_avg = $2::numeric / 100, total_reviews = $3
		WHERE id = $1`,
		providerID, int64(rating.Average), rating.Count,
	)
	if err != nil {
		return fmt.Errorf("update provider rating: %w", err)
	}
	return nil
}

func scanService(row pgx.Row) (domain.Service, error) {
	var s domain.Service
	err := row.Scan(
		&s.ID, &s.RequestID, &s.ProposalID, &s.ClientID, &s.ProviderID, &s.ProviderUserID,
		&s.AddressSnapshot, &s.ScheduledStartAt, &s.ScheduledEndAt, &s.Status,
		&s.TotalPriceCents, &s.Currency, &s.CompletedAt, &s.WarrantyExpiresAt,
		&s.WarrantyClaimDescription, &s.ParentServiceID, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	proposaldomain "marketplace_backend/internal/proposals/domain"
	"marketplace_backend/internal/requests/domain"
	servicedomain "marketplace_backend/internal/services/domain"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/db"
)

const (
	requestNotFoundMsg = "request not found"
	staleRequestMsg    = "request was modified concurrently, reload and retry"
)

const requestColumns = `
	id, client_id, address_id, city, latitude, longitude, title, description,
	request_type, status, preferred_start_at, preferred_end_at, bidding_deadline,
	target_provider_id, origin_service_id, version, created_at, updated_at`

const proposalSelect = `
	SELECT p.id, p.request_id, p.provider_id, pp.user_id, COALESCE(pp.display_name, ''),
		(pp.deleted_at IS NOT NULL), p.version, p.quoted_price_cents, p.currency, p.status,
		p.proposed_start_at, p.proposed_end_at, p.valid_until, p.notes, p.created_at, p.updated_at
	FROM proposals p
	LEFT JOIN provider_profiles pp ON pp.id = p.provider_id
	WHERE p.request_id = $1
	ORDER BY p.created_at, p.version`

type Repo struct {
	pool *pgxpool.Pool
	q    db.Querier
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool, q: pool}
}

var _ Repository = (*Repo)(nil)

func (r *Repo) WithTx(ctx context.Context, fn func(Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repo{pool: r.pool, q: tx})
	})
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.ServiceRequest, error) {
	return r.getOne(ctx, `SELECT`+requestColumns+` FROM service_requests WHERE id = $1`, id)
}

func (r *Repo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.ServiceRequest, error) {
	return r.getOne(ctx, `SELECT`+requestColumns+` FROM service_requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *Repo) getOne(ctx context.Context, query string, id uuid.UUID) (domain.ServiceRequest, error) {
	sr, err := scanRequest(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ServiceRequest{}, apperr.NotFound(requestNotFoundMsg)
		}
		return domain.ServiceRequest{}, fmt.Errorf("get request: %w", err)
	}
	return sr, nil
}

func (r *Repo) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.ServiceRequest, error) {
	query := `SELECT` + requestColumns + `
		FROM service_requests
		WHERE client_id = $1
		ORDER BY created_at DESC`
	return r.listRequests(ctx, query, clientID)
}

func (r *Repo) ListOpen(ctx context.Context, f OpenFilter) ([]domain.ServiceRequest, error) {
	query := `SELECT` + requestColumns + `
		FROM service_requests
		WHERE status = 'PUBLISHED'
			AND (bidding_deadline IS NULL OR bidding_deadline > $2)
			AND (request_type <> 'RECONTRATACION' OR target_provider_id = $1)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`
	return r.listRequests(ctx, query, f.ProviderID, f.Now, f.Limit, f.Offset)
}

func (r *Repo) listRequests(ctx context.Context, query string, args ...any) ([]domain.ServiceRequest, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	items := make([]domain.ServiceRequest, 0)
	for rows.Next() {
		sr, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		items = append(items, sr)
	}
	return items, rows.Err()
}

func (r *Repo) ProviderInvolved(ctx context.Context, requestID, providerID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM service_requests WHERE id = $1 AND target_provider_id = $2
		) OR EXISTS (
			SELECT 1 FROM proposals WHERE request_id = $1 AND provider_id = $2
		)`

	var involved bool
	if err := r.q.QueryRow(ctx, query, requestID, providerID).Scan(&involved); err != nil {
		return false, fmt.Errorf("check provider involvement: %w", err)
	}
	return involved, nil
}

func (r *Repo) ListImages(ctx context.Context, requestID uuid.UUID) ([]domain.Image, error) {
	query := `
		SELECT id, request_id, storage_key, content_type, position
		FROM service_request_images
		WHERE request_id = $1
		ORDER BY position`

	rows, err := r.q.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Image, 0)
	for rows.Next() {
		var img domain.Image
		if err := rows.Scan(&img.ID, &img.RequestID, &img.StorageKey, &img.ContentType, &img.Position); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		items = append(items, img)
	}
	return items, rows.Err()
}

func (r *Repo) ListTags(ctx context.Context, requestID uuid.UUID) ([]domain.TagLink, error) {
	query := `
		SELECT t.id, t.slug, t.name, rt.confidence::float8, rt.source
		FROM service_request_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.request_id = $1
		ORDER BY rt.source, rt.confidence DESC, t.name`

	rows, err := r.q.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("list request tags: %w", err)
	}
	defer rows.Close()

	items := make([]domain.TagLink, 0)
	for rows.Next() {
		var l domain.TagLink
		if err := rows.Scan(&l.TagID, &l.Slug, &l.Name, &l.Confidence, &l.Source); err != nil {
			return nil, fmt.Errorf("scan request tag: %w", err)
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func (r *Repo) ListProposals(ctx context.Context, requestID uuid.UUID) ([]proposaldomain.Proposal, error) {
	return r.listProposals(ctx, proposalSelect, requestID)
}

func (r *Repo) ListProposalsForUpdate(ctx context.Context, requestID uuid.UUID) ([]proposaldomain.Proposal, error) {
	return r.listProposals(ctx, proposalSelect+` FOR UPDATE OF p`, requestID)
}

func (r *Repo) listProposals(ctx context.Context, query string, requestID uuid.UUID) ([]proposaldomain.Proposal, error) {
	rows, err := r.q.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("list request proposals: %w", err)
	}
	defer rows.Close()

	items := make([]proposaldomain.Proposal, 0)
	for rows.Next() {
		var p proposaldomain.Proposal
		if err := rows.Scan(
			&p.ID, &p.RequestID, &p.ProviderID, &p.ProviderUserID, &p.ProviderName,
			&p.ProviderDeleted, &p.Version, &p.QuotedPriceCents, &p.Currency, &p.Status,
			&p.ProposedStartAt, &p.ProposedEndAt, &p.ValidUntil, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan request proposal: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *Repo) CountProposals(ctx context.Context, requestID uuid.UUID) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM proposals WHERE request_id = $1`, requestID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count proposals: %w", err)
	}
	return n, nil
}

func (r *Repo) GetService(ctx context.Context, requestID uuid.UUID) (*ServiceSummary, error) {
	query := `
		SELECT id, status, provider_id, total_price_cents, currency, scheduled_start_at, scheduled_end_at
		FROM services
		WHERE request_id = $1`

	var s ServiceSummary
	err := r.q.QueryRow(ctx, query, requestID).Scan(
		&s.ID, &s.Status, &s.ProviderID, &s.TotalPriceCents, &s.Currency, &s.ScheduledStartAt, &s.ScheduledEndAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get request service: %w", err)
	}
	return &s, nil
}

func (r *Repo) Create(ctx context.Context, sr domain.ServiceRequest) error {
	query := `
		INSERT INTO service_requests (
			id, client_id, address_id, city, latitude, longitude, title, description,
			request_type, status, preferred_start_at, preferred_end_at, bidding_deadline,
			target_provider_id, origin_service_id, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.q.Exec(ctx, query,
		sr.ID, sr.ClientID, sr.AddressID, sr.City, sr.Latitude, sr.Longitude, sr.Title, sr.Description,
		sr.Type, sr.Status, sr.PreferredStartAt, sr.PreferredEndAt, sr.BiddingDeadline,
		sr.TargetProviderID, sr.OriginServiceID, sr.Version, sr.CreatedAt, sr.UpdatedAt,
	)
	if err != nil {
		return apperr.FromDB(err, "request violates a data constraint")
	}
	return nil
}

func (r *Repo) AddImages(ctx context.Context, images []domain.Image) error {
	if len(images) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, img := range images {
		batch.Queue(`
			INSERT INTO service_request_images (id, request_id, storage_key, content_type, position)
			VALUES ($1, $2, $3, $4, $5)`,
			img.ID, img.RequestID, img.StorageKey, img.ContentType, img.Position)
	}
	if err := r.sendBatch(ctx, batch); err != nil {
		return apperr.FromDB(err, "duplicate attachment")
	}
	return nil
}

func (r *Repo) LinkTags(ctx context.Context, requestID uuid.UUID, tagIDs []uuid.UUID, source domain.TagSource) error {
	if len(tagIDs) == 0 {
		return nil
	}
	query := `
		INSERT INTO service_request_tags (request_id, tag_id, confidence, source)
		SELECT $1, tag_id, 1, $3 FROM unnest($2::uuid[]) AS tag_id
		ON CONFLICT (request_id, tag_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, query, requestID, tagIDs, source); err != nil {
		return apperr.FromDB(err, "unknown tag")
	}
	return nil
}

func (r *Repo) UpdateStatus(ctx context.Context, u StatusUpdate) error {
	query := `
		UPDATE service_requests
		SET status = $2, request_type = $3, bidding_deadline = $4, version = version + 1, updated_at = $5
		WHERE id = $1 AND version = $6`

	tag, err := r.q.Exec(ctx, query, u.ID, u.Status, u.Type, u.BiddingDeadline, u.At, u.ExpectedVersion)
	if err != nil {
		return apperr.FromDB(err, "request violates a data constraint")
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict(staleRequestMsg)
	}
	return nil
}

func (r *Repo) RejectOpenProposals(ctx context.Context, requestID uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	query := `
		WITH rejected AS (
			UPDATE proposals SET status = 'rejected', updated_at = $2
			WHERE request_id = $1 AND status IN ('pending', 'accepted')
			RETURNING provider_id
		)
		SELECT DISTINCT pp.user_id
		FROM rejected r
		JOIN provider_profiles pp ON pp.id = r.provider_id
		WHERE pp.deleted_at IS NULL`

	rows, err := r.q.Query(ctx, query, requestID, at)
	if err != nil {
		return nil, fmt.Errorf("reject proposals: %w", err)
	}
	defer rows.Close()

	var users []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan rejected provider: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func (r *Repo) ConfirmPayment(ctx context.Context, c Confirmation) error {
	if _, err := r.q.Exec(ctx,
		`UPDATE proposals SET status = 'accepted', updated_at = $2 WHERE id = $1`,
		c.AcceptedProposalID, c.At,
	); err != nil {
		return fmt.Errorf("accept proposal: %w", err)
	}

	if len(c.RejectedProposalIDs) > 0 {
		if _, err := r.q.Exec(ctx,
			`UPDATE proposals SET status = 'rejected', updated_at = $2 WHERE id = ANY($1)`,
			c.RejectedProposalIDs, c.At,
		); err != nil {
			return fmt.Errorf("reject proposals: %w", err)
		}
	}

	tag, err := r.q.Exec(ctx, `
		UPDATE service_requests
		SET status = 'CLOSED', version = version + 1, updated_at = $2
		WHERE id = $1 AND version = $3`,
		c.RequestID, c.At, c.ExpectedVersion,
	)
	if err != nil {
		return fmt.Errorf("close request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict(staleRequestMsg)
	}

	s := c.Service
	insertService := `
		INSERT INTO services (
			id, request_id, proposal_id, client_id, provider_id, address_snapshot,
			scheduled_start_at, scheduled_end_at, status, total_price_cents, currency,
			parent_service_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := r.q.Exec(ctx, insertService,
		s.ID, s.RequestID, s.ProposalID, s.ClientID, s.ProviderID, s.AddressSnapshot,
		s.ScheduledStartAt, s.ScheduledEndAt, s.Status, s.TotalPriceCents, s.Currency,
		s.ParentServiceID, s.CreatedAt, s.UpdatedAt,
	); err != nil {
		if apperr.IsUniqueViolation(err, "services_request_id_key") {
			return apperr.Conflict("payment already confirmed for this request")
		}
		return apperr.FromDB(err, "service violates a data constraint")
	}

	insertHistory := `
		INSERT INTO service_status_history (id, service_id, from_status, to_status, actor_id, changed_at)
		VALUES ($1, $2, NULL, $3, $4, $5)`
	if _, err := r.q.Exec(ctx, insertHistory, uuid.New(), s.ID, servicedomain.StatusConfirmed, c.ActorID, c.At); err != nil {
		return fmt.Errorf("insert service history: %w", err)
	}
	return nil
}

func (r *Repo) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func scanRequest(row pgx.Row) (domain.ServiceRequest, error) {
	var sr domain.ServiceRequest
	err := row.Scan(
		&sr.ID, &sr.ClientID, &sr.AddressID, &sr.City, &sr.Latitude, &sr.Longitude, &sr.Title, &sr.Description,
		&sr.Type, &sr.Status, &sr.PreferredStartAt, &sr.PreferredEndAt, &sr.BiddingDeadline,
		&sr.TargetProviderID, &sr.OriginServiceID, &sr.Version, &sr.CreatedAt, &sr.UpdatedAt,
	)
	return sr, err
}

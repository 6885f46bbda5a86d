package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace_backend/internal/proposals/domain"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/db"
)

const (
	proposalNotFoundMsg = "proposal not found"
	requestNotFoundMsg  = "request not found"
)

const proposalColumns = `
	p.id, p.request_id, p.provider_id, pp.user_id, COALESCE(pp.display_name, ''),
	(pp.deleted_at IS NOT NULL), p.version, p.quoted_price_cents, p.currency, p.status,
	p.proposed_start_at, p.proposed_end_at, p.valid_until, p.notes, p.created_at, p.updated_at`

const proposalFrom = `
	FROM proposals p
	LEFT JOIN provider_profiles pp ON pp.id = p.provider_id`

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

func (r *Repo) GetRequest(ctx context.Context, requestID uuid.UUID) (RequestRef, error) {
	return r.getRequest(ctx, requestID, "")
}

func (r *Repo) LockRequest(ctx context.Context, requestID uuid.UUID) (RequestRef, error) {
	return r.getRequest(ctx, requestID, " FOR UPDATE")
}

func (r *Repo) getRequest(ctx context.Context, requestID uuid.UUID, suffix string) (RequestRef, error) {
	query := `
		SELECT id, client_id, request_type, status, bidding_deadline, target_provider_id
		FROM service_requests
		WHERE id = $1` + suffix

	var ref RequestRef
	err := r.q.QueryRow(ctx, query, requestID).Scan(
		&ref.ID, &ref.ClientID, &ref.Type, &ref.Status, &ref.BiddingDeadline, &ref.TargetProviderID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RequestRef{}, apperr.NotFound(requestNotFoundMsg)
		}
		return RequestRef{}, fmt.Errorf("get request: %w", err)
	}
	return ref, nil
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Proposal, error) {
	return r.getOne(ctx, `SELECT`+proposalColumns+proposalFrom+` WHERE p.id = $1`, id)
}

func (r *Repo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Proposal, error) {
	return r.getOne(ctx, `SELECT`+proposalColumns+proposalFrom+` WHERE p.id = $1 FOR UPDATE OF p`, id)
}

func (r *Repo) getOne(ctx context.Context, query string, id uuid.UUID) (domain.Proposal, error) {
	p, err := scanProposal(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Proposal{}, apperr.NotFound(proposalNotFoundMsg)
		}
		return domain.Proposal{}, fmt.Errorf("get proposal: %w", err)
	}
	return p, nil
}

func (r *Repo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]domain.Proposal, error) {
	query := `SELECT` + proposalColumns + proposalFrom + `
		WHERE p.request_id = $1
		ORDER BY p.created_at, p.version`
	return r.list(ctx, query, requestID)
}

func (r *Repo) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]domain.Proposal, error) {
	query := `SELECT` + proposalColumns + proposalFrom + `
		WHERE p.provider_id = $1
		ORDER BY p.created_at DESC`
	return r.list(ctx, query, providerID)
}

func (r *Repo) ListByRequestAndProvider(ctx context.Context, requestID, providerID uuid.UUID) ([]domain.Proposal, error) {
	query := `SELECT` + proposalColumns + proposalFrom + `
		WHERE p.request_id = $1 AND p.provider_id = $2
		ORDER BY p.version`
	return r.list(ctx, query, requestID, providerID)
}

func (r *Repo) list(ctx context.Context, query string, args ...any) ([]domain.Proposal, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Proposal, 0)
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *Repo) Create(ctx context.Context, p domain.Proposal) error {
	query := `
		INSERT INTO proposals (
			id, request_id, provider_id, version, quoted_price_cents, currency, status,
			proposed_start_at, proposed_end_at, valid_until, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.q.Exec(ctx, query,
		p.ID, p.RequestID, p.ProviderID, p.Version, p.QuotedPriceCents, p.Currency, p.Status,
		p.ProposedStartAt, p.ProposedEndAt, p.ValidUntil, p.Notes, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return apperr.FromDB(err, "proposal conflicts with existing data")
	}
	return nil
}

func (r *Repo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, now time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE proposals SET status = $2, updated_at = $3 WHERE id = $1`, id, status, now)
	if err != nil {
		return fmt.Errorf("update proposal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(proposalNotFoundMsg)
	}
	return nil
}

func (r *Repo) WithdrawPending(ctx context.Context, requestID, providerID uuid.UUID, now time.Time) (int64, error) {
	query := `
		UPDATE proposals SET status = 'withdrawn', updated_at = $3
		WHERE request_id = $1 AND provider_id = $2 AND status = 'pending'`

	tag, err := r.q.Exec(ctx, query, requestID, providerID, now)
	if err != nil {
		return 0, fmt.Errorf("withdraw pending proposals: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repo) ExpireDue(ctx context.Context, now time.Time) ([]ExpiredProposal, error) {
	query := `
		WITH expired AS (
			UPDATE proposals SET status = 'expired', updated_at = $1
			WHERE status = 'pending' AND valid_until < $1
			RETURNING id, request_id, provider_id
		)
		SELECT e.id, e.request_id, pp.user_id
		FROM expired e
		LEFT JOIN provider_profiles pp ON pp.id = e.provider_id`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("expire proposals: %w", err)
	}
	defer rows.Close()

	items := make([]ExpiredProposal, 0)
	for rows.Next() {
		var e ExpiredProposal
		if err := rows.Scan(&e.ID, &e.RequestID, &e.ProviderUserID); err != nil {
			return nil, fmt.Errorf("scan expired proposal: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func scanProposal(row pgx.Row) (domain.Proposal, error) {
	var p domain.Proposal
	err := row.Scan(
		&p.ID, &p.RequestID, &p.ProviderID, &p.ProviderUserID, &p.ProviderName,
		&p.ProviderDeleted, &p.Version, &p.QuotedPriceCents, &p.Currency, &p.Status,
		&p.ProposedStartAt, &p.ProposedEndAt, &p.ValidUntil, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

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

const addressNotFoundMessage = "address not found"

type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

const addressColumns = `id, user_id, label, street, city, latitude, longitude, contact_phone, is_active`

func scanAddress(row pgx.Row) (Address, error) {
	var a Address
	err := row.Scan(&a.ID, &a.UserID, &a.Label, &a.Street, &a.City, &a.Latitude, &a.Longitude, &a.ContactPhone, &a.IsActive)
	return a, err
}

func (r *Repo) GetActiveAddress(ctx context.Context, userID, addressID uuid.UUID) (Address, error) {
	query := `SELECT ` + addressColumns + `
		FROM addresses
		WHERE id = $1 AND user_id = $2 AND is_active`

	a, err := scanAddress(r.pool.QueryRow(ctx, query, addressID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Address{}, apperr.NotFound(addressNotFoundMessage)
		}
		return Address{}, fmt.Errorf("get active address: %w", err)
	}
	return a, nil
}

func (r *Repo) GetByID(ctx context.Context, addressID uuid.UUID) (Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1`

	a, err := scanAddress(r.pool.QueryRow(ctx, query, addressID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Address{}, apperr.NotFound(addressNotFoundMessage)
		}
		return Address{}, fmt.Errorf("get address: %w", err)
	}
	return a, nil
}

func (r *Repo) ListActive(ctx context.Context, userID uuid.UUID) ([]Address, error) {
	query := `SELECT ` + addressColumns + `
		FROM addresses
		WHERE user_id = $1 AND is_active
		ORDER BY label, street`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	items := make([]Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *Repo) Create(ctx context.Context, p CreateParams) (Address, error) {
	query := `
		INSERT INTO addresses (id, user_id, label, street, city, latitude, longitude, contact_phone, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		RETURNING ` + addressColumns

	a, err := scanAddress(r.pool.QueryRow(ctx, query, uuid.New(), p.UserID, p.Label, p.Street, p.City, p.Latitude, p.Longitude, p.ContactPhone))
	if err != nil {
		return Address{}, fmt.Errorf("create address: %w", err)
	}
	return a, nil
}

func (r *Repo) Deactivate(ctx context.Context, userID, addressID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE addresses SET is_active = FALSE WHERE id = $1 AND user_id = $2 AND is_active`, addressID, userID)
	if err != nil {
		return fmt.Errorf("deactivate address: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(addressNotFoundMessage)
	}
	return nil
}

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
)

const intentColumns = `id, client_secret, status, amount, currency, cart_id::text, customer_id::text, attempt, idempotency_key, details, last_error, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, p *domain.PaymentIntent) error {
	detailsJSON, err := json.Marshal(p.Details)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt

	const q = `
INSERT INTO payment_intents (
    id, client_secret, status, amount, currency, cart_id, customer_id, attempt, idempotency_key, details, last_error, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
`
	_, err = r.pool.Exec(ctx, q,
		p.ID,
		p.ClientSecret,
		string(p.Status),
		p.Amount,
		p.Currency,
		p.CartID,
		p.CustomerID,
		p.Attempt,
		p.IdempotencyKey,
		detailsJSON,
		p.LastError,
		p.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		r.logger.Printf("payment repo: create id=%s cart_id=%s error=%v", p.ID, p.CartID, err)
		return err
	}
	r.logger.Printf("payment repo: created id=%s cart_id=%s attempt=%d", p.ID, p.CartID, p.Attempt)
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	const q = `
SELECT ` + intentColumns + `
FROM payment_intents
WHERE id = $1
`
	return r.scanIntent(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) ListByCart(ctx context.Context, cartID string) ([]*domain.PaymentIntent, error) {
	const q = `
SELECT ` + intentColumns + `
FROM payment_intents
WHERE cart_id = $1
ORDER BY attempt
`
	rows, err := r.pool.Query(ctx, q, cartID)
	if err != nil {
		r.logger.Printf("payment repo: list cart_id=%s error=%v", cartID, err)
		return nil, err
	}
	defer rows.Close()

	var result []*domain.PaymentIntent
	for rows.Next() {
		p, err := r.scanIntent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, status domain.IntentStatus, lastError string) error {
	const q = `
UPDATE payment_intents
SET status = $2, last_error = $3, updated_at = now()
WHERE id = $1
`
	tag, err := r.pool.Exec(ctx, q, id, string(status), lastError)
	if err != nil {
		r.logger.Printf("payment repo: update status id=%s error=%v", id, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) scanIntent(row pgx.Row) (*domain.PaymentIntent, error) {
	var (
		p           domain.PaymentIntent
		status      string
		detailsJSON []byte
	)
	err := row.Scan(
		&p.ID,
		&p.ClientSecret,
		&status,
		&p.Amount,
		&p.Currency,
		&p.CartID,
		&p.CustomerID,
		&p.Attempt,
		&p.IdempotencyKey,
		&detailsJSON,
		&p.LastError,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("payment repo: scan error=%v", err)
		return nil, err
	}
	p.Status = domain.IntentStatus(status)
	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &p.Details); err != nil {
			r.logger.Printf("payment repo: decode details id=%s err=%v", p.ID, err)
			return nil, err
		}
	}
	return &p, nil
}

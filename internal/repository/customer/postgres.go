package customer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

const customerColumns = `id::text, email, first_name, last_name, phone, addresses, order_count, total_spent, created_at`

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

func (r *postgresRepo) FindOrCreate(ctx context.Context, c domain.Customer) (*domain.Customer, bool, error) {
	if c.Addresses == nil {
		c.Addresses = []domain.Address{}
	}
	addrJSON, err := json.Marshal(c.Addresses)
	if err != nil {
		return nil, false, err
	}

	const q = `
INSERT INTO customers (email, first_name, last_name, phone, addresses)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT ((lower(email))) DO NOTHING
RETURNING ` + customerColumns
	created, err := r.scanCustomer(r.pool.QueryRow(ctx, q,
		domain.NormalizeEmail(c.Email),
		c.FirstName,
		c.LastName,
		c.Phone,
		addrJSON,
	))
	if err == nil {
		r.logger.Printf("customer repo: created id=%s", created.ID)
		return created, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	existing, err := r.GetByEmail(ctx, c.Email)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	const q = `
SELECT ` + customerColumns + `
FROM customers
WHERE lower(email) = lower($1)
LIMIT 1
`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, domain.NormalizeEmail(email)))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	const q = `
SELECT ` + customerColumns + `
FROM customers
WHERE id = $1
LIMIT 1
`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) SaveAddresses(ctx context.Context, id string, addresses []domain.Address) error {
	if addresses == nil {
		addresses = []domain.Address{}
	}
	addrJSON, err := json.Marshal(addresses)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET addresses = $2 WHERE id = $1`, id, addrJSON)
	if err != nil {
		r.logger.Printf("customer repo: save addresses id=%s error=%v", id, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) RecordOrder(ctx context.Context, id string, total decimal.Decimal) error {
	const q = `
UPDATE customers
SET order_count = order_count + 1,
    total_spent = total_spent + $2
WHERE id = $1
`
	tag, err := r.pool.Exec(ctx, q, id, total)
	if err != nil {
		r.logger.Printf("customer repo: record order id=%s error=%v", id, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	var addrJSON []byte
	err := row.Scan(
		&c.ID,
		&c.Email,
		&c.FirstName,
		&c.LastName,
		&c.Phone,
		&addrJSON,
		&c.OrderCount,
		&c.TotalSpent,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("customer repo: scan error=%v", err)
		return nil, err
	}
	c.Addresses = []domain.Address{}
	if len(addrJSON) > 0 {
		if err := json.Unmarshal(addrJSON, &c.Addresses); err != nil {
			r.logger.Printf("customer repo: decode addresses id=%s err=%v", c.ID, err)
			return nil, err
		}
	}
	return &c, nil
}

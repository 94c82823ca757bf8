package cart

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

const cartColumns = `id::text, owner_kind, owner_id, currency, status, items, subtotal, item_count, version, expires_at, created_at, updated_at`

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

func (r *postgresRepo) FindActive(ctx context.Context, owner domain.Owner) ([]*domain.Cart, error) {
	const q = `
SELECT ` + cartColumns + `
FROM carts
WHERE owner_kind = $1 AND owner_id = $2 AND status = 'active'
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, q, owner.Kind(), owner.ID())
	if err != nil {
		r.logger.Printf("cart repo: find active owner=%s error=%v", owner.Key(), err)
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Cart
	for rows.Next() {
		c, err := r.scanCart(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("cart repo: find active rows owner=%s error=%v", owner.Key(), err)
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	const q = `
SELECT ` + cartColumns + `
FROM carts
WHERE id = $1
`
	c, err := r.scanCart(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, domain.ErrNotFound) {
		r.logger.Printf("cart repo: get id=%s not found", id)
	}
	return c, err
}

func (r *postgresRepo) Create(ctx context.Context, c *domain.Cart) error {
	itemsJSON, err := json.Marshal(c.Items)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO carts (id, owner_kind, owner_id, currency, status, items, subtotal, item_count, version, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10, $11)
`
	_, err = r.pool.Exec(ctx, q,
		c.ID,
		c.Owner.Kind(),
		c.Owner.ID(),
		c.Currency,
		string(c.Status),
		itemsJSON,
		c.Subtotal,
		c.ItemCount,
		c.ExpiresAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		r.logger.Printf("cart repo: create id=%s owner=%s error=%v", c.ID, c.Owner.Key(), err)
		return err
	}
	c.Version = 1
	r.logger.Printf("cart repo: created id=%s owner=%s", c.ID, c.Owner.Key())
	return nil
}

func (r *postgresRepo) Save(ctx context.Context, c *domain.Cart) error {
	itemsJSON, err := json.Marshal(c.Items)
	if err != nil {
		return err
	}
	const q = `
UPDATE carts
SET owner_kind = $3,
    owner_id = $4,
    currency = $5,
    status = $6,
    items = $7,
    subtotal = $8,
    item_count = $9,
    expires_at = $10,
    updated_at = $11,
    version = version + 1
WHERE id = $1 AND version = $2
RETURNING version
`
	var version int
	err = r.pool.QueryRow(ctx, q,
		c.ID,
		c.Version,
		c.Owner.Kind(),
		c.Owner.ID(),
		c.Currency,
		string(c.Status),
		itemsJSON,
		c.Subtotal,
		c.ItemCount,
		c.ExpiresAt,
		c.UpdatedAt,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("cart repo: save id=%s stale version=%d", c.ID, c.Version)
			return domain.ErrConcurrentModification
		}
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		r.logger.Printf("cart repo: save id=%s error=%v", c.ID, err)
		return err
	}
	c.Version = version
	return nil
}

func (r *postgresRepo) SetStatus(ctx context.Context, id string, from, to domain.CartStatus) (bool, error) {
	const q = `
UPDATE carts
SET status = $3, version = version + 1, updated_at = now()
WHERE id = $1 AND status = $2
`
	tag, err := r.pool.Exec(ctx, q, id, string(from), string(to))
	if err != nil {
		if isUniqueViolation(err) {
			return false, domain.ErrAlreadyExists
		}
		r.logger.Printf("cart repo: set status id=%s %s->%s error=%v", id, from, to, err)
		return false, err
	}
	changed := tag.RowsAffected() == 1
	r.logger.Printf("cart repo: set status id=%s %s->%s changed=%t", id, from, to, changed)
	return changed, nil
}

func (r *postgresRepo) ListExpired(ctx context.Context, now time.Time) ([]*domain.Cart, error) {
	const q = `
SELECT ` + cartColumns + `
FROM carts
WHERE status = 'active' AND expires_at <= $1
ORDER BY expires_at
`
	rows, err := r.pool.Query(ctx, q, now)
	if err != nil {
		r.logger.Printf("cart repo: list expired error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Cart
	for rows.Next() {
		c, err := r.scanCart(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("cart repo: list expired rows error=%v", err)
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) scanCart(row pgx.Row) (*domain.Cart, error) {
	var (
		c         domain.Cart
		ownerKind string
		ownerID   string
		status    string
		itemsJSON []byte
	)
	err := row.Scan(
		&c.ID,
		&ownerKind,
		&ownerID,
		&c.Currency,
		&status,
		&itemsJSON,
		&c.Subtotal,
		&c.ItemCount,
		&c.Version,
		&c.ExpiresAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("cart repo: scan error=%v", err)
		return nil, err
	}
	if ownerKind == domain.OwnerCustomer {
		c.Owner = domain.CustomerOwner(ownerID)
	} else {
		c.Owner = domain.SessionOwner(ownerID)
	}
	c.Status = domain.CartStatus(status)
	c.Items = []domain.CartItem{}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
			r.logger.Printf("cart repo: decode items id=%s err=%v", c.ID, err)
			return nil, err
		}
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package product

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

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

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
SELECT id::text, sku, title, price, currency, status, track_inventory, allow_backorder, stock, created_at
FROM products
WHERE id = $1
`
	var (
		p      domain.Product
		status string
	)
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.SKU, &p.Title, &p.Price, &p.Currency, &status, &p.TrackInventory, &p.AllowBackorder, &p.Stock, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("product repo: get id=%s not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get id=%s error=%v", id, err)
		return nil, err
	}
	p.Status = domain.ProductStatus(status)

	variants, err := r.listVariants(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Variants = variants
	return &p, nil
}

func (r *postgresRepo) listVariants(ctx context.Context, productID string) ([]domain.Variant, error) {
	const q = `
SELECT id::text, product_id::text, sku, title, price, status, stock
FROM product_variants
WHERE product_id = $1
ORDER BY sku
`
	rows, err := r.pool.Query(ctx, q, productID)
	if err != nil {
		r.logger.Printf("product repo: list variants product_id=%s error=%v", productID, err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Variant
	for rows.Next() {
		var (
			v      domain.Variant
			price  decimal.NullDecimal
			status string
		)
		if err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Title, &price, &status, &v.Stock); err != nil {
			return nil, err
		}
		if price.Valid {
			v.Price = &price.Decimal
		}
		v.Status = domain.ProductStatus(status)
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list variants rows product_id=%s error=%v", productID, err)
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const q = `
INSERT INTO products (id, sku, title, price, currency, status, track_inventory, allow_backorder, stock)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (sku) DO UPDATE SET
    title = EXCLUDED.title,
    price = EXCLUDED.price,
    currency = EXCLUDED.currency,
    status = EXCLUDED.status,
    track_inventory = EXCLUDED.track_inventory,
    allow_backorder = EXCLUDED.allow_backorder,
    stock = EXCLUDED.stock
RETURNING id::text, created_at
`
	status := p.Status
	if status == "" {
		status = domain.ProductActive
	}
	res := p
	res.Status = status
	err = tx.QueryRow(ctx, q, p.ID, p.SKU, p.Title, p.Price, p.Currency, string(status), p.TrackInventory, p.AllowBackorder, p.Stock).
		Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Printf("product repo: upsert sku=%s error=%v", p.SKU, err)
		return nil, err
	}

	const vq = `
INSERT INTO product_variants (product_id, sku, title, price, status, stock)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (sku) DO UPDATE SET
    title = EXCLUDED.title,
    price = EXCLUDED.price,
    status = EXCLUDED.status,
    stock = EXCLUDED.stock
RETURNING id::text
`
	res.Variants = make([]domain.Variant, len(p.Variants))
	for i, v := range p.Variants {
		if v.Status == "" {
			v.Status = domain.ProductActive
		}
		var price decimal.NullDecimal
		if v.Price != nil {
			price = decimal.NewNullDecimal(*v.Price)
		}
		if err := tx.QueryRow(ctx, vq, res.ID, v.SKU, v.Title, price, string(v.Status), v.Stock).Scan(&v.ID); err != nil {
			r.logger.Printf("product repo: upsert variant sku=%s error=%v", v.SKU, err)
			return nil, err
		}
		v.ProductID = res.ID
		res.Variants[i] = v
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("product repo: upserted sku=%s id=%s variants=%d", res.SKU, res.ID, len(res.Variants))
	return &res, nil
}

func (r *postgresRepo) DecrementStock(ctx context.Context, productID, variantID string, qty int) (int, error) {
	var (
		remaining int
		err       error
	)
	if variantID == "" {
		const q = `
UPDATE products
SET stock = stock - $2
WHERE id = $1 AND track_inventory
RETURNING stock
`
		err = r.pool.QueryRow(ctx, q, productID, qty).Scan(&remaining)
	} else {
		const q = `
UPDATE product_variants v
SET stock = v.stock - $3
FROM products p
WHERE v.id = $2 AND v.product_id = $1 AND p.id = v.product_id AND p.track_inventory
RETURNING v.stock
`
		err = r.pool.QueryRow(ctx, q, productID, variantID, qty).Scan(&remaining)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		r.logger.Printf("product repo: decrement product_id=%s variant_id=%s error=%v", productID, variantID, err)
		return 0, err
	}
	r.logger.Printf("product repo: decrement product_id=%s variant_id=%s qty=%d remaining=%d", productID, variantID, qty, remaining)
	return remaining, nil
}

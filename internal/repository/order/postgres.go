package order

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
)

const orderColumns = `id::text, order_number, customer_id::text, cart_id::text, items, currency, subtotal, shipping_cost, tax_amount, total,
       status, payment_status, payment_reference, shipping_address, billing_address, shipping_method, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres. Order numbers come from
// the order_number_seq sequence.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, o *domain.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	shipJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}
	billJSON, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return err
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&seq); err != nil {
		r.logger.Printf("order repo: next order number error=%v", err)
		return err
	}
	id := uuid.NewString()
	number := domain.FormatOrderNumber(o.CreatedAt, seq)

	const q = `
INSERT INTO orders (
    id, order_number, customer_id, cart_id, items, currency, subtotal, shipping_cost, tax_amount, total,
    status, payment_status, payment_reference, shipping_address, billing_address, shipping_method, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
`
	_, err = tx.Exec(ctx, q,
		id,
		number,
		o.Customer.ID(),
		o.CartID,
		itemsJSON,
		o.Currency,
		o.Subtotal,
		o.ShippingCost,
		o.TaxAmount,
		o.Total,
		string(o.Status),
		string(o.PaymentStatus),
		o.PaymentReference,
		shipJSON,
		billJSON,
		o.ShippingMethod,
		o.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		r.logger.Printf("order repo: create payment_reference=%s error=%v", o.PaymentReference, err)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	o.ID = id
	o.OrderNumber = number
	r.logger.Printf("order repo: created order_number=%s cart_id=%s", number, o.CartID)
	return nil
}

func (r *postgresRepo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE order_number = $1
`
	return r.scanOrder(r.pool.QueryRow(ctx, q, number))
}

func (r *postgresRepo) GetByPaymentReference(ctx context.Context, reference string) (*domain.Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE payment_reference = $1
`
	return r.scanOrder(r.pool.QueryRow(ctx, q, reference))
}

func (r *postgresRepo) scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                             domain.Order
		customerID                    string
		status, paymentStatus         string
		itemsJSON, shipJSON, billJSON []byte
	)
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&customerID,
		&o.CartID,
		&itemsJSON,
		&o.Currency,
		&o.Subtotal,
		&o.ShippingCost,
		&o.TaxAmount,
		&o.Total,
		&status,
		&paymentStatus,
		&o.PaymentReference,
		&shipJSON,
		&billJSON,
		&o.ShippingMethod,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: scan error=%v", err)
		return nil, err
	}
	o.Customer = domain.Reference[domain.Customer](customerID)
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		r.logger.Printf("order repo: decode items id=%s err=%v", o.ID, err)
		return nil, err
	}
	if err := json.Unmarshal(shipJSON, &o.ShippingAddress); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(billJSON, &o.BillingAddress); err != nil {
		return nil, err
	}
	return &o, nil
}

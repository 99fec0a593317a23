package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/bazaar-checkout/internal/domain/cart"
	"github.com/xenking/bazaar-checkout/internal/domain/order"
)

const (
	orderColumns = `id, user_id, items, shipping_address, subtotal, discount, shipping,
		total, coupon_code, payment_type, payment_transaction_id, payment_status,
		status, created_at`

	createOrderSQL = `INSERT INTO orders (id, user_id, items, shipping_address, subtotal,
			discount, shipping, total, coupon_code, payment_type,
			payment_transaction_id, payment_status, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13)`

	getOrderSQL         = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	getOrderByTxnSQL    = `SELECT ` + orderColumns + ` FROM orders WHERE payment_transaction_id = $1`
	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
)

// uniqueViolation is the PostgreSQL error code raised when the partial
// unique index on payment_transaction_id rejects a duplicate insert.
const uniqueViolation = "23505"

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The cart snapshot and shipping address are
// serialized to JSONB columns. A duplicate gateway transaction id is
// reported as order.ErrDuplicateTransaction so the caller can treat the
// retry as already recorded.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}
	addressJSON, err := json.Marshal(o.Address)
	if err != nil {
		return errors.Wrap(err, "marshal shipping address")
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON, addressJSON, o.Subtotal, o.Discount, o.Shipping,
		o.Total, o.CouponCode, o.Payment.Type, o.Payment.TransactionID,
		o.Payment.Status, o.Status,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return order.ErrDuplicateTransaction
		}
		return errors.Wrapf(err, "create order %q", o.ID)
	}

	return nil
}

// GetByID returns a single order, or ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderSQL, id)
}

// GetByTransactionID returns the order recorded for a gateway charge,
// or ErrNotFound.
func (r *OrderRepository) GetByTransactionID(ctx context.Context, transactionID string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByTxnSQL, transactionID)
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

func (r *OrderRepository) getOne(ctx context.Context, sql, arg string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o           order.Order
		itemsJSON   []byte
		addressJSON []byte
		txnID       *string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &addressJSON, &o.Subtotal, &o.Discount,
		&o.Shipping, &o.Total, &o.CouponCode, &o.Payment.Type, &txnID,
		&o.Payment.Status, &o.Status, &o.CreatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}

	if txnID != nil {
		o.Payment.TransactionID = *txnID
	}

	var items []cart.Line
	if err := json.Unmarshal(itemsJSON, &items); err != nil {
		return order.Order{}, errors.Wrap(err, "unmarshal order items")
	}
	o.Items = items

	if err := json.Unmarshal(addressJSON, &o.Address); err != nil {
		return order.Order{}, errors.Wrap(err, "unmarshal shipping address")
	}

	return o, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/biovolt/marketplace-api/internal/domain"
	pg "github.com/biovolt/marketplace-api/internal/platform/postgres"
	"github.com/biovolt/marketplace-api/internal/repositories"
)

// OrderRepository is the Postgres-backed order store.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository constructs the repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

const orderColumns = `id, user_id, email, status, payment_status, total_amount,
	shipping_address, billing_address, checkout_session_id,
	created_at, updated_at, paid_at, cancelled_at`

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	q := pg.QuerierFor(ctx, r.db)

	shipping, err := addressJSON(order.ShippingAddress)
	if err != nil {
		return repositories.NewUnavailable("encode shipping address", err)
	}
	billing, err := addressJSON(order.BillingAddress)
	if err != nil {
		return repositories.NewUnavailable("encode billing address", err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO orders
		   (id, user_id, email, status, payment_status, total_amount,
		    shipping_address, billing_address, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		order.ID, order.UserID, order.Email, order.Status, order.PaymentStatus,
		order.TotalAmount, shipping, billing, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return repositories.NewUnavailable("insert order", err)
	}

	for _, item := range order.Items {
		variant, err := variantJSON(item.SelectedVariant)
		if err != nil {
			return repositories.NewUnavailable("encode order line variant", err)
		}
		_, err = q.ExecContext(ctx,
			`INSERT INTO order_items
			   (id, order_id, product_id, product_name, quantity, price_at_purchase, selected_variant)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, order.ID, item.ProductID, item.ProductName,
			item.Quantity, item.PriceAtPurchase, variant)
		if err != nil {
			return repositories.NewUnavailable("insert order line", err)
		}
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	q := pg.QuerierFor(ctx, r.db)

	row := q.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, repositories.NewNotFound(fmt.Sprintf("order %s", orderID), err)
	}
	if err != nil {
		return domain.Order{}, repositories.NewUnavailable("find order", err)
	}

	items, err := r.loadItems(ctx, q, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	q := pg.QuerierFor(ctx, r.db)

	rows, err := q.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, repositories.NewUnavailable("list orders", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, repositories.NewUnavailable("scan order", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewUnavailable("iterate orders", err)
	}

	for i := range orders {
		items, err := r.loadItems(ctx, q, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, q pg.Querier, orderID string) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, product_id, product_name, quantity, price_at_purchase, selected_variant
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, repositories.NewUnavailable("list order lines", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			item    domain.OrderItem
			variant []byte
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.PriceAtPurchase, &variant); err != nil {
			return nil, repositories.NewUnavailable("scan order line", err)
		}
		selection, err := scanVariantJSON(variant)
		if err != nil {
			return nil, repositories.NewUnavailable("decode order line variant", err)
		}
		item.SelectedVariant = selection
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewUnavailable("iterate order lines", err)
	}
	return items, nil
}

func (r *OrderRepository) SetCheckoutSession(ctx context.Context, orderID, sessionID string) error {
	q := pg.QuerierFor(ctx, r.db)

	res, err := q.ExecContext(ctx,
		`UPDATE orders SET checkout_session_id = $2, updated_at = now() WHERE id = $1`,
		orderID, sessionID)
	if err != nil {
		return repositories.NewUnavailable("set checkout session", err)
	}
	return requireRow(res, fmt.Sprintf("order %s", orderID))
}

// MarkPaid is guarded so an already-paid or cancelled order is left
// untouched; the webhook reconciler relies on the zero-row result to detect
// redeliveries and late events for dead orders.
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID string, paidAt time.Time) (bool, error) {
	q := pg.QuerierFor(ctx, r.db)

	res, err := q.ExecContext(ctx,
		`UPDATE orders
		 SET payment_status = 'paid', status = 'processing', paid_at = $2, updated_at = now()
		 WHERE id = $1 AND payment_status <> 'paid' AND status <> 'cancelled'`,
		orderID, paidAt)
	if err != nil {
		return false, repositories.NewUnavailable("mark order paid", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, repositories.NewUnavailable("mark paid result", err)
	}
	return affected > 0, nil
}

func (r *OrderRepository) MarkCancelled(ctx context.Context, orderID string, cancelledAt time.Time) error {
	q := pg.QuerierFor(ctx, r.db)

	res, err := q.ExecContext(ctx,
		`UPDATE orders
		 SET status = 'cancelled', cancelled_at = $2, updated_at = now()
		 WHERE id = $1 AND status = 'pending'`,
		orderID, cancelledAt)
	if err != nil {
		return repositories.NewUnavailable("mark order cancelled", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return repositories.NewUnavailable("cancel result", err)
	}
	if affected == 0 {
		return repositories.NewConflict(fmt.Sprintf("order %s is not pending", orderID), nil)
	}
	return nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) error {
	q := pg.QuerierFor(ctx, r.db)

	res, err := q.ExecContext(ctx,
		`UPDATE orders SET status = $3, updated_at = now()
		 WHERE id = $1 AND status = $2`,
		orderID, from, to)
	if err != nil {
		return repositories.NewUnavailable("update order status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return repositories.NewUnavailable("update status result", err)
	}
	if affected == 0 {
		return repositories.NewConflict(fmt.Sprintf("order %s is no longer %s", orderID, from), nil)
	}
	return nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order       domain.Order
		shipping    []byte
		billing     []byte
		sessionID   sql.NullString
		paidAt      sql.NullTime
		cancelledAt sql.NullTime
	)
	err := row.Scan(&order.ID, &order.UserID, &order.Email, &order.Status,
		&order.PaymentStatus, &order.TotalAmount, &shipping, &billing,
		&sessionID, &order.CreatedAt, &order.UpdatedAt, &paidAt, &cancelledAt)
	if err != nil {
		return domain.Order{}, err
	}

	if order.ShippingAddress, err = scanAddressJSON(shipping); err != nil {
		return domain.Order{}, err
	}
	if order.BillingAddress, err = scanAddressJSON(billing); err != nil {
		return domain.Order{}, err
	}
	if sessionID.Valid {
		order.CheckoutSessionID = &sessionID.String
	}
	if paidAt.Valid {
		t := paidAt.Time
		order.PaidAt = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		order.CancelledAt = &t
	}
	return order, nil
}

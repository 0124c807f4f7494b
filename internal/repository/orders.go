package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/luckybee/storefront-system/internal/model"
)

const orderColumns = `id, order_number, user_id, user_email, status, payment_status,
	shipping_address, billing_address,
	subtotal, shipping_cost, tax, discount, total,
	payment_method, payment_intent_id, notes, admin_notes,
	paid_at, cancelled_at, refunded_at, created_at, updated_at`

func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		o            model.Order
		shippingJSON []byte
		billingJSON  []byte
	)

	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.UserEmail, &o.Status, &o.PaymentStatus,
		&shippingJSON, &billingJSON,
		&o.Subtotal, &o.ShippingCost, &o.Tax, &o.Discount, &o.Total,
		&o.PaymentMethod, &o.PaymentIntentID, &o.Notes, &o.AdminNotes,
		&o.PaidAt, &o.CancelledAt, &o.RefundedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}

	if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if err := json.Unmarshal(billingJSON, &o.BillingAddress); err != nil {
		return o, fmt.Errorf("unmarshal billing address: %w", err)
	}

	return o, nil
}

// CreateOrder сохраняет заказ со снимком позиций и удаляет корзину пользователя.
// Обе записи выполняются в одной транзакции: заказ без очищенной корзины
// существовать не может.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	shippingJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}
	billingJSON, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return fmt.Errorf("marshal billing address: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO orders (
			id, order_number, user_id, user_email, status, payment_status,
			shipping_address, billing_address,
			subtotal, shipping_cost, tax, discount, total,
			payment_method, payment_intent_id, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		o.ID, o.OrderNumber, o.UserID, o.UserEmail, string(o.Status), string(o.PaymentStatus),
		shippingJSON, billingJSON,
		o.Subtotal, o.ShippingCost, o.Tax, o.Discount, o.Total,
		o.PaymentMethod, o.PaymentIntentID, o.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range o.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, position, product_id, variant_id, name, sku, image, price, quantity, total)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			o.ID, i+1, item.ProductID, item.VariantID, item.Name, item.SKU, item.Image,
			item.Price, item.Quantity, item.Total,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, o.UserID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func (r *PostgresRepository) loadOrderItems(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, variant_id, name, sku, image, price, quantity, total
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY position`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ProductID, &item.VariantID, &item.Name, &item.SKU, &item.Image, &item.Price, &item.Quantity, &item.Total); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// GetOrder возвращает заказ по идентификатору вместе с позициями.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	o.Items, err = r.loadOrderItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}

	return &o, nil
}

func (r *PostgresRepository) listOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	var orders []model.Order
	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		orders = orders[:0]
		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return fmt.Errorf("scan order: %w", err)
			}
			orders = append(orders, o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	for i := range orders {
		orders[i].Items, err = r.loadOrderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return orders, nil
}

// CountOrders возвращает число заказов. Пустой статус означает все заказы.
func (r *PostgresRepository) CountOrders(ctx context.Context, status model.OrderStatus) (int, error) {
	query := `SELECT COUNT(*) FROM orders`
	args := []any{}

	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}

	var count int
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}

	return count, nil
}

// ListRecentOrders возвращает последние заказы от новых к старым.
func (r *PostgresRepository) ListRecentOrders(ctx context.Context, limit int) ([]model.Order, error) {
	return r.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
}

// ListOrdersByUser возвращает заказы пользователя от новых к старым.
func (r *PostgresRepository) ListOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return r.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
}

// ListOrders возвращает заказы от новых к старым. Пустой статус означает все заказы.
func (r *PostgresRepository) ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	if status == "" {
		return r.listOrders(ctx,
			`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	}
	return r.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at DESC`,
		string(status),
	)
}

// UpdateOrderStatus меняет статус заказа и обновляет updated_at.
// Для cancelled и refunded проставляются соответствующие отметки времени.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = now()`
	switch status {
	case model.OrderStatusCancelled:
		query += `, cancelled_at = now()`
	case model.OrderStatusRefunded:
		query += `, refunded_at = now()`
	}
	query += ` WHERE id = $1`

	cmdTag, err := r.pool.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// UpdatePaymentStatus меняет статус оплаты заказа и обновляет updated_at.
// Для paid и refunded проставляются соответствующие отметки времени.
func (r *PostgresRepository) UpdatePaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error {
	query := `UPDATE orders SET payment_status = $2, updated_at = now()`
	switch status {
	case model.PaymentStatusPaid:
		query += `, paid_at = now()`
	case model.PaymentStatusRefunded:
		query += `, refunded_at = now()`
	}
	query += ` WHERE id = $1`

	cmdTag, err := r.pool.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// SetAdminNotes сохраняет внутренние заметки администратора по заказу.
func (r *PostgresRepository) SetAdminNotes(ctx context.Context, id, notes string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET admin_notes = $2, updated_at = now() WHERE id = $1`,
		id, notes,
	)
	if err != nil {
		return fmt.Errorf("set admin notes: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

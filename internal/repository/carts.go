package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/luckybee/storefront-system/internal/model"
)

// GetCart возвращает корзину пользователя с позициями в порядке добавления.
// Subtotal и ItemCount вычисляются из позиций при чтении.
func (r *PostgresRepository) GetCart(ctx context.Context, userID string) (*model.Cart, error) {
	cart := &model.Cart{UserID: userID}

	err := r.pool.QueryRow(ctx,
		`SELECT discount, updated_at FROM carts WHERE user_id = $1`,
		userID,
	).Scan(&cart.Discount, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT product_id, variant_id, name, image, price, quantity
		 FROM cart_items
		 WHERE user_id = $1
		 ORDER BY position`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ProductID, &item.VariantID, &item.Name, &item.Image, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
		cart.Subtotal += item.Price * int64(item.Quantity)
		cart.ItemCount += item.Quantity
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return cart, nil
}

// UpsertCartItem добавляет позицию в корзину пользователя, создавая корзину
// при необходимости. Повторное добавление того же товара увеличивает количество.
func (r *PostgresRepository) UpsertCartItem(ctx context.Context, userID string, item model.CartItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO carts (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET updated_at = now()`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO cart_items (user_id, position, product_id, variant_id, name, image, price, quantity)
		 VALUES (
			$1,
			COALESCE((SELECT MAX(position) FROM cart_items WHERE user_id = $1), 0) + 1,
			$2, $3, $4, $5, $6, $7
		 )
		 ON CONFLICT (user_id, product_id, variant_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, price = EXCLUDED.price`,
		userID, item.ProductID, item.VariantID, item.Name, item.Image, item.Price, item.Quantity,
	)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// RemoveCartItem удаляет позицию из корзины пользователя.
func (r *PostgresRepository) RemoveCartItem(ctx context.Context, userID, productID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}

	return nil
}


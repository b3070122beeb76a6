package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/model"
)

// FindActiveCart возвращает активную корзину владельца вместе с позициями.
// При forUpdate строка корзины блокируется до конца транзакции.
func (r *PostgresRepository) FindActiveCart(ctx context.Context, owner model.CartOwner, forUpdate bool) (*model.Cart, error) {
	where, arg := `customer_id = $1`, any(owner.CustomerID)
	if owner.Anonymous() {
		where, arg = `session_id = $1`, owner.SessionID
	}

	var c model.Cart
	err := r.q(ctx).QueryRow(ctx,
		`SELECT id, uuid, customer_id, session_id, status, total_amount, total_items,
			ip_address, user_agent, expires_at, created_at
		 FROM shopping_carts
		 WHERE `+where+` AND status = 'ACTIVE'`+forUpdateClause(forUpdate),
		arg,
	).Scan(&c.ID, &c.UUID, &c.CustomerID, &c.SessionID, &c.Status, &c.TotalAmount, &c.TotalItems,
		&c.IPAddress, &c.UserAgent, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := r.q(ctx).Query(ctx,
		`SELECT id, uuid, cart_id, product_id, product_name, product_sku, quantity, unit_price, subtotal
		 FROM cart_items
		 WHERE cart_id = $1
		 ORDER BY id`,
		c.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.ID, &it.UUID, &it.CartID, &it.ProductID, &it.ProductName,
			&it.ProductSKU, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		c.Items = append(c.Items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &c, nil
}

// CreateCart создаёт корзину.
func (r *PostgresRepository) CreateCart(ctx context.Context, c *model.Cart) error {
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO shopping_carts (uuid, customer_id, session_id, status, total_amount, total_items,
			ip_address, user_agent, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		c.UUID, c.CustomerID, c.SessionID, string(c.Status), c.TotalAmount, c.TotalItems,
		c.IPAddress, c.UserAgent, c.ExpiresAt, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("create cart: %w", err)
	}
	return nil
}

// SaveCartItem добавляет новую позицию или обновляет существующую.
func (r *PostgresRepository) SaveCartItem(ctx context.Context, item *model.CartItem) error {
	if item.ID == 0 {
		err := r.q(ctx).QueryRow(ctx,
			`INSERT INTO cart_items (uuid, cart_id, product_id, product_name, product_sku, quantity, unit_price, subtotal)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			item.UUID, item.CartID, item.ProductID, item.ProductName, item.ProductSKU,
			item.Quantity, item.UnitPrice, item.Subtotal,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
		return nil
	}

	_, err := r.q(ctx).Exec(ctx,
		`UPDATE cart_items SET quantity = $2, subtotal = $3 WHERE id = $1`,
		item.ID, item.Quantity, item.Subtotal,
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return nil
}

// UpdateCartTotals сохраняет итоги корзины.
func (r *PostgresRepository) UpdateCartTotals(ctx context.Context, c *model.Cart) error {
	_, err := r.q(ctx).Exec(ctx,
		`UPDATE shopping_carts SET total_amount = $2, total_items = $3, updated_at = NOW() WHERE id = $1`,
		c.ID, c.TotalAmount, c.TotalItems,
	)
	if err != nil {
		return fmt.Errorf("update cart totals: %w", err)
	}
	return nil
}

// UpdateCartStatus меняет статус корзины.
func (r *PostgresRepository) UpdateCartStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	tag, err := r.q(ctx).Exec(ctx,
		`UPDATE shopping_carts SET status = $2, updated_at = NOW() WHERE id = $1`,
		cartID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update cart status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrCartNotFound
	}
	return nil
}

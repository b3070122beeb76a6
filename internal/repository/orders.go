package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/model"
)

// CreateOrder сохраняет заказ с позициями. Вставка выполняется в точке
// сохранения, поэтому при совпадении номера заказа внешняя транзакция
// остаётся пригодной и вызывающий может повторить попытку с другим номером.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	return r.WithTx(ctx, func(ctx context.Context) error {
		tx := ctx.Value(txKey{}).(pgx.Tx)

		sp, err := tx.Begin(ctx)
		if err != nil {
			return fmt.Errorf("create savepoint: %w", err)
		}
		defer sp.Rollback(ctx)

		a := o.ShippingAddress
		err = sp.QueryRow(ctx,
			`INSERT INTO orders (uuid, order_number, customer_id,
				shipping_address_line1, shipping_address_line2, shipping_city, shipping_state,
				shipping_postal_code, shipping_country,
				status, subtotal, tax, shipping_cost, total_amount, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			 RETURNING id`,
			o.UUID, o.Number, o.CustomerID,
			a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country,
			string(o.Status), o.Subtotal, o.Tax, o.ShippingCost, o.TotalAmount, o.CreatedAt,
		).Scan(&o.ID)
		if err != nil {
			if constraint, ok := uniqueViolation(err); ok && constraint == "orders_order_number_key" {
				return apperr.ErrDuplicateOrderNumber
			}
			return fmt.Errorf("insert order: %w", err)
		}

		batch := &pgx.Batch{}
		for i := range o.Items {
			it := &o.Items[i]
			it.OrderID = o.ID
			batch.Queue(
				`INSERT INTO order_items (uuid, order_id, product_id, product_name, quantity, unit_price, subtotal)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 RETURNING id`,
				it.UUID, it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.Subtotal,
			).QueryRow(func(row pgx.Row) error {
				return row.Scan(&it.ID)
			})
		}
		if err := sp.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}

		if err := sp.Commit(ctx); err != nil {
			return fmt.Errorf("release savepoint: %w", err)
		}
		return nil
	})
}

// FindOrder возвращает заказ покупателя вместе с позициями.
// При forUpdate строка заказа блокируется до конца транзакции.
func (r *PostgresRepository) FindOrder(ctx context.Context, orderUUID uuid.UUID, customerID int64, forUpdate bool) (*model.Order, error) {
	var o model.Order
	a := &o.ShippingAddress
	err := r.q(ctx).QueryRow(ctx,
		`SELECT id, uuid, order_number, customer_id,
			shipping_address_line1, shipping_address_line2, shipping_city, shipping_state,
			shipping_postal_code, shipping_country,
			status, subtotal, tax, shipping_cost, total_amount, created_at, completed_at
		 FROM orders
		 WHERE uuid = $1 AND customer_id = $2`+forUpdateClause(forUpdate),
		orderUUID, customerID,
	).Scan(&o.ID, &o.UUID, &o.Number, &o.CustomerID,
		&a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country,
		&o.Status, &o.Subtotal, &o.Tax, &o.ShippingCost, &o.TotalAmount, &o.CreatedAt, &o.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.q(ctx).Query(ctx,
		`SELECT id, uuid, order_id, product_id, product_name, quantity, unit_price, subtotal
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY id`,
		o.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.UUID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &o, nil
}

// UpdateOrderStatus меняет статус заказа. Время завершения записывается, только если передано.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus, completedAt *time.Time) error {
	tag, err := r.q(ctx).Exec(ctx,
		`UPDATE orders SET status = $2, completed_at = COALESCE($3, completed_at) WHERE id = $1`,
		orderID, string(status), completedAt,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrOrderNotFound
	}
	return nil
}

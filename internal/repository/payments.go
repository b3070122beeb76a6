package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/model"
)

// CreatePayment сохраняет запись оплаты.
func (r *PostgresRepository) CreatePayment(ctx context.Context, p *model.Payment) error {
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO payments (uuid, order_id, card_id, amount, currency, status,
			attempt_number, max_attempts, transaction_id, failure_reason, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		p.UUID, p.OrderID, p.CardID, p.Amount, p.Currency, string(p.Status),
		p.AttemptNumber, p.MaxAttempts, nullString(p.TransactionID), nullString(p.FailureReason), p.ProcessedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindRetryablePayment возвращает платёж заказа в статусе PENDING или DECLINED
// с наибольшим номером попытки.
func (r *PostgresRepository) FindRetryablePayment(ctx context.Context, orderID int64, forUpdate bool) (*model.Payment, error) {
	lock := ""
	if forUpdate {
		lock = " FOR UPDATE OF p"
	}

	var (
		p             model.Payment
		transactionID *string
		failure       *string
	)
	err := r.q(ctx).QueryRow(ctx,
		`SELECT p.id, p.uuid, p.order_id, o.uuid, p.card_id, p.amount, p.currency, p.status,
			p.attempt_number, p.max_attempts, p.transaction_id, p.failure_reason, p.processed_at
		 FROM payments p
		 JOIN orders o ON o.id = p.order_id
		 WHERE p.order_id = $1 AND p.status IN ($2, $3)
		 ORDER BY p.attempt_number DESC
		 LIMIT 1`+lock,
		orderID, string(model.PaymentStatusPending), string(model.PaymentStatusDeclined),
	).Scan(&p.ID, &p.UUID, &p.OrderID, &p.OrderUUID, &p.CardID, &p.Amount, &p.Currency, &p.Status,
		&p.AttemptNumber, &p.MaxAttempts, &transactionID, &failure, &p.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}

	p.TransactionID = derefString(transactionID)
	p.FailureReason = derefString(failure)
	return &p, nil
}

// UpdatePayment сохраняет результат попытки оплаты.
func (r *PostgresRepository) UpdatePayment(ctx context.Context, p *model.Payment) error {
	tag, err := r.q(ctx).Exec(ctx,
		`UPDATE payments
		 SET status = $2, attempt_number = $3, transaction_id = $4, failure_reason = $5,
			processed_at = $6, updated_at = NOW()
		 WHERE id = $1`,
		p.ID, string(p.Status), p.AttemptNumber, nullString(p.TransactionID), nullString(p.FailureReason), p.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrOrderNotFound
	}
	return nil
}

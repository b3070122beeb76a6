package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/storefront/internal/model"
)

func nullID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

// CreateEmailNotification ставит письмо в очередь отправки.
func (r *PostgresRepository) CreateEmailNotification(ctx context.Context, n *model.EmailNotification) error {
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO email_notifications (uuid, customer_id, order_id, payment_id, recipient, subject, body,
			email_type, status, retry_count, max_retries)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at`,
		n.UUID, n.CustomerID, nullID(n.OrderID), nullID(n.PaymentID), n.To, n.Subject, n.Body,
		string(n.Type), string(n.Status), n.RetryCount, n.MaxRetries,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create email notification: %w", err)
	}
	return nil
}

// ListPendingEmailNotifications возвращает письма, ожидающие отправки, от старых к новым.
func (r *PostgresRepository) ListPendingEmailNotifications(ctx context.Context, limit int) ([]model.EmailNotification, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT id, uuid, customer_id, COALESCE(order_id, 0), COALESCE(payment_id, 0), recipient, subject, body,
			email_type, status, retry_count, max_retries, sent_at, COALESCE(error_message, ''), created_at
		 FROM email_notifications
		 WHERE status = $1 AND retry_count < max_retries
		 ORDER BY created_at
		 LIMIT $2`,
		string(model.EmailStatusPending), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select pending emails: %w", err)
	}
	defer rows.Close()

	var res []model.EmailNotification
	for rows.Next() {
		var n model.EmailNotification
		if err := rows.Scan(&n.ID, &n.UUID, &n.CustomerID, &n.OrderID, &n.PaymentID, &n.To, &n.Subject, &n.Body,
			&n.Type, &n.Status, &n.RetryCount, &n.MaxRetries, &n.SentAt, &n.ErrorMessage, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		res = append(res, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateEmailNotification сохраняет результат попытки отправки.
func (r *PostgresRepository) UpdateEmailNotification(ctx context.Context, n *model.EmailNotification) error {
	_, err := r.q(ctx).Exec(ctx,
		`UPDATE email_notifications
		 SET status = $2, retry_count = $3, sent_at = $4, error_message = $5
		 WHERE id = $1`,
		n.ID, string(n.Status), n.RetryCount, n.SentAt, nullString(n.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("update email notification: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/storefront/internal/model"
)

// CreateTransactionLog сохраняет запись журнала обращений к API.
func (r *PostgresRepository) CreateTransactionLog(ctx context.Context, l *model.TransactionLog) error {
	_, err := r.q(ctx).Exec(ctx,
		`INSERT INTO transaction_logs (method, endpoint, status_code, customer_id, ip_address, user_agent,
			duration_ms, success, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.Method, l.Endpoint, l.StatusCode, l.CustomerID, l.IPAddress, l.UserAgent,
		l.DurationMs, l.Success, nullString(l.ErrorMessage), l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction log: %w", err)
	}
	return nil
}

// CreateProductSearch сохраняет запись журнала поиска.
func (r *PostgresRepository) CreateProductSearch(ctx context.Context, s *model.ProductSearch) error {
	_, err := r.q(ctx).Exec(ctx,
		`INSERT INTO product_searches (customer_id, search_query, results_count, ip_address, user_agent, searched_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.CustomerID, s.Query, s.ResultsCount, s.IPAddress, s.UserAgent, s.SearchedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product search: %w", err)
	}
	return nil
}

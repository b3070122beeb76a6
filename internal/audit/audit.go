// Package audit сохраняет журнал обращений к API и поисковых запросов.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/events"
	"github.com/mmeshcher/storefront/internal/model"
)

// Repository описывает хранилище журналов.
type Repository interface {
	CreateTransactionLog(ctx context.Context, l *model.TransactionLog) error
	CreateProductSearch(ctx context.Context, s *model.ProductSearch) error
}

// Recorder записывает журналы по событиям шины.
type Recorder struct {
	repo   Repository
	logger *zap.Logger
}

// NewRecorder создаёт подписчика журналов.
func NewRecorder(repo Repository, logger *zap.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Handle сохраняет RequestCompleted и ProductSearched. Остальные события игнорируются.
func (r *Recorder) Handle(ctx context.Context, e events.Event) {
	switch ev := e.(type) {
	case events.RequestCompleted:
		entry := &model.TransactionLog{
			Method:       ev.Method,
			Endpoint:     ev.Endpoint,
			StatusCode:   ev.StatusCode,
			CustomerID:   ev.CustomerID,
			IPAddress:    ev.IPAddress,
			UserAgent:    ev.UserAgent,
			DurationMs:   ev.Duration.Milliseconds(),
			Success:      ev.StatusCode < 400,
			ErrorMessage: ev.ErrorMessage,
			CreatedAt:    ev.CompletedAt,
		}
		if err := r.repo.CreateTransactionLog(ctx, entry); err != nil {
			r.logger.Error("save transaction log failed", zap.String("endpoint", ev.Endpoint), zap.Error(err))
		}
	case events.ProductSearched:
		entry := &model.ProductSearch{
			CustomerID:   ev.CustomerID,
			Query:        ev.Query,
			ResultsCount: ev.ResultsCount,
			IPAddress:    ev.IPAddress,
			UserAgent:    ev.UserAgent,
			SearchedAt:   ev.SearchedAt,
		}
		if err := r.repo.CreateProductSearch(ctx, entry); err != nil {
			r.logger.Error("save product search failed", zap.String("query", ev.Query), zap.Error(err))
		}
	}
}

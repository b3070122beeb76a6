package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/events"
	"github.com/mmeshcher/storefront/internal/model"
)

const minSearchQueryLength = 3

// SearchProducts ищет активные товары по вхождению query в название без учёта регистра.
// Товары с остатком не выше порога видимости не показываются.
func (s *Service) SearchProducts(ctx context.Context, customerID *int64, query string, client ClientInfo) ([]model.Product, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchQueryLength {
		return nil, apperr.New(apperr.ErrSearchQueryTooShort,
			"La consulta de búsqueda debe tener al menos %d caracteres.", minSearchQueryLength)
	}

	products, err := s.repo.SearchProducts(ctx, query, s.settings.MinStockVisibility(ctx))
	if err != nil {
		return nil, err
	}

	s.events.Publish(events.ProductSearched{
		CustomerID:   customerID,
		Query:        query,
		ResultsCount: len(products),
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
		SearchedAt:   s.now(),
	})

	return products, nil
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/tokenize"
)

// RegisterCard токенизирует карту и сохраняет её за покупателем.
// Номер карты и CVV не сохраняются, срок действия хранится зашифрованным.
func (s *Service) RegisterCard(ctx context.Context, customerID int64, req tokenize.Request) (*model.TokenizedCard, error) {
	req.HolderName = strings.TrimSpace(req.HolderName)
	if req.HolderName == "" {
		return nil, apperr.New(apperr.ErrInvalidCardData, "El nombre del titular es requerido.")
	}

	res, err := s.tokenizer.Tokenize(ctx, req)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.CardExists(ctx, customerID, res.LastFour, res.Brand)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.New(apperr.ErrCardAlreadyExists,
			"Esta tarjeta (%s que termina en %s) ya se encuentra registrada.", res.Brand, res.LastFour)
	}

	month, err := s.encrypter.Encrypt(strings.TrimSpace(req.ExpMonth))
	if err != nil {
		return nil, fmt.Errorf("encrypt expiration month: %w", err)
	}
	year, err := s.encrypter.Encrypt(strings.TrimSpace(req.ExpYear))
	if err != nil {
		return nil, fmt.Errorf("encrypt expiration year: %w", err)
	}

	card := &model.TokenizedCard{
		UUID:           uuid.New(),
		CustomerID:     customerID,
		Token:          res.Token,
		LastFour:       res.LastFour,
		Brand:          res.Brand,
		HolderName:     req.HolderName,
		ExpMonthCipher: month,
		ExpYearCipher:  year,
		Active:         true,
		CreatedAt:      s.now(),
	}
	if err := s.repo.CreateCard(ctx, card); err != nil {
		return nil, err
	}

	s.logger.Info("card registered", zap.Int64("customerID", customerID), zap.String("brand", card.Brand))
	return card, nil
}

// ListCards возвращает активные карты покупателя.
func (s *Service) ListCards(ctx context.Context, customerID int64) ([]model.TokenizedCard, error) {
	return s.repo.ListCards(ctx, customerID)
}

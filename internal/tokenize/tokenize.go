// Package tokenize реализует имитацию провайдера токенизации банковских карт.
package tokenize

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/validation"
)

// Request содержит данные карты для токенизации.
type Request struct {
	CardNumber string `json:"card_number"`
	CVV        string `json:"cvv"`
	ExpMonth   string `json:"expiration_month"`
	ExpYear    string `json:"expiration_year"`
	HolderName string `json:"card_holder_name"`
}

// Result содержит результат успешной токенизации.
type Result struct {
	Token    string `json:"token"`
	Brand    string `json:"card_brand"`
	LastFour string `json:"last_four_digits"`
}

// Settings описывает источник вероятности отказа.
type Settings interface {
	TokenizationRejectionProbability(ctx context.Context) float64
}

// Service выполняет проверку карты и выдаёт токен.
type Service struct {
	settings Settings
	logger   *zap.Logger
	rand     func() float64
	now      func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithRand подменяет источник случайных чисел.
func WithRand(fn func() float64) Option {
	return func(s *Service) { s.rand = fn }
}

// WithClock подменяет текущее время.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

// NewService создаёт сервис токенизации.
func NewService(settings Settings, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		settings: settings,
		logger:   logger,
		rand:     rand.Float64,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tokenize проверяет карту и возвращает токен.
// Ошибки проверки имеют вид ErrInvalidCardData, отказ провайдера имеет вид ErrTokenization.
func (s *Service) Tokenize(ctx context.Context, req Request) (*Result, error) {
	number := validation.NormalizeCardNumber(req.CardNumber)

	brand, err := s.validate(number, req)
	if err != nil {
		return nil, err
	}

	probability := s.settings.TokenizationRejectionProbability(ctx)
	if s.rand() < probability {
		s.logger.Warn("tokenization rejected", zap.Float64("probability", probability))
		return nil, apperr.New(apperr.ErrTokenization, "Tokenizacion rechazada por el proveedor")
	}

	return &Result{
		Token:    "tkn_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Brand:    string(brand),
		LastFour: number[len(number)-4:],
	}, nil
}

func (s *Service) validate(number string, req Request) (validation.Brand, error) {
	if !validation.IsValidLuhn(number) {
		return "", apperr.New(apperr.ErrInvalidCardData, "Numero de tarjeta inválido (Luhn check failed)")
	}

	month, errMonth := strconv.Atoi(strings.TrimSpace(req.ExpMonth))
	year, errYear := strconv.Atoi(strings.TrimSpace(req.ExpYear))
	if errMonth != nil || errYear != nil {
		return "", apperr.New(apperr.ErrInvalidCardData, "El mes o año de expiración no son un número")
	}
	if !validation.IsValidExpiryMonth(month) {
		return "", apperr.New(apperr.ErrInvalidCardData, "Mes de expiración inválido")
	}
	if validation.IsExpired(year, month, s.now()) {
		return "", apperr.New(apperr.ErrInvalidCardData, "Tarjeta está expirada")
	}

	if !validation.IsValidCVV(req.CVV) {
		return "", apperr.New(apperr.ErrInvalidCardData, "CVV inválido")
	}

	brand, ok := validation.DetectBrand(number)
	if !ok {
		return "", apperr.New(apperr.ErrInvalidCardData, "Marca de tarjeta no soportada.")
	}

	return brand, nil
}

// Package settings предоставляет доступ к бизнес-параметрам, хранящимся в таблице system_config.
//
// Параметры читаются при каждом обращении, поэтому изменение через Update
// вступает в силу без перезапуска. При отсутствии ключа или ошибке хранилища
// используется значение по умолчанию.
package settings

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/model"
)

// Ключи параметров.
const (
	KeyTaxRatePercentage                = "tax.rate.percentage"
	KeyPaymentMaxRetryAttempts          = "payment.max.retry.attempts"
	KeyPaymentRejectionProbability      = "payment.rejection.probability"
	KeyTokenizationRejectionProbability = "tokenization.rejection.probability"
	KeyProductMinStockVisibility        = "product.min.stock.visibility"
	KeyCartExpirationHours              = "cart.expiration.hours"
	KeyEmailMaxRetries                  = "email.max.retries"
)

// Значения по умолчанию.
const (
	DefaultTaxRatePercentage                = 16.0
	DefaultPaymentMaxRetryAttempts          = 3
	DefaultPaymentRejectionProbability      = 0.15
	DefaultTokenizationRejectionProbability = 0.10
	DefaultProductMinStockVisibility        = 5
	DefaultCartExpirationHours              = 72
	DefaultEmailMaxRetries                  = 3
)

//go:embed defaults.yaml
var defaultsYAML []byte

type valueKind int

const (
	kindProbability valueKind = iota
	kindCount
	kindPercent
)

// updatable перечисляет ключи, разрешённые к изменению, и правило проверки значения.
var updatable = map[string]valueKind{
	KeyTaxRatePercentage:                kindPercent,
	KeyPaymentMaxRetryAttempts:          kindCount,
	KeyPaymentRejectionProbability:      kindProbability,
	KeyTokenizationRejectionProbability: kindProbability,
	KeyProductMinStockVisibility:        kindCount,
	KeyCartExpirationHours:              kindCount,
	KeyEmailMaxRetries:                  kindCount,
}

// Repository описывает хранилище параметров.
type Repository interface {
	GetConfig(ctx context.Context, key string) (*model.SystemConfig, error)
	UpdateConfig(ctx context.Context, key, value string) (*model.SystemConfig, error)
	InsertConfigDefaults(ctx context.Context, defaults []model.SystemConfig) error
}

// Store предоставляет типизированный доступ к параметрам.
type Store struct {
	repo   Repository
	logger *zap.Logger
}

// NewStore создаёт хранилище параметров.
func NewStore(repo Repository, logger *zap.Logger) *Store {
	return &Store{repo: repo, logger: logger}
}

// String возвращает строковое значение параметра.
func (s *Store) String(ctx context.Context, key string) (string, bool) {
	cfg, err := s.repo.GetConfig(ctx, key)
	if err != nil {
		if !errors.Is(err, apperr.ErrConfigKeyNotFound) {
			s.logger.Warn("read system config failed, using default", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return cfg.Value, true
}

// Int возвращает целочисленное значение параметра или def.
func (s *Store) Int(ctx context.Context, key string, def int) int {
	raw, ok := s.String(ctx, key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		s.logger.Warn("invalid integer in system config", zap.String("key", key), zap.String("value", raw))
		return def
	}
	return v
}

// Float возвращает дробное значение параметра или def.
func (s *Store) Float(ctx context.Context, key string, def float64) float64 {
	raw, ok := s.String(ctx, key)
	if !ok {
		return def
	}
	v, err := parseFinite(strings.TrimSpace(raw))
	if err != nil {
		s.logger.Warn("invalid number in system config", zap.String("key", key), zap.String("value", raw))
		return def
	}
	return v
}

// TaxRatePercent возвращает ставку налога в процентах.
func (s *Store) TaxRatePercent(ctx context.Context) float64 {
	return s.Float(ctx, KeyTaxRatePercentage, DefaultTaxRatePercentage)
}

// MaxPaymentAttempts возвращает допустимое число попыток оплаты заказа.
func (s *Store) MaxPaymentAttempts(ctx context.Context) int {
	return s.Int(ctx, KeyPaymentMaxRetryAttempts, DefaultPaymentMaxRetryAttempts)
}

// PaymentRejectionProbability возвращает вероятность отказа платёжного шлюза.
func (s *Store) PaymentRejectionProbability(ctx context.Context) float64 {
	return s.Float(ctx, KeyPaymentRejectionProbability, DefaultPaymentRejectionProbability)
}

// TokenizationRejectionProbability возвращает вероятность отказа при токенизации карты.
func (s *Store) TokenizationRejectionProbability(ctx context.Context) float64 {
	return s.Float(ctx, KeyTokenizationRejectionProbability, DefaultTokenizationRejectionProbability)
}

// MinStockVisibility возвращает остаток, при котором и ниже которого товар скрыт из поиска.
func (s *Store) MinStockVisibility(ctx context.Context) int {
	return s.Int(ctx, KeyProductMinStockVisibility, DefaultProductMinStockVisibility)
}

// CartExpiration возвращает срок жизни новой корзины.
func (s *Store) CartExpiration(ctx context.Context) time.Duration {
	return time.Duration(s.Int(ctx, KeyCartExpirationHours, DefaultCartExpirationHours)) * time.Hour
}

// EmailMaxRetries возвращает число попыток отправки письма.
func (s *Store) EmailMaxRetries(ctx context.Context) int {
	return s.Int(ctx, KeyEmailMaxRetries, DefaultEmailMaxRetries)
}

// Update изменяет значение разрешённого параметра после проверки.
func (s *Store) Update(ctx context.Context, key, value string) (*model.SystemConfig, error) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	kind, ok := updatable[key]
	if !ok {
		return nil, apperr.New(apperr.ErrInvalidConfigValue, "La clave '%s' no puede ser modificada.", key)
	}

	if err := validate(key, kind, value); err != nil {
		return nil, err
	}

	cfg, err := s.repo.UpdateConfig(ctx, key, value)
	if err != nil {
		if errors.Is(err, apperr.ErrConfigKeyNotFound) {
			return nil, apperr.New(apperr.ErrConfigKeyNotFound, "Configuración no encontrada: %s", key)
		}
		return nil, fmt.Errorf("update system config: %w", err)
	}

	s.logger.Info("system config updated", zap.String("key", key), zap.String("value", value))
	return cfg, nil
}

// parseFinite разбирает число и отклоняет NaN и бесконечности.
func parseFinite(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not finite", raw)
	}
	return v, nil
}

func validate(key string, kind valueKind, value string) error {
	switch kind {
	case kindProbability:
		v, err := parseFinite(value)
		if err != nil || v < 0 || v > 1 {
			return apperr.New(apperr.ErrInvalidConfigValue,
				"El valor de '%s' debe ser un número entre 0.0 y 1.0.", key)
		}
	case kindPercent:
		v, err := parseFinite(value)
		if err != nil || v < 0 || v > 100 {
			return apperr.New(apperr.ErrInvalidConfigValue,
				"El valor de '%s' debe ser un número entre 0 y 100.", key)
		}
	case kindCount:
		v, err := strconv.Atoi(value)
		if err != nil || v < 0 {
			return apperr.New(apperr.ErrInvalidConfigValue,
				"El valor de '%s' debe ser un entero no negativo.", key)
		}
		if v == 0 && key != KeyProductMinStockVisibility {
			return apperr.New(apperr.ErrInvalidConfigValue,
				"El valor de '%s' debe ser mayor que cero.", key)
		}
	}
	return nil
}

// Defaults возвращает значения по умолчанию из встроенного файла.
func Defaults() ([]model.SystemConfig, error) {
	var entries []struct {
		Key         string `yaml:"key"`
		Value       string `yaml:"value"`
		Description string `yaml:"description"`
	}
	if err := yaml.Unmarshal(defaultsYAML, &entries); err != nil {
		return nil, fmt.Errorf("parse config defaults: %w", err)
	}

	res := make([]model.SystemConfig, 0, len(entries))
	for _, e := range entries {
		res = append(res, model.SystemConfig{Key: e.Key, Value: e.Value, Description: e.Description})
	}
	return res, nil
}

// Seed добавляет отсутствующие параметры со значениями по умолчанию.
// Существующие значения не перезаписываются.
func (s *Store) Seed(ctx context.Context) error {
	defaults, err := Defaults()
	if err != nil {
		return err
	}
	if err := s.repo.InsertConfigDefaults(ctx, defaults); err != nil {
		return fmt.Errorf("seed system config: %w", err)
	}
	return nil
}

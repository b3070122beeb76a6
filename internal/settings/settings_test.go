package settings

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/model"
)

type stubRepo struct {
	values map[string]string
	getErr error
}

func (s *stubRepo) GetConfig(ctx context.Context, key string) (*model.SystemConfig, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.values[key]
	if !ok {
		return nil, apperr.ErrConfigKeyNotFound
	}
	return &model.SystemConfig{Key: key, Value: v}, nil
}

func (s *stubRepo) UpdateConfig(ctx context.Context, key, value string) (*model.SystemConfig, error) {
	if _, ok := s.values[key]; !ok {
		return nil, apperr.ErrConfigKeyNotFound
	}
	s.values[key] = value
	return &model.SystemConfig{Key: key, Value: value}, nil
}

func (s *stubRepo) InsertConfigDefaults(ctx context.Context, defaults []model.SystemConfig) error {
	for _, d := range defaults {
		if _, ok := s.values[d.Key]; !ok {
			s.values[d.Key] = d.Value
		}
	}
	return nil
}

func newStore(values map[string]string) (*Store, *stubRepo) {
	repo := &stubRepo{values: values}
	return NewStore(repo, zap.NewNop()), repo
}

func TestAccessors_FallBackToDefaults(t *testing.T) {
	s, _ := newStore(map[string]string{
		KeyPaymentMaxRetryAttempts: "not-a-number",
	})
	ctx := context.Background()

	assert.Equal(t, DefaultTaxRatePercentage, s.TaxRatePercent(ctx))
	assert.Equal(t, DefaultPaymentMaxRetryAttempts, s.MaxPaymentAttempts(ctx))
	assert.Equal(t, DefaultPaymentRejectionProbability, s.PaymentRejectionProbability(ctx))
	assert.Equal(t, DefaultTokenizationRejectionProbability, s.TokenizationRejectionProbability(ctx))
	assert.Equal(t, DefaultProductMinStockVisibility, s.MinStockVisibility(ctx))
	assert.Equal(t, 72*time.Hour, s.CartExpiration(ctx))
	assert.Equal(t, DefaultEmailMaxRetries, s.EmailMaxRetries(ctx))
}

func TestAccessors_NonFiniteStoredValuesUseDefaults(t *testing.T) {
	s, _ := newStore(map[string]string{
		KeyTaxRatePercentage:                "NaN",
		KeyPaymentRejectionProbability:      "+Inf",
		KeyTokenizationRejectionProbability: "-Inf",
	})
	ctx := context.Background()

	assert.Equal(t, DefaultTaxRatePercentage, s.TaxRatePercent(ctx))
	assert.Equal(t, DefaultPaymentRejectionProbability, s.PaymentRejectionProbability(ctx))
	assert.Equal(t, DefaultTokenizationRejectionProbability, s.TokenizationRejectionProbability(ctx))
}

func TestAccessors_StoreErrorUsesDefault(t *testing.T) {
	s, repo := newStore(map[string]string{KeyTaxRatePercentage: "8"})
	repo.getErr = errors.New("connection refused")

	assert.Equal(t, DefaultTaxRatePercentage, s.TaxRatePercent(context.Background()))
}

func TestAccessors_ReadStoredValues(t *testing.T) {
	s, _ := newStore(map[string]string{
		KeyTaxRatePercentage:           "8.5",
		KeyPaymentMaxRetryAttempts:     " 5 ",
		KeyPaymentRejectionProbability: "1.0",
		KeyCartExpirationHours:         "24",
	})
	ctx := context.Background()

	assert.Equal(t, 8.5, s.TaxRatePercent(ctx))
	assert.Equal(t, 5, s.MaxPaymentAttempts(ctx))
	assert.Equal(t, 1.0, s.PaymentRejectionProbability(ctx))
	assert.Equal(t, 24*time.Hour, s.CartExpiration(ctx))
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr error
	}{
		{name: "probability ok", key: KeyPaymentRejectionProbability, value: "0.5"},
		{name: "probability upper bound", key: KeyTokenizationRejectionProbability, value: "1.0"},
		{name: "probability above one", key: KeyPaymentRejectionProbability, value: "1.01", wantErr: apperr.ErrInvalidConfigValue},
		{name: "probability negative", key: KeyPaymentRejectionProbability, value: "-0.1", wantErr: apperr.ErrInvalidConfigValue},
		{name: "probability not a number", key: KeyPaymentRejectionProbability, value: "abc", wantErr: apperr.ErrInvalidConfigValue},
		{name: "attempts ok", key: KeyPaymentMaxRetryAttempts, value: "5"},
		{name: "attempts zero", key: KeyPaymentMaxRetryAttempts, value: "0", wantErr: apperr.ErrInvalidConfigValue},
		{name: "attempts fractional", key: KeyPaymentMaxRetryAttempts, value: "2.5", wantErr: apperr.ErrInvalidConfigValue},
		{name: "visibility zero allowed", key: KeyProductMinStockVisibility, value: "0"},
		{name: "visibility negative", key: KeyProductMinStockVisibility, value: "-1", wantErr: apperr.ErrInvalidConfigValue},
		{name: "tax rate", key: KeyTaxRatePercentage, value: "8"},
		{name: "tax rate above hundred", key: KeyTaxRatePercentage, value: "101", wantErr: apperr.ErrInvalidConfigValue},
		{name: "probability NaN", key: KeyPaymentRejectionProbability, value: "NaN", wantErr: apperr.ErrInvalidConfigValue},
		{name: "probability Inf", key: KeyTokenizationRejectionProbability, value: "Inf", wantErr: apperr.ErrInvalidConfigValue},
		{name: "probability -Inf", key: KeyPaymentRejectionProbability, value: "-Inf", wantErr: apperr.ErrInvalidConfigValue},
		{name: "tax rate NaN", key: KeyTaxRatePercentage, value: "NaN", wantErr: apperr.ErrInvalidConfigValue},
		{name: "tax rate Inf", key: KeyTaxRatePercentage, value: "Inf", wantErr: apperr.ErrInvalidConfigValue},
		{name: "tax rate -Inf", key: KeyTaxRatePercentage, value: "-Inf", wantErr: apperr.ErrInvalidConfigValue},
		{name: "not allow-listed", key: "admin.password", value: "x", wantErr: apperr.ErrInvalidConfigValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, repo := newStore(map[string]string{})
			require.NoError(t, s.Seed(context.Background()))

			cfg, err := s.Update(context.Background(), tt.key, tt.value)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value, cfg.Value)
			assert.Equal(t, tt.value, repo.values[tt.key])
		})
	}
}

func TestUpdate_MissingRow(t *testing.T) {
	s, _ := newStore(map[string]string{})

	_, err := s.Update(context.Background(), KeyEmailMaxRetries, "4")
	require.ErrorIs(t, err, apperr.ErrConfigKeyNotFound)
	assert.Equal(t, "Configuración no encontrada: email.max.retries", err.Error())
}

func TestSeed_KeepsExistingValues(t *testing.T) {
	s, repo := newStore(map[string]string{KeyTaxRatePercentage: "10"})

	require.NoError(t, s.Seed(context.Background()))

	assert.Equal(t, "10", repo.values[KeyTaxRatePercentage])
	assert.Len(t, repo.values, len(updatable))
}

func TestDefaults_MatchConstants(t *testing.T) {
	defaults, err := Defaults()
	require.NoError(t, err)

	got := make(map[string]string, len(defaults))
	for _, d := range defaults {
		got[d.Key] = d.Value
		assert.NotEmpty(t, d.Description, d.Key)
	}

	floatOf := func(key string) float64 {
		v, err := strconv.ParseFloat(got[key], 64)
		require.NoError(t, err, key)
		return v
	}
	intOf := func(key string) int {
		v, err := strconv.Atoi(got[key])
		require.NoError(t, err, key)
		return v
	}

	assert.Equal(t, DefaultTaxRatePercentage, floatOf(KeyTaxRatePercentage))
	assert.Equal(t, DefaultPaymentMaxRetryAttempts, intOf(KeyPaymentMaxRetryAttempts))
	assert.Equal(t, DefaultPaymentRejectionProbability, floatOf(KeyPaymentRejectionProbability))
	assert.Equal(t, DefaultTokenizationRejectionProbability, floatOf(KeyTokenizationRejectionProbability))
	assert.Equal(t, DefaultProductMinStockVisibility, intOf(KeyProductMinStockVisibility))
	assert.Equal(t, DefaultCartExpirationHours, intOf(KeyCartExpirationHours))
	assert.Equal(t, DefaultEmailMaxRetries, intOf(KeyEmailMaxRetries))

	for key := range updatable {
		assert.Contains(t, got, key)
	}
}

package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDetectBrand(t *testing.T) {
	tests := []struct {
		number string
		brand  Brand
		ok     bool
	}{
		{"4242424242424242", BrandVisa, true},
		{"4222222222222", BrandVisa, true},
		{"5555555555554444", BrandMastercard, true},
		{"378282246310005", BrandAmex, true},
		{"6011111111111117", BrandDiscover, true},
		{"6500000000000002", BrandDiscover, true},
		{"3530111333300000", "", false},
		{"42424242", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			brand, ok := DetectBrand(tt.number)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.brand, brand)
		})
	}
}

func TestNormalizeCardNumber(t *testing.T) {
	assert.Equal(t, "4242424242424242", NormalizeCardNumber(" 4242 4242\t4242 4242 "))
}

func TestIsValidCVV(t *testing.T) {
	assert.True(t, IsValidCVV("123"))
	assert.True(t, IsValidCVV("1234"))
	assert.False(t, IsValidCVV("12"))
	assert.False(t, IsValidCVV("12a"))
	assert.False(t, IsValidCVV(""))
}

func TestIsExpired(t *testing.T) {
	today := time.Date(2026, time.October, 18, 15, 0, 0, 0, time.UTC)

	assert.False(t, IsExpired(2026, 10, today), "current month is still valid")
	assert.False(t, IsExpired(2027, 1, today))
	assert.True(t, IsExpired(2026, 9, today))
	assert.True(t, IsExpired(2025, 12, today))

	lastDay := time.Date(2026, time.February, 28, 23, 59, 0, 0, time.UTC)
	assert.False(t, IsExpired(2026, 2, lastDay), "last day of the month is valid")
}

func TestIsValidExpiryMonth(t *testing.T) {
	assert.True(t, IsValidExpiryMonth(1))
	assert.True(t, IsValidExpiryMonth(12))
	assert.False(t, IsValidExpiryMonth(0))
	assert.False(t, IsValidExpiryMonth(13))
}

package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Brand обозначает платёжную систему карты.
type Brand string

const (
	BrandVisa       Brand = "VISA"
	BrandMastercard Brand = "MASTERCARD"
	BrandAmex       Brand = "AMEX"
	BrandDiscover   Brand = "DISCOVER"
)

var brandPatterns = []struct {
	brand   Brand
	pattern *regexp.Regexp
}{
	{BrandVisa, regexp.MustCompile(`^4[0-9]{12}(?:[0-9]{3})?$`)},
	{BrandMastercard, regexp.MustCompile(`^5[1-5][0-9]{14}$`)},
	{BrandAmex, regexp.MustCompile(`^3[47][0-9]{13}$`)},
	{BrandDiscover, regexp.MustCompile(`^6(?:011|5[0-9]{2})[0-9]{12}$`)},
}

var cvvPattern = regexp.MustCompile(`^[0-9]{3,4}$`)

// NormalizeCardNumber удаляет из номера карты все пробельные символы.
func NormalizeCardNumber(number string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, number)
}

// DetectBrand определяет платёжную систему по нормализованному номеру.
func DetectBrand(number string) (Brand, bool) {
	for _, bp := range brandPatterns {
		if bp.pattern.MatchString(number) {
			return bp.brand, true
		}
	}
	return "", false
}

// IsValidCVV проверяет, что CVV состоит из 3–4 цифр.
func IsValidCVV(cvv string) bool {
	return cvvPattern.MatchString(cvv)
}

// IsValidExpiryMonth проверяет диапазон месяца.
func IsValidExpiryMonth(month int) bool {
	return month >= 1 && month <= 12
}

// IsExpired сообщает, что последний день месяца (year, month) раньше today.
func IsExpired(year, month int, today time.Time) bool {
	// Нулевой день следующего месяца равен последнему дню текущего.
	lastDay := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, today.Location())
	y, m, d := today.Date()
	return lastDay.Before(time.Date(y, m, d, 0, 0, 0, 0, today.Location()))
}

// Package validation содержит проверки платёжных данных: контрольную сумму
// номера карты, платёжную систему, CVV и срок действия.
package validation

// luhnSum считает сумму Луна для строки цифр. Если checkPosition истинно,
// удваивается каждая вторая цифра, начиная с предпоследней.
func luhnSum(digits string, checkPosition bool) (int, bool) {
	sum := 0
	double := !checkPosition

	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}

	return sum, true
}

// IsValidLuhn проверяет номер карты по алгоритму Луна.
// Номер должен состоять только из цифр.
func IsValidLuhn(number string) bool {
	if number == "" {
		return false
	}
	sum, ok := luhnSum(number, true)
	return ok && sum%10 == 0
}

// LuhnCheckDigit возвращает контрольную цифру, дополняющую payload до
// корректного по Луну номера.
func LuhnCheckDigit(payload string) (byte, bool) {
	if payload == "" {
		return 0, false
	}
	sum, ok := luhnSum(payload, false)
	if !ok {
		return 0, false
	}
	return byte('0' + (10-sum%10)%10), true
}

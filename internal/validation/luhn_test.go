package validation

import "testing"

func TestIsValidLuhn(t *testing.T) {
	tests := []struct {
		name   string
		number string
		valid  bool
	}{
		{
			name:   "visa test card",
			number: "4111111111111111",
			valid:  true,
		},
		{
			name:   "amex test card",
			number: "378282246310005",
			valid:  true,
		},
		{
			name:   "classic example",
			number: "79927398713",
			valid:  true,
		},
		{
			name:   "invalid checksum",
			number: "4111111111111112",
			valid:  false,
		},
		{
			name:   "separators are not stripped",
			number: "4111 1111 1111 1111",
			valid:  false,
		},
		{
			name:   "empty string",
			number: "",
			valid:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidLuhn(tt.number)
			if got != tt.valid {
				t.Fatalf("IsValidLuhn(%q) = %v, want %v", tt.number, got, tt.valid)
			}
		})
	}
}

func TestLuhnCheckDigit_RoundTrip(t *testing.T) {
	payloads := []string{"411111111111111", "555555555555444", "37828224631000", "7992739871", "0"}

	for _, payload := range payloads {
		digit, ok := LuhnCheckDigit(payload)
		if !ok {
			t.Fatalf("LuhnCheckDigit(%q) failed", payload)
		}

		number := payload + string(digit)
		if !IsValidLuhn(number) {
			t.Fatalf("%q with check digit %c is not valid", payload, digit)
		}

		wrong := payload + string('0'+(digit-'0'+1)%10)
		if IsValidLuhn(wrong) {
			t.Fatalf("%q accepted with wrong check digit", wrong)
		}
	}
}

func TestLuhnCheckDigit_RejectsNonDigits(t *testing.T) {
	if _, ok := LuhnCheckDigit("41a1"); ok {
		t.Fatalf("non-digit payload accepted")
	}
	if _, ok := LuhnCheckDigit(""); ok {
		t.Fatalf("empty payload accepted")
	}
}

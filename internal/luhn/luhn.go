// Package luhn validates candidate card numbers before the redactor
// masks them, so ordinary numeric IDs in log messages survive intact.
package luhn

// Validate implements the Luhn checksum over a string of digits.
func Validate(digits string) bool {
	if len(digits) == 0 {
		return false
	}

	var sum int
	alternate := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		digit := int(c - '0')

		if alternate {
			digit *= 2
			if digit > 9 {
				digit = (digit % 10) + (digit / 10)
			}
		}
		sum += digit
		alternate = !alternate
	}

	return sum%10 == 0
}

// ValidCardNumber reports whether s looks like a real card number.
// Spaces and dashes are ignored; anything else disqualifies the match.
// Card numbers run 13 to 19 digits.
func ValidCardNumber(s string) bool {
	var digits []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		case c == ' ' || c == '-':
		default:
			return false
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	return Validate(string(digits))
}

package domain

import "unicode"

// Strength grades a password by length and the number of character classes
// (lower, upper, digit, other) it uses.
func Strength(password string) string {
	var lower, upper, digit, other bool
	length := 0
	for _, r := range password {
		length++
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}

	classes := 0
	for _, present := range []bool{lower, upper, digit, other} {
		if present {
			classes++
		}
	}

	switch {
	case length >= 12 && classes >= 3:
		return StrengthStrong
	case length >= 8 && classes >= 2:
		return StrengthFair
	default:
		return StrengthWeak
	}
}

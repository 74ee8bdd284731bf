// Package core provides money parsing and handling utilities.
//
// Amounts are decimal.Decimal values in the account currency (VND in the
// common case, which has no minor unit, but fractional input is kept).
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied amount string to a decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// surrounding whitespace. Only digits and one separator are allowed, so signs
// and exponent forms like 1e9 are rejected.
// Zero is accepted; callers that need a positive amount check it themselves.
//
// Examples:
//
//	ParseAmount("50000")   -> 50000, nil
//	ParseAmount("12,5")    -> 12.5, nil
//	ParseAmount("-1")      -> error
//	ParseAmount("1e5")     -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" && (len(parts) == 1 || parts[1] == "") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseOptionalAmount parses a numeric filter input under the same rules as
// ParseAmount. Anything else, including signs and exponents, yields ok=false
// rather than an error.
func ParseOptionalAmount(s string) (decimal.Decimal, bool) {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders an amount with dot thousands separators and comma
// decimals, e.g. 1234567.5 -> "1.234.567,5".
func FormatAmount(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().String()
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac != "" {
		out += "," + frac
	}
	if neg {
		return "-" + out
	}
	return out
}

package parsers

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount parses a numeric field permissively: currency symbols,
// thousands separators, surrounding whitespace, and accounting-style
// parenthesized negatives are all tolerated. A blank field is zero.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || strings.EqualFold(s, "n/a") {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	var b strings.Builder
	for _, r := range s {
		switch r {
		case '$', '€', '£', '¥', ',', ' ', ' ', '\'':
			// currency symbols and separators
		case '-':
			negative = true
		default:
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("no digits in %q", s)
	}

	v, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %q: %w", s, err)
	}
	if negative {
		v = v.Neg()
	}
	return v, nil
}

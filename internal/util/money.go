package util

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount accepts operator-formatted money strings such as "20,000",
// "¥ 1,200.50" or "-300" and returns an exact decimal. Everything except
// digits, '.' and a leading '-' is discarded.
func ParseAmount(input string) (decimal.Decimal, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	s = strings.ReplaceAll(s, ",", "")
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return decimal.Zero, fmt.Errorf("invalid amount: %q", input)
	}
	if neg {
		clean = "-" + clean
	}

	return decimal.NewFromString(clean)
}

package priceparse

import (
	"fmt"
	"strconv"
	"strings"
)

// Money is a non-negative monetary amount in cents. Its canonical textual
// form always carries exactly two fractional digits (e.g. "11.83"), which is
// also how it marshals to JSON. Keeping cents as an integer avoids float
// rounding surprises when amounts are compared or deduplicated.
type Money int64

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d", int64(m)/100, int64(m)%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// parseAmountToken normalizes a coarse numeric token captured by one of the
// candidate patterns into cents. Thousands separators (commas) are stripped
// from the integer part; a fraction of 0-2 digits is accepted ("7" -> 700,
// "7.5" -> 750, "7.50" -> 750). Tokens with more than one decimal point,
// more than two fractional digits, or any non-digit residue are rejected, so
// strings like "1.234" or "12.3.4" never become prices.
func parseAmountToken(tok string) (Money, bool) {
	tok = strings.TrimRight(strings.TrimSpace(tok), ".,")
	if tok == "" {
		return 0, false
	}
	intPart, frac := tok, ""
	if i := strings.IndexByte(tok, '.'); i >= 0 {
		if strings.IndexByte(tok[i+1:], '.') >= 0 {
			return 0, false
		}
		intPart, frac = tok[:i], tok[i+1:]
	}
	intPart = strings.ReplaceAll(intPart, ",", "")
	if intPart == "" || len(intPart) > 12 || len(frac) > 2 {
		return 0, false
	}
	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, false
	}
	cents := units * 100
	if frac != "" {
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, false
		}
		if len(frac) == 1 {
			f *= 10
		}
		cents += f
	}
	return Money(cents), true
}

package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a disclosure amount such as "1,234,567", "-1,200" or
// "(1,200)". Empty strings and placeholder dashes are absent.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "원")
	s = strings.TrimSuffix(s, "%")
	switch s {
	case "", "-", "－", "N/A", "n/a":
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	if negative {
		d = d.Neg()
	}
	return d.InexactFloat64(), true
}

// ParseAmountPtr is ParseAmount returning nil for absent values.
func ParseAmountPtr(s string) *float64 {
	v, ok := ParseAmount(s)
	if !ok {
		return nil
	}
	return &v
}

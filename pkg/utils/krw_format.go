// Package utils provides common utility functions for krxbrief.
package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatKRW formats an amount in won with thousands separators (1,234,567원).
// Fractions are rounded to the nearest won.
func FormatKRW(amount float64) string {
	return FormatNumber(math.Round(amount)) + "원"
}

// FormatKRWCompact formats a large amount using 조/억/만 units.
// e.g., 432_000_000_000_000 → "432조원", 123_400_000_000 → "1,234억원"
func FormatKRWCompact(amount float64) string {
	negative := amount < 0
	amount = math.Abs(amount)

	var s string
	switch {
	case amount >= 1e12:
		s = formatWithDecimals(amount/1e12) + "조원"
	case amount >= 1e8:
		s = FormatNumber(math.Round(amount/1e8)) + "억원"
	case amount >= 1e4:
		s = FormatNumber(math.Round(amount/1e4)) + "만원"
	default:
		s = FormatNumber(math.Round(amount)) + "원"
	}
	if negative {
		return "-" + s
	}
	return s
}

// FormatNumber formats a number with comma grouping. Non-integral values keep
// up to 2 decimal places.
func FormatNumber(n float64) string {
	negative := n < 0
	n = Round(math.Abs(n), 2)

	intPart := int64(n)
	grouped := groupThousands(intPart)

	frac := Round(n-float64(intPart), 2)
	if frac > 0 && frac < 1 {
		grouped += strings.TrimPrefix(formatWithDecimals(frac), "0")
	}
	if negative {
		return "-" + grouped
	}
	return grouped
}

// FormatPct formats a percentage value with sign and suffix.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%"
func FormatPct(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatVolume formats share volume in 만/억 units.
// e.g., 15_000_000 → "1,500만주", 250_000_000 → "2.5억주"
func FormatVolume(volume int64) string {
	v := float64(volume)
	switch {
	case v >= 1e8:
		return formatWithDecimals(v/1e8) + "억주"
	case v >= 1e4:
		return FormatNumber(math.Round(v/1e4)) + "만주"
	default:
		return strconv.FormatInt(volume, 10) + "주"
	}
}

// Round rounds v half away from zero to the given decimal places.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// groupThousands formats a non-negative integer with comma grouping.
func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// formatWithDecimals formats a number with up to 2 decimal places,
// removing trailing zeros.
func formatWithDecimals(n float64) string {
	s := fmt.Sprintf("%.2f", n)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

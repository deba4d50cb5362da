package utils

import (
	"strings"
)

// Common name aliases for frequently requested KRX listings.
var tickerAliases = map[string]string{
	"삼성전자":     "005930",
	"SAMSUNG":  "005930",
	"SK하이닉스":   "000660",
	"HYNIX":    "000660",
	"LG에너지솔루션": "373220",
	"현대차":      "005380",
	"HYUNDAI":  "005380",
	"NAVER":    "035420",
	"네이버":      "035420",
	"카카오":      "035720",
	"KAKAO":    "035720",
	"셀트리온":     "068270",
	"KB금융":     "105560",
	"신한지주":     "055550",
	"신한금융지주":   "055550",
	"POSCO홀딩스": "005490",
	"기아":       "000270",
	"KIA":      "000270",
}

// NormalizeTicker normalizes a user-input ticker to the 6-digit KRX code.
// It strips exchange prefixes and suffixes ("A005930", "005930.KS"),
// resolves aliases and left-pads short numeric codes.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	ticker = strings.TrimPrefix(ticker, "$")
	ticker = strings.TrimSuffix(ticker, ".KS")
	ticker = strings.TrimSuffix(ticker, ".KQ")

	if code, ok := tickerAliases[ticker]; ok {
		return code
	}

	if len(ticker) == 7 && ticker[0] == 'A' && isDigits(ticker[1:]) {
		ticker = ticker[1:]
	}
	if isDigits(ticker) && len(ticker) < 6 {
		ticker = strings.Repeat("0", 6-len(ticker)) + ticker
	}
	return ticker
}

// IsValidTicker reports whether ticker is a 6-digit KRX code.
func IsValidTicker(ticker string) bool {
	return len(ticker) == 6 && isDigits(ticker)
}

// IsValidCorpCode reports whether code is an 8-digit DART corporation code.
func IsValidCorpCode(code string) bool {
	return len(code) == 8 && isDigits(code)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

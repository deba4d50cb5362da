package utils

import (
	"time"
)

// KST is the Korea Standard Time location (UTC+9).
var KST *time.Location

func init() {
	var err error
	KST, err = time.LoadLocation("Asia/Seoul")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		KST = time.FixedZone("KST", 9*60*60)
	}
}

// NowKST returns the current time in KST.
func NowKST() time.Time {
	return time.Now().In(KST)
}

// MarketOpenTime returns the KRX regular session open (9:00 AM KST) for a given date.
func MarketOpenTime(date time.Time) time.Time {
	d := date.In(KST)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 0, 0, 0, KST)
}

// MarketCloseTime returns the KRX regular session close (3:30 PM KST) for a given date.
func MarketCloseTime(date time.Time) time.Time {
	d := date.In(KST)
	return time.Date(d.Year(), d.Month(), d.Day(), 15, 30, 0, 0, KST)
}

// IsMarketOpenAt checks if the KRX market would be open at the given time.
func IsMarketOpenAt(t time.Time) bool {
	t = t.In(KST)
	if !IsTradingDay(t) {
		return false
	}
	return !t.Before(MarketOpenTime(t)) && !t.After(MarketCloseTime(t))
}

// IsTradingDay checks if the given date is a trading day (not weekend, not holiday).
func IsTradingDay(t time.Time) bool {
	t = t.In(KST)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !IsTradingHoliday(t)
}

// PrevTradingDay returns the previous trading day from the given date.
func PrevTradingDay(from time.Time) time.Time {
	prev := from.In(KST).AddDate(0, 0, -1)
	for !IsTradingDay(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// IsTradingHoliday checks if the given date is a KRX market holiday.
// This list should be updated annually.
func IsTradingHoliday(t time.Time) bool {
	_, ok := krxHolidays2026[t.In(KST).Format("2006-01-02")]
	return ok
}

// KRX market holidays for 2026 (update annually).
var krxHolidays2026 = map[string]string{
	"2026-01-01": "신정",
	"2026-02-16": "설날",
	"2026-02-17": "설날",
	"2026-02-18": "설날",
	"2026-03-02": "삼일절 대체휴일",
	"2026-05-01": "근로자의 날",
	"2026-05-05": "어린이날",
	"2026-05-25": "부처님오신날 대체휴일",
	"2026-06-03": "전국동시지방선거",
	"2026-08-17": "광복절 대체휴일",
	"2026-09-24": "추석",
	"2026-09-25": "추석",
	"2026-10-05": "개천절 대체휴일",
	"2026-10-09": "한글날",
	"2026-12-25": "성탄절",
	"2026-12-31": "연말 휴장일",
}

// ParseDateKST parses a date in "2006-01-02" format in KST.
func ParseDateKST(dateStr string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", dateStr, KST)
}

// FormatDateKST formats a time.Time to "2006-01-02" in KST.
func FormatDateKST(t time.Time) string {
	return t.In(KST).Format("2006-01-02")
}

// FormatDateTimeKST formats a time.Time to "2006-01-02 15:04:05 KST".
func FormatDateTimeKST(t time.Time) string {
	return t.In(KST).Format("2006-01-02 15:04:05 KST")
}

// MarketStatus returns the current market status string.
func MarketStatus() string {
	return MarketStatusAt(NowKST())
}

// MarketStatusAt returns the market status at t.
func MarketStatusAt(t time.Time) string {
	t = t.In(KST)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}
	if name, ok := krxHolidays2026[t.Format("2006-01-02")]; ok {
		return "CLOSED (" + name + ")"
	}
	switch {
	case t.Before(MarketOpenTime(t)):
		return "PRE-MARKET"
	case !t.After(MarketCloseTime(t)):
		return "OPEN"
	default:
		return "CLOSED"
	}
}

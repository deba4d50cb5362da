package utils

import (
	"testing"
	"time"
)

func TestNowKST(t *testing.T) {
	now := NowKST()
	if now.Location().String() != "Asia/Seoul" && now.Location().String() != "KST" {
		t.Errorf("NowKST() location = %s, want Asia/Seoul or KST", now.Location().String())
	}
}

func TestMarketOpenClose(t *testing.T) {
	date := time.Date(2026, 2, 19, 12, 0, 0, 0, KST)

	open := MarketOpenTime(date)
	if open.Hour() != 9 || open.Minute() != 0 {
		t.Errorf("MarketOpenTime = %v, want 09:00", open)
	}

	close := MarketCloseTime(date)
	if close.Hour() != 15 || close.Minute() != 30 {
		t.Errorf("MarketCloseTime = %v, want 15:30", close)
	}
}

func TestIsMarketOpenAt(t *testing.T) {
	// Thursday at 10:00 AM KST, should be open
	weekday := time.Date(2026, 2, 19, 10, 0, 0, 0, KST)
	if !IsMarketOpenAt(weekday) {
		t.Error("Expected market to be open on Thursday 10:00 AM")
	}

	saturday := time.Date(2026, 2, 21, 10, 0, 0, 0, KST)
	if IsMarketOpenAt(saturday) {
		t.Error("Expected market to be closed on Saturday")
	}

	seollal := time.Date(2026, 2, 17, 10, 0, 0, 0, KST)
	if IsMarketOpenAt(seollal) {
		t.Error("Expected market to be closed on 설날")
	}

	afterClose := time.Date(2026, 2, 19, 16, 0, 0, 0, KST)
	if IsMarketOpenAt(afterClose) {
		t.Error("Expected market to be closed after 15:30")
	}
}

func TestPrevTradingDay(t *testing.T) {
	// Monday 2026-02-23 → previous Friday 2026-02-20
	mon := time.Date(2026, 2, 23, 10, 0, 0, 0, KST)
	prev := PrevTradingDay(mon)
	if FormatDateKST(prev) != "2026-02-20" {
		t.Errorf("PrevTradingDay = %s, want 2026-02-20", FormatDateKST(prev))
	}

	// Thursday after 설날 → previous Friday before the holiday block
	thu := time.Date(2026, 2, 19, 10, 0, 0, 0, KST)
	if got := FormatDateKST(PrevTradingDay(thu)); got != "2026-02-13" {
		t.Errorf("PrevTradingDay = %s, want 2026-02-13", got)
	}
}

func TestMarketStatusAt(t *testing.T) {
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2026, 2, 21, 10, 0, 0, 0, KST), "CLOSED (Weekend)"},
		{time.Date(2026, 10, 9, 10, 0, 0, 0, KST), "CLOSED (한글날)"},
		{time.Date(2026, 2, 19, 8, 0, 0, 0, KST), "PRE-MARKET"},
		{time.Date(2026, 2, 19, 11, 0, 0, 0, KST), "OPEN"},
		{time.Date(2026, 2, 19, 18, 0, 0, 0, KST), "CLOSED"},
	}
	for _, tt := range tests {
		if got := MarketStatusAt(tt.at); got != tt.want {
			t.Errorf("MarketStatusAt(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestParseFormatDateKST(t *testing.T) {
	d, err := ParseDateKST("2026-03-05")
	if err != nil {
		t.Fatalf("ParseDateKST error: %v", err)
	}
	if FormatDateKST(d) != "2026-03-05" {
		t.Errorf("round trip = %s", FormatDateKST(d))
	}
}

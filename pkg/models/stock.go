// Package models defines the core data structures shared across krxbrief.
package models

import "time"

// Instrument identifies one listed company.
type Instrument struct {
	Ticker   string `json:"ticker"    yaml:"ticker"`    // 6-digit KRX code, e.g. "005930"
	Name     string `json:"name"      yaml:"name"`      // e.g. "삼성전자"
	CorpCode string `json:"corp_code" yaml:"corp_code"` // 8-digit DART code, e.g. "00126380"
	Market   string `json:"market"    yaml:"market"`    // "KOSPI" or "KOSDAQ"
}

// PricePoint is one trading day's OHLCV bar. Sequences are ordered by date
// ascending with one point per trading day.
type PricePoint struct {
	Date   time.Time `json:"date"   yaml:"date"`
	Open   float64   `json:"open"   yaml:"open"`
	High   float64   `json:"high"   yaml:"high"`
	Low    float64   `json:"low"    yaml:"low"`
	Close  float64   `json:"close"  yaml:"close"`
	Volume int64     `json:"volume" yaml:"volume"`
}

// TypicalPrice returns (high+low+close)/3.
func (p PricePoint) TypicalPrice() float64 {
	return (p.High + p.Low + p.Close) / 3
}

// Quote is the current market snapshot for an instrument.
type Quote struct {
	Ticker       string    `json:"ticker"                  yaml:"ticker"`
	Name         string    `json:"name"                    yaml:"name"`
	Price        float64   `json:"price"                   yaml:"price"` // KRW
	PrevClose    float64   `json:"prev_close,omitempty"    yaml:"prev_close"`
	MarketCap    *float64  `json:"market_cap,omitempty"    yaml:"market_cap"` // KRW
	ListedShares *int64    `json:"listed_shares,omitempty" yaml:"listed_shares"`
	Timestamp    time.Time `json:"timestamp"               yaml:"timestamp"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int64) *int64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

package models

import "time"

// Indicator signal classifications.
const (
	SignalOverbought = "overbought"
	SignalOversold   = "oversold"
	SignalBullish    = "bullish"
	SignalBearish    = "bearish"
	SignalInflow     = "inflow"
	SignalOutflow    = "outflow"

	TrendUp      = "uptrend"
	TrendDown    = "downtrend"
	TrendNeutral = "neutral"

	CrossGolden = "golden_cross"
	CrossDead   = "dead_cross"
)

// IndicatorPoint is one dated indicator value.
type IndicatorPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// IndicatorResult is a single named indicator. Value is nil when the
// series is too short to compute it.
type IndicatorResult struct {
	Name    string           `json:"name"`
	Value   *float64         `json:"value"`
	Signal  string           `json:"signal,omitempty"`
	History []IndicatorPoint `json:"history,omitempty"`
}

// IndicatorSet maps indicator names ("ma5", "rsi14", "mfi14") to results.
type IndicatorSet map[string]IndicatorResult

// RatioSet maps ratio names to rounded percentages or multiples. A ratio is
// present only when it could be computed.
type RatioSet map[string]float64

// Get returns the named ratio and whether it is present.
func (r RatioSet) Get(name string) (float64, bool) {
	v, ok := r[name]
	return v, ok
}

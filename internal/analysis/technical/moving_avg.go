package technical

import (
	"math"
	"time"

	"github.com/seenimoa/krxbrief/pkg/models"
	"github.com/seenimoa/krxbrief/pkg/utils"
)

// StandardWindows are the moving-average windows used by default.
var StandardWindows = []int{5, 20, 60, 120}

// SMA calculates the Simple Moving Average for the given period. The result
// has one value per input point; points before the window is full are NaN.
// Returns nil when len(data) < period.
func SMA(data []float64, period int) []float64 {
	n := len(data)
	if n < period || period <= 0 {
		return nil
	}

	result := make([]float64, n)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
		result[i] = math.NaN()
	}
	result[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		sum += data[i] - data[i-period]
		result[i] = sum / float64(period)
	}

	return result
}

// SMALatest returns the most recent SMA value, or nil if there are fewer
// than period points.
func SMALatest(data []float64, period int) *float64 {
	return lastDefined(SMA(data, period))
}

// MAPoint is one row of moving-average history.
type MAPoint struct {
	Date   time.Time        `json:"date"`
	Close  float64          `json:"close"`
	Values map[int]*float64 `json:"values"`
}

// MovingAverageResult holds the current moving averages, crossover and trend.
type MovingAverageResult struct {
	Windows []int            `json:"windows"`
	Close   float64          `json:"close"`
	Current map[int]*float64 `json:"current"`
	Cross   string           `json:"cross,omitempty"` // models.CrossGolden, models.CrossDead or ""
	Trend   string           `json:"trend"`
	History []MAPoint        `json:"history,omitempty"`
}

// MovingAverages computes the configured windows over closing prices, detects
// a short/long crossover at the last two points and classifies the trend.
func MovingAverages(points []models.PricePoint, cfg Config) MovingAverageResult {
	res := MovingAverageResult{
		Windows: cfg.MAWindows,
		Current: make(map[int]*float64, len(cfg.MAWindows)),
		Trend:   models.TrendNeutral,
	}
	if len(points) == 0 {
		for _, w := range cfg.MAWindows {
			res.Current[w] = nil
		}
		return res
	}

	closes := extractCloses(points)
	res.Close = closes[len(closes)-1]

	series := make(map[int][]float64, len(cfg.MAWindows))
	for _, w := range cfg.MAWindows {
		series[w] = SMA(closes, w)
		res.Current[w] = roundPtr(lastDefined(series[w]))
	}

	short := SMA(closes, cfg.CrossShort)
	long := SMA(closes, cfg.CrossLong)
	res.Cross = detectCross(short, long)
	res.Trend = classifyTrend(res.Close, SMALatest(closes, cfg.CrossShort), SMALatest(closes, cfg.CrossLong))

	start := len(points) - cfg.MAHistoryLen
	if start < 0 {
		start = 0
	}
	for i := start; i < len(points); i++ {
		row := MAPoint{
			Date:   points[i].Date,
			Close:  points[i].Close,
			Values: make(map[int]*float64, len(cfg.MAWindows)),
		}
		for _, w := range cfg.MAWindows {
			row.Values[w] = roundPtr(valueAt(series[w], i))
		}
		res.History = append(res.History, row)
	}

	return res
}

// detectCross compares the short and long averages at the last two points.
// A golden cross is short below long at t-1 and at/above it at t; a dead
// cross is the mirror.
func detectCross(short, long []float64) string {
	n := len(short)
	if n < 2 || len(long) != n {
		return ""
	}
	ps, pl := short[n-2], long[n-2]
	cs, cl := short[n-1], long[n-1]
	if math.IsNaN(ps) || math.IsNaN(pl) || math.IsNaN(cs) || math.IsNaN(cl) {
		return ""
	}
	switch {
	case ps < pl && cs >= cl:
		return models.CrossGolden
	case ps > pl && cs <= cl:
		return models.CrossDead
	}
	return ""
}

// classifyTrend returns uptrend when close and the short average are both
// above the long average, downtrend for the reverse, neutral otherwise.
func classifyTrend(close float64, short, long *float64) string {
	if short == nil || long == nil || *long <= 0 {
		return models.TrendNeutral
	}
	switch {
	case close > *long && *short > *long:
		return models.TrendUp
	case close < *long && *short < *long:
		return models.TrendDown
	}
	return models.TrendNeutral
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := utils.Round(*v, 2)
	return &r
}

// Package technical implements the indicator engine for KRX daily price
// series. All functions operate on []models.PricePoint slices ordered by date
// ascending; an indicator whose window exceeds the series is absent (nil),
// never zero.
package technical

import (
	"fmt"
	"math"

	"github.com/seenimoa/krxbrief/pkg/models"
	"github.com/seenimoa/krxbrief/pkg/utils"
)

// RSI calculates the Relative Strength Index for the given period using the
// trailing simple mean of gains and losses over the last period deltas.
// Default period is 14. Values are 0–100; undefined points are NaN.
// Returns nil when fewer than period+1 points exist.
func RSI(points []models.PricePoint, period int) []float64 {
	period = oscillatorPeriod(period)
	n := len(points)
	if n < period+1 {
		return nil
	}

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		change := points[i].Close - points[i-1].Close
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	rsi := make([]float64, n)
	for i := 0; i < period; i++ {
		rsi[i] = math.NaN()
	}

	for i := period; i < n; i++ {
		rsi[i] = oscillator(windowSum(gains, i, period), windowSum(losses, i, period))
	}

	return rsi
}

// RSILatest returns only the most recent RSI value, or nil if undefined.
func RSILatest(points []models.PricePoint, period int) *float64 {
	return lastDefined(RSI(points, period))
}

// MFI calculates the Money Flow Index for the given period. Each day's raw
// money flow (typical price × volume) is positive when the typical price
// rose from the prior day, negative when it fell, and ignored when equal.
// Default period is 14. Returns nil when fewer than period+1 points exist.
func MFI(points []models.PricePoint, period int) []float64 {
	period = oscillatorPeriod(period)
	n := len(points)
	if n < period+1 {
		return nil
	}

	pos := make([]float64, n)
	neg := make([]float64, n)
	prevTP := points[0].TypicalPrice()
	for i := 1; i < n; i++ {
		tp := points[i].TypicalPrice()
		flow := tp * float64(points[i].Volume)
		switch {
		case tp > prevTP:
			pos[i] = flow
		case tp < prevTP:
			neg[i] = flow
		}
		prevTP = tp
	}

	mfi := make([]float64, n)
	for i := 0; i < period; i++ {
		mfi[i] = math.NaN()
	}

	for i := period; i < n; i++ {
		mfi[i] = oscillator(windowSum(pos, i, period), windowSum(neg, i, period))
	}

	return mfi
}

// MFILatest returns only the most recent MFI value, or nil if undefined.
func MFILatest(points []models.PricePoint, period int) *float64 {
	return lastDefined(MFI(points, period))
}

// ClassifyRSI maps an RSI value to its signal band.
func ClassifyRSI(v float64) string {
	switch {
	case v >= 70:
		return models.SignalOverbought
	case v <= 30:
		return models.SignalOversold
	case v >= 50:
		return models.SignalBullish
	default:
		return models.SignalBearish
	}
}

// ClassifyMFI maps an MFI value to its signal band.
func ClassifyMFI(v float64) string {
	switch {
	case v >= 80:
		return models.SignalOverbought
	case v <= 20:
		return models.SignalOversold
	case v >= 50:
		return models.SignalInflow
	default:
		return models.SignalOutflow
	}
}

// RSIIndicator computes RSI as a named indicator with its signal and the
// last historyLen defined values.
func RSIIndicator(points []models.PricePoint, period, historyLen int) models.IndicatorResult {
	period = oscillatorPeriod(period)
	return oscillatorResult(fmt.Sprintf("rsi%d", period), points, RSI(points, period), historyLen, ClassifyRSI)
}

// MFIIndicator computes MFI as a named indicator with its signal and the
// last historyLen defined values.
func MFIIndicator(points []models.PricePoint, period, historyLen int) models.IndicatorResult {
	period = oscillatorPeriod(period)
	return oscillatorResult(fmt.Sprintf("mfi%d", period), points, MFI(points, period), historyLen, ClassifyMFI)
}

// oscillatorPeriod maps a non-positive period to the default of 14.
func oscillatorPeriod(period int) int {
	if period <= 0 {
		return 14
	}
	return period
}

func oscillatorResult(name string, points []models.PricePoint, vals []float64, historyLen int, classify func(float64) string) models.IndicatorResult {
	res := models.IndicatorResult{Name: name}
	latest := lastDefined(vals)
	if latest == nil {
		return res
	}
	v := utils.Round(*latest, 2)
	res.Value = &v
	res.Signal = classify(v)

	start := len(vals) - historyLen
	if start < 0 {
		start = 0
	}
	for i := start; i < len(vals); i++ {
		if math.IsNaN(vals[i]) {
			continue
		}
		res.History = append(res.History, models.IndicatorPoint{
			Date:  points[i].Date,
			Value: utils.Round(vals[i], 2),
		})
	}
	return res
}

// oscillator converts up/down sums into a 0–100 index. A zero down sum
// gives 100 when there was any up movement; no movement at all is NaN.
func oscillator(up, down float64) float64 {
	if down == 0 {
		if up == 0 {
			return math.NaN()
		}
		return 100
	}
	ratio := up / down
	return 100 - (100 / (1 + ratio))
}

// --- helpers ---

// windowSum sums the period values ending at index end. Summing each window
// afresh keeps an all-zero window exactly zero.
func windowSum(data []float64, end, period int) float64 {
	sum := 0.0
	for i := end - period + 1; i <= end; i++ {
		sum += data[i]
	}
	return sum
}

func extractCloses(points []models.PricePoint) []float64 {
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	return closes
}

func extractVolumes(points []models.PricePoint) []float64 {
	vols := make([]float64, len(points))
	for i, p := range points {
		vols[i] = float64(p.Volume)
	}
	return vols
}

// lastDefined returns the final element of vals, or nil if vals is empty or
// the final element is NaN.
func lastDefined(vals []float64) *float64 {
	return valueAt(vals, len(vals)-1)
}

func valueAt(vals []float64, i int) *float64 {
	if i < 0 || i >= len(vals) || math.IsNaN(vals[i]) {
		return nil
	}
	v := vals[i]
	return &v
}

func avg(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

package technical

import (
	"time"

	"github.com/seenimoa/krxbrief/pkg/models"
	"github.com/seenimoa/krxbrief/pkg/utils"
)

// MonthlyBar aggregates the daily points of one calendar month.
type MonthlyBar struct {
	Month  string  `json:"month"` // "2006-01"
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// YearlyTrend summarises the trailing 365 calendar days of a series.
type YearlyTrend struct {
	From        time.Time    `json:"from"`
	To          time.Time    `json:"to"`
	FirstClose  float64      `json:"first_price"`
	LastClose   float64      `json:"last_price"`
	High        float64      `json:"high_price"`
	Low         float64      `json:"low_price"`
	ReturnRate  *float64     `json:"return_rate"` // %
	AvgVolume   float64      `json:"avg_volume"`
	TradingDays int          `json:"trading_days"`
	Monthly     []MonthlyBar `json:"monthly_data"`
}

// ComputeYearlyTrend covers points dated within 365 days of the last point.
// Returns nil for an empty series.
func ComputeYearlyTrend(points []models.PricePoint) *YearlyTrend {
	if len(points) == 0 {
		return nil
	}
	end := points[len(points)-1].Date
	cutoff := end.AddDate(0, 0, -365)
	start := 0
	for start < len(points)-1 && points[start].Date.Before(cutoff) {
		start++
	}
	window := points[start:]

	yt := &YearlyTrend{
		From:        window[0].Date,
		To:          end,
		FirstClose:  window[0].Close,
		LastClose:   window[len(window)-1].Close,
		High:        window[0].High,
		Low:         window[0].Low,
		TradingDays: len(window),
	}
	for _, p := range window {
		if p.High > yt.High {
			yt.High = p.High
		}
		if p.Low < yt.Low {
			yt.Low = p.Low
		}
	}
	if yt.FirstClose > 0 {
		r := utils.Round((yt.LastClose-yt.FirstClose)/yt.FirstClose*100, 2)
		yt.ReturnRate = &r
	}
	yt.AvgVolume = utils.Round(avg(extractVolumes(window)), 0)
	yt.Monthly = monthlyBars(window)
	return yt
}

func monthlyBars(points []models.PricePoint) []MonthlyBar {
	var bars []MonthlyBar
	for _, p := range points {
		month := p.Date.Format("2006-01")
		if len(bars) == 0 || bars[len(bars)-1].Month != month {
			bars = append(bars, MonthlyBar{
				Month: month,
				Open:  p.Open,
				High:  p.High,
				Low:   p.Low,
			})
		}
		b := &bars[len(bars)-1]
		if p.High > b.High {
			b.High = p.High
		}
		if p.Low < b.Low {
			b.Low = p.Low
		}
		b.Close = p.Close
		b.Volume += p.Volume
	}
	return bars
}

// PriceSummary is the latest close and its change against the prior close.
type PriceSummary struct {
	Date      time.Time `json:"date"`
	Close     float64   `json:"close"`
	PrevClose *float64  `json:"prev_close"`
	Change    *float64  `json:"change"`
	ChangePct *float64  `json:"change_rate"`
}

// SummarizePrice returns nil for an empty series.
func SummarizePrice(points []models.PricePoint) *PriceSummary {
	if len(points) == 0 {
		return nil
	}
	last := points[len(points)-1]
	ps := &PriceSummary{Date: last.Date, Close: last.Close}
	if len(points) < 2 {
		return ps
	}
	prev := points[len(points)-2].Close
	ps.PrevClose = models.Float(prev)
	ps.Change = models.Float(last.Close - prev)
	if prev > 0 {
		ps.ChangePct = models.Float(utils.Round((last.Close-prev)/prev*100, 2))
	}
	return ps
}

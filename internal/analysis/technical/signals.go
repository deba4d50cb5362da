package technical

import (
	"fmt"
	"strconv"

	"github.com/seenimoa/krxbrief/pkg/models"
)

// Config controls indicator windows and thresholds.
type Config struct {
	MAWindows     []int
	CrossShort    int
	CrossLong     int
	RSIPeriod     int
	MFIPeriod     int
	VolumeWindow  int // trailing days for VolumeTrend
	SurgeWindow   int
	SurgeMultiple float64
	HistoryLen    int // RSI/MFI history points
	MAHistoryLen  int
}

// DefaultConfig returns the standard indicator settings.
func DefaultConfig() Config {
	return Config{
		MAWindows:     append([]int(nil), StandardWindows...),
		CrossShort:    5,
		CrossLong:     20,
		RSIPeriod:     14,
		MFIPeriod:     14,
		VolumeWindow:  60,
		SurgeWindow:   20,
		SurgeMultiple: 2.0,
		HistoryLen:    5,
		MAHistoryLen:  30,
	}
}

// Signal is a notable condition detected by the engine.
type Signal struct {
	Source string `json:"source"` // "MA", "RSI", "MFI", "Volume"
	Kind   string `json:"kind"`   // models.Signal*/models.Cross* or "surge"
	Reason string `json:"reason"`
}

// Analysis is the full indicator result for one series.
type Analysis struct {
	Price          *PriceSummary          `json:"price"`
	MovingAverages MovingAverageResult    `json:"moving_averages"`
	RSI            models.IndicatorResult `json:"rsi"`
	MFI            models.IndicatorResult `json:"mfi"`
	Volume         VolumeResult           `json:"volume"`
	Yearly         *YearlyTrend           `json:"yearly_trend"`
	Signals        []Signal               `json:"signals,omitempty"`
}

// ComputeAll runs every indicator over the series. Indicators whose window
// exceeds the series are left absent.
func ComputeAll(points []models.PricePoint, cfg Config) *Analysis {
	a := &Analysis{
		Price:          SummarizePrice(points),
		MovingAverages: MovingAverages(points, cfg),
		RSI:            RSIIndicator(points, cfg.RSIPeriod, cfg.HistoryLen),
		MFI:            MFIIndicator(points, cfg.MFIPeriod, cfg.HistoryLen),
		Volume:         VolumeTrend(points, cfg.VolumeWindow, cfg.SurgeWindow, cfg.SurgeMultiple),
		Yearly:         ComputeYearlyTrend(points),
	}
	a.Signals = GenerateSignals(a)
	return a
}

// GenerateSignals lists crossovers, oscillator extremes and volume surges.
func GenerateSignals(a *Analysis) []Signal {
	var signals []Signal

	switch a.MovingAverages.Cross {
	case models.CrossGolden:
		signals = append(signals, Signal{Source: "MA", Kind: models.CrossGolden, Reason: "short MA crossed above long MA"})
	case models.CrossDead:
		signals = append(signals, Signal{Source: "MA", Kind: models.CrossDead, Reason: "short MA crossed below long MA"})
	}

	signals = appendExtreme(signals, "RSI", a.RSI)
	signals = appendExtreme(signals, "MFI", a.MFI)

	if a.Volume.Surge != nil && *a.Volume.Surge {
		signals = append(signals, Signal{
			Source: "Volume",
			Kind:   "surge",
			Reason: fmt.Sprintf("latest volume %d exceeds surge threshold", a.Volume.Latest),
		})
	}
	return signals
}

func appendExtreme(signals []Signal, source string, r models.IndicatorResult) []Signal {
	if r.Value == nil {
		return signals
	}
	switch r.Signal {
	case models.SignalOverbought, models.SignalOversold:
		signals = append(signals, Signal{
			Source: source,
			Kind:   r.Signal,
			Reason: fmt.Sprintf("%s %s at %.2f", source, r.Signal, *r.Value),
		})
	}
	return signals
}

// Indicators flattens the analysis into a name-keyed set: "ma5".."ma120",
// "rsi14", "mfi14", "vol_ma5", "vol_ma20".
func (a *Analysis) Indicators() models.IndicatorSet {
	set := models.IndicatorSet{}
	for _, w := range a.MovingAverages.Windows {
		name := "ma" + strconv.Itoa(w)
		res := models.IndicatorResult{Name: name, Value: a.MovingAverages.Current[w]}
		for _, h := range a.MovingAverages.History {
			if v := h.Values[w]; v != nil {
				res.History = append(res.History, models.IndicatorPoint{Date: h.Date, Value: *v})
			}
		}
		if w == a.MovingAverages.Windows[0] {
			res.Signal = a.MovingAverages.Trend
		}
		set[name] = res
	}
	set[a.RSI.Name] = a.RSI
	set[a.MFI.Name] = a.MFI
	set["vol_ma5"] = models.IndicatorResult{Name: "vol_ma5", Value: a.Volume.MA5}
	volMA20 := models.IndicatorResult{Name: "vol_ma20", Value: a.Volume.MA20}
	if a.Volume.Surge != nil && *a.Volume.Surge {
		volMA20.Signal = "surge"
	}
	set["vol_ma20"] = volMA20
	return set
}

package technical

import (
	"github.com/seenimoa/krxbrief/pkg/models"
	"github.com/seenimoa/krxbrief/pkg/utils"
)

// VolumeResult summarises trading volume over a trailing window.
type VolumeResult struct {
	Days    int      `json:"days"`
	Average float64  `json:"avg_volume"`
	Max     int64    `json:"max_volume"`
	Min     int64    `json:"min_volume"`
	Latest  int64    `json:"latest_volume"`
	MA5     *float64 `json:"vol_ma5"`
	MA20    *float64 `json:"vol_ma20"`
	// Surge is nil when the surge window is not full.
	Surge *bool `json:"volume_surge"`
}

// VolumeTrend computes volume statistics over the last `days` points. The
// surge flag is set when the latest volume exceeds multiple× the trailing
// surgeWindow-day average (latest day included).
func VolumeTrend(points []models.PricePoint, days, surgeWindow int, multiple float64) VolumeResult {
	if days > 0 && len(points) > days {
		points = points[len(points)-days:]
	}
	res := VolumeResult{Days: len(points)}
	if len(points) == 0 {
		return res
	}

	vols := extractVolumes(points)
	res.Average = utils.Round(avg(vols), 0)
	res.Max, res.Min = points[0].Volume, points[0].Volume
	for _, p := range points[1:] {
		if p.Volume > res.Max {
			res.Max = p.Volume
		}
		if p.Volume < res.Min {
			res.Min = p.Volume
		}
	}
	res.Latest = points[len(points)-1].Volume

	res.MA5 = roundPtr(SMALatest(vols, 5))
	res.MA20 = roundPtr(SMALatest(vols, 20))

	if ma := SMALatest(vols, surgeWindow); ma != nil {
		res.Surge = models.Bool(*ma > 0 && float64(res.Latest) > *ma*multiple)
	}
	return res
}

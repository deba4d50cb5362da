package technical

import (
	"math/rand"
	"testing"
	"time"

	"github.com/seenimoa/krxbrief/pkg/models"
)

// benchPoints creates a synthetic daily series for benchmarks.
func benchPoints(n int) []models.PricePoint {
	points := make([]models.PricePoint, n)
	rng := rand.New(rand.NewSource(42))
	price := 70000.0
	t := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

	for i := range points {
		change := (rng.Float64() - 0.48) * 1500 // slight upward bias
		open := price
		close := price + change
		high := open + rng.Float64()*800
		low := open - rng.Float64()*800
		if high < close {
			high = close + rng.Float64()*200
		}
		if low > close {
			low = close - rng.Float64()*200
		}

		points[i] = models.PricePoint{
			Date:   t,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: int64(rng.Intn(20_000_000) + 100_000),
		}
		price = close
		t = t.AddDate(0, 0, 1)
	}
	return points
}

func BenchmarkSMA20_250(b *testing.B) {
	closes := extractCloses(benchPoints(250))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SMA(closes, 20)
	}
}

func BenchmarkSMA120_1000(b *testing.B) {
	closes := extractCloses(benchPoints(1000))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SMA(closes, 120)
	}
}

func BenchmarkMovingAverages(b *testing.B) {
	points := benchPoints(250)
	cfg := DefaultConfig()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MovingAverages(points, cfg)
	}
}

func BenchmarkRSI14_250(b *testing.B) {
	points := benchPoints(250)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RSI(points, 14)
	}
}

func BenchmarkMFI14_250(b *testing.B) {
	points := benchPoints(250)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MFI(points, 14)
	}
}

func BenchmarkVolumeTrend(b *testing.B) {
	points := benchPoints(250)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		VolumeTrend(points, 60, 20, 2)
	}
}

func BenchmarkYearlyTrend(b *testing.B) {
	points := benchPoints(500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ComputeYearlyTrend(points)
	}
}

func BenchmarkComputeAll(b *testing.B) {
	points := benchPoints(250)
	cfg := DefaultConfig()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ComputeAll(points, cfg)
	}
}

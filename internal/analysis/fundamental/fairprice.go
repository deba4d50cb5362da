package fundamental

import (
	"fmt"
	"math"
	"strings"

	"github.com/seenimoa/krxbrief/pkg/models"
	"github.com/seenimoa/krxbrief/pkg/utils"
)

// Correction methods recorded on a corrected estimate.
const (
	MethodBookValue    = "bps_pbr"
	MethodEarnings     = "eps_per"
	MethodCurrentPrice = "current_price"
)

// GuardConfig holds the fair-price guard's thresholds.
type GuardConfig struct {
	// PlausibilityFloor: an estimate below price × floor is implausible.
	PlausibilityFloor float64
	// MinRatio and MaxRatio bound an accepted recomputed price relative to
	// the current price.
	MinRatio float64
	MaxRatio float64
	// MultipleCeiling: a proposed value in (0, ceiling) reads as a multiple.
	MultipleCeiling  float64
	LowPBRTarget     float64 // used when the snapshot PBR is below 1
	DefaultPBRTarget float64
	MinPER           float64 // snapshot PER must exceed this to be reused
	DefaultPER       float64
}

// DefaultGuardConfig returns the standard guard thresholds.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		PlausibilityFloor: 0.01,
		MinRatio:          0.3,
		MaxRatio:          3.0,
		MultipleCeiling:   10,
		LowPBRTarget:      0.8,
		DefaultPBRTarget:  1.0,
		MinPER:            5,
		DefaultPER:        10,
	}
}

// GuardInput is the numeric context for one check.
type GuardInput struct {
	Proposed float64
	Price    float64
	BPS      *float64
	EPS      *float64
	PER      *float64
	PBR      *float64
}

// Correction is the guard's verdict.
type Correction struct {
	Value     float64
	Corrected bool
	Method    string
	Note      string
}

// Guard validates generative fair-price estimates against the market price.
type Guard struct {
	cfg GuardConfig
}

// NewGuard creates a guard.
func NewGuard(cfg GuardConfig) *Guard {
	return &Guard{cfg: cfg}
}

// Config returns the guard's thresholds.
func (g *Guard) Config() GuardConfig { return g.cfg }

// Plausible reports whether proposed is not below price × floor. Without a
// positive price nothing can be judged and every value is plausible.
func (g *Guard) Plausible(proposed, price float64) bool {
	if price <= 0 {
		return true
	}
	return proposed >= price*g.cfg.PlausibilityFloor
}

// Correct returns the proposed value unchanged when plausible. Otherwise it
// recomputes a price from BPS × target PBR, or failing that EPS × target PER,
// and accepts it only within [MinRatio, MaxRatio] × price; the current price
// is the fallback.
func (g *Guard) Correct(in GuardInput) Correction {
	if g.Plausible(in.Proposed, in.Price) {
		return Correction{Value: in.Proposed}
	}

	c := Correction{Corrected: true}
	var candidate float64
	var basis string

	switch {
	case positive(in.BPS):
		target := g.targetPBR(in.Proposed, in.PBR)
		candidate = math.Round(*in.BPS * target)
		c.Method = MethodBookValue
		basis = fmt.Sprintf("BPS %s × PBR %.2f = %s", utils.FormatKRW(*in.BPS), target, utils.FormatKRW(candidate))
	case positive(in.EPS):
		target := g.targetPER(in.PER)
		candidate = math.Round(*in.EPS * target)
		c.Method = MethodEarnings
		basis = fmt.Sprintf("EPS %s × PER %.2f = %s", utils.FormatKRW(*in.EPS), target, utils.FormatKRW(candidate))
	}

	lead := fmt.Sprintf("[적정주가 보정] 제시값 %s은(는) 현재가 %s 대비 비정상적으로 낮습니다.",
		utils.FormatNumber(in.Proposed), utils.FormatKRW(in.Price))

	switch {
	case c.Method == "":
		c.Value = in.Price
		c.Method = MethodCurrentPrice
		c.Note = fmt.Sprintf("%s BPS·EPS 정보가 없어 현재가를 적정주가로 사용합니다.", lead)
	case candidate >= in.Price*g.cfg.MinRatio && candidate <= in.Price*g.cfg.MaxRatio:
		c.Value = candidate
		c.Note = fmt.Sprintf("%s %s으로 재산출했습니다.", lead, basis)
	default:
		c.Value = in.Price
		c.Method = MethodCurrentPrice
		c.Note = fmt.Sprintf("%s 재산출값(%s)이 허용 범위(현재가의 %.1f~%.1f배)를 벗어나 현재가를 적정주가로 사용합니다.",
			lead, basis, g.cfg.MinRatio, g.cfg.MaxRatio)
	}
	return c
}

// Apply checks an estimate against the current price and valuation snapshot.
// A corrected estimate keeps its original reasoning with the correction note
// appended, and records the original value.
func (g *Guard) Apply(est models.FairPriceEstimate, price float64, snap models.ValuationSnapshot) models.FairPriceEstimate {
	c := g.Correct(GuardInput{
		Proposed: est.Value,
		Price:    price,
		BPS:      snap.BPS,
		EPS:      snap.EPS,
		PER:      snap.PER,
		PBR:      snap.PBR,
	})
	if !c.Corrected {
		return est
	}

	out := est
	out.OriginalValue = models.Float(est.Value)
	out.Value = c.Value
	out.Corrected = true
	out.CorrectionMethod = c.Method
	if strings.TrimSpace(out.Reasoning) == "" {
		out.Reasoning = c.Note
	} else {
		out.Reasoning = out.Reasoning + "\n" + c.Note
	}
	return out
}

// targetPBR prefers the implausible value itself when it looks like a
// multiple and the snapshot has no PBR of its own.
func (g *Guard) targetPBR(proposed float64, pbr *float64) float64 {
	if pbr == nil {
		if proposed > 0 && proposed < g.cfg.MultipleCeiling {
			return proposed
		}
		return g.cfg.DefaultPBRTarget
	}
	if *pbr < 1 {
		return g.cfg.LowPBRTarget
	}
	return g.cfg.DefaultPBRTarget
}

func (g *Guard) targetPER(per *float64) float64 {
	if per != nil && *per > g.cfg.MinPER {
		return *per
	}
	return g.cfg.DefaultPER
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}

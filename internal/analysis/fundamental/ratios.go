package fundamental

import (
	"math"

	"github.com/seenimoa/krxbrief/pkg/models"
	"github.com/seenimoa/krxbrief/pkg/utils"
)

// Ratio names. Percentages unless marked as multiples.
const (
	RatioROA                = "roa"
	RatioROE                = "roe"
	RatioDebt               = "debt_ratio"
	RatioEquity             = "equity_ratio"
	RatioCurrent            = "current_ratio"
	RatioQuick              = "quick_ratio"
	RatioInterestCoverage   = "interest_coverage"   // multiple
	RatioOperatingMargin    = "operating_margin"
	RatioNetMargin          = "net_margin"
	RatioAssetTurnover      = "asset_turnover"      // multiple
	RatioReceivableTurnover = "receivable_turnover" // multiple

	GrowthRevenue         = "revenue_growth"
	GrowthOperatingIncome = "operating_income_growth"
	GrowthNetIncome       = "net_income_growth"
)

// RatioOrder lists ratio names in display order.
var RatioOrder = []string{
	RatioROA, RatioROE, RatioDebt, RatioEquity, RatioCurrent, RatioQuick,
	RatioInterestCoverage, RatioOperatingMargin, RatioNetMargin,
	RatioAssetTurnover, RatioReceivableTurnover,
}

// IsMultiple reports whether the named ratio is a multiple rather than a
// percentage.
func IsMultiple(name string) bool {
	switch name {
	case RatioInterestCoverage, RatioAssetTurnover, RatioReceivableTurnover:
		return true
	}
	return false
}

// ComputeRatios derives profitability, leverage, liquidity and efficiency
// ratios. A ratio is present only when every operand is present and the
// denominator is non-zero. Missing equity falls back to assets − liabilities.
// Values are rounded to 2 decimal places.
func ComputeRatios(acc Accounts) models.RatioSet {
	acc = acc.WithEquityFallback()
	rs := models.RatioSet{}

	assets, hasAssets := acc.Current(TotalAssets)
	liabs, hasLiabs := acc.Current(TotalLiabilities)
	equity, hasEquity := acc.Current(TotalEquity)
	revenue, hasRevenue := acc.Current(Revenue)
	opInc, hasOpInc := acc.Current(OperatingIncome)
	netInc, hasNetInc := acc.Current(NetIncome)
	curAssets, hasCurAssets := acc.Current(CurrentAssets)
	curLiabs, hasCurLiabs := acc.Current(CurrentLiabilities)
	receivables, hasReceivables := acc.Current(Receivables)
	interest, hasInterest := acc.Current(InterestExpense)
	inventory, _ := acc.Current(Inventory) // absent inventory counts as 0

	// Profitability.
	setRatio(rs, RatioROA, netInc, assets, hasNetInc && hasAssets, 100)
	setRatio(rs, RatioROE, netInc, equity, hasNetInc && hasEquity, 100)
	setRatio(rs, RatioOperatingMargin, opInc, revenue, hasOpInc && hasRevenue, 100)
	setRatio(rs, RatioNetMargin, netInc, revenue, hasNetInc && hasRevenue, 100)

	// Leverage.
	setRatio(rs, RatioDebt, liabs, equity, hasLiabs && hasEquity, 100)
	setRatio(rs, RatioEquity, equity, assets, hasEquity && hasAssets, 100)
	setRatio(rs, RatioInterestCoverage, opInc, interest, hasOpInc && hasInterest, 1)

	// Liquidity.
	setRatio(rs, RatioCurrent, curAssets, curLiabs, hasCurAssets && hasCurLiabs, 100)
	setRatio(rs, RatioQuick, curAssets-inventory, curLiabs, hasCurAssets && hasCurLiabs, 100)

	// Efficiency.
	setRatio(rs, RatioAssetTurnover, revenue, assets, hasRevenue && hasAssets, 1)
	setRatio(rs, RatioReceivableTurnover, revenue, receivables, hasRevenue && hasReceivables, 1)

	return rs
}

// ComputeGrowth calculates year-over-year growth of revenue, operating
// income and net income from current vs prior-period amounts. A rate is
// omitted when either period is absent or the prior amount is zero.
func ComputeGrowth(acc Accounts) models.RatioSet {
	rs := models.RatioSet{}
	for name, c := range map[string]Concept{
		GrowthRevenue:         Revenue,
		GrowthOperatingIncome: OperatingIncome,
		GrowthNetIncome:       NetIncome,
	} {
		cur, okC := acc.Current(c)
		prev, okP := acc.Prior(c)
		if !okC || !okP {
			continue
		}
		if g, ok := pctChange(prev, cur); ok {
			rs[name] = utils.Round(g, 2)
		}
	}
	return rs
}

// --- helpers ---

func setRatio(rs models.RatioSet, name string, num, den float64, present bool, scale float64) {
	if !present || den == 0 {
		return
	}
	v := num / den * scale
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	rs[name] = utils.Round(v, 2)
}

// pctChange is measured against |old| so a loss narrowing reads as growth.
func pctChange(old, new_ float64) (float64, bool) {
	if old == 0 {
		return 0, false
	}
	return (new_ - old) / math.Abs(old) * 100, true
}

package models

// ValuationSource tags where a valuation figure came from.
type ValuationSource string

const (
	SourceFeed               ValuationSource = "feed"
	SourceReconciled         ValuationSource = "reconciled"
	SourceDividendDisclosure ValuationSource = "dividend_disclosure"
	SourcePriceOverEPS       ValuationSource = "derived_price_eps"
	SourceStatementEquity    ValuationSource = "statement_equity"
	SourcePriceOverBPS       ValuationSource = "derived_price_bps"
)

// SharesSource tags which step of the shares-outstanding chain answered.
type SharesSource string

const (
	SharesFromMarketCap SharesSource = "market_cap"
	SharesFromCache     SharesSource = "cache"
	SharesFromLookup    SharesSource = "lookup"
)

// Valuation field names used in ValuationSnapshot.Fields.
const (
	FieldEPS           = "eps"
	FieldBPS           = "bps"
	FieldPER           = "per"
	FieldPBR           = "pbr"
	FieldDividendYield = "div_yield"
)

// ValuationSnapshot is the reconciled per-share valuation of an instrument.
// Absent values are nil, never zero.
type ValuationSnapshot struct {
	EPS           *float64 `json:"eps"`
	BPS           *float64 `json:"bps"`
	PER           *float64 `json:"per"`
	PBR           *float64 `json:"pbr"`
	DividendYield *float64 `json:"div_yield"`

	// Source is SourceFeed when every present value came straight from the
	// feed, SourceReconciled otherwise.
	Source ValuationSource `json:"source"`
	// Fields records the source of each present value, keyed by Field*.
	Fields map[string]ValuationSource `json:"fields,omitempty"`

	Shares       *int64       `json:"shares,omitempty"`
	SharesSource SharesSource `json:"shares_source,omitempty"`

	// Unavailable marks that neither PER nor PBR could be derived.
	Unavailable bool `json:"unavailable"`
}

// FairPriceEstimate is the structured output of the generative step, after
// validation by the fair-price guard.
type FairPriceEstimate struct {
	Value         float64  `json:"fair_price"`
	Reasoning     string   `json:"fair_price_reason"`
	CurrentVsFair string   `json:"current_vs_fair,omitempty"`
	Score         *float64 `json:"investment_score,omitempty"`
	Grade         string   `json:"investment_grade,omitempty"`
	Opinion       string   `json:"investment_opinion,omitempty"`
	Summary       string   `json:"evaluation_summary,omitempty"`

	Corrected        bool     `json:"corrected"`
	OriginalValue    *float64 `json:"original_value,omitempty"`
	CorrectionMethod string   `json:"correction_method,omitempty"`
}

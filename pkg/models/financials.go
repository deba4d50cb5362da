package models

// StatementLine is one financial-statement line item as reported by the
// disclosure source. Names are free text and may vary between filers.
type StatementLine struct {
	AccountName string   `json:"account_name"          yaml:"account_name"`
	Current     *float64 `json:"current,omitempty"      yaml:"current"`      // 당기
	Prior       *float64 `json:"prior,omitempty"        yaml:"prior"`        // 전기
	BeforePrior *float64 `json:"before_prior,omitempty" yaml:"before_prior"` // 전전기
}

// DividendDisclosure is one row of a dividend-matters disclosure. Amounts are
// kept as reported ("1,444", "-", "") and parsed by consumers.
type DividendDisclosure struct {
	Label       string `json:"label"                  yaml:"label"`      // se, e.g. "(연결)주당순이익(원)"
	StockKind   string `json:"stock_kind,omitempty"   yaml:"stock_kind"` // "보통주", "우선주"
	Current     string `json:"current"                yaml:"current"`
	Prior       string `json:"prior,omitempty"        yaml:"prior"`
	BeforePrior string `json:"before_prior,omitempty" yaml:"before_prior"`
}

// ShareCountRow is one row of an issued-share-count disclosure.
type ShareCountRow struct {
	Category string `json:"category" yaml:"category"` // se, e.g. "보통주", "합계"
	Issued   string `json:"issued"   yaml:"issued"`   // istc_totqy
}

// ValuationFeed is the market-data provider's valuation block. Any field may
// be absent.
type ValuationFeed struct {
	PER           *float64 `json:"per,omitempty"       yaml:"per"`
	PBR           *float64 `json:"pbr,omitempty"       yaml:"pbr"`
	EPS           *float64 `json:"eps,omitempty"       yaml:"eps"`
	BPS           *float64 `json:"bps,omitempty"       yaml:"bps"`
	DividendYield *float64 `json:"div_yield,omitempty" yaml:"div_yield"`
}

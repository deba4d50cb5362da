// Package fundamental derives financial health and valuation figures from
// loosely-named statement line items, dividend disclosures and a market
// valuation feed.
package fundamental

import (
	"strings"

	"github.com/seenimoa/krxbrief/pkg/models"
)

// Concept is a canonical financial-statement account.
type Concept int

const (
	TotalAssets Concept = iota
	TotalLiabilities
	TotalEquity
	Revenue
	OperatingIncome
	NetIncome
	CurrentAssets
	CurrentLiabilities
	Inventory
	Receivables
	InterestExpense
)

// Concepts lists every concept in display order.
var Concepts = []Concept{
	TotalAssets, TotalLiabilities, TotalEquity,
	Revenue, OperatingIncome, NetIncome,
	CurrentAssets, CurrentLiabilities, Inventory, Receivables, InterestExpense,
}

var conceptNames = map[Concept]string{
	TotalAssets:        "total_assets",
	TotalLiabilities:   "total_liabilities",
	TotalEquity:        "total_equity",
	Revenue:            "revenue",
	OperatingIncome:    "operating_income",
	NetIncome:          "net_income",
	CurrentAssets:      "current_assets",
	CurrentLiabilities: "current_liabilities",
	Inventory:          "inventory",
	Receivables:        "receivables",
	InterestExpense:    "interest_expense",
}

var conceptLabels = map[Concept]string{
	TotalAssets:        "자산총계",
	TotalLiabilities:   "부채총계",
	TotalEquity:        "자본총계",
	Revenue:            "매출액",
	OperatingIncome:    "영업이익",
	NetIncome:          "당기순이익",
	CurrentAssets:      "유동자산",
	CurrentLiabilities: "유동부채",
	Inventory:          "재고자산",
	Receivables:        "매출채권",
	InterestExpense:    "이자비용",
}

func (c Concept) String() string {
	if s, ok := conceptNames[c]; ok {
		return s
	}
	return "unknown"
}

// MarshalText encodes c by name so Accounts serialize with readable keys.
func (c Concept) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Label returns the Korean display label.
func (c Concept) Label() string {
	return conceptLabels[c]
}

// MatchKind selects how a rule compares an account name.
type MatchKind int

const (
	MatchContains MatchKind = iota
	MatchExact
	MatchPrefix
)

// MatchRule maps account names to a concept. Names and patterns are compared
// with whitespace removed and case folded.
type MatchRule struct {
	Concept  Concept
	Kind     MatchKind
	Patterns []string
	// Exclude rejects names containing any of these substrings.
	Exclude []string
}

// Matches reports whether name satisfies the rule.
func (r MatchRule) Matches(name string) bool {
	n := normalizeName(name)
	for _, ex := range r.Exclude {
		if strings.Contains(n, normalizeName(ex)) {
			return false
		}
	}
	for _, p := range r.Patterns {
		p = normalizeName(p)
		switch r.Kind {
		case MatchExact:
			if n == p {
				return true
			}
		case MatchPrefix:
			if strings.HasPrefix(n, p) {
				return true
			}
		default:
			if strings.Contains(n, p) {
				return true
			}
		}
	}
	return false
}

// DefaultRules returns the account-matching rules for K-IFRS statements as
// published by DART, with English synonyms.
func DefaultRules() []MatchRule {
	return []MatchRule{
		{Concept: TotalAssets, Patterns: []string{"자산총계", "Total assets"}},
		{Concept: TotalLiabilities, Patterns: []string{"부채총계", "Total liabilities"}, Exclude: []string{"자본", "equity"}},
		{Concept: TotalEquity, Patterns: []string{"자본총계", "Total equity"}, Exclude: []string{"부채", "liabilities"}},
		{Concept: Revenue, Patterns: []string{"매출액", "영업수익", "수익(매출액)", "Revenue", "Sales"}, Exclude: []string{"원가", "cost"}},
		{Concept: OperatingIncome, Patterns: []string{"영업이익", "영업손익", "Operating income", "Operating profit"}, Exclude: []string{"률"}},
		{Concept: NetIncome, Patterns: []string{"당기순이익", "당기순손익", "Net income", "Profit for the"}, Exclude: []string{"주당", "per share"}},
		{Concept: CurrentAssets, Patterns: []string{"유동자산", "Current assets"}, Exclude: []string{"비유동", "Non-current", "기타"}},
		{Concept: CurrentLiabilities, Patterns: []string{"유동부채", "Current liabilities"}, Exclude: []string{"비유동", "Non-current", "기타"}},
		{Concept: Inventory, Patterns: []string{"재고자산", "Inventories", "Inventory"}},
		{Concept: Receivables, Patterns: []string{"매출채권", "Trade receivables", "Accounts receivable"}},
		{Concept: InterestExpense, Patterns: []string{"이자비용", "금융비용", "금융원가", "Interest expense", "Finance costs"}},
	}
}

// Account is the line item resolved for one concept.
type Account struct {
	Name        string   `json:"name"`
	Current     *float64 `json:"current"`
	Prior       *float64 `json:"prior,omitempty"`
	BeforePrior *float64 `json:"before_prior,omitempty"`
	// Derived marks a value computed from other accounts rather than reported.
	Derived bool `json:"derived,omitempty"`
}

// Accounts is the canonical account snapshot of one reporting period.
// Absent concepts have no entry.
type Accounts map[Concept]Account

// Current returns the current-period amount of c.
func (a Accounts) Current(c Concept) (float64, bool) {
	acc, ok := a[c]
	if !ok || acc.Current == nil {
		return 0, false
	}
	return *acc.Current, true
}

// Prior returns the prior-period amount of c.
func (a Accounts) Prior(c Concept) (float64, bool) {
	acc, ok := a[c]
	if !ok || acc.Prior == nil {
		return 0, false
	}
	return *acc.Prior, true
}

// Equity returns total equity, falling back to assets − liabilities.
func (a Accounts) Equity() (float64, bool) {
	if v, ok := a.Current(TotalEquity); ok {
		return v, true
	}
	assets, okA := a.Current(TotalAssets)
	liabs, okL := a.Current(TotalLiabilities)
	if okA && okL {
		return assets - liabs, true
	}
	return 0, false
}

// WithEquityFallback returns a copy of a in which a missing TotalEquity is
// derived as TotalAssets − TotalLiabilities, per period.
func (a Accounts) WithEquityFallback() Accounts {
	out := make(Accounts, len(a)+1)
	for k, v := range a {
		out[k] = v
	}
	if _, ok := out.Current(TotalEquity); ok {
		return out
	}
	assets, okA := a[TotalAssets]
	liabs, okL := a[TotalLiabilities]
	if !okA || !okL || assets.Current == nil || liabs.Current == nil {
		return out
	}
	out[TotalEquity] = Account{
		Name:        "자산총계-부채총계",
		Current:     subPtr(assets.Current, liabs.Current),
		Prior:       subPtr(assets.Prior, liabs.Prior),
		BeforePrior: subPtr(assets.BeforePrior, liabs.BeforePrior),
		Derived:     true,
	}
	return out
}

// Normalizer resolves canonical accounts from statement lines.
type Normalizer struct {
	rules []MatchRule
}

// NewNormalizer creates a normalizer; nil rules means DefaultRules.
func NewNormalizer(rules []MatchRule) *Normalizer {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Normalizer{rules: rules}
}

// Normalize makes a single pass over lines in input order. For each concept
// the first line matching its rule with a current-period amount is taken;
// later matches for the same concept are ignored. Equity is then derived
// from assets and liabilities if it was not reported.
func (n *Normalizer) Normalize(lines []models.StatementLine) Accounts {
	acc := Accounts{}
	for _, line := range lines {
		if line.Current == nil {
			continue
		}
		for _, r := range n.rules {
			if _, taken := acc[r.Concept]; taken {
				continue
			}
			if r.Matches(line.AccountName) {
				acc[r.Concept] = Account{
					Name:        line.AccountName,
					Current:     line.Current,
					Prior:       line.Prior,
					BeforePrior: line.BeforePrior,
				}
			}
		}
		if len(acc) == len(n.rules) {
			break
		}
	}
	return acc.WithEquityFallback()
}

// NormalizeStatement resolves accounts with the default rules.
func NormalizeStatement(lines []models.StatementLine) Accounts {
	return NewNormalizer(nil).Normalize(lines)
}

// --- helpers ---

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func subPtr(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a - *b
	return &v
}

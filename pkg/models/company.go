package models

import "time"

// CompanyProfile is the company overview filed with the disclosure system.
type CompanyProfile struct {
	CorpName     string `json:"corp_name"               yaml:"corp_name"`
	CorpNameEng  string `json:"corp_name_eng,omitempty" yaml:"corp_name_eng"`
	StockName    string `json:"stock_name,omitempty"    yaml:"stock_name"`
	CEO          string `json:"ceo,omitempty"           yaml:"ceo"`
	CorpClass    string `json:"corp_class,omitempty"    yaml:"corp_class"` // Y 유가, K 코스닥, N 코넥스, E 기타
	IndustryCode string `json:"industry_code,omitempty" yaml:"industry_code"`
	Established  string `json:"established,omitempty"   yaml:"established"` // YYYYMMDD
	Homepage     string `json:"homepage,omitempty"      yaml:"homepage"`
	FiscalMonth  string `json:"fiscal_month,omitempty"  yaml:"fiscal_month"`
}

// Disclosure is one filing in the disclosure list.
type Disclosure struct {
	ReceiptNo  string `json:"receipt_no"      yaml:"receipt_no"`
	ReportName string `json:"report_name"     yaml:"report_name"`
	Filer      string `json:"filer,omitempty" yaml:"filer"`
	ReceivedOn string `json:"received_on"     yaml:"received_on"` // YYYYMMDD
}

// NewsArticle is one news item about a company.
type NewsArticle struct {
	Title       string    `json:"title"                  yaml:"title"`
	URL         string    `json:"url"                    yaml:"url"`
	Source      string    `json:"source,omitempty"       yaml:"source"`
	Summary     string    `json:"summary,omitempty"      yaml:"summary"`
	PublishedAt time.Time `json:"published_at,omitempty" yaml:"published_at"`
}

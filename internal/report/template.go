package report

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/seenimoa/krxbrief/internal/analysis/fundamental"
	"github.com/seenimoa/krxbrief/pkg/models"
	"github.com/seenimoa/krxbrief/pkg/utils"
)

// NA marks an absent value in the brief.
const NA = "N/A"

// BriefTemplate renders the Markdown brief handed to the generative step.
const BriefTemplate = `### 주가 현황
- 기준일: {{.Date}}
- 현재가: {{.Price}}
- 전일 대비: {{.Change}} ({{.ChangeRate}})
- 52주 최고: {{.High52}}
- 52주 최저: {{.Low52}}
- 52주 수익률: {{.Return52}}
- 평균 거래량({{.VolumeDays}}일): {{.AvgVolume}}{{if .VolumeSurge}} (거래량 급증){{end}}

### 이동평균선
{{range .MovingAverages}}- {{.Label}}: {{.Value}}
{{end}}- 추세: {{.Trend}}
{{- if .Cross}}
- 교차 신호: {{.Cross}}
{{- end}}

### 기술적 지표
- {{.RSILabel}}: {{.RSI}}
- {{.MFILabel}}: {{.MFI}}
{{- range .Signals}}
- 신호: {{.}}
{{- end}}

### 밸류에이션
{{- if .ValuationUnavailable}}
- 밸류에이션 산출 불가 (PER·PBR 모두 없음)
{{- end}}
{{range .Valuation}}- {{.Label}}: {{.Value}}
{{end}}
### 기업 개요
{{range .Company}}- {{.Label}}: {{.Value}}
{{end}}
### 재무지표
{{range .Ratios}}- {{.Label}}: {{.Value}}
{{else}}- {{$.NA}}
{{end}}
### 주요 재무제표 계정
{{range .Accounts}}- {{.Label}}: {{.Value}}
{{else}}- {{$.NA}}
{{end}}
### 배당 정보
{{range .Dividends}}- {{.Label}}: {{.Value}}
{{else}}- {{$.NA}}
{{end}}
### 최근 공시
{{range .Filings}}- [{{.Label}}] {{.Value}}
{{else}}- {{$.NA}}
{{end}}
### 최근 뉴스{{if .News}} ({{len .News}}건){{end}}
{{range .News}}- {{.Title}}{{if .Source}} ({{.Source}}){{end}}{{if .Summary}}
  요약: {{.Summary}}{{end}}
{{else}}- {{$.NA}}
{{end}}`

var briefTmpl = template.Must(template.New("brief").Parse(BriefTemplate))

// Row is one labelled line of the brief.
type Row struct {
	Label string
	Value string
}

// NewsRow is one article line of the brief.
type NewsRow struct {
	Title   string
	Source  string
	Summary string
}

// BriefData is the flattened, display-formatted view of a report.
type BriefData struct {
	NA string

	Date        string
	Price       string
	Change      string
	ChangeRate  string
	High52      string
	Low52       string
	Return52    string
	VolumeDays  int
	AvgVolume   string
	VolumeSurge bool

	MovingAverages []Row
	Trend          string
	Cross          string

	RSILabel string
	RSI      string
	MFILabel string
	MFI      string
	Signals  []string

	ValuationUnavailable bool
	Valuation            []Row
	Ratios               []Row
	Company              []Row
	Accounts             []Row
	Dividends            []Row
	Filings              []Row
	News                 []NewsRow
}

// RenderBrief executes BriefTemplate over data.
func RenderBrief(data BriefData) (string, error) {
	data.NA = NA
	var buf bytes.Buffer
	if err := briefTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing brief template: %w", err)
	}
	return buf.String(), nil
}

var ratioLabels = map[string]string{
	fundamental.RatioROA:                "ROA",
	fundamental.RatioROE:                "ROE",
	fundamental.RatioDebt:               "부채비율",
	fundamental.RatioEquity:             "자기자본비율",
	fundamental.RatioCurrent:            "유동비율",
	fundamental.RatioQuick:              "당좌비율",
	fundamental.RatioInterestCoverage:   "이자보상배율",
	fundamental.RatioOperatingMargin:    "영업이익률",
	fundamental.RatioNetMargin:          "순이익률",
	fundamental.RatioAssetTurnover:      "총자산회전율",
	fundamental.RatioReceivableTurnover: "매출채권회전율",
	fundamental.GrowthRevenue:           "매출액 증가율",
	fundamental.GrowthOperatingIncome:   "영업이익 증가율",
	fundamental.GrowthNetIncome:         "순이익 증가율",
}

var growthOrder = []string{
	fundamental.GrowthRevenue, fundamental.GrowthOperatingIncome, fundamental.GrowthNetIncome,
}

var signalLabels = map[string]string{
	models.SignalOverbought: "과매수",
	models.SignalOversold:   "과매도",
	models.SignalBullish:    "강세",
	models.SignalBearish:    "약세",
	models.SignalInflow:     "자금 유입",
	models.SignalOutflow:    "자금 유출",
	models.TrendUp:          "상승 추세",
	models.TrendDown:        "하락 추세",
	models.TrendNeutral:     "중립",
	models.CrossGolden:      "골든크로스",
	models.CrossDead:        "데드크로스",
	"surge":                 "거래량 급증",
}

// Section bounds of the brief.
const (
	maxDividendRows = 5
	maxFilingRows   = 5
	maxNewsRows     = 7
	maxSummaryRunes = 100
)

func buildBriefData(r *Report) BriefData {
	d := BriefData{
		Date:       NA,
		Price:      krwOrNA(r.Price),
		Change:     NA,
		ChangeRate: NA,
		High52:     NA,
		Low52:      NA,
		Return52:   NA,
		AvgVolume:  NA,
		Trend:      signalLabel(models.TrendNeutral),
		RSILabel:   "RSI",
		RSI:        NA,
		MFILabel:   "MFI",
		MFI:        NA,
	}

	if a := r.Technical; a != nil {
		if p := a.Price; p != nil {
			d.Date = utils.FormatDateKST(p.Date)
			if p.Change != nil {
				d.Change = utils.FormatKRW(*p.Change)
			}
			if p.ChangePct != nil {
				d.ChangeRate = utils.FormatPct(*p.ChangePct)
			}
		}
		if y := a.Yearly; y != nil {
			d.High52 = utils.FormatKRW(y.High)
			d.Low52 = utils.FormatKRW(y.Low)
			if y.ReturnRate != nil {
				d.Return52 = utils.FormatPct(*y.ReturnRate)
			}
		}
		d.VolumeDays = a.Volume.Days
		if a.Volume.Days > 0 {
			d.AvgVolume = utils.FormatVolume(int64(a.Volume.Average))
		}
		d.VolumeSurge = a.Volume.Surge != nil && *a.Volume.Surge

		ma := a.MovingAverages
		for _, w := range ma.Windows {
			d.MovingAverages = append(d.MovingAverages, Row{
				Label: strconv.Itoa(w) + "일",
				Value: krwPtr(ma.Current[w]),
			})
		}
		d.Trend = signalLabel(ma.Trend)
		if ma.Cross != "" {
			d.Cross = signalLabel(ma.Cross)
		}

		d.RSILabel, d.RSI = indicatorLine("RSI", a.RSI)
		d.MFILabel, d.MFI = indicatorLine("MFI", a.MFI)
		for _, s := range a.Signals {
			d.Signals = append(d.Signals, s.Source+" "+signalLabel(s.Kind))
		}
	}

	v := r.Valuation
	d.ValuationUnavailable = v.Unavailable
	d.Valuation = []Row{
		{"PER", multiplePtr(v.PER)},
		{"PBR", multiplePtr(v.PBR)},
		{"EPS", krwPtr(v.EPS)},
		{"BPS", krwPtr(v.BPS)},
		{"배당수익률", pctPtr(v.DividendYield)},
	}
	if r.GrahamNumber != nil {
		d.Valuation = append(d.Valuation, Row{"그레이엄 가치", utils.FormatKRW(*r.GrahamNumber)})
	}

	for _, name := range fundamental.RatioOrder {
		if val, ok := r.Ratios.Get(name); ok {
			d.Ratios = append(d.Ratios, Row{ratioLabels[name], ratioValue(name, val)})
		}
	}
	for _, name := range growthOrder {
		if val, ok := r.Growth.Get(name); ok {
			d.Ratios = append(d.Ratios, Row{ratioLabels[name], utils.FormatPct(val)})
		}
	}

	for _, c := range fundamental.Concepts {
		if val, ok := r.Accounts.Current(c); ok {
			label := c.Label()
			if r.Accounts[c].Derived {
				label += " (자산총계-부채총계)"
			}
			d.Accounts = append(d.Accounts, Row{label, utils.FormatKRWCompact(val)})
		}
	}

	for _, div := range r.Dividends {
		if len(d.Dividends) == maxDividendRows {
			break
		}
		if _, ok := utils.ParseAmount(div.Current); !ok {
			continue
		}
		label := div.Label
		if div.StockKind != "" {
			label += " (" + div.StockKind + ")"
		}
		d.Dividends = append(d.Dividends, Row{label, div.Current})
	}

	d.Company = companyRows(r)
	for i, f := range r.Filings {
		if i == maxFilingRows {
			break
		}
		d.Filings = append(d.Filings, Row{dateOrNA(f.ReceivedOn), f.ReportName})
	}
	for i, a := range r.News {
		if i == maxNewsRows {
			break
		}
		d.News = append(d.News, NewsRow{
			Title:   a.Title,
			Source:  a.Source,
			Summary: truncateRunes(a.Summary, maxSummaryRunes),
		})
	}
	return d
}

func companyRows(r *Report) []Row {
	c := r.Company
	if c == nil {
		c = &models.CompanyProfile{}
	}
	name := c.CorpName
	if name == "" {
		name = r.Instrument.Name
	}
	return []Row{
		{"회사명", orNA(name)},
		{"대표자", orNA(c.CEO)},
		{"업종코드", orNA(c.IndustryCode)},
		{"설립일", dateOrNA(c.Established)},
		{"홈페이지", orNA(c.Homepage)},
	}
}

// --- helpers ---

func indicatorLine(prefix string, r models.IndicatorResult) (string, string) {
	label := prefix
	if n := len(r.Name) - len(prefix); n > 0 {
		label = fmt.Sprintf("%s(%s)", prefix, r.Name[len(prefix):])
	}
	if r.Value == nil {
		return label, NA
	}
	return label, fmt.Sprintf("%.2f (%s)", *r.Value, signalLabel(r.Signal))
}

func signalLabel(kind string) string {
	if s, ok := signalLabels[kind]; ok {
		return s
	}
	return kind
}

func ratioValue(name string, v float64) string {
	if fundamental.IsMultiple(name) {
		return utils.FormatNumber(v) + "배"
	}
	return utils.FormatNumber(v) + "%"
}

func krwOrNA(v float64) string {
	if v <= 0 {
		return NA
	}
	return utils.FormatKRW(v)
}

func krwPtr(v *float64) string {
	if v == nil {
		return NA
	}
	return utils.FormatKRW(*v)
}

func multiplePtr(v *float64) string {
	if v == nil {
		return NA
	}
	return utils.FormatNumber(*v) + "배"
}

func orNA(s string) string {
	if s == "" {
		return NA
	}
	return s
}

// dateOrNA formats a YYYYMMDD disclosure date as YYYY-MM-DD.
func dateOrNA(s string) string {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return orNA(s)
	}
	return t.Format("2006-01-02")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func pctPtr(v *float64) string {
	if v == nil {
		return NA
	}
	return utils.FormatNumber(*v) + "%"
}

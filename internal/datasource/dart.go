package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/seenimoa/krxbrief/pkg/models"
	"github.com/seenimoa/krxbrief/pkg/utils"
)

// DART endpoint settings.
const (
	DARTBaseURL      = "https://opendart.fss.or.kr/api"
	ReportAnnual     = "11011" // 사업보고서
	dartStatusOK     = "000"
	dartStatusNoData = "013"
)

// Statement scopes, consolidated first.
var statementScopes = []string{"CFS", "OFS"}

// DARTError is a non-success status returned by the OpenDART API.
type DARTError struct {
	Status  string
	Message string
}

func (e *DARTError) Error() string {
	return fmt.Sprintf("dart api error: %s - %s", e.Status, e.Message)
}

// DART is a client for the OpenDART disclosure API. It provides statement
// line items, dividend matters, issued share counts, the company overview
// and the filing list.
type DART struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// DARTOption configures a DART client.
type DARTOption func(*DART)

// WithDARTBaseURL overrides the API base URL.
func WithDARTBaseURL(u string) DARTOption {
	return func(d *DART) { d.baseURL = strings.TrimRight(u, "/") }
}

// WithDARTHTTPClient sets the HTTP client.
func WithDARTHTTPClient(c *http.Client) DARTOption {
	return func(d *DART) { d.client = c }
}

// WithDARTTimeout sets the per-request timeout in seconds.
func WithDARTTimeout(sec int) DARTOption {
	return func(d *DART) { d.client = clientWithTimeout(sec) }
}

// WithDARTRateLimit caps outgoing requests per second. Zero or less disables
// limiting.
func WithDARTRateLimit(rps float64) DARTOption {
	return func(d *DART) {
		if rps <= 0 {
			d.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		d.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithDARTClock sets the clock used to pick the latest business year.
func WithDARTClock(now func() time.Time) DARTOption {
	return func(d *DART) { d.now = now }
}

// NewDART creates a DART client.
func NewDART(apiKey string, opts ...DARTOption) *DART {
	d := &DART{
		apiKey:  apiKey,
		baseURL: DARTBaseURL,
		client:  HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(5), 1),
		now:     utils.NowKST,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the source name.
func (d *DART) Name() string { return "OpenDART" }

// LatestYear returns the most recent business year with a filed annual
// report, i.e. the previous calendar year.
func (d *DART) LatestYear() int {
	return d.now().Year() - 1
}

// =============================================================================
// API Response Types
// =============================================================================

type dartResponse[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	List    []T    `json:"list"`
}

type accountDTO struct {
	SjDiv           string `json:"sj_div"` // BS, IS, CIS, CF, SCE
	AccountNm       string `json:"account_nm"`
	ThstrmAmount    string `json:"thstrm_amount"`
	FrmtrmAmount    string `json:"frmtrm_amount"`
	BfefrmtrmAmount string `json:"bfefrmtrm_amount"`
}

type dividendDTO struct {
	Se       string `json:"se"`
	StockKnd string `json:"stock_knd"`
	Thstrm   string `json:"thstrm"`
	Frmtrm   string `json:"frmtrm"`
	Lwfr     string `json:"lwfr"`
}

type stockTotalDTO struct {
	Se        string `json:"se"`
	IstcTotqy string `json:"istc_totqy"`
}

type companyDTO struct {
	CorpName    string `json:"corp_name"`
	CorpNameEng string `json:"corp_name_eng"`
	StockName   string `json:"stock_name"`
	CEONm       string `json:"ceo_nm"`
	CorpCls     string `json:"corp_cls"`
	IndutyCode  string `json:"induty_code"`
	EstDt       string `json:"est_dt"`
	HmURL       string `json:"hm_url"`
	AccMt       string `json:"acc_mt"`
}

type disclosureDTO struct {
	RceptNo  string `json:"rcept_no"`
	ReportNm string `json:"report_nm"`
	FlrNm    string `json:"flr_nm"`
	RceptDt  string `json:"rcept_dt"`
}

// =============================================================================
// Statement
// =============================================================================

// StatementLines returns every line of the annual statement for year in
// publication order. Consolidated statements are tried first, then separate.
func (d *DART) StatementLines(ctx context.Context, corpCode string, year int) ([]models.StatementLine, error) {
	for _, scope := range statementScopes {
		params := url.Values{}
		params.Set("corp_code", corpCode)
		params.Set("bsns_year", strconv.Itoa(year))
		params.Set("reprt_code", ReportAnnual)
		params.Set("fs_div", scope)

		var resp dartResponse[accountDTO]
		err := d.get(ctx, "fnlttSinglAcntAll.json", corpCode, params, &resp)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		lines := make([]models.StatementLine, 0, len(resp.List))
		for _, dto := range resp.List {
			lines = append(lines, models.StatementLine{
				AccountName: strings.TrimSpace(dto.AccountNm),
				Current:     utils.ParseAmountPtr(dto.ThstrmAmount),
				Prior:       utils.ParseAmountPtr(dto.FrmtrmAmount),
				BeforePrior: utils.ParseAmountPtr(dto.BfefrmtrmAmount),
			})
		}
		if len(lines) == 0 {
			continue
		}

		log.Debug().
			Str("corp_code", corpCode).
			Int("year", year).
			Str("fs_div", scope).
			Int("lines", len(lines)).
			Msg("fetched statement from DART")
		return lines, nil
	}
	return nil, fmt.Errorf("statement %s/%d: %w", corpCode, year, ErrNotFound)
}

// =============================================================================
// Dividends
// =============================================================================

// Dividends returns the dividend-matters rows of the annual report for year.
func (d *DART) Dividends(ctx context.Context, corpCode string, year int) ([]models.DividendDisclosure, error) {
	params := url.Values{}
	params.Set("corp_code", corpCode)
	params.Set("bsns_year", strconv.Itoa(year))
	params.Set("reprt_code", ReportAnnual)

	var resp dartResponse[dividendDTO]
	if err := d.get(ctx, "alotMatter.json", corpCode, params, &resp); err != nil {
		return nil, err
	}

	rows := make([]models.DividendDisclosure, 0, len(resp.List))
	for _, dto := range resp.List {
		rows = append(rows, models.DividendDisclosure{
			Label:       strings.TrimSpace(dto.Se),
			StockKind:   strings.TrimSpace(dto.StockKnd),
			Current:     strings.TrimSpace(dto.Thstrm),
			Prior:       strings.TrimSpace(dto.Frmtrm),
			BeforePrior: strings.TrimSpace(dto.Lwfr),
		})
	}
	return rows, nil
}

// =============================================================================
// Shares
// =============================================================================

// ShareCounts returns the issued-share rows of the annual report for year.
func (d *DART) ShareCounts(ctx context.Context, corpCode string, year int) ([]models.ShareCountRow, error) {
	params := url.Values{}
	params.Set("corp_code", corpCode)
	params.Set("bsns_year", strconv.Itoa(year))
	params.Set("reprt_code", ReportAnnual)

	var resp dartResponse[stockTotalDTO]
	if err := d.get(ctx, "stockTotqySttus.json", corpCode, params, &resp); err != nil {
		return nil, err
	}

	rows := make([]models.ShareCountRow, 0, len(resp.List))
	for _, dto := range resp.List {
		rows = append(rows, models.ShareCountRow{
			Category: strings.TrimSpace(dto.Se),
			Issued:   strings.TrimSpace(dto.IstcTotqy),
		})
	}
	return rows, nil
}

// TotalShares returns the total issued share count from the annual report
// of year, retrying the year before once when that report has none. A year
// of zero or less means the latest business year.
func (d *DART) TotalShares(ctx context.Context, inst models.Instrument, year int) (int64, error) {
	if inst.CorpCode == "" {
		return 0, ErrNoCorpCode
	}

	if year <= 0 {
		year = d.LatestYear()
	}
	var lastErr error
	for _, y := range []int{year, year - 1} {
		rows, err := d.ShareCounts(ctx, inst.CorpCode, y)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			lastErr = err
			continue
		}
		if n, ok := TotalIssued(rows); ok {
			return n, nil
		}
		lastErr = fmt.Errorf("issued shares %s/%d: %w", inst.CorpCode, y, ErrNotFound)
	}
	return 0, lastErr
}

// TotalIssued picks the total issued share count from disclosure rows. A
// total row ("합계" or "발행주식총수") wins; otherwise common and preferred
// rows are summed.
func TotalIssued(rows []models.ShareCountRow) (int64, bool) {
	var common, preferred float64
	for _, r := range rows {
		v, ok := utils.ParseAmount(r.Issued)
		if !ok || v <= 0 {
			continue
		}
		cat := strings.ReplaceAll(r.Category, " ", "")
		switch {
		case strings.Contains(cat, "합계"), strings.Contains(cat, "발행주식총수"):
			return int64(v), true
		case strings.Contains(cat, "보통"):
			common += v
		case strings.Contains(cat, "우선"):
			preferred += v
		}
	}
	if total := int64(common + preferred); total > 0 {
		return total, true
	}
	return 0, false
}

// =============================================================================
// Company
// =============================================================================

// Company returns the company overview (기업개황).
func (d *DART) Company(ctx context.Context, corpCode string) (*models.CompanyProfile, error) {
	params := url.Values{}
	params.Set("corp_code", corpCode)

	var dto companyDTO
	if err := d.get(ctx, "company.json", corpCode, params, &dto); err != nil {
		return nil, err
	}
	return &models.CompanyProfile{
		CorpName:     strings.TrimSpace(dto.CorpName),
		CorpNameEng:  strings.TrimSpace(dto.CorpNameEng),
		StockName:    strings.TrimSpace(dto.StockName),
		CEO:          strings.TrimSpace(dto.CEONm),
		CorpClass:    dto.CorpCls,
		IndustryCode: dto.IndutyCode,
		Established:  dto.EstDt,
		Homepage:     strings.TrimSpace(dto.HmURL),
		FiscalMonth:  dto.AccMt,
	}, nil
}

// =============================================================================
// Disclosure list
// =============================================================================

// Disclosure list query settings: regular filings (A), final amendments only.
const (
	disclosureKindRegular = "A"
	disclosureLookback    = 3 // years
	disclosurePageSize    = 100
)

// Disclosures returns up to limit of the company's most recent regular
// filings, newest first. limit <= 0 returns the whole first page.
func (d *DART) Disclosures(ctx context.Context, corpCode string, limit int) ([]models.Disclosure, error) {
	end := d.now()
	params := url.Values{}
	params.Set("corp_code", corpCode)
	params.Set("bgn_de", end.AddDate(-disclosureLookback, 0, 0).Format("20060102"))
	params.Set("end_de", end.Format("20060102"))
	params.Set("pblntf_ty", disclosureKindRegular)
	params.Set("last_reprt_at", "Y")
	params.Set("page_no", "1")
	params.Set("page_count", strconv.Itoa(disclosurePageSize))

	var resp dartResponse[disclosureDTO]
	if err := d.get(ctx, "list.json", corpCode, params, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Disclosure, 0, len(resp.List))
	for _, dto := range resp.List {
		out = append(out, models.Disclosure{
			ReceiptNo:  dto.RceptNo,
			ReportName: strings.TrimSpace(dto.ReportNm),
			Filer:      strings.TrimSpace(dto.FlrNm),
			ReceivedOn: dto.RceptDt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedOn > out[j].ReceivedOn })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- helpers ---

// get calls a DART endpoint and decodes the response into out, mapping the
// API's status codes onto errors.
func (d *DART) get(ctx context.Context, endpoint, corpCode string, params url.Values, out any) error {
	if d.apiKey == "" {
		return ErrNoAPIKey
	}
	if corpCode == "" {
		return ErrNoCorpCode
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("crtfc_key", d.apiKey)
	u := fmt.Sprintf("%s/%s?%s", d.baseURL, endpoint, params.Encode())

	body, _, err := doGet(ctx, d.client, u, nil)
	if err != nil {
		return fmt.Errorf("dart %s: %w", endpoint, err)
	}
	defer body.Close()

	raw, err := readAllLimited(body)
	if err != nil {
		return fmt.Errorf("dart %s: read body: %w", endpoint, err)
	}

	var status struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return fmt.Errorf("dart %s: decode response: %w", endpoint, err)
	}
	switch status.Status {
	case dartStatusOK:
	case dartStatusNoData:
		return fmt.Errorf("dart %s: %w", endpoint, ErrNotFound)
	default:
		return fmt.Errorf("dart %s: %w", endpoint, &DARTError{Status: status.Status, Message: status.Message})
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("dart %s: decode list: %w", endpoint, err)
	}
	return nil
}

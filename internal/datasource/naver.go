package datasource

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"

	"github.com/seenimoa/krxbrief/pkg/models"
	"github.com/seenimoa/krxbrief/pkg/utils"
)

// Naver Finance settings.
const (
	NaverBaseURL     = "https://finance.naver.com"
	naverRowsPerPage = 10
	naverMaxPages    = 25
	eok              = 100_000_000 // 억
)

// Naver scrapes daily prices, the current quote and the valuation block from
// Naver Finance item pages.
type Naver struct {
	baseURL  string
	client   *http.Client
	maxPages int
}

// NaverOption configures a Naver client.
type NaverOption func(*Naver)

// WithNaverBaseURL overrides the site base URL.
func WithNaverBaseURL(u string) NaverOption {
	return func(n *Naver) { n.baseURL = strings.TrimRight(u, "/") }
}

// WithNaverHTTPClient sets the HTTP client.
func WithNaverHTTPClient(c *http.Client) NaverOption {
	return func(n *Naver) { n.client = c }
}

// WithNaverTimeout sets the per-request timeout in seconds.
func WithNaverTimeout(sec int) NaverOption {
	return func(n *Naver) { n.client = clientWithTimeout(sec) }
}

// WithNaverMaxPages caps how many daily price pages are read.
func WithNaverMaxPages(pages int) NaverOption {
	return func(n *Naver) {
		if pages > 0 {
			n.maxPages = pages
		}
	}
}

// NewNaver creates a Naver Finance client.
func NewNaver(opts ...NaverOption) *Naver {
	n := &Naver{
		baseURL:  NaverBaseURL,
		client:   HTTPClient,
		maxPages: naverMaxPages,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name returns the source name.
func (n *Naver) Name() string { return "Naver Finance" }

// =============================================================================
// Daily Prices
// =============================================================================

// DailyPrices returns up to days trading days of OHLCV ending at the latest
// session, ordered by date ascending. days <= 0 reads every allowed page.
func (n *Naver) DailyPrices(ctx context.Context, ticker string, days int) ([]models.PricePoint, error) {
	code := utils.NormalizeTicker(ticker)
	if !utils.IsValidTicker(code) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}
	if days <= 0 {
		days = n.maxPages * naverRowsPerPage
	}
	pages := (days + naverRowsPerPage - 1) / naverRowsPerPage
	if pages > n.maxPages {
		pages = n.maxPages
	}

	seen := make(map[time.Time]bool, days)
	var points []models.PricePoint
	for page := 1; page <= pages && len(points) < days; page++ {
		doc, err := n.document(ctx, fmt.Sprintf("%s/item/sise_day.naver?code=%s&page=%d", n.baseURL, code, page))
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("daily prices %s: %w", code, err)
			}
			log.Warn().Err(err).Str("ticker", code).Int("page", page).Msg("daily price page failed, keeping earlier pages")
			break
		}

		added := 0
		for _, p := range parseDailyRows(doc) {
			if seen[p.Date] {
				continue
			}
			seen[p.Date] = true
			points = append(points, p)
			added++
		}
		// Past the last page the site repeats the final one.
		if added == 0 {
			break
		}
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("daily prices %s: %w", code, ErrNotFound)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	if len(points) > days {
		points = points[len(points)-days:]
	}

	log.Debug().
		Str("ticker", code).
		Int("count", len(points)).
		Msg("fetched daily prices from Naver")
	return points, nil
}

// parseDailyRows reads a sise_day page: date, close, change, open, high, low,
// volume.
func parseDailyRows(doc *goquery.Document) []models.PricePoint {
	var points []models.PricePoint
	doc.Find("table.type2 tr").Each(func(i int, s *goquery.Selection) {
		if s.Find("th").Length() > 0 {
			return
		}
		tds := s.Find("td")
		if tds.Length() < 7 {
			return
		}

		date, err := time.ParseInLocation("2006.01.02", strings.TrimSpace(tds.Eq(0).Text()), utils.KST)
		if err != nil {
			return
		}
		closePrice, ok := cellNumber(tds.Eq(1))
		if !ok || closePrice == 0 {
			return
		}
		open, _ := cellNumber(tds.Eq(3))
		high, _ := cellNumber(tds.Eq(4))
		low, _ := cellNumber(tds.Eq(5))
		volume, _ := cellNumber(tds.Eq(6))

		points = append(points, models.PricePoint{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: int64(volume),
		})
	})
	return points
}

// =============================================================================
// Quote and Valuation
// =============================================================================

// MarketSnapshot reads the item main page: name, current and previous price,
// market cap, listed shares and the PER/EPS/PBR/BPS/dividend-yield block.
func (n *Naver) MarketSnapshot(ctx context.Context, ticker string) (*MarketSnapshot, error) {
	code := utils.NormalizeTicker(ticker)
	if !utils.IsValidTicker(code) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}

	doc, err := n.document(ctx, fmt.Sprintf("%s/item/main.naver?code=%s", n.baseURL, code))
	if err != nil {
		return nil, fmt.Errorf("market snapshot %s: %w", code, err)
	}

	price, ok := cellNumber(doc.Find("p.no_today .blind").First())
	if !ok || price <= 0 {
		return nil, fmt.Errorf("market snapshot %s: current price: %w", code, ErrNotFound)
	}

	q := models.Quote{
		Ticker:    code,
		Name:      strings.TrimSpace(doc.Find("div.wrap_company h2 a").First().Text()),
		Price:     price,
		Timestamp: utils.NowKST(),
	}
	if prev, ok := cellNumber(doc.Find("table.no_info td.first .blind").First()); ok {
		q.PrevClose = prev
	}

	if mc, ok := parseEok(doc.Find("#_market_sum").First().Text()); ok {
		q.MarketCap = models.Float(mc * eok)
	}
	doc.Find("table tr").Each(func(i int, s *goquery.Selection) {
		th := strings.TrimSpace(s.Find("th").First().Text())
		td := s.Find("td").First()
		switch {
		case strings.Contains(th, "시가총액") && q.MarketCap == nil:
			if mc, ok := parseEok(td.Text()); ok {
				q.MarketCap = models.Float(mc * eok)
			}
		case strings.Contains(th, "상장주식수") && q.ListedShares == nil:
			if v, ok := cellNumber(td); ok && v > 0 {
				q.ListedShares = models.Int(int64(v))
			}
		}
	})

	feed := models.ValuationFeed{
		PER:           cellPtr(doc.Find("#_per").First()),
		EPS:           cellPtr(doc.Find("#_eps").First()),
		PBR:           cellPtr(doc.Find("#_pbr").First()),
		DividendYield: cellPtr(doc.Find("#_dvr").First()),
	}
	// BPS shares the PBR cell: "<em id=_pbr>1.10</em>배 l <em>63,636</em>원".
	if pbr := doc.Find("#_pbr").First(); pbr.Length() > 0 {
		feed.BPS = cellPtr(pbr.Parent().Find("em").Eq(1))
	}

	return &MarketSnapshot{Quote: q, Feed: feed}, nil
}

// --- helpers ---

// document fetches an HTML page and decodes it to UTF-8; item pages are
// served as EUC-KR.
func (n *Naver) document(ctx context.Context, u string) (*goquery.Document, error) {
	body, _, err := doGet(ctx, n.client, u, map[string]string{"Referer": n.baseURL})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	r, err := charset.NewReader(body, "")
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func cellNumber(s *goquery.Selection) (float64, bool) {
	text := strings.Join(strings.Fields(s.Text()), "")
	text = strings.TrimSuffix(text, "배")
	return utils.ParseAmount(text)
}

func cellPtr(s *goquery.Selection) *float64 {
	if s.Length() == 0 {
		return nil
	}
	v, ok := cellNumber(s)
	if !ok {
		return nil
	}
	return &v
}

// parseEok parses an amount in 억 such as "4,364조 8,372" or "1,234억원".
func parseEok(s string) (float64, bool) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimSuffix(s, "원")
	s = strings.TrimSuffix(s, "억")
	if s == "" {
		return 0, false
	}

	var total float64
	if jo, rest, found := strings.Cut(s, "조"); found {
		v, ok := utils.ParseAmount(jo)
		if !ok {
			return 0, false
		}
		total = v * 10_000
		s = rest
	}
	if s != "" {
		v, ok := utils.ParseAmount(s)
		if !ok {
			return 0, false
		}
		total += v
	}
	return total, total > 0
}

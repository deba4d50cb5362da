// Package datasource fetches the raw inputs of one instrument from the KRX
// market-data and disclosure providers. Each source only returns raw series,
// line items or text; normalization happens in the analysis packages.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/seenimoa/krxbrief/pkg/models"
)

// PriceSource returns a daily OHLCV series ordered by date ascending.
type PriceSource interface {
	DailyPrices(ctx context.Context, ticker string, days int) ([]models.PricePoint, error)
}

// ValuationSource returns the current quote and the provider's valuation block.
type ValuationSource interface {
	MarketSnapshot(ctx context.Context, ticker string) (*MarketSnapshot, error)
}

// StatementSource returns the annual financial-statement line items of a
// company for a business year.
type StatementSource interface {
	StatementLines(ctx context.Context, corpCode string, year int) ([]models.StatementLine, error)
}

// DividendSource returns the dividend-matters disclosure rows of a company.
type DividendSource interface {
	Dividends(ctx context.Context, corpCode string, year int) ([]models.DividendDisclosure, error)
}

// SharesSource returns the total issued share count of an instrument as of a
// business year.
type SharesSource interface {
	TotalShares(ctx context.Context, inst models.Instrument, year int) (int64, error)
}

// CompanySource returns the company overview filed with the disclosure system.
type CompanySource interface {
	Company(ctx context.Context, corpCode string) (*models.CompanyProfile, error)
}

// DisclosureSource returns a company's most recent regular filings, newest
// first.
type DisclosureSource interface {
	Disclosures(ctx context.Context, corpCode string, limit int) ([]models.Disclosure, error)
}

// NewsSource returns recent news articles about a company, newest first.
type NewsSource interface {
	CompanyNews(ctx context.Context, query string, limit int) ([]models.NewsArticle, error)
}

// MarketSnapshot is what the market-data item page reports for a ticker.
type MarketSnapshot struct {
	Quote models.Quote         `json:"quote"`
	Feed  models.ValuationFeed `json:"feed"`
}

// --- Sentinel errors ---

var (
	// ErrNotFound is returned when a source has no data for the request.
	ErrNotFound = errors.New("datasource: no data")
	// ErrNoAPIKey is returned when a keyed source is used without a key.
	ErrNoAPIKey = errors.New("datasource: API key not configured")
	// ErrNoCorpCode is returned when a disclosure lookup lacks a corp code.
	ErrNoCorpCode = errors.New("datasource: corp code required")
	// ErrInvalidTicker is returned for tickers that are not 6-digit KRX codes.
	ErrInvalidTicker = errors.New("datasource: invalid ticker")
)

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// HTTPClient is a pre-configured HTTP client with reasonable timeouts.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// doGet performs a GET request with the given URL and headers, returning the response body.
// A nil client means HTTPClient. The caller is responsible for closing the returned ReadCloser.
func doGet(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, int, error) {
	if client == nil {
		client = HTTPClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		var ue *neturl.Error
		if errors.As(err, &ue) {
			ue.URL = redact(ue.URL)
		}
		return nil, 0, fmt.Errorf("HTTP GET %s: %w", redact(url), err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, resp.StatusCode, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, resp.StatusCode, nil
}

func clientWithTimeout(sec int) *http.Client {
	if sec <= 0 {
		return HTTPClient
	}
	return &http.Client{Timeout: time.Duration(sec) * time.Second}
}

// redact masks credentials carried in query parameters.
func redact(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("crtfc_key") == "" {
		return raw
	}
	q.Set("crtfc_key", "***")
	u.RawQuery = q.Encode()
	return u.String()
}

// maxBodySize caps how much of a response body is read.
const maxBodySize = 16 << 20

func readAllLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBodySize))
}

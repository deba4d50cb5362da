package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/krxbrief/pkg/models"
	"github.com/seenimoa/krxbrief/pkg/utils"
)

// Bundle is the raw input set of one instrument. A field whose source
// failed is left empty and the failure is recorded in Errors.
type Bundle struct {
	Instrument models.Instrument           `json:"instrument"`
	Year       int                         `json:"year"`
	Prices     []models.PricePoint         `json:"prices,omitempty"`
	Quote      *models.Quote               `json:"quote,omitempty"`
	Feed       models.ValuationFeed        `json:"feed"`
	Statement  []models.StatementLine      `json:"statement,omitempty"`
	Dividends  []models.DividendDisclosure `json:"dividends,omitempty"`
	Company    *models.CompanyProfile      `json:"company,omitempty"`
	Filings    []models.Disclosure         `json:"filings,omitempty"`
	News       []models.NewsArticle        `json:"news,omitempty"`
	FetchedAt  time.Time                   `json:"fetched_at"`
	Errors     []error                     `json:"-"`
}

// Default list sizes of the supplementary sources.
const (
	DefaultFilingLimit = 10
	DefaultNewsLimit   = 15
)

// Aggregator fetches one instrument's raw inputs from its sources
// concurrently. Any source may be nil.
type Aggregator struct {
	prices      PriceSource
	valuation   ValuationSource
	statements  StatementSource
	dividends   DividendSource
	company     CompanySource
	filings     DisclosureSource
	news        NewsSource
	filingLimit int
	newsLimit   int
}

// AggregatorOption configures the supplementary sources of an Aggregator.
type AggregatorOption func(*Aggregator)

// WithCompanySource adds the company overview.
func WithCompanySource(src CompanySource) AggregatorOption {
	return func(a *Aggregator) { a.company = src }
}

// WithDisclosureSource adds the recent filing list, keeping up to limit
// entries. limit <= 0 keeps DefaultFilingLimit.
func WithDisclosureSource(src DisclosureSource, limit int) AggregatorOption {
	return func(a *Aggregator) {
		a.filings = src
		if limit > 0 {
			a.filingLimit = limit
		}
	}
}

// WithNewsSource adds company news, keeping up to limit articles. limit <= 0
// keeps DefaultNewsLimit.
func WithNewsSource(src NewsSource, limit int) AggregatorOption {
	return func(a *Aggregator) {
		a.news = src
		if limit > 0 {
			a.newsLimit = limit
		}
	}
}

// NewAggregator creates an aggregator over the given sources.
func NewAggregator(prices PriceSource, valuation ValuationSource, statements StatementSource, dividends DividendSource, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		prices:      prices,
		valuation:   valuation,
		statements:  statements,
		dividends:   dividends,
		filingLimit: DefaultFilingLimit,
		newsLimit:   DefaultNewsLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewDefaultAggregator wires Naver for market data and DART for disclosures,
// the company overview and the filing list.
func NewDefaultAggregator(naver *Naver, dart *DART, opts ...AggregatorOption) *Aggregator {
	opts = append([]AggregatorOption{
		WithCompanySource(dart),
		WithDisclosureSource(dart, DefaultFilingLimit),
	}, opts...)
	return NewAggregator(naver, naver, dart, dart, opts...)
}

// Fetch collects prices, the market snapshot, the statement and dividend
// disclosures, plus the company overview, recent filings and news when those
// sources are set. days bounds the price series; year selects the business
// year of the disclosures. News is searched by company name, so without a
// name it waits for the market snapshot. Source failures are non-fatal and
// collected in Bundle.Errors; only a cancelled context fails the fetch.
func (a *Aggregator) Fetch(ctx context.Context, inst models.Instrument, year, days int) (*Bundle, error) {
	inst.Ticker = utils.NormalizeTicker(inst.Ticker)
	b := &Bundle{
		Instrument: inst,
		Year:       year,
		FetchedAt:  utils.NowKST(),
	}

	var mu sync.Mutex
	fail := func(what string, err error) {
		mu.Lock()
		b.Errors = append(b.Errors, fmt.Errorf("%s: %w", what, err))
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.prices != nil {
		g.Go(func() error {
			pts, err := a.prices.DailyPrices(gctx, inst.Ticker, days)
			if err != nil {
				fail("prices", err)
				return nil
			}
			mu.Lock()
			b.Prices = pts
			mu.Unlock()
			return nil
		})
	}

	if a.valuation != nil {
		g.Go(func() error {
			snap, err := a.valuation.MarketSnapshot(gctx, inst.Ticker)
			if err != nil {
				fail("market snapshot", err)
				return nil
			}
			mu.Lock()
			q := snap.Quote
			b.Quote = &q
			b.Feed = snap.Feed
			if b.Instrument.Name == "" {
				b.Instrument.Name = q.Name
			}
			mu.Unlock()
			return nil
		})
	}

	if a.statements != nil || a.dividends != nil || a.company != nil || a.filings != nil {
		if inst.CorpCode == "" {
			fail("disclosures", ErrNoCorpCode)
		} else {
			if a.statements != nil {
				g.Go(func() error {
					lines, err := a.statements.StatementLines(gctx, inst.CorpCode, year)
					if err != nil {
						fail("statement", err)
						return nil
					}
					mu.Lock()
					b.Statement = lines
					mu.Unlock()
					return nil
				})
			}
			if a.dividends != nil {
				g.Go(func() error {
					rows, err := a.dividends.Dividends(gctx, inst.CorpCode, year)
					if err != nil {
						fail("dividends", err)
						return nil
					}
					mu.Lock()
					b.Dividends = rows
					mu.Unlock()
					return nil
				})
			}
			if a.company != nil {
				g.Go(func() error {
					profile, err := a.company.Company(gctx, inst.CorpCode)
					if err != nil {
						fail("company", err)
						return nil
					}
					mu.Lock()
					b.Company = profile
					mu.Unlock()
					return nil
				})
			}
			if a.filings != nil {
				g.Go(func() error {
					list, err := a.filings.Disclosures(gctx, inst.CorpCode, a.filingLimit)
					if err != nil {
						fail("filings", err)
						return nil
					}
					mu.Lock()
					b.Filings = list
					mu.Unlock()
					return nil
				})
			}
		}
	}

	fetchNews := func(ctx context.Context, query string) {
		articles, err := a.news.CompanyNews(ctx, query, a.newsLimit)
		if err != nil {
			fail("news", err)
			return
		}
		mu.Lock()
		b.News = articles
		mu.Unlock()
	}
	newsPending := a.news != nil
	if newsPending && inst.Name != "" {
		newsPending = false
		g.Go(func() error {
			fetchNews(gctx, inst.Name)
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if newsPending {
		query := b.Instrument.Name
		if query == "" {
			query = inst.Ticker
		}
		fetchNews(ctx, query)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	for _, err := range b.Errors {
		log.Warn().Err(err).Str("ticker", inst.Ticker).Msg("source failed, continuing with partial data")
	}
	return b, nil
}

// ErrorStrings returns the collected source failures as text.
func (b *Bundle) ErrorStrings() []string {
	out := make([]string, 0, len(b.Errors))
	for _, err := range b.Errors {
		out = append(out, err.Error())
	}
	return out
}

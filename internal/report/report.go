// Package report runs the analysis pipeline for one instrument: raw inputs
// are fetched, indicators, ratios and valuation are derived, a brief is
// rendered for the generative step and its fair-price estimate is guarded.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/seenimoa/krxbrief/internal/analysis/fundamental"
	"github.com/seenimoa/krxbrief/internal/analysis/technical"
	"github.com/seenimoa/krxbrief/internal/datasource"
	"github.com/seenimoa/krxbrief/internal/llm"
	"github.com/seenimoa/krxbrief/pkg/models"
	"github.com/seenimoa/krxbrief/pkg/utils"
)

// DefaultHistoryDays is the price history requested per report, enough for
// the 52-week trend and the longest moving average.
const DefaultHistoryDays = 250

// ErrNilBundle is returned by Build when no input bundle is given.
var ErrNilBundle = errors.New("report: nil bundle")

// Fetcher supplies the raw inputs of one instrument.
type Fetcher interface {
	Fetch(ctx context.Context, inst models.Instrument, year, days int) (*datasource.Bundle, error)
}

// Estimator produces a fair-price estimate from a rendered brief.
type Estimator interface {
	Estimate(ctx context.Context, req llm.EstimateRequest) (*models.FairPriceEstimate, error)
}

// Report is the result of one pipeline run. Collaborator failures do not
// abort the run; they are listed in Errors and the affected parts are absent.
type Report struct {
	ID          string            `json:"id"`
	Instrument  models.Instrument `json:"instrument"`
	Year        int               `json:"year"`
	GeneratedAt time.Time         `json:"generated_at"`
	Price       float64           `json:"price"`

	Technical  *technical.Analysis  `json:"technical"`
	Indicators models.IndicatorSet  `json:"indicators"`
	Accounts   fundamental.Accounts `json:"accounts"`
	Ratios     models.RatioSet      `json:"ratios"`
	Growth     models.RatioSet      `json:"growth"`

	Valuation    models.ValuationSnapshot    `json:"valuation"`
	GrahamNumber *float64                    `json:"graham_number,omitempty"`
	Dividends    []models.DividendDisclosure `json:"dividends,omitempty"`

	Company *models.CompanyProfile `json:"company,omitempty"`
	Filings []models.Disclosure    `json:"filings,omitempty"`
	News    []models.NewsArticle   `json:"news,omitempty"`

	Brief    string                    `json:"brief"`
	Estimate *models.FairPriceEstimate `json:"estimate,omitempty"`

	Errors []string `json:"errors,omitempty"`
}

// Generator wires the pipeline's collaborators.
type Generator struct {
	fetcher    Fetcher
	estimator  Estimator
	reconciler *fundamental.Reconciler
	normalizer *fundamental.Normalizer
	guard      *fundamental.Guard
	indicators technical.Config
	days       int
	now        func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithEstimator enables the generative step. Without one, reports carry no
// estimate.
func WithEstimator(e Estimator) Option {
	return func(g *Generator) { g.estimator = e }
}

// WithSharesResolver sets the resolver used for BPS derivation.
func WithSharesResolver(r *fundamental.SharesResolver) Option {
	return func(g *Generator) { g.reconciler = fundamental.NewReconciler(r) }
}

// WithNormalizer overrides the account-matching rules.
func WithNormalizer(n *fundamental.Normalizer) Option {
	return func(g *Generator) { g.normalizer = n }
}

// WithGuard sets the fair-price guard thresholds.
func WithGuard(cfg fundamental.GuardConfig) Option {
	return func(g *Generator) { g.guard = fundamental.NewGuard(cfg) }
}

// WithIndicatorConfig sets the indicator windows.
func WithIndicatorConfig(cfg technical.Config) Option {
	return func(g *Generator) { g.indicators = cfg }
}

// WithHistoryDays sets how many daily prices are fetched.
func WithHistoryDays(days int) Option {
	return func(g *Generator) {
		if days > 0 {
			g.days = days
		}
	}
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a generator. fetcher may be nil when only Build is
// used.
func NewGenerator(fetcher Fetcher, opts ...Option) *Generator {
	g := &Generator{
		fetcher:    fetcher,
		reconciler: fundamental.NewReconciler(nil),
		normalizer: fundamental.NewNormalizer(nil),
		guard:      fundamental.NewGuard(fundamental.DefaultGuardConfig()),
		indicators: technical.DefaultConfig(),
		days:       DefaultHistoryDays,
		now:        utils.NowKST,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate fetches inst's inputs for the given business year and builds the
// report. It fails only when the context is cancelled or no fetcher is set.
func (g *Generator) Generate(ctx context.Context, inst models.Instrument, year int) (*Report, error) {
	if g.fetcher == nil {
		return nil, fmt.Errorf("report: no fetcher configured")
	}
	b, err := g.fetcher.Fetch(ctx, inst, year, g.days)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", inst.Ticker, err)
	}
	return g.Build(ctx, b)
}

// Build runs the pipeline over an already-fetched bundle.
func (g *Generator) Build(ctx context.Context, b *datasource.Bundle) (*Report, error) {
	if b == nil {
		return nil, ErrNilBundle
	}
	start := time.Now()
	r := &Report{
		ID:          uuid.NewString(),
		Instrument:  b.Instrument,
		Year:        b.Year,
		GeneratedAt: g.now(),
		Dividends:   b.Dividends,
		Company:     b.Company,
		Filings:     b.Filings,
		News:        b.News,
		Errors:      b.ErrorStrings(),
	}

	r.Technical = technical.ComputeAll(b.Prices, g.indicators)
	r.Indicators = r.Technical.Indicators()
	r.Price = currentPrice(b)

	r.Accounts = g.normalizer.Normalize(b.Statement)
	r.Ratios = fundamental.ComputeRatios(r.Accounts)
	r.Growth = fundamental.ComputeGrowth(r.Accounts)

	var marketCap *float64
	if b.Quote != nil {
		marketCap = b.Quote.MarketCap
	}
	r.Valuation = g.reconciler.Reconcile(ctx, fundamental.ValuationInput{
		Instrument: b.Instrument,
		Year:       b.Year,
		Price:      r.Price,
		MarketCap:  marketCap,
		Feed:       b.Feed,
		Accounts:   r.Accounts,
		Dividends:  b.Dividends,
	})
	r.GrahamNumber = fundamental.GrahamNumber(r.Valuation.EPS, r.Valuation.BPS)
	if r.Valuation.Unavailable {
		log.Debug().Str("ticker", b.Instrument.Ticker).Msg("valuation unavailable")
	}

	brief, err := RenderBrief(buildBriefData(r))
	if err != nil {
		return nil, err
	}
	r.Brief = brief

	if g.estimator != nil {
		if err := g.estimate(ctx, r); err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("report_id", r.ID).
		Str("ticker", r.Instrument.Ticker).
		Int("errors", len(r.Errors)).
		Dur("elapsed", time.Since(start)).
		Msg("report built")
	return r, nil
}

// estimate runs the generative step and guards its result. Only a cancelled
// context is returned; other failures are recorded on r.
func (g *Generator) estimate(ctx context.Context, r *Report) error {
	est, err := g.estimator.Estimate(ctx, llm.EstimateRequest{
		Name:   r.Instrument.Name,
		Ticker: r.Instrument.Ticker,
		Price:  r.Price,
		Brief:  r.Brief,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Warn().Err(err).Str("ticker", r.Instrument.Ticker).Msg("fair-price estimate failed")
		r.Errors = append(r.Errors, fmt.Sprintf("estimate: %v", err))
		return nil
	}

	guarded := g.guard.Apply(*est, r.Price, r.Valuation)
	if guarded.Corrected {
		log.Info().
			Str("ticker", r.Instrument.Ticker).
			Float64("proposed", est.Value).
			Float64("corrected", guarded.Value).
			Str("method", guarded.CorrectionMethod).
			Msg("fair price corrected")
	}
	r.Estimate = &guarded
	return nil
}

// currentPrice prefers the live quote and falls back to the last close.
func currentPrice(b *datasource.Bundle) float64 {
	if b.Quote != nil && b.Quote.Price > 0 {
		return b.Quote.Price
	}
	if n := len(b.Prices); n > 0 {
		return b.Prices[n-1].Close
	}
	return 0
}

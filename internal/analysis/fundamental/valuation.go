package fundamental

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/seenimoa/krxbrief/pkg/models"
	"github.com/seenimoa/krxbrief/pkg/utils"
)

// Dividend-disclosure labels that carry per-share earnings and yield.
var (
	epsLabels   = []string{"주당순이익", "eps", "earnings per share"}
	yieldLabels = []string{"현금배당수익률", "dividend yield"}
)

// ValuationInput is everything the reconciler needs for one instrument.
type ValuationInput struct {
	Instrument models.Instrument
	Year       int      // business year of Accounts; zero means latest
	Price      float64  // current market price, KRW
	MarketCap  *float64 // KRW
	Feed       models.ValuationFeed
	Accounts   Accounts
	Dividends  []models.DividendDisclosure
}

// Reconciler fills gaps in a market valuation feed from disclosures,
// statement equity and a shares-outstanding resolver.
type Reconciler struct {
	shares *SharesResolver
}

// NewReconciler creates a reconciler. shares may be nil, in which case BPS
// can only come from market cap over price.
func NewReconciler(shares *SharesResolver) *Reconciler {
	if shares == nil {
		shares = NewSharesResolver(nil, nil)
	}
	return &Reconciler{shares: shares}
}

// Reconcile produces a complete-as-possible valuation snapshot. Each step
// runs only if the previous ones left a gap:
//  1. EPS from a dividend disclosure
//  2. PER = price / EPS
//  3. BPS = equity / shares outstanding
//  4. PBR = price / BPS
//
// Neither PER nor PBR being derivable marks the snapshot unavailable.
func (r *Reconciler) Reconcile(ctx context.Context, in ValuationInput) models.ValuationSnapshot {
	feed := in.Feed
	snap := models.ValuationSnapshot{
		EPS:           feed.EPS,
		BPS:           feed.BPS,
		PER:           feed.PER,
		PBR:           feed.PBR,
		DividendYield: feed.DividendYield,
		Fields:        map[string]models.ValuationSource{},
	}
	for name, v := range map[string]*float64{
		models.FieldEPS:           feed.EPS,
		models.FieldBPS:           feed.BPS,
		models.FieldPER:           feed.PER,
		models.FieldPBR:           feed.PBR,
		models.FieldDividendYield: feed.DividendYield,
	} {
		if v != nil {
			snap.Fields[name] = models.SourceFeed
		}
	}

	if snap.EPS == nil {
		if eps, ok := DisclosureValue(in.Dividends, epsLabels); ok {
			snap.EPS = &eps
			snap.Fields[models.FieldEPS] = models.SourceDividendDisclosure
		}
	}

	if snap.PER == nil && snap.EPS != nil && *snap.EPS > 0 && in.Price > 0 {
		snap.PER = models.Float(utils.Round(in.Price / *snap.EPS, 2))
		snap.Fields[models.FieldPER] = models.SourcePriceOverEPS
	}

	if snap.BPS == nil {
		r.deriveBPS(ctx, in, &snap)
	}

	if snap.PBR == nil && snap.BPS != nil && *snap.BPS > 0 && in.Price > 0 {
		snap.PBR = models.Float(utils.Round(in.Price / *snap.BPS, 2))
		snap.Fields[models.FieldPBR] = models.SourcePriceOverBPS
	}

	if snap.DividendYield == nil {
		if y, ok := DisclosureValue(in.Dividends, yieldLabels); ok {
			snap.DividendYield = &y
			snap.Fields[models.FieldDividendYield] = models.SourceDividendDisclosure
		}
	}

	snap.Source = models.SourceFeed
	for _, src := range snap.Fields {
		if src != models.SourceFeed {
			snap.Source = models.SourceReconciled
			break
		}
	}
	snap.Unavailable = snap.PER == nil && snap.PBR == nil
	return snap
}

func (r *Reconciler) deriveBPS(ctx context.Context, in ValuationInput, snap *models.ValuationSnapshot) {
	equity, ok := in.Accounts.Equity()
	if !ok {
		return
	}
	shares, src, err := r.shares.Resolve(ctx, in.Instrument, in.Year, in.MarketCap, in.Price)
	if err != nil {
		log.Debug().Err(err).Str("ticker", in.Instrument.Ticker).Msg("shares outstanding unresolved")
		return
	}
	if shares <= 0 {
		return
	}
	snap.Shares = models.Int(shares)
	snap.SharesSource = src
	snap.BPS = models.Float(math.Round(equity / float64(shares)))
	snap.Fields[models.FieldBPS] = models.SourceStatementEquity
}

// DisclosureValue returns the current-period amount of the first disclosure
// whose label contains any of labels. Common-stock rows are preferred when a
// label is split by stock kind.
func DisclosureValue(rows []models.DividendDisclosure, labels []string) (float64, bool) {
	for _, preferCommon := range []bool{true, false} {
		for _, row := range rows {
			if preferCommon && row.StockKind != "" && !strings.Contains(row.StockKind, "보통") {
				continue
			}
			if !labelMatches(row.Label, labels) {
				continue
			}
			if v, ok := utils.ParseAmount(row.Current); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// GrahamNumber computes sqrt(22.5 × EPS × BPS) as a formulaic reference value.
// Returns nil unless both inputs are positive.
func GrahamNumber(eps, bps *float64) *float64 {
	if eps == nil || bps == nil || *eps <= 0 || *bps <= 0 {
		return nil
	}
	v := math.Round(math.Sqrt(22.5 * *eps * *bps))
	return &v
}

func labelMatches(label string, labels []string) bool {
	l := strings.ToLower(label)
	for _, want := range labels {
		if strings.Contains(l, want) {
			return true
		}
	}
	return false
}

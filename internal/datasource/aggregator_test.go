package datasource

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/seenimoa/krxbrief/pkg/models"
)

type fakePrices struct {
	pts []models.PricePoint
	err error
}

func (f fakePrices) DailyPrices(ctx context.Context, ticker string, days int) ([]models.PricePoint, error) {
	return f.pts, f.err
}

type fakeValuation struct {
	snap *MarketSnapshot
	err  error
}

func (f fakeValuation) MarketSnapshot(ctx context.Context, ticker string) (*MarketSnapshot, error) {
	return f.snap, f.err
}

type fakeDisclosures struct {
	lines   []models.StatementLine
	rows    []models.DividendDisclosure
	err     error
	corpArg string
	yearArg int
}

func (f *fakeDisclosures) StatementLines(ctx context.Context, corpCode string, year int) ([]models.StatementLine, error) {
	f.corpArg, f.yearArg = corpCode, year
	return f.lines, f.err
}

func (f *fakeDisclosures) Dividends(ctx context.Context, corpCode string, year int) ([]models.DividendDisclosure, error) {
	return f.rows, f.err
}

var testInst = models.Instrument{Ticker: "5930", CorpCode: "00126380"}

func TestAggregatorFetchAll(t *testing.T) {
	pts := []models.PricePoint{{Date: time.Now(), Close: 100}}
	disc := &fakeDisclosures{
		lines: []models.StatementLine{{AccountName: "자산총계", Current: models.Float(1)}},
		rows:  []models.DividendDisclosure{{Label: "주당순이익", Current: "10"}},
	}
	agg := NewAggregator(
		fakePrices{pts: pts},
		fakeValuation{snap: &MarketSnapshot{
			Quote: models.Quote{Name: "삼성전자", Price: 100},
			Feed:  models.ValuationFeed{PER: models.Float(10)},
		}},
		disc, disc,
	)

	b, err := agg.Fetch(context.Background(), testInst, 2025, 250)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(b.Errors) != 0 {
		t.Errorf("expected no errors, got %v", b.Errors)
	}
	if b.Instrument.Ticker != "005930" {
		t.Errorf("expected normalized ticker, got %q", b.Instrument.Ticker)
	}
	if b.Instrument.Name != "삼성전자" {
		t.Errorf("expected name from quote, got %q", b.Instrument.Name)
	}
	if len(b.Prices) != 1 || b.Quote == nil || b.Feed.PER == nil || len(b.Statement) != 1 || len(b.Dividends) != 1 {
		t.Errorf("expected every field populated, got %+v", b)
	}
	if disc.corpArg != "00126380" || disc.yearArg != 2025 {
		t.Errorf("unexpected disclosure args %s/%d", disc.corpArg, disc.yearArg)
	}
}

func TestAggregatorPartialFailure(t *testing.T) {
	agg := NewAggregator(
		fakePrices{err: errors.New("timeout")},
		fakeValuation{snap: &MarketSnapshot{Quote: models.Quote{Price: 100}}},
		&fakeDisclosures{err: ErrNotFound},
		nil,
	)

	b, err := agg.Fetch(context.Background(), testInst, 2025, 250)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if b.Quote == nil {
		t.Error("expected the quote to survive other failures")
	}
	if len(b.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %v", b.Errors)
	}
	joined := strings.Join(b.ErrorStrings(), ";")
	if !strings.Contains(joined, "prices: timeout") || !strings.Contains(joined, "statement:") {
		t.Errorf("unexpected errors %s", joined)
	}
}

func TestAggregatorWithoutCorpCode(t *testing.T) {
	disc := &fakeDisclosures{}
	agg := NewAggregator(nil, nil, disc, disc)
	b, err := agg.Fetch(context.Background(), models.Instrument{Ticker: "005930"}, 2025, 10)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(b.Errors) != 1 || !errors.Is(b.Errors[0], ErrNoCorpCode) {
		t.Errorf("expected ErrNoCorpCode, got %v", b.Errors)
	}
	if disc.corpArg != "" {
		t.Error("expected disclosure sources not to be called")
	}
}

func TestAggregatorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	agg := NewAggregator(fakePrices{err: context.Canceled}, nil, nil, nil)
	if _, err := agg.Fetch(ctx, testInst, 2025, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type fakeExtras struct {
	profile  *models.CompanyProfile
	filings  []models.Disclosure
	articles []models.NewsArticle
	newsErr  error

	filingLimit int
	newsQuery   string
	newsLimit   int
}

func (f *fakeExtras) Company(ctx context.Context, corpCode string) (*models.CompanyProfile, error) {
	return f.profile, nil
}

func (f *fakeExtras) Disclosures(ctx context.Context, corpCode string, limit int) ([]models.Disclosure, error) {
	f.filingLimit = limit
	return f.filings, nil
}

func (f *fakeExtras) CompanyNews(ctx context.Context, query string, limit int) ([]models.NewsArticle, error) {
	f.newsQuery, f.newsLimit = query, limit
	return f.articles, f.newsErr
}

func TestAggregatorSupplementarySources(t *testing.T) {
	extras := &fakeExtras{
		profile:  &models.CompanyProfile{CorpName: "삼성전자(주)", CEO: "한종희"},
		filings:  []models.Disclosure{{ReportName: "사업보고서 (2024.12)", ReceivedOn: "20250311"}},
		articles: []models.NewsArticle{{Title: "삼성전자, 신제품 공개"}},
	}
	agg := NewAggregator(
		nil,
		fakeValuation{snap: &MarketSnapshot{Quote: models.Quote{Name: "삼성전자", Price: 100}}},
		nil, nil,
		WithCompanySource(extras),
		WithDisclosureSource(extras, 0),
		WithNewsSource(extras, 7),
	)

	b, err := agg.Fetch(context.Background(), testInst, 2025, 10)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(b.Errors) != 0 {
		t.Errorf("expected no errors, got %v", b.Errors)
	}
	if b.Company == nil || b.Company.CEO != "한종희" {
		t.Errorf("expected company profile, got %+v", b.Company)
	}
	if len(b.Filings) != 1 || extras.filingLimit != DefaultFilingLimit {
		t.Errorf("expected 1 filing with default limit, got %d/%d", len(b.Filings), extras.filingLimit)
	}
	if len(b.News) != 1 || extras.newsLimit != 7 {
		t.Errorf("expected 1 article with limit 7, got %d/%d", len(b.News), extras.newsLimit)
	}
	if extras.newsQuery != "삼성전자" {
		t.Errorf("expected news searched by quote name, got %q", extras.newsQuery)
	}
}

func TestAggregatorNewsUsesGivenName(t *testing.T) {
	extras := &fakeExtras{newsErr: errors.New("feed down")}
	agg := NewAggregator(nil, nil, nil, nil, WithNewsSource(extras, 0))

	inst := models.Instrument{Ticker: "000660", Name: "SK하이닉스"}
	b, err := agg.Fetch(context.Background(), inst, 2025, 10)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if extras.newsQuery != "SK하이닉스" || extras.newsLimit != DefaultNewsLimit {
		t.Errorf("unexpected news args %q/%d", extras.newsQuery, extras.newsLimit)
	}
	if len(b.Errors) != 1 || !strings.Contains(b.Errors[0].Error(), "news: feed down") {
		t.Errorf("expected a news error, got %v", b.Errors)
	}
}

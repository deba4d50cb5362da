package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seenimoa/krxbrief/internal/datasource"
	"github.com/seenimoa/krxbrief/pkg/models"
	"github.com/seenimoa/krxbrief/pkg/utils"
)

// snapshot is the YAML form of a fetched bundle. Source failures are kept as
// text so an offline run reports the same partial-data conditions.
type snapshot struct {
	Instrument models.Instrument           `yaml:"instrument"`
	Year       int                         `yaml:"year"`
	FetchedAt  time.Time                   `yaml:"fetched_at"`
	Quote      *models.Quote               `yaml:"quote,omitempty"`
	Feed       models.ValuationFeed        `yaml:"feed"`
	Prices     []models.PricePoint         `yaml:"prices,omitempty"`
	Statement  []models.StatementLine      `yaml:"statement,omitempty"`
	Dividends  []models.DividendDisclosure `yaml:"dividends,omitempty"`
	Company    *models.CompanyProfile      `yaml:"company,omitempty"`
	Filings    []models.Disclosure         `yaml:"filings,omitempty"`
	News       []models.NewsArticle        `yaml:"news,omitempty"`
	Errors     []string                    `yaml:"errors,omitempty"`
}

func writeSnapshot(w io.Writer, b *datasource.Bundle) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snapshot{
		Instrument: b.Instrument,
		Year:       b.Year,
		FetchedAt:  b.FetchedAt,
		Quote:      b.Quote,
		Feed:       b.Feed,
		Prices:     b.Prices,
		Statement:  b.Statement,
		Dividends:  b.Dividends,
		Company:    b.Company,
		Filings:    b.Filings,
		News:       b.News,
		Errors:     b.ErrorStrings(),
	}); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return enc.Close()
}

func decodeSnapshot(r io.Reader) (*datasource.Bundle, error) {
	var s snapshot
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	s.Instrument.Ticker = utils.NormalizeTicker(s.Instrument.Ticker)
	if s.Instrument.Ticker == "" {
		return nil, fmt.Errorf("decoding snapshot: instrument.ticker is required")
	}

	b := &datasource.Bundle{
		Instrument: s.Instrument,
		Year:       s.Year,
		FetchedAt:  s.FetchedAt,
		Quote:      s.Quote,
		Feed:       s.Feed,
		Prices:     s.Prices,
		Statement:  s.Statement,
		Dividends:  s.Dividends,
		Company:    s.Company,
		Filings:    s.Filings,
		News:       s.News,
	}
	for _, e := range s.Errors {
		b.Errors = append(b.Errors, errors.New(e))
	}
	return b, nil
}

func readSnapshot(path string) (*datasource.Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeSnapshot(f)
}

// krxbrief: metrics, valuation reconciliation and fair-price briefs for
// KRX-listed stocks.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/seenimoa/krxbrief/internal/analysis/fundamental"
	"github.com/seenimoa/krxbrief/internal/analysis/technical"
	"github.com/seenimoa/krxbrief/internal/config"
	"github.com/seenimoa/krxbrief/internal/datasource"
	"github.com/seenimoa/krxbrief/internal/llm"
	"github.com/seenimoa/krxbrief/internal/logger"
	"github.com/seenimoa/krxbrief/internal/report"
	"github.com/seenimoa/krxbrief/pkg/models"
	"github.com/seenimoa/krxbrief/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "krxbrief",
	Short: "krxbrief: valuation briefs for KRX stocks",
	Long: `krxbrief collects prices, disclosures and valuation data for a KRX-listed
company, derives technical indicators, financial ratios and a reconciled
valuation, and checks a generated fair-price estimate against the market.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return logger.Init(logger.Config{
			Level:          cfg.Logging.Level,
			Format:         cfg.Logging.Format,
			FileEnabled:    cfg.Logging.FileEnabled,
			FilePath:       cfg.Logging.FilePath,
			RotationSize:   cfg.Logging.RotationMB,
			RetentionDays:  cfg.Logging.RetentionDays,
			ServiceName:    "krxbrief",
			ServiceVersion: version,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(indicatorsCmd)
	rootCmd.AddCommand(ratiosCmd)
	rootCmd.AddCommand(guardCmd)
	rootCmd.AddCommand(fetchCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("krxbrief %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and API key status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  krxbrief status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		fmt.Printf("  Time (KST):    %s\n", utils.FormatDateTimeKST(utils.NowKST()))
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Model:     %s (temperature %.1f)\n", cfg.LLM.Model, cfg.LLM.Temperature)
		fmt.Printf("    MA Windows:    %v\n", cfg.Indicators.MAWindows)
		fmt.Printf("    Guard Floor:   %.2f × price\n", cfg.Guard.PlausibilityFloor)
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [ticker]",
	Short: "Build the full report and fair-price estimate for a stock",
	Long: `Fetch prices, disclosures and the valuation feed for a stock, derive
indicators, ratios and the reconciled valuation, render the brief and ask the
LLM for a fair price, which is then checked against the market price.

With --input the raw data is read from a snapshot written by 'fetch'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noLLM, _ := cmd.Flags().GetBool("no-llm")
		dart := newDART()

		opts := []report.Option{
			report.WithIndicatorConfig(cfg.TechnicalConfig()),
			report.WithGuard(cfg.GuardThresholds()),
			report.WithSharesResolver(fundamental.NewSharesResolver(nil, sharesLookup(cmd, dart))),
		}
		if !noLLM {
			est, err := newEstimator()
			if err != nil {
				log.Warn().Err(err).Msg("LLM disabled, report will carry no estimate")
			} else {
				opts = append(opts, report.WithEstimator(est))
			}
		}

		b, err := loadBundle(cmd, args, dart)
		if err != nil {
			return err
		}
		r, err := report.NewGenerator(nil, opts...).Build(cmd.Context(), b)
		if err != nil {
			return err
		}
		return printReport(cmd, r)
	},
}

// --- Indicators Command ---

var indicatorsCmd = &cobra.Command{
	Use:   "indicators [ticker]",
	Short: "Compute moving averages, RSI, MFI and volume trend",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var prices []models.PricePoint
		if path, _ := cmd.Flags().GetString("input"); path != "" {
			b, err := readSnapshot(path)
			if err != nil {
				return err
			}
			prices = b.Prices
		} else {
			inst, err := instrumentFromArgs(cmd, args)
			if err != nil {
				return err
			}
			days, _ := cmd.Flags().GetInt("days")
			prices, err = newNaver().DailyPrices(cmd.Context(), inst.Ticker, days)
			if err != nil {
				return err
			}
		}

		a := technical.ComputeAll(prices, cfg.TechnicalConfig())
		if asJSON(cmd) {
			return printJSON(a)
		}
		set := a.Indicators()
		fmt.Printf("📊 Indicators over %d days\n", len(prices))
		for _, name := range indicatorOrder(a) {
			res := set[name]
			val := report.NA
			if res.Value != nil {
				val = utils.FormatNumber(*res.Value)
			}
			fmt.Printf("  %-10s %14s  %s\n", name, val, res.Signal)
		}
		if a.MovingAverages.Cross != "" {
			fmt.Printf("  cross:     %s\n", a.MovingAverages.Cross)
		}
		for _, s := range a.Signals {
			fmt.Printf("  ⚠️  %s\n", s.Reason)
		}
		return nil
	},
}

// --- Ratios Command ---

var ratiosCmd = &cobra.Command{
	Use:   "ratios [ticker]",
	Short: "Normalize the financial statement and compute ratios",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var lines []models.StatementLine
		if path, _ := cmd.Flags().GetString("input"); path != "" {
			b, err := readSnapshot(path)
			if err != nil {
				return err
			}
			lines = b.Statement
		} else {
			inst, err := instrumentFromArgs(cmd, args)
			if err != nil {
				return err
			}
			dart := newDART()
			year := yearFlag(cmd, dart)
			lines, err = dart.StatementLines(cmd.Context(), inst.CorpCode, year)
			if err != nil {
				return err
			}
		}

		acc := fundamental.NormalizeStatement(lines)
		ratios := fundamental.ComputeRatios(acc)
		growth := fundamental.ComputeGrowth(acc)
		if asJSON(cmd) {
			return printJSON(map[string]any{"accounts": acc, "ratios": ratios, "growth": growth})
		}

		fmt.Println("📈 Accounts")
		for _, c := range fundamental.Concepts {
			if v, ok := acc.Current(c); ok {
				fmt.Printf("  %-22s %18s  (%s)\n", c.String(), utils.FormatKRWCompact(v), acc[c].Name)
			}
		}
		fmt.Println("📐 Ratios")
		for _, name := range fundamental.RatioOrder {
			if v, ok := ratios.Get(name); ok {
				unit := "%"
				if fundamental.IsMultiple(name) {
					unit = "x"
				}
				fmt.Printf("  %-22s %10s%s\n", name, utils.FormatNumber(v), unit)
			}
		}
		for _, name := range []string{fundamental.GrowthRevenue, fundamental.GrowthOperatingIncome, fundamental.GrowthNetIncome} {
			if v, ok := growth.Get(name); ok {
				fmt.Printf("  %-22s %10s\n", name, utils.FormatPct(v))
			}
		}
		return nil
	},
}

// --- Guard Command ---

var guardCmd = &cobra.Command{
	Use:   "guard",
	Short: "Check a proposed fair price against the market price",
	Example: `  krxbrief guard --price 50000 --proposed 0.8 --bps 100000
  krxbrief guard --price 71300 --proposed 500 --eps 5704 --per 12.5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		price, _ := cmd.Flags().GetFloat64("price")
		proposed, _ := cmd.Flags().GetFloat64("proposed")
		if price <= 0 {
			return fmt.Errorf("--price must be positive")
		}

		in := fundamental.GuardInput{Proposed: proposed, Price: price}
		for flag, dst := range map[string]**float64{"bps": &in.BPS, "eps": &in.EPS, "per": &in.PER, "pbr": &in.PBR} {
			if cmd.Flags().Changed(flag) {
				v, _ := cmd.Flags().GetFloat64(flag)
				*dst = models.Float(v)
			}
		}

		c := fundamental.NewGuard(cfg.GuardThresholds()).Correct(in)
		if asJSON(cmd) {
			return printJSON(c)
		}
		if !c.Corrected {
			fmt.Printf("✅ %s is plausible against %s\n", utils.FormatNumber(proposed), utils.FormatKRW(price))
			return nil
		}
		fmt.Printf("🔧 corrected to %s (%s)\n", utils.FormatKRW(c.Value), c.Method)
		fmt.Println(c.Note)
		return nil
	},
}

// --- Fetch Command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch [ticker]",
	Short: "Fetch raw inputs and write them as a YAML snapshot",
	Long: `Fetch prices, the market snapshot, the statement and dividend disclosures
for a stock and write them to a YAML snapshot that analyze, indicators and
ratios accept through --input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dart := newDART()
		b, err := fetchBundle(cmd, args, dart)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			return writeSnapshot(os.Stdout, b)
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := writeSnapshot(f, b); err != nil {
			return err
		}
		log.Info().Str("path", out).Int("prices", len(b.Prices)).Int("lines", len(b.Statement)).Msg("snapshot written")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{analyzeCmd, indicatorsCmd, ratiosCmd, fetchCmd} {
		c.Flags().String("corp-code", "", "8-digit DART corp code")
		c.Flags().String("name", "", "company name")
		c.Flags().Int("year", 0, "business year of disclosures (default: last year)")
		c.Flags().Int("days", report.DefaultHistoryDays, "trading days of price history")
	}
	for _, c := range []*cobra.Command{analyzeCmd, indicatorsCmd, ratiosCmd} {
		c.Flags().String("input", "", "read raw inputs from a YAML snapshot instead of fetching")
	}
	for _, c := range []*cobra.Command{analyzeCmd, indicatorsCmd, ratiosCmd, guardCmd} {
		c.Flags().Bool("json", false, "print JSON")
	}
	analyzeCmd.Flags().Bool("no-llm", false, "skip the fair-price estimate")
	fetchCmd.Flags().String("out", "", "snapshot file (default: stdout)")

	guardCmd.Flags().Float64("price", 0, "current market price")
	guardCmd.Flags().Float64("proposed", 0, "proposed fair price")
	guardCmd.Flags().Float64("bps", 0, "book value per share")
	guardCmd.Flags().Float64("eps", 0, "earnings per share")
	guardCmd.Flags().Float64("per", 0, "price-to-earnings ratio")
	guardCmd.Flags().Float64("pbr", 0, "price-to-book ratio")
}

// --- helpers ---

func newNaver() *datasource.Naver {
	return datasource.NewNaver(
		datasource.WithNaverBaseURL(cfg.Naver.BaseURL),
		datasource.WithNaverTimeout(cfg.Naver.TimeoutSec),
		datasource.WithNaverMaxPages(cfg.Naver.Pages),
	)
}

func newDART() *datasource.DART {
	return datasource.NewDART(cfg.DART.APIKey,
		datasource.WithDARTBaseURL(cfg.DART.BaseURL),
		datasource.WithDARTTimeout(cfg.DART.TimeoutSec),
		datasource.WithDARTRateLimit(cfg.DART.RequestsPerSec),
	)
}

func newNews() *datasource.News {
	return datasource.NewNews(
		datasource.WithNewsSearchURL(cfg.News.SearchURL),
		datasource.WithNewsTimeout(cfg.News.TimeoutSec),
	)
}

// sharesLookup returns the live issued-shares lookup, or nil when the run
// reads a snapshot so that nothing reaches the network.
func sharesLookup(cmd *cobra.Command, dart *datasource.DART) fundamental.SharesLookup {
	if path, _ := cmd.Flags().GetString("input"); path != "" {
		return nil
	}
	return dart
}

func newEstimator() (*llm.Estimator, error) {
	p, err := llm.NewOpenAIProvider(cfg.LLM.OpenAIKey,
		llm.WithOpenAIBaseURL(cfg.LLM.BaseURL),
		llm.WithOpenAIModel(cfg.LLM.Model),
		llm.WithOpenAITimeout(cfg.LLM.TimeoutSec),
	)
	if err != nil {
		return nil, err
	}
	return llm.NewEstimator(p, llm.ChatOptions{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}), nil
}

func instrumentFromArgs(cmd *cobra.Command, args []string) (models.Instrument, error) {
	if len(args) == 0 {
		return models.Instrument{}, fmt.Errorf("ticker required (or use --input)")
	}
	ticker := utils.NormalizeTicker(args[0])
	if !utils.IsValidTicker(ticker) {
		return models.Instrument{}, fmt.Errorf("%w: %q", datasource.ErrInvalidTicker, args[0])
	}
	corp, _ := cmd.Flags().GetString("corp-code")
	corp = strings.TrimSpace(corp)
	if corp != "" && !utils.IsValidCorpCode(corp) {
		return models.Instrument{}, fmt.Errorf("corp code must be 8 digits, got %q", corp)
	}
	name, _ := cmd.Flags().GetString("name")
	return models.Instrument{Ticker: ticker, Name: name, CorpCode: corp}, nil
}

func yearFlag(cmd *cobra.Command, dart *datasource.DART) int {
	if year, _ := cmd.Flags().GetInt("year"); year > 0 {
		return year
	}
	return dart.LatestYear()
}

func fetchBundle(cmd *cobra.Command, args []string, dart *datasource.DART) (*datasource.Bundle, error) {
	inst, err := instrumentFromArgs(cmd, args)
	if err != nil {
		return nil, err
	}
	days, _ := cmd.Flags().GetInt("days")
	var opts []datasource.AggregatorOption
	if cfg.News.Enabled {
		opts = append(opts, datasource.WithNewsSource(newNews(), cfg.News.Limit))
	}
	agg := datasource.NewDefaultAggregator(newNaver(), dart, opts...)
	return agg.Fetch(cmd.Context(), inst, yearFlag(cmd, dart), days)
}

func loadBundle(cmd *cobra.Command, args []string, dart *datasource.DART) (*datasource.Bundle, error) {
	if path, _ := cmd.Flags().GetString("input"); path != "" {
		return readSnapshot(path)
	}
	return fetchBundle(cmd, args, dart)
}

func indicatorOrder(a *technical.Analysis) []string {
	var names []string
	for _, w := range a.MovingAverages.Windows {
		names = append(names, fmt.Sprintf("ma%d", w))
	}
	return append(names, a.RSI.Name, a.MFI.Name, "vol_ma5", "vol_ma20")
}

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(cmd *cobra.Command, r *report.Report) error {
	if asJSON(cmd) {
		return printJSON(r)
	}
	fmt.Printf("## %s (%s)  report %s\n\n", r.Instrument.Name, r.Instrument.Ticker, r.ID)
	fmt.Println(r.Brief)

	if est := r.Estimate; est != nil {
		fmt.Println("### 적정주가")
		fmt.Printf("- 적정주가: %s\n", utils.FormatKRW(est.Value))
		if est.Corrected && est.OriginalValue != nil {
			fmt.Printf("- 보정 전: %s (%s)\n", utils.FormatNumber(*est.OriginalValue), est.CorrectionMethod)
		}
		if est.Score != nil {
			fmt.Printf("- 투자점수: %.0f점 %s\n", *est.Score, est.Grade)
		}
		if est.Opinion != "" {
			fmt.Printf("- 투자의견: %s\n", est.Opinion)
		}
		fmt.Printf("- 근거: %s\n", est.Reasoning)
		if est.Summary != "" {
			fmt.Printf("\n%s\n", est.Summary)
		}
	}

	if len(r.Errors) > 0 {
		fmt.Println("\n⚠️  partial data:")
		for _, e := range r.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return nil
}

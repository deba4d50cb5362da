// Package config handles configuration loading for krxbrief.
// It supports YAML config files with .env and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/seenimoa/krxbrief/internal/analysis/fundamental"
	"github.com/seenimoa/krxbrief/internal/analysis/technical"
)

// Config represents the complete application configuration.
type Config struct {
	Indicators IndicatorConfig `mapstructure:"indicators" yaml:"indicators"`
	Guard      GuardConfig     `mapstructure:"guard"      yaml:"guard"`
	DART       DARTConfig      `mapstructure:"dart"       yaml:"dart"`
	Naver      NaverConfig     `mapstructure:"naver"      yaml:"naver"`
	News       NewsConfig      `mapstructure:"news"       yaml:"news"`
	LLM        LLMConfig       `mapstructure:"llm"        yaml:"llm"`
	Logging    LoggingConfig   `mapstructure:"logging"    yaml:"logging"`
}

// IndicatorConfig holds indicator engine windows.
type IndicatorConfig struct {
	MAWindows     []int   `mapstructure:"ma_windows"     yaml:"ma_windows"     validate:"min=1,dive,gt=0"`
	CrossShort    int     `mapstructure:"cross_short"    yaml:"cross_short"    validate:"gt=0,ltfield=CrossLong"`
	CrossLong     int     `mapstructure:"cross_long"     yaml:"cross_long"     validate:"gt=0"`
	RSIPeriod     int     `mapstructure:"rsi_period"     yaml:"rsi_period"     validate:"gt=0"`
	MFIPeriod     int     `mapstructure:"mfi_period"     yaml:"mfi_period"     validate:"gt=0"`
	VolumeWindow  int     `mapstructure:"volume_window"  yaml:"volume_window"  validate:"gt=0"`
	SurgeWindow   int     `mapstructure:"surge_window"   yaml:"surge_window"   validate:"gt=0"`
	SurgeMultiple float64 `mapstructure:"surge_multiple" yaml:"surge_multiple" validate:"gt=1"`
	HistoryLen    int     `mapstructure:"history_len"    yaml:"history_len"    validate:"gte=0"`
	MAHistoryLen  int     `mapstructure:"ma_history_len" yaml:"ma_history_len" validate:"gte=0"`
}

// GuardConfig holds the fair-price guard thresholds.
type GuardConfig struct {
	PlausibilityFloor float64 `mapstructure:"plausibility_floor" yaml:"plausibility_floor" validate:"gt=0,lt=1"`
	MinRatio          float64 `mapstructure:"min_ratio"          yaml:"min_ratio"          validate:"gt=0,ltfield=MaxRatio"`
	MaxRatio          float64 `mapstructure:"max_ratio"          yaml:"max_ratio"          validate:"gt=0"`
	MultipleCeiling   float64 `mapstructure:"multiple_ceiling"   yaml:"multiple_ceiling"   validate:"gt=0"`
	LowPBRTarget      float64 `mapstructure:"low_pbr_target"     yaml:"low_pbr_target"     validate:"gt=0"`
	DefaultPBRTarget  float64 `mapstructure:"default_pbr_target" yaml:"default_pbr_target" validate:"gt=0"`
	MinPER            float64 `mapstructure:"min_per"            yaml:"min_per"            validate:"gte=0"`
	DefaultPER        float64 `mapstructure:"default_per"        yaml:"default_per"        validate:"gt=0"`
}

// DARTConfig holds OpenDART disclosure API settings.
type DARTConfig struct {
	APIKey         string  `mapstructure:"api_key"          yaml:"api_key"`
	BaseURL        string  `mapstructure:"base_url"         yaml:"base_url"         validate:"required,url"`
	TimeoutSec     int     `mapstructure:"timeout_sec"      yaml:"timeout_sec"      validate:"gt=0"`
	RequestsPerSec float64 `mapstructure:"requests_per_sec" yaml:"requests_per_sec" validate:"gt=0"`
}

// NaverConfig holds Naver Finance market-data settings.
type NaverConfig struct {
	BaseURL    string `mapstructure:"base_url"    yaml:"base_url"    validate:"required,url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" validate:"gt=0"`
	Pages      int    `mapstructure:"pages"       yaml:"pages"       validate:"gt=0"` // daily price pages, 10 rows each
}

// NewsConfig holds the company news feed settings.
type NewsConfig struct {
	Enabled    bool   `mapstructure:"enabled"     yaml:"enabled"`
	SearchURL  string `mapstructure:"search_url"  yaml:"search_url"  validate:"required,url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" validate:"gt=0"`
	Limit      int    `mapstructure:"limit"       yaml:"limit"       validate:"gt=0"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	OpenAIKey   string  `mapstructure:"openai_key"  yaml:"openai_key"`
	BaseURL     string  `mapstructure:"base_url"    yaml:"base_url"    validate:"required,url"`
	Model       string  `mapstructure:"model"       yaml:"model"       validate:"required"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `mapstructure:"max_tokens"  yaml:"max_tokens"  validate:"gt=0"`
	TimeoutSec  int     `mapstructure:"timeout_sec" yaml:"timeout_sec" validate:"gt=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level         string `mapstructure:"level"          yaml:"level"          validate:"oneof=debug info warn error"`
	Format        string `mapstructure:"format"         yaml:"format"         validate:"oneof=json pretty"`
	FileEnabled   bool   `mapstructure:"file_enabled"   yaml:"file_enabled"`
	FilePath      string `mapstructure:"file_path"      yaml:"file_path"`
	RotationMB    int    `mapstructure:"rotation_mb"    yaml:"rotation_mb"    validate:"gte=0"`
	RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days" validate:"gte=0"`
}

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.krxbrief/config.yaml (home directory)
//  3. /etc/krxbrief/config.yaml (system)
//
// A .env file in the working directory is loaded first if present.
// Environment variables override config file values.
// Format: KRXBRIEF_<SECTION>_<KEY>, e.g., KRXBRIEF_DART_API_KEY
func Load() (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".krxbrief"))
	v.AddConfigPath("/etc/krxbrief")

	bindEnv(v)

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// TechnicalConfig maps the indicators section onto the indicator engine.
func (c *Config) TechnicalConfig() technical.Config {
	ic := c.Indicators
	return technical.Config{
		MAWindows:     append([]int(nil), ic.MAWindows...),
		CrossShort:    ic.CrossShort,
		CrossLong:     ic.CrossLong,
		RSIPeriod:     ic.RSIPeriod,
		MFIPeriod:     ic.MFIPeriod,
		VolumeWindow:  ic.VolumeWindow,
		SurgeWindow:   ic.SurgeWindow,
		SurgeMultiple: ic.SurgeMultiple,
		HistoryLen:    ic.HistoryLen,
		MAHistoryLen:  ic.MAHistoryLen,
	}
}

// GuardThresholds maps the guard section onto the fair-price guard.
func (c *Config) GuardThresholds() fundamental.GuardConfig {
	g := c.Guard
	return fundamental.GuardConfig{
		PlausibilityFloor: g.PlausibilityFloor,
		MinRatio:          g.MinRatio,
		MaxRatio:          g.MaxRatio,
		MultipleCeiling:   g.MultipleCeiling,
		LowPBRTarget:      g.LowPBRTarget,
		DefaultPBRTarget:  g.DefaultPBRTarget,
		MinPER:            g.MinPER,
		DefaultPER:        g.DefaultPER,
	}
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	tc := technical.DefaultConfig()
	v.SetDefault("indicators.ma_windows", tc.MAWindows)
	v.SetDefault("indicators.cross_short", tc.CrossShort)
	v.SetDefault("indicators.cross_long", tc.CrossLong)
	v.SetDefault("indicators.rsi_period", tc.RSIPeriod)
	v.SetDefault("indicators.mfi_period", tc.MFIPeriod)
	v.SetDefault("indicators.volume_window", tc.VolumeWindow)
	v.SetDefault("indicators.surge_window", tc.SurgeWindow)
	v.SetDefault("indicators.surge_multiple", tc.SurgeMultiple)
	v.SetDefault("indicators.history_len", tc.HistoryLen)
	v.SetDefault("indicators.ma_history_len", tc.MAHistoryLen)

	gc := fundamental.DefaultGuardConfig()
	v.SetDefault("guard.plausibility_floor", gc.PlausibilityFloor)
	v.SetDefault("guard.min_ratio", gc.MinRatio)
	v.SetDefault("guard.max_ratio", gc.MaxRatio)
	v.SetDefault("guard.multiple_ceiling", gc.MultipleCeiling)
	v.SetDefault("guard.low_pbr_target", gc.LowPBRTarget)
	v.SetDefault("guard.default_pbr_target", gc.DefaultPBRTarget)
	v.SetDefault("guard.min_per", gc.MinPER)
	v.SetDefault("guard.default_per", gc.DefaultPER)

	v.SetDefault("dart.api_key", "")
	v.SetDefault("dart.base_url", "https://opendart.fss.or.kr/api")
	v.SetDefault("dart.timeout_sec", 30)
	v.SetDefault("dart.requests_per_sec", 5.0)

	v.SetDefault("naver.base_url", "https://finance.naver.com")
	v.SetDefault("naver.timeout_sec", 15)
	v.SetDefault("naver.pages", 25) // ~250 trading days

	v.SetDefault("news.enabled", true)
	v.SetDefault("news.search_url", "https://news.google.com/rss/search")
	v.SetDefault("news.timeout_sec", 15)
	v.SetDefault("news.limit", 15)

	v.SetDefault("llm.openai_key", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.temperature", 0.4)
	v.SetDefault("llm.max_tokens", 3500)
	v.SetDefault("llm.timeout_sec", 120)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file_enabled", false)
	v.SetDefault("logging.file_path", "logs")
	v.SetDefault("logging.rotation_mb", 10)
	v.SetDefault("logging.retention_days", 7)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("KRXBRIEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// loadDotEnv loads ./.env without overriding variables already set.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// The unprefixed names are the ones OpenDART and OpenAI document.
func overrideFromEnv(cfg *Config) {
	if cfg.DART.APIKey == "" {
		cfg.DART.APIKey = os.Getenv("DART_API_KEY")
	}
	if key := os.Getenv("KRXBRIEF_DART_API_KEY"); key != "" {
		cfg.DART.APIKey = key
	}
	if cfg.LLM.OpenAIKey == "" {
		cfg.LLM.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if key := os.Getenv("KRXBRIEF_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/seenimoa/krxbrief/internal/analysis/fundamental"
	"github.com/seenimoa/krxbrief/internal/analysis/technical"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, e := range []string{
		"KRXBRIEF_DART_API_KEY", "DART_API_KEY",
		"KRXBRIEF_LLM_OPENAI_KEY", "OPENAI_API_KEY",
	} {
		t.Setenv(e, "")
	}
}

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	clearKeyEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !reflect.DeepEqual(cfg.TechnicalConfig(), technical.DefaultConfig()) {
		t.Errorf("TechnicalConfig: got %+v, want %+v", cfg.TechnicalConfig(), technical.DefaultConfig())
	}
	if cfg.GuardThresholds() != fundamental.DefaultGuardConfig() {
		t.Errorf("GuardThresholds: got %+v, want %+v", cfg.GuardThresholds(), fundamental.DefaultGuardConfig())
	}
	if cfg.DART.BaseURL != "https://opendart.fss.or.kr/api" {
		t.Errorf("DART.BaseURL: got %q", cfg.DART.BaseURL)
	}
	if cfg.DART.RequestsPerSec != 5 {
		t.Errorf("DART.RequestsPerSec: got %f, want 5", cfg.DART.RequestsPerSec)
	}
	if cfg.Naver.BaseURL != "https://finance.naver.com" {
		t.Errorf("Naver.BaseURL: got %q", cfg.Naver.BaseURL)
	}
	if !cfg.News.Enabled || cfg.News.Limit != 15 || cfg.News.SearchURL != "https://news.google.com/rss/search" {
		t.Errorf("News: got %+v", cfg.News)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("LLM.Model: got %q, want %q", cfg.LLM.Model, "gpt-4o")
	}
	if cfg.LLM.Temperature != 0.4 {
		t.Errorf("LLM.Temperature: got %f, want 0.4", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens != 3500 {
		t.Errorf("LLM.MaxTokens: got %d, want 3500", cfg.LLM.MaxTokens)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging: got %q/%q, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.DART.APIKey != "" || cfg.LLM.OpenAIKey != "" {
		t.Error("expected no API keys by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearKeyEnv(t)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
indicators:
  ma_windows: [5, 10, 20]
  rsi_period: 9
guard:
  plausibility_floor: 0.05
  max_ratio: 2.5
dart:
  api_key: "dart_key_1234567890"
  requests_per_sec: 2
llm:
  model: "gpt-4o-mini"
  temperature: 0.2
logging:
  level: "debug"
  format: "pretty"
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Indicators.MAWindows, []int{5, 10, 20}) {
		t.Errorf("Indicators.MAWindows: got %v, want [5 10 20]", cfg.Indicators.MAWindows)
	}
	if cfg.Indicators.RSIPeriod != 9 {
		t.Errorf("Indicators.RSIPeriod: got %d, want 9", cfg.Indicators.RSIPeriod)
	}
	if cfg.Indicators.MFIPeriod != 14 {
		t.Errorf("Indicators.MFIPeriod: got %d, want default 14", cfg.Indicators.MFIPeriod)
	}
	if cfg.Guard.PlausibilityFloor != 0.05 {
		t.Errorf("Guard.PlausibilityFloor: got %f, want 0.05", cfg.Guard.PlausibilityFloor)
	}
	if cfg.Guard.MaxRatio != 2.5 {
		t.Errorf("Guard.MaxRatio: got %f, want 2.5", cfg.Guard.MaxRatio)
	}
	if cfg.Guard.MinRatio != 0.3 {
		t.Errorf("Guard.MinRatio: got %f, want default 0.3", cfg.Guard.MinRatio)
	}
	if cfg.DART.APIKey != "dart_key_1234567890" {
		t.Errorf("DART.APIKey: got %q", cfg.DART.APIKey)
	}
	if cfg.DART.RequestsPerSec != 2 {
		t.Errorf("DART.RequestsPerSec: got %f, want 2", cfg.DART.RequestsPerSec)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM.Model: got %q, want %q", cfg.LLM.Model, "gpt-4o-mini")
	}
	if cfg.Logging.Format != "pretty" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "pretty")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("file config should validate: %v", err)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for non-existent config file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("KRXBRIEF_LLM_MODEL", "gpt-4.1")
	t.Setenv("KRXBRIEF_GUARD_MIN_PER", "7")

	cfgPath := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(cfgPath, []byte("llm:\n  model: \"from-file\"\n"), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.LLM.Model != "gpt-4.1" {
		t.Errorf("LLM.Model: got %q, want %q", cfg.LLM.Model, "gpt-4.1")
	}
	if cfg.Guard.MinPER != 7 {
		t.Errorf("Guard.MinPER: got %f, want 7", cfg.Guard.MinPER)
	}
}

func TestOverrideFromEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("DART_API_KEY", "plain_dart_key")
	t.Setenv("OPENAI_API_KEY", "sk-plain")
	t.Setenv("KRXBRIEF_LLM_OPENAI_KEY", "sk-prefixed")

	cfg := &Config{}
	overrideFromEnv(cfg)

	if cfg.DART.APIKey != "plain_dart_key" {
		t.Errorf("DART.APIKey: got %q, want %q", cfg.DART.APIKey, "plain_dart_key")
	}
	if cfg.LLM.OpenAIKey != "sk-prefixed" {
		t.Errorf("LLM.OpenAIKey: got %q, want prefixed key to win", cfg.LLM.OpenAIKey)
	}
}

func TestOverrideFromEnvKeepsConfigValue(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("DART_API_KEY", "plain_dart_key")

	cfg := &Config{DART: DARTConfig{APIKey: "from_config"}}
	overrideFromEnv(cfg)
	if cfg.DART.APIKey != "from_config" {
		t.Errorf("DART.APIKey: got %q, want config value kept", cfg.DART.APIKey)
	}
}

// ── Validate ──

func TestValidateRejectsBadRanges(t *testing.T) {
	clearKeyEnv(t)
	base, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero rsi period", func(c *Config) { c.Indicators.RSIPeriod = 0 }},
		{"cross short not below long", func(c *Config) { c.Indicators.CrossShort = 30 }},
		{"empty ma windows", func(c *Config) { c.Indicators.MAWindows = nil }},
		{"negative ma window", func(c *Config) { c.Indicators.MAWindows = []int{5, -1} }},
		{"floor above one", func(c *Config) { c.Guard.PlausibilityFloor = 1.5 }},
		{"min ratio above max", func(c *Config) { c.Guard.MinRatio = 4 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad dart url", func(c *Config) { c.DART.BaseURL = "not a url" }},
		{"zero news limit", func(c *Config) { c.News.Limit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			cfg.Indicators.MAWindows = append([]int(nil), base.Indicators.MAWindows...)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

// ── API keys ──

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "***"},
		{"abc", "***"},
		{"12345678", "***"},
		{"sk-1234567890abc", "sk-...abc"},
	}
	for _, tt := range tests {
		if got := maskKey(tt.key); got != tt.want {
			t.Errorf("maskKey(%q): got %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestCheckAPIKeysAllEmpty(t *testing.T) {
	clearKeyEnv(t)
	statuses := CheckAPIKeys(&Config{})
	if len(statuses) != 2 {
		t.Fatalf("expected 2 key statuses, got %d", len(statuses))
	}
	for _, s := range statuses {
		if s.IsSet || s.Source != KeySourceNone {
			t.Errorf("%s: expected unset, got %+v", s.Name, s)
		}
	}
}

func TestCheckAPIKeysSources(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-environment")

	cfg := &Config{
		DART: DARTConfig{APIKey: "dart_from_config_file"},
		LLM:  LLMConfig{OpenAIKey: "sk-from-environment"},
	}
	statuses := CheckAPIKeys(cfg)
	if statuses[0].Source != KeySourceConfig {
		t.Errorf("DART key source: got %q, want %q", statuses[0].Source, KeySourceConfig)
	}
	if statuses[1].Source != KeySourceEnv {
		t.Errorf("OpenAI key source: got %q, want %q", statuses[1].Source, KeySourceEnv)
	}
	if statuses[0].Masked != "dar...ile" {
		t.Errorf("DART key masked: got %q", statuses[0].Masked)
	}
}

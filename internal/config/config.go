// Package config loads service settings from the environment.
//
// Before reading variables, Load applies .env files the same way every
// time: ENV_FILE alone when set, otherwise .env.local then .env. Variables
// already present in the environment are never overwritten.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/raffaelramalhorosa/feed-digest/internal/cache"
	"github.com/raffaelramalhorosa/feed-digest/internal/summarizer"
)

// DefaultFeedURL is the upstream used when FEED_URL is unset.
const DefaultFeedURL = "https://news.ycombinator.com/rss"

// Config holds every runtime setting.
type Config struct {
	Port string

	FeedURL   string
	FeedToken string

	LLMProvider string
	LLMBaseURL  string
	LLMAPIKey   string
	LLMModel    string

	CacheTTL       time.Duration
	CacheSummaries bool
	SystemPrompt   string

	// UpstreamTimeout of zero leaves outbound requests unbounded.
	UpstreamTimeout time.Duration
	AllowOrigin     string
	LogLevel        slog.Level
}

// Load reads .env files and then the environment.
func Load() (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}
	return FromEnv(os.LookupEnv)
}

func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv builds a Config from lookup, applying defaults and validating.
// Credentials are optional here; their absence only fails the call that
// needs them.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := &Config{
		Port:         get("PORT", "8080"),
		FeedURL:      get("FEED_URL", DefaultFeedURL),
		FeedToken:    get("FEED_TOKEN", ""),
		LLMProvider:  strings.ToLower(get("LLM_PROVIDER", summarizer.ProviderWorkersAI)),
		LLMBaseURL:   get("LLM_BASE_URL", ""),
		LLMAPIKey:    get("LLM_API_KEY", ""),
		LLMModel:     get("LLM_MODEL", ""),
		SystemPrompt: get("SUMMARY_SYSTEM_PROMPT", ""),
		AllowOrigin:  get("CORS_ALLOW_ORIGIN", "*"),
	}

	var err error
	if cfg.CacheTTL, err = parseDuration("CACHE_TTL", get("CACHE_TTL", ""), cache.DefaultTTL); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = parseDuration("UPSTREAM_TIMEOUT", get("UPSTREAM_TIMEOUT", ""), 0); err != nil {
		return nil, err
	}
	if v := get("CACHE_SUMMARIES", ""); v != "" {
		if cfg.CacheSummaries, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("CACHE_SUMMARIES: %w", err)
		}
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL)
	}
	if c.UpstreamTimeout < 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must not be negative, got %s", c.UpstreamTimeout)
	}
	switch c.LLMProvider {
	case summarizer.ProviderWorkersAI, summarizer.ProviderOpenAI, summarizer.ProviderAnthropic:
	default:
		return fmt.Errorf("LLM_PROVIDER: unknown provider %q", c.LLMProvider)
	}
	return nil
}

// Provider returns the LLM settings in the form the summarizer expects.
func (c *Config) Provider() summarizer.ProviderConfig {
	return summarizer.ProviderConfig{
		Name:    c.LLMProvider,
		BaseURL: c.LLMBaseURL,
		Model:   c.LLMModel,
		APIKey:  c.LLMAPIKey,
	}
}

// SummaryCacheTTL is the summary cache window, zero when disabled.
func (c *Config) SummaryCacheTTL() time.Duration {
	if !c.CacheSummaries {
		return 0
	}
	return c.CacheTTL
}

func parseDuration(name, v string, fallback time.Duration) (time.Duration, error) {
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

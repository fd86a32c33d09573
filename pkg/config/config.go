package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Credentials and service
// endpoints come from the environment; pipeline tuning comes from an
// optional YAML settings file, overridable by CLI flags.
type Config struct {
	// Text-generation service (OpenAI-compatible endpoint)
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	Settings Settings
}

// Settings are the pipeline tuning knobs read from the YAML settings file
type Settings struct {
	// SiteBaseURL is the profile-link base for @handle mentions
	SiteBaseURL string `yaml:"site_base_url"`
	// LocalHandle is the archive owner's screen name, used by the fixtags
	// pass to tell self-threads from truncated retweets
	LocalHandle string `yaml:"local_handle"`
	// RenderWorkers bounds the per-post render fan-out
	RenderWorkers int `yaml:"render_workers"`
	// LLMConcurrency separately gates in-flight text-generation calls
	LLMConcurrency int `yaml:"llm_concurrency"`
	// ProbeRatePerSec throttles outbound redirect probes and downloads
	ProbeRatePerSec float64 `yaml:"probe_rate_per_sec"`
	// HTTPTimeoutSeconds applies per external call
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds"`
	// DraftCutoff forces draft state on posts created before this date
	// (RFC 3339; empty disables the cutoff)
	DraftCutoff string `yaml:"draft_cutoff"`
	// FetchLinkTitles enables page-title lookup for continue-reading links
	FetchLinkTitles bool `yaml:"fetch_link_titles"`
}

// DefaultSettings returns the settings used when no file is given
func DefaultSettings() Settings {
	return Settings{
		SiteBaseURL:        "https://x.com",
		RenderWorkers:      8,
		LLMConcurrency:     2,
		ProbeRatePerSec:    5,
		HTTPTimeoutSeconds: 10,
	}
}

// HTTPTimeout returns the per-call timeout as a duration
func (s Settings) HTTPTimeout() time.Duration {
	return time.Duration(s.HTTPTimeoutSeconds) * time.Second
}

// DraftCutoffTime parses the configured cutoff date. The zero time means no
// cutoff is in effect.
func (s Settings) DraftCutoffTime() (time.Time, error) {
	if s.DraftCutoff == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s.DraftCutoff)
}

// Load reads configuration from the environment and, when settingsPath is
// non-empty, from the YAML settings file.
func Load(settingsPath string) (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		LLMBaseURL: getEnv("LLM_BASE_URL", ""),
		LLMAPIKey:  getEnv("LLM_API_KEY", ""),
		LLMModel:   getEnv("LLM_MODEL", ""),
		Settings:   DefaultSettings(),
	}

	if settingsPath != "" {
		data, err := os.ReadFile(settingsPath)
		if err != nil {
			return nil, fmt.Errorf("read settings file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg.Settings); err != nil {
			return nil, fmt.Errorf("parse settings file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LLMConfigured reports whether the text-generation service can be called.
// All three values are required; anything less falls back to deterministic
// metadata.
func (c *Config) LLMConfigured() bool {
	return c.LLMBaseURL != "" && c.LLMAPIKey != "" && c.LLMModel != ""
}

// Validate checks settings ranges
func (c *Config) Validate() error {
	if c.Settings.RenderWorkers < 1 {
		return fmt.Errorf("render_workers must be at least 1")
	}
	if c.Settings.LLMConcurrency < 1 {
		return fmt.Errorf("llm_concurrency must be at least 1")
	}
	if c.Settings.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("http_timeout_seconds must be positive")
	}
	if _, err := c.Settings.DraftCutoffTime(); err != nil {
		return fmt.Errorf("draft_cutoff: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

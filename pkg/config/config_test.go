package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Settings.RenderWorkers)
	assert.Equal(t, 2, cfg.Settings.LLMConcurrency)
	assert.Equal(t, 10*time.Second, cfg.Settings.HTTPTimeout())
	assert.Equal(t, "https://x.com", cfg.Settings.SiteBaseURL)
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	settings := `
site_base_url: https://example.com
local_handle: me
render_workers: 3
llm_concurrency: 1
http_timeout_seconds: 4
draft_cutoff: "2020-01-01T00:00:00Z"
fetch_link_titles: true
`
	require.NoError(t, os.WriteFile(path, []byte(settings), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", cfg.Settings.SiteBaseURL)
	assert.Equal(t, "me", cfg.Settings.LocalHandle)
	assert.Equal(t, 3, cfg.Settings.RenderWorkers)
	assert.True(t, cfg.Settings.FetchLinkTitles)

	cutoff, err := cfg.Settings.DraftCutoffTime()
	require.NoError(t, err)
	assert.Equal(t, 2020, cutoff.Year())
}

func TestLoadRejectsBadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("render_workers: 0\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLLMConfigured(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.LLMConfigured())
	cfg.LLMBaseURL = "https://llm.example.com/v1"
	cfg.LLMAPIKey = "k"
	cfg.LLMModel = "m"
	assert.True(t, cfg.LLMConfigured())
}

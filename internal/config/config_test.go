package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 10, cfg.Crawler.NumBoards)
	require.Equal(t, 15, cfg.Crawler.ArticlesPerBoard)
	require.Equal(t, 3, cfg.Crawler.BoardConcurrency)
	require.Equal(t, 5, cfg.Crawler.ArticleConcurrency)
	require.Equal(t, 30, cfg.Crawler.PageTimeoutSeconds)
	require.Equal(t, 5, cfg.Crawler.TimeoutIncrementSeconds)
	require.Equal(t, 2, cfg.Crawler.MaxRetries)
	require.Equal(t, 3, cfg.Crawler.RetryDelaySeconds)
	require.Equal(t, 1000, cfg.Crawler.ContentMaxChars)
	require.Equal(t, FetcherColly, cfg.Fetcher.Mode)
	require.Equal(t, "https://www.ptt.cc", cfg.Fetcher.BaseURL)
	require.Equal(t, "https://www.ptt.cc/bbs/hotboards.html", cfg.Fetcher.HotboardsURL)
	require.Equal(t, "crawl-results", cfg.Output.Dir)
	require.False(t, cfg.Server.Enabled)
	require.True(t, cfg.Logging.Development)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `crawler:
  num_boards: 4
  board_concurrency: 2
  max_retries: 1
fetcher:
  mode: headless
output:
  dir: /tmp/out
server:
  enabled: true
  port: 8088
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 4, cfg.Crawler.NumBoards)
	require.Equal(t, 2, cfg.Crawler.BoardConcurrency)
	require.Equal(t, 1, cfg.Crawler.MaxRetries)
	require.Equal(t, FetcherHeadless, cfg.Fetcher.Mode)
	require.Equal(t, "/tmp/out", cfg.Output.Dir)
	require.True(t, cfg.Server.Enabled)
	require.Equal(t, 8088, cfg.Server.Port)

	// Untouched keys keep their defaults.
	require.Equal(t, 5, cfg.Crawler.ArticleConcurrency)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero boards", func(c *Config) { c.Crawler.NumBoards = 0 }},
		{"zero articles per board", func(c *Config) { c.Crawler.ArticlesPerBoard = 0 }},
		{"zero board concurrency", func(c *Config) { c.Crawler.BoardConcurrency = 0 }},
		{"zero article concurrency", func(c *Config) { c.Crawler.ArticleConcurrency = 0 }},
		{"zero page timeout", func(c *Config) { c.Crawler.PageTimeoutSeconds = 0 }},
		{"negative retries", func(c *Config) { c.Crawler.MaxRetries = -1 }},
		{"zero content cap", func(c *Config) { c.Crawler.ContentMaxChars = 0 }},
		{"unknown fetcher mode", func(c *Config) { c.Fetcher.Mode = "carrier-pigeon" }},
		{"missing hotboards url", func(c *Config) { c.Fetcher.HotboardsURL = "" }},
		{"missing output dir", func(c *Config) { c.Output.Dir = "" }},
		{"enabled server without port", func(c *Config) { c.Server.Enabled = true; c.Server.Port = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestEngineConfigConversion(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	ec := cfg.EngineConfig()
	require.Equal(t, 10, ec.NumBoards)
	require.Equal(t, 3, ec.BoardConcurrency)
	require.Equal(t, 5, ec.ArticleConcurrency)
	require.Equal(t, 30*time.Second, ec.PageTimeout)
	require.Equal(t, 5*time.Second, ec.TimeoutIncrement)
	require.Equal(t, time.Second, ec.RequestDelay)
	require.Equal(t, 2, ec.MaxRetries)
	require.Equal(t, 3*time.Second, ec.RetryDelay)
	require.Equal(t, 1000, ec.ContentMaxChars)
	require.Equal(t, cfg.Fetcher.HotboardsURL, ec.HotboardsURL)
	require.NoError(t, ec.Validate())
}

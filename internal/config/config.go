// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pttcrawl/hotboards-crawler/internal/crawler"
)

// Fetcher mode values.
const (
	FetcherColly    = "colly"
	FetcherHeadless = "headless"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Fetcher FetcherConfig `mapstructure:"fetcher"`
	Output  OutputConfig  `mapstructure:"output"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlerConfig governs the orchestration engine.
type CrawlerConfig struct {
	NumBoards               int     `mapstructure:"num_boards"`
	ArticlesPerBoard        int     `mapstructure:"articles_per_board"`
	BoardConcurrency        int     `mapstructure:"board_concurrency"`
	ArticleConcurrency      int     `mapstructure:"article_concurrency"`
	PageTimeoutSeconds      int     `mapstructure:"page_timeout_seconds"`
	TimeoutIncrementSeconds int     `mapstructure:"timeout_increment_seconds"`
	RequestDelaySeconds     int     `mapstructure:"request_delay_seconds"`
	MaxRetries              int     `mapstructure:"max_retries"`
	RetryDelaySeconds       int     `mapstructure:"retry_delay_seconds"`
	ContentMaxChars         int     `mapstructure:"content_max_chars"`
	RateLimitRPS            float64 `mapstructure:"rate_limit_rps"`
}

// FetcherConfig selects and configures the transport.
type FetcherConfig struct {
	Mode         string `mapstructure:"mode"`
	UserAgent    string `mapstructure:"user_agent"`
	BaseURL      string `mapstructure:"base_url"`
	HotboardsURL string `mapstructure:"hotboards_url"`
}

// OutputConfig sets the flat-file result location.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// ServerConfig controls the optional metrics endpoint.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig selects the zap preset and verbosity.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PTTCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.num_boards", 10)
	v.SetDefault("crawler.articles_per_board", 15)
	v.SetDefault("crawler.board_concurrency", 3)
	v.SetDefault("crawler.article_concurrency", 5)
	v.SetDefault("crawler.page_timeout_seconds", 30)
	v.SetDefault("crawler.timeout_increment_seconds", 5)
	v.SetDefault("crawler.request_delay_seconds", 1)
	v.SetDefault("crawler.max_retries", 2)
	v.SetDefault("crawler.retry_delay_seconds", 3)
	v.SetDefault("crawler.content_max_chars", 1000)
	v.SetDefault("crawler.rate_limit_rps", 0)
	v.SetDefault("fetcher.mode", FetcherColly)
	v.SetDefault("fetcher.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("fetcher.base_url", "https://www.ptt.cc")
	v.SetDefault("fetcher.hotboards_url", "https://www.ptt.cc/bbs/hotboards.html")
	v.SetDefault("output.dir", "crawl-results")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 9090)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.NumBoards <= 0 {
		return fmt.Errorf("crawler.num_boards must be > 0")
	}
	if c.Crawler.ArticlesPerBoard <= 0 {
		return fmt.Errorf("crawler.articles_per_board must be > 0")
	}
	if c.Crawler.BoardConcurrency <= 0 {
		return fmt.Errorf("crawler.board_concurrency must be > 0")
	}
	if c.Crawler.ArticleConcurrency <= 0 {
		return fmt.Errorf("crawler.article_concurrency must be > 0")
	}
	if c.Crawler.PageTimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.page_timeout_seconds must be > 0")
	}
	if c.Crawler.MaxRetries < 0 {
		return fmt.Errorf("crawler.max_retries must be >= 0")
	}
	if c.Crawler.ContentMaxChars <= 0 {
		return fmt.Errorf("crawler.content_max_chars must be > 0")
	}
	if c.Fetcher.Mode != FetcherColly && c.Fetcher.Mode != FetcherHeadless {
		return fmt.Errorf("fetcher.mode must be %q or %q", FetcherColly, FetcherHeadless)
	}
	if c.Fetcher.HotboardsURL == "" {
		return fmt.Errorf("fetcher.hotboards_url must be set")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	return nil
}

// EngineConfig converts the loaded knobs into the engine's config.
func (c Config) EngineConfig() crawler.Config {
	return crawler.Config{
		NumBoards:          c.Crawler.NumBoards,
		BoardConcurrency:   c.Crawler.BoardConcurrency,
		ArticleConcurrency: c.Crawler.ArticleConcurrency,
		PageTimeout:        time.Duration(c.Crawler.PageTimeoutSeconds) * time.Second,
		TimeoutIncrement:   time.Duration(c.Crawler.TimeoutIncrementSeconds) * time.Second,
		RequestDelay:       time.Duration(c.Crawler.RequestDelaySeconds) * time.Second,
		MaxRetries:         c.Crawler.MaxRetries,
		RetryDelay:         time.Duration(c.Crawler.RetryDelaySeconds) * time.Second,
		ContentMaxChars:    c.Crawler.ContentMaxChars,
		RateLimitRPS:       c.Crawler.RateLimitRPS,
		HotboardsURL:       c.Fetcher.HotboardsURL,
	}
}

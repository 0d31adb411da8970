package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pttcrawl/hotboards-crawler/internal/api"
	"github.com/pttcrawl/hotboards-crawler/internal/config"
	"github.com/pttcrawl/hotboards-crawler/internal/crawler"
	"github.com/pttcrawl/hotboards-crawler/internal/extractor/ptt"
	collyfetcher "github.com/pttcrawl/hotboards-crawler/internal/fetcher/colly"
	"github.com/pttcrawl/hotboards-crawler/internal/fetcher/headless"
	"github.com/pttcrawl/hotboards-crawler/internal/logging"
	fssink "github.com/pttcrawl/hotboards-crawler/internal/sink/fs"
)

// sessionCookies are required by PTT before it serves board content.
var sessionCookies = map[string]string{"over18": "1"}

func newCrawlCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Runs one crawl over the hot boards",
		Long: `Discovers the hot boards (falling back to a fixed list when discovery
fails), crawls recent posts per board with retry and bounded concurrency, and
writes results to the output directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, outputDir)
		},
	}
	cmd.Flags().StringVar(&outputDir, "output", "", "override output directory")

	return cmd
}

func runCrawl(cmd *cobra.Command, outputDir string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, err := buildFetcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}
	defer func() {
		if cerr := fetcher.Close(context.Background()); cerr != nil {
			logger.Warn("fetcher close failed", zap.Error(cerr))
		}
	}()

	extractor := ptt.New(cfg.Fetcher.BaseURL, cfg.Crawler.NumBoards, cfg.Crawler.ArticlesPerBoard)

	sink, err := fssink.New(cfg.Output.Dir, logger)
	if err != nil {
		return fmt.Errorf("init sink: %w", err)
	}

	engine, err := crawler.NewEngine(cfg.EngineConfig(), fetcher, extractor, sink, nil, logger)
	if err != nil {
		return err
	}

	if cfg.Server.Enabled {
		srv := api.New(cfg.Server.Port, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := srv.Shutdown(shutdownCtx); serr != nil {
				logger.Warn("metrics server shutdown failed", zap.Error(serr))
			}
		}()
	}

	summary := engine.Run(ctx)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("crawl interrupted: %w", err)
	}
	if !summary.OK {
		return errors.New("crawl finished without a single successful article")
	}
	return nil
}

func buildFetcher(cfg config.Config, logger *zap.Logger) (crawler.Fetcher, error) {
	timeout := time.Duration(cfg.Crawler.PageTimeoutSeconds) * time.Second
	switch cfg.Fetcher.Mode {
	case config.FetcherHeadless:
		return headless.New(headless.Config{
			UserAgent:         cfg.Fetcher.UserAgent,
			CookieDomain:      cookieDomain(cfg.Fetcher.BaseURL),
			Cookies:           sessionCookies,
			NavigationTimeout: timeout,
		}, logger)
	default:
		return collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.Fetcher.UserAgent,
			BaseURL:   cfg.Fetcher.BaseURL,
			Cookies:   sessionCookies,
			Timeout:   timeout,
		}, logger)
	}
}

// cookieDomain widens the base URL's host so the cookie covers subdomains,
// e.g. "https://www.ptt.cc" -> ".ptt.cc". Hosts with fewer than three labels
// are returned unchanged: stripping the first label of "ptt.cc" would leave
// the public suffix ".cc", which browsers reject.
func cookieDomain(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := u.Hostname()
	if strings.Count(host, ".") >= 2 {
		return host[strings.Index(host, "."):]
	}
	return host
}

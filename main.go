package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sjsage522/listupjorei/config"
	"sjsage522/listupjorei/helpers"
	"sjsage522/listupjorei/internal"
	"sjsage522/listupjorei/internal/crawler"
	"sjsage522/listupjorei/logger"
	"sjsage522/listupjorei/services/cache"
	"sjsage522/listupjorei/services/output"
	"sjsage522/listupjorei/services/publisher"
	"sjsage522/listupjorei/services/worker"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger first
	logger.Init()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logger.Get().Error().Err(err).Msg("Crawl failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "listupjorei",
		Short:         "Collects ordinances from the registry into one JSON file each plus an index.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringP("output", "o", "", "directory receiving one JSON file per ordinance")
	flags.StringP("index", "i", "", "index file path (JSON Lines)")
	flags.StringP("start", "s", "", "first announcement date, YYYY or YYYY-MM-DD (inclusive)")
	flags.StringP("end", "e", "", "last announcement date, YYYY or YYYY-MM-DD (inclusive)")
	flags.IntP("rows", "r", 50, "summaries requested per listing page")
	flags.Int("sleep-time", 500, "delay between requests in milliseconds")
	flags.String("base-url", config.DefaultBaseURL, "registry base URL")
	flags.String("format", config.FormatSolr, "registry format: solr or html")
	flags.Bool("insecure", true, "skip TLS certificate verification")
	flags.String("error-log", "", "skip report path (default <output>/errors.log)")

	return cmd
}

// applyFlags overrides environment configuration with explicitly set flags
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("output") {
		cfg.OutputDir, _ = flags.GetString("output")
	}
	if flags.Changed("index") {
		cfg.IndexPath, _ = flags.GetString("index")
	}
	if flags.Changed("start") {
		start, _ := flags.GetString("start")
		if err := cfg.SetStartDate(start); err != nil {
			return err
		}
	}
	if flags.Changed("end") {
		end, _ := flags.GetString("end")
		if err := cfg.SetEndDate(end); err != nil {
			return err
		}
	}
	if flags.Changed("rows") {
		cfg.Rows, _ = flags.GetInt("rows")
	}
	if flags.Changed("sleep-time") {
		ms, _ := flags.GetInt("sleep-time")
		cfg.SleepTime = time.Duration(ms) * time.Millisecond
	}
	if flags.Changed("base-url") {
		cfg.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("format") {
		cfg.Format, _ = flags.GetString("format")
	}
	if flags.Changed("insecure") {
		cfg.InsecureSkipVerify, _ = flags.GetBool("insecure")
	}
	if flags.Changed("error-log") {
		cfg.ErrorLogPath, _ = flags.GetString("error-log")
	}

	return nil
}

// run wires the services and crawls until done, failed or interrupted
func run(parent context.Context, cfg *config.Config) error {
	log := logger.Get()

	log.Info().
		Str("environment", cfg.Environment).
		Str("config", cfg.String()).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Initialize services
	services := initializeServices(ctx, cfg)
	defer services.Cleanup()

	source, err := crawler.NewSource(cfg)
	if err != nil {
		return err
	}

	writer, err := output.NewWriter(cfg.OutputDir, cfg.IndexPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := writer.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close index")
		}
	}()

	fetcher := crawler.NewGuardedFetcher(
		helpers.NewHTTPClient(cfg.HTTPTimeout, cfg.InsecureSkipVerify),
		services.Cache,
		crawler.RateLimitCacheKey,
		cfg.BlockTime,
	)

	deps := internal.Dependencies{
		Source:   source,
		Fetcher:  fetcher,
		Writer:   writer,
		ErrorLog: services.ErrorLog,
	}
	if services.Publisher != nil {
		deps.Publisher = services.Publisher
	}

	w := worker.NewWorker(deps, crawler.NewThrottle(cfg.SleepTime), cfg.Rows, cfg.DateRange())

	type result struct {
		summary worker.Summary
		err     error
	}

	// Start worker in a goroutine
	started := time.Now()
	workerDone := make(chan result, 1)
	go func() {
		log.Info().Msg("Starting ordinance crawler")
		summary, err := w.Run(ctx)
		workerDone <- result{summary: summary, err: err}
	}()

	// Wait for shutdown signal or worker completion
	var res result
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		res = <-workerDone
	case res = <-workerDone:
	}

	log.Info().
		Int("pages", res.summary.Pages).
		Int("listed", res.summary.Listed).
		Int("written", res.summary.Written).
		Int("filtered", res.summary.Filtered).
		Int("skipped", res.summary.Skipped).
		Int("total", res.summary.Total).
		Str("stop_reason", string(res.summary.StopReason)).
		Dur("elapsed", time.Since(started)).
		Str("index", writer.IndexPath()).
		Msg("Crawl finished")

	// An interrupted crawl is incomplete and still exits non-zero
	if errors.Is(res.err, context.Canceled) {
		log.Info().Msg("Shutting down gracefully...")
	}
	return res.err
}

// Services holds the optional external services
type Services struct {
	Cache     cache.CacheService
	Publisher *publisher.RedisPublisher
	ErrorLog  helpers.LoggerInterface
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			logger.ForPublisher().WithError(err).Warn().Msg("Failed to close publisher")
		}
	}
}

// initializeServices connects the configured services. An unreachable
// memcache or Redis disables that feature instead of failing the crawl.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{
		ErrorLog: helpers.NewLogger(cfg.ResolvedErrorLogPath()),
	}

	if cfg.MemcacheAddr != "" {
		cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := cacheService.Ping(); err != nil {
			logger.ForCache().WithError(err).Warn().Msg("Memcache unavailable, rate limit guard disabled")
		} else {
			services.Cache = cacheService
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(); err != nil {
			logger.ForPublisher().WithError(err).Warn().Msg("Redis unavailable, publishing disabled")
			_ = redisPublisher.Close()
		} else {
			services.Publisher = redisPublisher
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
				cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		}
	}

	return services
}

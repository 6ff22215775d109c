package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/flashprice/radar-crawler/internal/browser"
	"github.com/flashprice/radar-crawler/internal/config"
	"github.com/flashprice/radar-crawler/internal/database"
	"github.com/flashprice/radar-crawler/internal/models"
	"github.com/flashprice/radar-crawler/internal/navigator"
	"github.com/flashprice/radar-crawler/internal/ratelimit"
	"github.com/flashprice/radar-crawler/internal/scraper"
	"github.com/flashprice/radar-crawler/internal/storage"
)

func main() {
	var (
		locationName = flag.String("location", "", "Pilot location name (default: first in registry)")
		platformID   = flag.String("platform", "", "Platform id (default: first enabled)")
		products     = flag.String("products", "", "Comma-separated product keywords (default: registry watchlist)")
		headless     = flag.Bool("headless", true, "Run browser in headless mode")
		useAI        = flag.Bool("use-ai", true, "Try the AI navigator for address setup when configured")
		output       = flag.String("output", "crawl_results.json", "JSON output file when no database is configured")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	location, err := cfg.Registry.Location(*locationName)
	if err != nil {
		log.Fatalf("%v", err)
	}
	platform, err := cfg.Registry.Platform(*platformID)
	if err != nil {
		log.Fatalf("%v", err)
	}

	queries := cfg.Registry.Products
	if *products != "" {
		queries = strings.Split(*products, ",")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	limiter := newDailyLimiter(cfg)
	cadenceKey := platform.ID + ":" + location.Name
	if err := limiter.Acquire(ctx, cadenceKey); err != nil {
		logger.Error("crawl not started", "error", err)
		os.Exit(1)
	}

	session, err := browser.Open(location, &browser.Options{
		Headless:      *headless && cfg.Browser.Headless,
		Timeout:       cfg.Browser.Timeout,
		ScreenshotDir: cfg.Crawler.ScreenshotDir,
	})
	if err != nil {
		logger.Error("failed to open browser session", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	var nav navigator.Navigator = navigator.Noop{}
	if *useAI && cfg.AI.GeminiAPIKey != "" {
		gemini, err := navigator.NewGemini(ctx, cfg.AI.GeminiAPIKey, session.Driver(), logger)
		if err != nil {
			logger.Warn("AI navigator unavailable, using deterministic path", "error", err)
		} else {
			defer gemini.Close()
			nav = gemini
		}
	}

	controller := scraper.NewController(session, scraper.Options{
		Platform:  platform,
		Navigator: nav,
		Pacer:     ratelimit.NewJitteredLimiter(cfg.Crawler.RequestDelayMin, cfg.Crawler.RequestDelayMax),
		City:      cfg.Crawler.City,
		Aliases:   cfg.Crawler.Aliases,
		Logger:    logger,
	})

	report, err := controller.Run(ctx, queries)
	if err != nil {
		logger.Error("crawl run aborted", "error", err)
	}

	if err := saveReport(ctx, cfg, *output, report, logger); err != nil {
		logger.Error("failed to persist results", "error", err)
		os.Exit(1)
	}

	fmt.Printf("run %s: %d records, %d failed queries\n",
		report.RunID, len(report.Records), len(report.Failures))
}

func saveReport(ctx context.Context, cfg *config.Config, output string, report *models.CrawlReport, logger *slog.Logger) error {
	if cfg.Database.Host != "" {
		db, err := database.New(ctx, database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("saving records to database", "records", len(report.Records))
		return db.SaveReport(ctx, report)
	}

	fileStore, err := storage.NewFileStore(output)
	if err != nil {
		return err
	}
	logger.Info("saving records to file", "file", output, "records", len(report.Records))
	return fileStore.SaveReport(ctx, report)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newDailyLimiter(cfg *config.Config) ratelimit.DailyLimiter {
	if cfg.Redis.Addr == "" {
		return ratelimit.NewMemoryDailyLimiter(cfg.Crawler.MaxDailyCrawls)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return ratelimit.NewRedisDailyLimiter(client, cfg.Crawler.MaxDailyCrawls)
}

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/flashprice/radar-crawler/internal/api"
	"github.com/flashprice/radar-crawler/internal/browser"
	"github.com/flashprice/radar-crawler/internal/config"
	"github.com/flashprice/radar-crawler/internal/database"
	"github.com/flashprice/radar-crawler/internal/navigator"
	"github.com/flashprice/radar-crawler/internal/ratelimit"
	"github.com/flashprice/radar-crawler/internal/scraper"
	"github.com/flashprice/radar-crawler/internal/storage"
)

// crawlBudget bounds one triggered crawl run end to end.
const crawlBudget = 15 * time.Minute

func main() {
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	limiter := newDailyLimiter(cfg)

	trigger := func(locationName, platformID string) (string, error) {
		if err := limiter.Acquire(context.Background(), platformID+":"+locationName); err != nil {
			return "", err
		}
		runID := uuid.NewString()
		go runCrawl(runID, locationName, platformID, cfg, store, logger)
		return runID, nil
	}

	server := api.NewServer(cfg.Registry, store, trigger, logger)

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
		cancel()
	}()

	logger.Info("api server listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// runCrawl executes one triggered crawl in the background: open a session
// for the location, run every registry product, persist what came back,
// and always release the browser.
func runCrawl(runID, locationName, platformID string, cfg *config.Config, store database.Store, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), crawlBudget)
	defer cancel()

	location, err := cfg.Registry.Location(locationName)
	if err != nil {
		logger.Error("crawl aborted", "run_id", runID, "error", err)
		return
	}
	platform, err := cfg.Registry.Platform(platformID)
	if err != nil {
		logger.Error("crawl aborted", "run_id", runID, "error", err)
		return
	}

	session, err := browser.Open(location, &browser.Options{
		Headless:      cfg.Browser.Headless,
		Timeout:       cfg.Browser.Timeout,
		ScreenshotDir: cfg.Crawler.ScreenshotDir,
	})
	if err != nil {
		logger.Error("crawl aborted", "run_id", runID, "error", err)
		return
	}
	defer session.Close()

	var nav navigator.Navigator = navigator.Noop{}
	if cfg.AI.GeminiAPIKey != "" {
		gemini, err := navigator.NewGemini(ctx, cfg.AI.GeminiAPIKey, session.Driver(), logger)
		if err != nil {
			logger.Warn("AI navigator unavailable", "error", err)
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

	report, err := controller.RunWithID(ctx, runID, cfg.Registry.Products)
	if err != nil {
		logger.Warn("crawl ended early", "run_id", runID, "error", err)
	}
	if err := store.SaveReport(ctx, report); err != nil {
		logger.Error("failed to persist crawl results", "run_id", runID, "error", err)
	}
}

func newStore(ctx context.Context, cfg *config.Config) (database.Store, func(), error) {
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
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, db.Close, nil
	}

	fileStore, err := storage.NewFileStore("crawl_results.json")
	if err != nil {
		return nil, nil, err
	}
	return fileStore, func() {}, nil
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

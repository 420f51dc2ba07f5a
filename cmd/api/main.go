package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/axolotly/content-tagger/backend/internal/config"
	"github.com/axolotly/content-tagger/backend/internal/coordinator"
	"github.com/axolotly/content-tagger/backend/internal/database"
	"github.com/axolotly/content-tagger/backend/internal/fandom"
	apihttp "github.com/axolotly/content-tagger/backend/internal/http"
	"github.com/axolotly/content-tagger/backend/internal/matcher"
	"github.com/axolotly/content-tagger/backend/internal/notifications"
	"github.com/axolotly/content-tagger/backend/internal/repository"
	"github.com/axolotly/content-tagger/backend/internal/scheduler"
	"github.com/axolotly/content-tagger/backend/internal/scrape"
	"github.com/axolotly/content-tagger/backend/internal/showconfig"
	"github.com/axolotly/content-tagger/backend/internal/tagging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open sqlite", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.ApplyMigrations(db, cfg.MigrationsPath); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	if cfg.SeedDefaultData {
		if err := database.SeedDefaults(db); err != nil {
			slog.Error("failed to seed defaults", "error", err)
			os.Exit(1)
		}
	}

	catalogRepo := repository.NewCatalogRepository(db)
	tagRepo := repository.NewTagRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	jobRepo := repository.NewJobRepository(db)

	if loaded, err := showconfig.LoadFromDir(cfg.ShowConfigsPath, catalogRepo); err != nil {
		slog.Warn("show configs loaded with warnings", "loaded", loaded, "error", err)
	} else if loaded > 0 {
		slog.Info("show configs loaded", "loaded", loaded)
	}

	wikiClient := fandom.NewClient(fandom.ClientConfig{
		RatePerSec: cfg.WikiRatePerSec,
		Burst:      cfg.WikiBurst,
		Timeout:    time.Duration(cfg.WikiTimeoutSeconds) * time.Second,
	}, logger)

	builder := fandom.NewBuilder(wikiClient, logger)
	episodeMatcher := matcher.New(catalogRepo, linkRepo, logger)
	extractor := tagging.NewExtractor(wikiClient, tagRepo, logger)
	orchestrator := scrape.NewOrchestrator(catalogRepo, tagRepo, builder, episodeMatcher, extractor, logger)
	legacy := scrape.NewLegacyScraper(wikiClient, catalogRepo, tagRepo, logger)

	var notifier notifications.Notifier = notifications.NoopNotifier{}
	if cfg.NotifyWebhookURL != "" {
		webhook, err := notifications.NewWebhookNotifier(cfg.NotifyWebhookURL)
		if err != nil {
			slog.Warn("webhook notifier disabled", "error", err)
		} else {
			notifier = webhook
		}
	}

	coord := coordinator.New(jobRepo, catalogRepo, tagRepo, orchestrator, legacy, notifier, coordinator.Config{
		Strategy: cfg.ScrapeStrategy,
		RunDelay: time.Duration(cfg.RunDelayMillis) * time.Millisecond,
	}, logger)

	queueCtx, queueCancel := context.WithCancel(context.Background())
	queue := scheduler.NewWorkQueue(coord, scheduler.WorkQueueConfig{
		Workers:   cfg.ScrapeWorkers,
		QueueSize: cfg.ScrapeQueueSize,
	}, logger)
	queue.Start(queueCtx)

	app := apihttp.NewServer(cfg, db, apihttp.Deps{
		Coordinator: coord,
		Queue:       queue,
		Legacy:      legacy,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	slog.Info("api started", "port", cfg.Port, "env", cfg.Environment, "strategy", cfg.ScrapeStrategy)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down server")
	queueCancel()
	queue.StopWait(5 * time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

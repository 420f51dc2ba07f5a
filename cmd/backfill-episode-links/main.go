package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/axolotly/content-tagger/backend/internal/config"
	"github.com/axolotly/content-tagger/backend/internal/database"
	"github.com/axolotly/content-tagger/backend/internal/fandom"
	"github.com/axolotly/content-tagger/backend/internal/matcher"
	"github.com/axolotly/content-tagger/backend/internal/models"
	"github.com/axolotly/content-tagger/backend/internal/repository"
)

// discardLinks satisfies the matcher's link store without writing anything,
// so a dry run still reports what would be stored.
type discardLinks struct{}

func (discardLinks) UpsertLink(_ models.FandomEpisodeLink) error { return nil }

func main() {
	var (
		titleID = flag.Int64("title-id", 0, "Only backfill a single title id (0 = all eligible titles)")
		dryRun  = flag.Bool("dry-run", false, "Match without writing links to the database")
		timeout = flag.Duration("timeout", 5*time.Minute, "Per-title scrape timeout")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
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

	catalogRepo := repository.NewCatalogRepository(db)

	var links matcher.LinkStore = repository.NewLinkRepository(db)
	if *dryRun {
		links = discardLinks{}
	}

	wikiClient := fandom.NewClient(fandom.ClientConfig{
		RatePerSec: cfg.WikiRatePerSec,
		Burst:      cfg.WikiBurst,
		Timeout:    time.Duration(cfg.WikiTimeoutSeconds) * time.Second,
	}, logger)
	builder := fandom.NewBuilder(wikiClient, logger)
	episodeMatcher := matcher.New(catalogRepo, links, logger)

	var filter []int64
	if *titleID > 0 {
		filter = []int64{*titleID}
	}

	titles, err := catalogRepo.ListEligibleTitles(filter)
	if err != nil {
		slog.Error("failed to list titles", "error", err)
		os.Exit(1)
	}
	if len(titles) == 0 {
		slog.Info("no eligible titles to backfill")
		return
	}

	totalCandidates := 0
	totalStored := 0
	failedTitles := 0

	for _, title := range titles {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		stored, candidates, err := backfillTitle(ctx, catalogRepo, builder, episodeMatcher, title)
		cancel()

		if err != nil {
			failedTitles++
			slog.Warn("backfill failed", "title_id", title.ID, "name", title.Name, "error", err)
			continue
		}

		totalCandidates += candidates
		totalStored += stored
		slog.Info("backfill done", "title_id", title.ID, "name", title.Name, "candidates", candidates, "links", stored)
	}

	slog.Info("backfill summary",
		"titles", len(titles),
		"failed", failedTitles,
		"candidates", totalCandidates,
		"links", totalStored,
		"dry_run", *dryRun,
	)
}

func backfillTitle(ctx context.Context, catalogRepo *repository.CatalogRepository, builder *fandom.Builder, episodeMatcher *matcher.Matcher, title models.Title) (stored, candidates int, err error) {
	configRow, err := catalogRepo.ShowConfigForTitle(title.ID)
	if err != nil {
		return 0, 0, err
	}

	show := fandom.ShowInput{TitleID: title.ID, Name: title.Name}
	if configRow != nil && configRow.WikiSlug != nil && *configRow.WikiSlug != "" {
		show.Wiki = *configRow.WikiSlug
	} else if title.WikiSlug != nil && *title.WikiSlug != "" {
		show.Wiki = *title.WikiSlug
	} else {
		show.Wiki = fandom.Slugify(title.Name)
	}
	if configRow != nil {
		if configRow.EpisodeListPage != nil {
			show.EpisodeListPage = *configRow.EpisodeListPage
		}
		if configRow.TableSelector != nil {
			show.TableSelector = *configRow.TableSelector
		}
	}

	pages := builder.BuildCatalog(ctx, show)
	input := make([]matcher.Candidate, 0, len(pages))
	for _, page := range pages {
		candidate := matcher.Candidate{PageTitle: page.PageTitle, PageID: page.PageID, URL: page.URL}
		if page.HasNumbers {
			candidate.Season = page.Season
			candidate.Episode = page.Episode
		}
		input = append(input, candidate)
	}

	results, err := episodeMatcher.BatchMatch(title.ID, input)
	if err != nil {
		return 0, len(pages), err
	}

	for _, result := range results {
		if result.EpisodeID != nil {
			stored++
		}
	}
	return stored, len(pages), nil
}

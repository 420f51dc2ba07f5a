package http

import (
	"database/sql"

	"github.com/axolotly/content-tagger/backend/internal/config"
	"github.com/axolotly/content-tagger/backend/internal/coordinator"
	"github.com/axolotly/content-tagger/backend/internal/http/handlers"
	"github.com/axolotly/content-tagger/backend/internal/scheduler"
	"github.com/axolotly/content-tagger/backend/internal/scrape"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Deps carries the wired services the routes sit on top of.
type Deps struct {
	Coordinator *coordinator.Coordinator
	Queue       *scheduler.WorkQueue
	Legacy      *scrape.LegacyScraper
}

func NewServer(cfg config.Config, db *sql.DB, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	app.Use(recover.New())

	health := handlers.NewHealthHandler(db)
	jobs := handlers.NewJobsHandler(deps.Coordinator, deps.Queue)
	scrapeHandler := handlers.NewScrapeHandler(deps.Legacy)
	episodeTags := handlers.NewEpisodeTagsHandler(db)

	app.Get("/health", health.Check)
	app.Get("/v1/health", health.Check)

	v1 := app.Group("/v1")
	v1.Post("/scrape-jobs", jobs.Create)
	v1.Get("/scrape-jobs/:id", jobs.GetByID)
	v1.Get("/scrape-jobs/:id/runs", jobs.ListRuns)
	v1.Post("/scrape/category", scrapeHandler.Category)
	v1.Get("/episode-tags", episodeTags.List)

	return app
}

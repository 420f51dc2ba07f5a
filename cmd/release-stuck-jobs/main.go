package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/axolotly/content-tagger/backend/internal/config"
	"github.com/axolotly/content-tagger/backend/internal/database"
	"github.com/axolotly/content-tagger/backend/internal/repository"
)

// Jobs stay "running" forever if the process dies mid-execution, and
// "pending" forever if the queue never drained them. This tool fails both
// kinds so new jobs for the same titles are not skipped.
func main() {
	var (
		olderThan = flag.Int("older-than-minutes", 60, "Only release running jobs started, or pending jobs created, more than this many minutes ago")
		apply     = flag.Bool("apply", false, "Release matching jobs. Without this flag, the command is a dry-run preview.")
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

	if !*apply {
		var stuck int64
		err := db.QueryRow(`
			SELECT COUNT(*)
			FROM scrape_jobs
			WHERE (
				status = 'running'
				AND started_at IS NOT NULL
				AND started_at < datetime('now', '-' || ? || ' minutes')
			) OR (
				status = 'pending'
				AND created_at < datetime('now', '-' || ? || ' minutes')
			)
		`, *olderThan, *olderThan).Scan(&stuck)
		if err != nil {
			slog.Error("failed to count stuck jobs", "error", err)
			os.Exit(1)
		}

		slog.Info("dry run, no changes made", "stuck_jobs", stuck, "older_than_minutes", *olderThan)
		if stuck > 0 {
			slog.Info("re-run with -apply to release them")
		}
		return
	}

	released, err := repository.NewJobRepository(db).ReleaseStuckJobs(*olderThan)
	if err != nil {
		slog.Error("failed to release stuck jobs", "error", err)
		os.Exit(1)
	}

	slog.Info("stuck jobs released", "released", released, "older_than_minutes", *olderThan)
}

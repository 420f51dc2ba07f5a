package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/axolotly/content-tagger/backend/internal/config"
	"github.com/axolotly/content-tagger/backend/internal/fandom"
	"github.com/axolotly/content-tagger/backend/internal/models"
	"github.com/axolotly/content-tagger/backend/internal/notifications"
	"github.com/axolotly/content-tagger/backend/internal/repository"
	"github.com/axolotly/content-tagger/backend/internal/scrape"
)

// Category membership is coarse evidence, so legacy runs write tags below
// the admin endpoint's default.
const legacyRunConfidence = 0.7

type JobStore interface {
	CreateJob(job models.ScrapeJob, runs []repository.RunSpec) (int64, error)
	GetJob(id int64) (*models.ScrapeJob, error)
	ListRuns(jobID int64) ([]models.ScrapeRun, error)
	MarkJobRunning(id int64) error
	MarkJobCompleted(id int64) error
	MarkJobFailed(id int64, message string) error
	MarkRunRunning(id int64) error
	FinishRun(id int64, status string, episodesFound, episodesTagged int, errorMessage *string) error
	UpdateJobCounters(id int64, runStatus string, episodesTagged int) error
	GetScrapeState(titleID, tagID int64) (*models.TagScrapeState, error)
	UpsertScrapeState(titleID, tagID int64, status string, episodesFound int) error
}

type TitleStore interface {
	TitleByID(id int64) (*models.Title, error)
	ListEligibleTitles(filter []int64) ([]models.Title, error)
}

type TagSourceStore interface {
	ListActiveTags(filter []int64) ([]models.ContentTag, error)
	ListActiveSourcesForTag(tagID int64) ([]models.TagSource, error)
}

type ShowScraper interface {
	ScrapeShow(ctx context.Context, titleID int64, tagFilter []int64) (scrape.ShowStats, error)
}

type CategoryScraper interface {
	ScrapeCategory(ctx context.Context, wiki, category string, confidence float64) (scrape.LegacyStats, error)
}

// Coordinator owns the scrape job lifecycle: fan a job out into (title, tag)
// runs at creation, then execute the runs one at a time. One run failing is
// a statistic; only coordinator-level failures fail the whole job.
type Coordinator struct {
	jobs       JobStore
	titles     TitleStore
	tags       TagSourceStore
	shows      ShowScraper
	categories CategoryScraper
	notifier   notifications.Notifier
	strategy   string
	runDelay   time.Duration
	logger     *slog.Logger
}

type Config struct {
	// Strategy selects how one run scrapes: config.StrategyEnhanced walks
	// the show's own wiki per tag, config.StrategyCategory walks each
	// tag source category.
	Strategy string
	RunDelay time.Duration
}

func New(jobs JobStore, titles TitleStore, tags TagSourceStore, shows ShowScraper, categories CategoryScraper, notifier notifications.Notifier, cfg Config, logger *slog.Logger) *Coordinator {
	if cfg.Strategy == "" {
		cfg.Strategy = config.StrategyCategory
	}
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		jobs:       jobs,
		titles:     titles,
		tags:       tags,
		shows:      shows,
		categories: categories,
		notifier:   notifier,
		strategy:   cfg.Strategy,
		runDelay:   cfg.RunDelay,
		logger:     logger,
	}
}

// CreateJob records a new job and its full fan-out of pending runs: one run
// per eligible (title, tag) pair after applying the request filters.
func (c *Coordinator) CreateJob(requestedBy string, titleIDs, tagIDs []int64, forceRescrape bool) (*models.ScrapeJob, error) {
	titles, err := c.titles.ListEligibleTitles(titleIDs)
	if err != nil {
		return nil, fmt.Errorf("load eligible titles: %w", err)
	}

	tags, err := c.tags.ListActiveTags(tagIDs)
	if err != nil {
		return nil, fmt.Errorf("load eligible tags: %w", err)
	}

	runs := make([]repository.RunSpec, 0, len(titles)*len(tags))
	for _, title := range titles {
		for _, tag := range tags {
			runs = append(runs, repository.RunSpec{TitleID: title.ID, TagID: tag.ID})
		}
	}

	jobID, err := c.jobs.CreateJob(models.ScrapeJob{
		RequestedBy:   requestedBy,
		TitleFilter:   titleIDs,
		TagFilter:     tagIDs,
		ForceRescrape: forceRescrape,
		TotalTitles:   len(titles),
		TotalTags:     len(tags),
	}, runs)
	if err != nil {
		return nil, err
	}

	c.logger.Info("scrape job created", "job_id", jobID, "titles", len(titles), "tags", len(tags), "runs", len(runs))

	return c.jobs.GetJob(jobID)
}

func (c *Coordinator) GetJob(id int64) (*models.ScrapeJob, error) {
	return c.jobs.GetJob(id)
}

func (c *Coordinator) ListRuns(jobID int64) ([]models.ScrapeRun, error) {
	return c.jobs.ListRuns(jobID)
}

// ExecuteJob works through a job's pending runs sequentially. Every run ends
// in exactly one of completed, skipped or failed, and the job's processed
// count ends equal to its run count unless the coordinator itself fails.
func (c *Coordinator) ExecuteJob(ctx context.Context, jobID int64) error {
	job, err := c.jobs.GetJob(jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %d not found", jobID)
	}

	if err := c.jobs.MarkJobRunning(jobID); err != nil {
		return err
	}

	if err := c.executeRuns(ctx, job); err != nil {
		c.failJob(jobID, err)
		return err
	}

	if err := c.jobs.MarkJobCompleted(jobID); err != nil {
		return err
	}

	c.notifyDone(jobID)
	return nil
}

func (c *Coordinator) executeRuns(ctx context.Context, job *models.ScrapeJob) error {
	runs, err := c.jobs.ListRuns(job.ID)
	if err != nil {
		return err
	}

	for _, run := range runs {
		if run.Status != models.RunStatusPending {
			continue
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("job interrupted: %w", err)
		}

		skip, err := c.shouldSkipRun(run, job.ForceRescrape)
		if err != nil {
			return err
		}
		if skip {
			if err := c.jobs.FinishRun(run.ID, models.RunStatusSkipped, 0, 0, nil); err != nil {
				return err
			}
			if err := c.jobs.UpdateJobCounters(job.ID, models.RunStatusSkipped, 0); err != nil {
				return err
			}
			continue
		}

		result := c.executeRun(ctx, run)

		var errorMessage *string
		if result.err != nil {
			message := result.err.Error()
			errorMessage = &message
		}
		if err := c.jobs.FinishRun(run.ID, result.status, result.episodesFound, result.episodesTagged, errorMessage); err != nil {
			return err
		}
		if err := c.jobs.UpdateJobCounters(job.ID, result.status, result.episodesTagged); err != nil {
			return err
		}

		stateStatus := "success"
		if result.status == models.RunStatusFailed {
			stateStatus = "failed"
		}
		if err := c.jobs.UpsertScrapeState(run.TitleID, run.TagID, stateStatus, result.episodesFound); err != nil {
			return err
		}

		if c.runDelay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("job interrupted: %w", ctx.Err())
			case <-time.After(c.runDelay):
			}
		}
	}

	return nil
}

// shouldSkipRun reports whether a cached successful scrape of this
// (title, tag) pair makes the run redundant.
func (c *Coordinator) shouldSkipRun(run models.ScrapeRun, force bool) (bool, error) {
	if force {
		return false, nil
	}

	state, err := c.jobs.GetScrapeState(run.TitleID, run.TagID)
	if err != nil {
		return false, err
	}
	if state == nil {
		return false, nil
	}

	return state.LastStatus == "success" && state.EpisodesFound > 0, nil
}

// runResult is the value a run execution reduces to. A failed run carries
// its cause in err but is not itself an error: the job keeps going.
type runResult struct {
	status         string
	episodesFound  int
	episodesTagged int
	err            error
}

func (c *Coordinator) executeRun(ctx context.Context, run models.ScrapeRun) runResult {
	if err := c.jobs.MarkRunRunning(run.ID); err != nil {
		return runResult{status: models.RunStatusFailed, err: err}
	}

	var result runResult
	if c.strategy == config.StrategyEnhanced {
		result = c.runEnhanced(ctx, run)
	} else {
		result = c.runCategories(ctx, run)
	}

	if result.status == models.RunStatusFailed {
		c.logger.Warn("scrape run failed", "run_id", run.ID, "title_id", run.TitleID, "tag_id", run.TagID, "error", result.err)
	} else {
		c.logger.Info("scrape run finished", "run_id", run.ID, "title_id", run.TitleID, "tag_id", run.TagID,
			"found", result.episodesFound, "tagged", result.episodesTagged)
	}

	return result
}

func (c *Coordinator) runEnhanced(ctx context.Context, run models.ScrapeRun) runResult {
	stats, err := c.shows.ScrapeShow(ctx, run.TitleID, []int64{run.TagID})
	if err != nil {
		return runResult{status: models.RunStatusFailed, err: err}
	}

	return runResult{
		status:         models.RunStatusCompleted,
		episodesFound:  stats.EpisodesMatched,
		episodesTagged: stats.EpisodesTagged,
	}
}

// runCategories walks every active source category for the run's tag on the
// show's wiki. The run fails only when no source yields anything.
func (c *Coordinator) runCategories(ctx context.Context, run models.ScrapeRun) runResult {
	title, err := c.titles.TitleByID(run.TitleID)
	if err != nil {
		return runResult{status: models.RunStatusFailed, err: err}
	}
	if title == nil {
		return runResult{status: models.RunStatusFailed, err: fmt.Errorf("title %d not found", run.TitleID)}
	}

	wiki := fandom.Slugify(title.Name)
	if title.WikiSlug != nil && *title.WikiSlug != "" {
		wiki = *title.WikiSlug
	}

	sources, err := c.tags.ListActiveSourcesForTag(run.TagID)
	if err != nil {
		return runResult{status: models.RunStatusFailed, err: err}
	}
	if len(sources) == 0 {
		return runResult{status: models.RunStatusFailed, err: fmt.Errorf("no tag sources configured for tag %d", run.TagID)}
	}

	result := runResult{status: models.RunStatusCompleted}
	var lastErr error
	succeededSources := 0

	for _, source := range sources {
		sourceWiki := wiki
		if source.WikiSlug != nil && *source.WikiSlug != "" {
			sourceWiki = *source.WikiSlug
		}

		stats, err := c.categories.ScrapeCategory(ctx, sourceWiki, source.CategoryName, legacyRunConfidence)
		if err != nil {
			lastErr = err
			continue
		}

		succeededSources++
		result.episodesFound += stats.EpisodesFound
		result.episodesTagged += stats.EpisodesTagged
	}

	if succeededSources == 0 {
		return runResult{status: models.RunStatusFailed, err: fmt.Errorf("all %d sources failed: %w", len(sources), lastErr)}
	}

	return result
}

func (c *Coordinator) failJob(jobID int64, cause error) {
	if err := c.jobs.MarkJobFailed(jobID, cause.Error()); err != nil {
		c.logger.Error("mark job failed", "job_id", jobID, "error", err)
	}
	c.notifyDone(jobID)
}

func (c *Coordinator) notifyDone(jobID int64) {
	job, err := c.jobs.GetJob(jobID)
	if err != nil || job == nil {
		return
	}

	event := notifications.JobEvent{
		Event:          "scrape_job_finished",
		JobID:          job.ID,
		Status:         job.Status,
		ProcessedCount: job.ProcessedCount,
		SuccessCount:   job.SuccessCount,
		FailedCount:    job.FailedCount,
		EpisodesTagged: job.EpisodesTagged,
	}
	if job.ErrorMessage != nil {
		event.ErrorMessage = *job.ErrorMessage
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.notifier.Notify(ctx, event); err != nil {
		c.logger.Warn("job notification failed", "job_id", jobID, "error", err)
	}
}

package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/axolotly/content-tagger/backend/internal/models"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// RunSpec is one (title, tag) unit of work fanned out at job creation time.
type RunSpec struct {
	TitleID int64
	TagID   int64
}

// CreateJob inserts the job row and its full fan-out of pending runs in one
// transaction, so a job is never visible without its runs.
func (r *JobRepository) CreateJob(job models.ScrapeJob, runs []RunSpec) (int64, error) {
	titleFilter, err := encodeFilter(job.TitleFilter)
	if err != nil {
		return 0, fmt.Errorf("encode title filter: %w", err)
	}
	tagFilter, err := encodeFilter(job.TagFilter)
	if err != nil {
		return 0, fmt.Errorf("encode tag filter: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin create job: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO scrape_jobs (requested_by, status, title_filter, tag_filter, force_rescrape, total_titles, total_tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, job.RequestedBy, models.JobStatusPending, titleFilter, tagFilter, job.ForceRescrape, job.TotalTitles, job.TotalTags)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}

	jobID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("job id: %w", err)
	}

	for _, run := range runs {
		_, err := tx.Exec(`
			INSERT INTO scrape_runs (job_id, title_id, tag_id, status)
			VALUES (?, ?, ?, ?)
		`, jobID, run.TitleID, run.TagID, models.RunStatusPending)
		if err != nil {
			return 0, fmt.Errorf("insert run for title %d tag %d: %w", run.TitleID, run.TagID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create job: %w", err)
	}

	return jobID, nil
}

func (r *JobRepository) GetJob(id int64) (*models.ScrapeJob, error) {
	row := r.db.QueryRow(`
		SELECT id, requested_by, status, title_filter, tag_filter, force_rescrape,
			total_titles, total_tags, processed_count, success_count, failed_count, episodes_tagged,
			error_message, created_at, started_at, completed_at
		FROM scrape_jobs
		WHERE id = ?
	`, id)

	job, err := scanJob(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	return job, nil
}

func (r *JobRepository) ListJobs(limit int) ([]models.ScrapeJob, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, requested_by, status, title_filter, tag_filter, force_rescrape,
			total_titles, total_tags, processed_count, success_count, failed_count, episodes_tagged,
			error_message, created_at, started_at, completed_at
		FROM scrape_jobs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	items := make([]models.ScrapeJob, 0)
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		items = append(items, *job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}

	return items, nil
}

func (r *JobRepository) ListRuns(jobID int64) ([]models.ScrapeRun, error) {
	rows, err := r.db.Query(`
		SELECT id, job_id, title_id, tag_id, status, episodes_found, episodes_tagged,
			error_message, created_at, started_at, completed_at
		FROM scrape_runs
		WHERE job_id = ?
		ORDER BY id ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	items := make([]models.ScrapeRun, 0)
	for rows.Next() {
		var run models.ScrapeRun
		var errorMessage sql.NullString
		var startedAt, completedAt sql.NullTime
		if err := rows.Scan(
			&run.ID, &run.JobID, &run.TitleID, &run.TagID, &run.Status,
			&run.EpisodesFound, &run.EpisodesTagged,
			&errorMessage, &run.CreatedAt, &startedAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if errorMessage.Valid {
			run.ErrorMessage = &errorMessage.String
		}
		if startedAt.Valid {
			run.StartedAt = &startedAt.Time
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		items = append(items, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return items, nil
}

func (r *JobRepository) MarkJobRunning(id int64) error {
	_, err := r.db.Exec(`
		UPDATE scrape_jobs
		SET status = ?, started_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, models.JobStatusRunning, id)
	if err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	return nil
}

func (r *JobRepository) MarkJobCompleted(id int64) error {
	_, err := r.db.Exec(`
		UPDATE scrape_jobs
		SET status = ?, completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, models.JobStatusCompleted, id)
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	return nil
}

func (r *JobRepository) MarkJobFailed(id int64, message string) error {
	_, err := r.db.Exec(`
		UPDATE scrape_jobs
		SET status = ?, error_message = ?, completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, models.JobStatusFailed, message, id)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}

func (r *JobRepository) MarkRunRunning(id int64) error {
	_, err := r.db.Exec(`
		UPDATE scrape_runs
		SET status = ?, started_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, models.RunStatusRunning, id)
	if err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}
	return nil
}

// FinishRun records the terminal status and counters for one run.
func (r *JobRepository) FinishRun(id int64, status string, episodesFound, episodesTagged int, errorMessage *string) error {
	_, err := r.db.Exec(`
		UPDATE scrape_runs
		SET status = ?, episodes_found = ?, episodes_tagged = ?, error_message = ?, completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, episodesFound, episodesTagged, errorMessage, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// UpdateJobCounters adds one processed run to the job's rollup counters.
// Skipped runs count toward processed only.
func (r *JobRepository) UpdateJobCounters(id int64, runStatus string, episodesTagged int) error {
	successDelta := 0
	failedDelta := 0
	switch runStatus {
	case models.RunStatusCompleted:
		successDelta = 1
	case models.RunStatusFailed:
		failedDelta = 1
	}

	_, err := r.db.Exec(`
		UPDATE scrape_jobs
		SET processed_count = processed_count + 1,
			success_count = success_count + ?,
			failed_count = failed_count + ?,
			episodes_tagged = episodes_tagged + ?
		WHERE id = ?
	`, successDelta, failedDelta, episodesTagged, id)
	if err != nil {
		return fmt.Errorf("update job counters: %w", err)
	}
	return nil
}

func (r *JobRepository) GetScrapeState(titleID, tagID int64) (*models.TagScrapeState, error) {
	row := r.db.QueryRow(`
		SELECT id, title_id, tag_id, last_status, episodes_found, last_scraped_at, updated_at
		FROM tag_scrape_state
		WHERE title_id = ? AND tag_id = ?
	`, titleID, tagID)

	var state models.TagScrapeState
	err := row.Scan(&state.ID, &state.TitleID, &state.TagID, &state.LastStatus, &state.EpisodesFound, &state.LastScrapedAt, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scrape state: %w", err)
	}

	return &state, nil
}

func (r *JobRepository) UpsertScrapeState(titleID, tagID int64, status string, episodesFound int) error {
	_, err := r.db.Exec(`
		INSERT INTO tag_scrape_state (title_id, tag_id, last_status, episodes_found, last_scraped_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(title_id, tag_id)
		DO UPDATE SET
			last_status = excluded.last_status,
			episodes_found = excluded.episodes_found,
			last_scraped_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
	`, titleID, tagID, status, episodesFound)
	if err != nil {
		return fmt.Errorf("upsert scrape state: %w", err)
	}
	return nil
}

// ReleaseStuckJobs fails jobs stuck past the given age, along with their
// unfinished runs. Covers both jobs that died mid-execution (running, by
// start time) and jobs whose submission was never picked up (pending, by
// creation time). Used by the operator tool after a crash.
func (r *JobRepository) ReleaseStuckJobs(olderThanMinutes int) (int64, error) {
	result, err := r.db.Exec(`
		UPDATE scrape_jobs
		SET status = ?, error_message = 'released: exceeded deadline', completed_at = CURRENT_TIMESTAMP
		WHERE (
			status = ?
			AND started_at IS NOT NULL
			AND started_at < datetime('now', '-' || ? || ' minutes')
		) OR (
			status = ?
			AND created_at < datetime('now', '-' || ? || ' minutes')
		)
	`, models.JobStatusFailed, models.JobStatusRunning, olderThanMinutes, models.JobStatusPending, olderThanMinutes)
	if err != nil {
		return 0, fmt.Errorf("release stuck jobs: %w", err)
	}

	released, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("released count: %w", err)
	}

	if released > 0 {
		_, err = r.db.Exec(`
			UPDATE scrape_runs
			SET status = ?, error_message = 'released with job', completed_at = CURRENT_TIMESTAMP
			WHERE status IN (?, ?)
			AND job_id IN (SELECT id FROM scrape_jobs WHERE status = ? AND error_message = 'released: exceeded deadline')
		`, models.RunStatusFailed, models.RunStatusPending, models.RunStatusRunning, models.JobStatusFailed)
		if err != nil {
			return released, fmt.Errorf("release stuck runs: %w", err)
		}
	}

	return released, nil
}

func encodeFilter(ids []int64) (*string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	encoded := string(raw)
	return &encoded, nil
}

func decodeFilter(raw sql.NullString) ([]int64, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(raw.String), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func scanJob(scan func(dest ...any) error) (*models.ScrapeJob, error) {
	var job models.ScrapeJob
	var titleFilter, tagFilter, errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime

	err := scan(
		&job.ID, &job.RequestedBy, &job.Status, &titleFilter, &tagFilter, &job.ForceRescrape,
		&job.TotalTitles, &job.TotalTags, &job.ProcessedCount, &job.SuccessCount, &job.FailedCount, &job.EpisodesTagged,
		&errorMessage, &job.CreatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	if job.TitleFilter, err = decodeFilter(titleFilter); err != nil {
		return nil, fmt.Errorf("decode title filter: %w", err)
	}
	if job.TagFilter, err = decodeFilter(tagFilter); err != nil {
		return nil, fmt.Errorf("decode tag filter: %w", err)
	}
	if errorMessage.Valid {
		job.ErrorMessage = &errorMessage.String
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}

	return &job, nil
}

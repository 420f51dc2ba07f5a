package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/axolotly/content-tagger/backend/internal/config"
	"github.com/axolotly/content-tagger/backend/internal/coordinator"
	"github.com/axolotly/content-tagger/backend/internal/database"
	"github.com/axolotly/content-tagger/backend/internal/fandom"
	"github.com/axolotly/content-tagger/backend/internal/models"
	"github.com/axolotly/content-tagger/backend/internal/repository"
	"github.com/axolotly/content-tagger/backend/internal/scheduler"
	"github.com/axolotly/content-tagger/backend/internal/scrape"
	"github.com/gofiber/fiber/v2"
)

// stubLister feeds the legacy scraper canned category listings so route
// tests never touch the network.
type stubLister struct {
	members map[string][]fandom.PageCandidate
}

func (s *stubLister) CategoryMembers(_ context.Context, _, category string, _ int) []fandom.PageCandidate {
	return s.members[category]
}

func (s *stubLister) PageURL(wiki, pageTitle string) string {
	return "https://" + wiki + ".fandom.com/wiki/" + pageTitle
}

type testApp struct {
	app *fiber.App
	db  *sql.DB
}

func setupTestApp(t *testing.T, lister *stubLister) *testApp {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, thisFile, _, _ := runtime.Caller(0)
	migrationsPath := filepath.Join(filepath.Dir(thisFile), "..", "..", "migrations")
	if err := database.ApplyMigrations(db, migrationsPath); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if lister == nil {
		lister = &stubLister{}
	}

	jobRepo := repository.NewJobRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	tagRepo := repository.NewTagRepository(db)

	legacy := scrape.NewLegacyScraper(lister, catalogRepo, tagRepo, nil)
	coord := coordinator.New(jobRepo, catalogRepo, tagRepo, nil, legacy, nil, coordinator.Config{}, nil)

	// The queue is never started: enqueued jobs sit in the buffer, so
	// created jobs stay pending and responses are deterministic.
	queue := scheduler.NewWorkQueue(coord, scheduler.WorkQueueConfig{QueueSize: 16}, nil)

	app := NewServer(config.Config{AppName: "content-tagger-test"}, db, Deps{
		Coordinator: coord,
		Queue:       queue,
		Legacy:      legacy,
	})

	return &testApp{app: app, db: db}
}

func (ta *testApp) exec(t *testing.T, query string, args ...any) int64 {
	t.Helper()
	result, err := ta.db.Exec(query, args...)
	if err != nil {
		t.Fatalf("exec fixture: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

func (ta *testApp) request(t *testing.T, method, target string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ta := setupTestApp(t, nil)

	resp := ta.request(t, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" || body["db"] != "up" {
		t.Fatalf("health body = %v", body)
	}
}

func TestCreateJobFansOutAndStaysPending(t *testing.T) {
	ta := setupTestApp(t, nil)

	blueyID := ta.exec(t, `INSERT INTO titles (name, media_type) VALUES ('Bluey', 'tv')`)
	peppaID := ta.exec(t, `INSERT INTO titles (name, media_type) VALUES ('Peppa Pig', 'tv')`)
	ta.exec(t, `INSERT INTO episodes (title_id, season_number, episode_number, name) VALUES (?, 1, 1, 'Magic Xylophone')`, blueyID)
	ta.exec(t, `INSERT INTO episodes (title_id, season_number, episode_number, name) VALUES (?, 1, 1, 'Muddy Puddles')`, peppaID)
	tagID := ta.exec(t, `INSERT INTO content_tags (slug, display_name, category) VALUES ('spiders', 'Spiders', 'creatures')`)
	ta.exec(t, `INSERT INTO tag_sources (tag_id, category_name, priority, is_active) VALUES (?, 'Spiders', 10, 1)`, tagID)

	resp := ta.request(t, http.MethodPost, "/v1/scrape-jobs", map[string]any{})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var job models.ScrapeJob
	decodeBody(t, resp, &job)
	if job.Status != models.JobStatusPending {
		t.Fatalf("job status = %q, want pending", job.Status)
	}
	if job.RequestedBy != "api" {
		t.Fatalf("requested by = %q, want api default", job.RequestedBy)
	}
	if job.TotalTitles != 2 || job.TotalTags != 1 {
		t.Fatalf("totals = %d/%d, want 2 titles and 1 tag", job.TotalTitles, job.TotalTags)
	}

	resp = ta.request(t, http.MethodGet, "/v1/scrape-jobs/"+itoa(job.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get job status = %d, want 200", resp.StatusCode)
	}

	resp = ta.request(t, http.MethodGet, "/v1/scrape-jobs/"+itoa(job.ID)+"/runs", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list runs status = %d, want 200", resp.StatusCode)
	}

	var runsBody struct {
		Items []models.ScrapeRun `json:"items"`
	}
	decodeBody(t, resp, &runsBody)
	if len(runsBody.Items) != 2 {
		t.Fatalf("runs = %d, want one per (title, tag) pair", len(runsBody.Items))
	}
	for _, run := range runsBody.Items {
		if run.Status != models.RunStatusPending || run.TagID != tagID {
			t.Fatalf("run = %+v, want pending spiders run", run)
		}
	}
}

func TestGetJobErrors(t *testing.T) {
	ta := setupTestApp(t, nil)

	resp := ta.request(t, http.MethodGet, "/v1/scrape-jobs/9999", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing job status = %d, want 404", resp.StatusCode)
	}

	resp = ta.request(t, http.MethodGet, "/v1/scrape-jobs/abc", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", resp.StatusCode)
	}

	resp = ta.request(t, http.MethodGet, "/v1/scrape-jobs/9999/runs", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing job runs status = %d, want 404", resp.StatusCode)
	}
}

func TestScrapeCategoryValidation(t *testing.T) {
	ta := setupTestApp(t, nil)

	resp := ta.request(t, http.MethodPost, "/v1/scrape/category", map[string]any{"wiki": "", "category": "Spiders"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty wiki status = %d, want 400", resp.StatusCode)
	}

	resp = ta.request(t, http.MethodPost, "/v1/scrape/category", map[string]any{"wiki": "bluey", "category": "Spiders", "confidence": 1.5})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad confidence status = %d, want 400", resp.StatusCode)
	}

	resp = ta.request(t, http.MethodPost, "/v1/scrape/category", map[string]any{"wiki": "bluey", "category": "Totally Unrelated", "confidence": 0.8})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unmappable category status = %d, want 422", resp.StatusCode)
	}
}

func TestScrapeCategoryTagsEpisodes(t *testing.T) {
	lister := &stubLister{members: map[string][]fandom.PageCandidate{
		"Spiders": {
			{PageTitle: "Magic Xylophone (episode)"},
			{PageTitle: "Not A Real Page"},
		},
	}}
	ta := setupTestApp(t, lister)

	blueyID := ta.exec(t, `INSERT INTO titles (name, media_type) VALUES ('Bluey', 'tv')`)
	episodeID := ta.exec(t, `INSERT INTO episodes (title_id, season_number, episode_number, name) VALUES (?, 1, 1, 'Magic Xylophone')`, blueyID)
	tagID := ta.exec(t, `INSERT INTO content_tags (slug, display_name, category) VALUES ('spiders', 'Spiders', 'creatures')`)

	resp := ta.request(t, http.MethodPost, "/v1/scrape/category", map[string]any{"wiki": "bluey", "category": "Spiders", "confidence": 0.8})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var stats scrape.LegacyStats
	decodeBody(t, resp, &stats)
	if stats.Tag != "spiders" || stats.EpisodesTagged != 1 {
		t.Fatalf("stats = %+v, want one tagged spiders episode", stats)
	}

	var count int
	if err := ta.db.QueryRow(`
		SELECT COUNT(1) FROM episode_tags WHERE episode_id = ? AND tag_id = ?
	`, episodeID, tagID).Scan(&count); err != nil {
		t.Fatalf("count episode tags: %v", err)
	}
	if count != 1 {
		t.Fatalf("episode tag rows = %d, want 1", count)
	}
}

func TestListEpisodeTags(t *testing.T) {
	ta := setupTestApp(t, nil)

	blueyID := ta.exec(t, `INSERT INTO titles (name, media_type) VALUES ('Bluey', 'tv')`)
	episodeID := ta.exec(t, `INSERT INTO episodes (title_id, season_number, episode_number, name) VALUES (?, 1, 1, 'Magic Xylophone')`, blueyID)
	spidersID := ta.exec(t, `INSERT INTO content_tags (slug, display_name, category) VALUES ('spiders', 'Spiders', 'creatures')`)
	darknessID := ta.exec(t, `INSERT INTO content_tags (slug, display_name, category) VALUES ('darkness', 'Darkness', 'situations')`)
	ta.exec(t, `INSERT INTO episode_tags (episode_id, tag_id, source, confidence) VALUES (?, ?, 'scrape', 0.8)`, episodeID, spidersID)
	ta.exec(t, `INSERT INTO episode_tags (episode_id, tag_id, source, confidence) VALUES (?, ?, 'scrape', 0.7)`, episodeID, darknessID)

	resp := ta.request(t, http.MethodGet, "/v1/episode-tags?titleId="+itoa(blueyID)+"&tag=spiders", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Items []repository.EpisodeTagRow `json:"items"`
	}
	decodeBody(t, resp, &body)
	if len(body.Items) != 1 {
		t.Fatalf("items = %+v, want the single spiders row", body.Items)
	}
	row := body.Items[0]
	if row.TagSlug != "spiders" || row.EpisodeID != episodeID || row.Confidence != 0.8 {
		t.Fatalf("row = %+v", row)
	}

	resp = ta.request(t, http.MethodGet, "/v1/episode-tags?titleId=-1", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad titleId status = %d, want 400", resp.StatusCode)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

package models

import "time"

// Title and Episode rows are read-only catalog inputs. They are written by
// the catalog sync process, never by the scraping subsystem.
type Title struct {
	ID        int64     `json:"id"`
	TmdbID    *int64    `json:"tmdbId,omitempty"`
	Name      string    `json:"name"`
	MediaType string    `json:"mediaType"`
	WikiSlug  *string   `json:"wikiSlug,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Episode struct {
	ID            int64     `json:"id"`
	TitleID       int64     `json:"titleId"`
	SeasonNumber  int       `json:"seasonNumber"`
	EpisodeNumber int       `json:"episodeNumber"`
	Name          *string   `json:"name,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type ContentTag struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	DisplayName string    `json:"displayName"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EpisodeTag links an episode to a content tag with provenance. Unique per
// (episode, tag); repeated scrapes must not duplicate rows.
type EpisodeTag struct {
	ID               int64     `json:"id"`
	EpisodeID        int64     `json:"episodeId"`
	TagID            int64     `json:"tagId"`
	Source           string    `json:"source"`
	Confidence       float64   `json:"confidence"`
	SourceURL        *string   `json:"sourceUrl,omitempty"`
	ExtractionMethod *string   `json:"extractionMethod,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// FandomEpisodeLink records the best known mapping from a wiki page to a
// catalog episode. Unique per (title, season, episode); later matches
// overwrite earlier ones for the same key.
type FandomEpisodeLink struct {
	ID              int64     `json:"id"`
	TitleID         int64     `json:"titleId"`
	EpisodeID       *int64    `json:"episodeId,omitempty"`
	SeasonNumber    int       `json:"seasonNumber"`
	EpisodeNumber   int       `json:"episodeNumber"`
	FandomPageID    *int64    `json:"fandomPageId,omitempty"`
	FandomPageTitle string    `json:"fandomPageTitle"`
	FandomURL       *string   `json:"fandomUrl,omitempty"`
	Confidence      float64   `json:"confidence"`
	MatchingMethod  string    `json:"matchingMethod"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type ShowConfig struct {
	ID              int64     `json:"id"`
	TitleID         int64     `json:"titleId"`
	WikiSlug        *string   `json:"wikiSlug,omitempty"`
	EpisodeListPage *string   `json:"episodeListPage,omitempty"`
	TableSelector   *string   `json:"tableSelector,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// TagSource tells the coordinator where to look for one tag. WikiSlug is
// optional; when empty the show's own wiki is used.
type TagSource struct {
	ID           int64     `json:"id"`
	TagID        int64     `json:"tagId"`
	WikiSlug     *string   `json:"wikiSlug,omitempty"`
	CategoryName string    `json:"categoryName"`
	Priority     int       `json:"priority"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"

	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusSkipped   = "skipped"
	RunStatusFailed    = "failed"
)

type ScrapeJob struct {
	ID             int64      `json:"id"`
	RequestedBy    string     `json:"requestedBy"`
	Status         string     `json:"status"`
	TitleFilter    []int64    `json:"titleFilter,omitempty"`
	TagFilter      []int64    `json:"tagFilter,omitempty"`
	ForceRescrape  bool       `json:"forceRescrape"`
	TotalTitles    int        `json:"totalTitles"`
	TotalTags      int        `json:"totalTags"`
	ProcessedCount int        `json:"processedCount"`
	SuccessCount   int        `json:"successCount"`
	FailedCount    int        `json:"failedCount"`
	EpisodesTagged int        `json:"episodesTagged"`
	ErrorMessage   *string    `json:"errorMessage,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

type ScrapeRun struct {
	ID             int64      `json:"id"`
	JobID          int64      `json:"jobId"`
	TitleID        int64      `json:"titleId"`
	TagID          int64      `json:"tagId"`
	Status         string     `json:"status"`
	EpisodesFound  int        `json:"episodesFound"`
	EpisodesTagged int        `json:"episodesTagged"`
	ErrorMessage   *string    `json:"errorMessage,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// TagScrapeState is the idempotency cache for one (title, tag) pair.
type TagScrapeState struct {
	ID            int64     `json:"id"`
	TitleID       int64     `json:"titleId"`
	TagID         int64     `json:"tagId"`
	LastStatus    string    `json:"lastStatus"`
	EpisodesFound int       `json:"episodesFound"`
	LastScrapedAt time.Time `json:"lastScrapedAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

package scrape

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/axolotly/content-tagger/backend/internal/fandom"
	"github.com/axolotly/content-tagger/backend/internal/matcher"
	"github.com/axolotly/content-tagger/backend/internal/models"
	"github.com/axolotly/content-tagger/backend/internal/tagging"
)

type CatalogStore interface {
	TitleByID(id int64) (*models.Title, error)
	ShowConfigForTitle(titleID int64) (*models.ShowConfig, error)
	TitlesMatchingName(fragment string) ([]models.Title, error)
	EpisodesForTitle(titleID int64) ([]matcher.CatalogEpisode, error)
}

type TagStore interface {
	ListTags() ([]models.ContentTag, error)
	TagBySlug(slug string) (*models.ContentTag, error)
	EpisodeTagExists(episodeID, tagID int64) (bool, error)
	InsertEpisodeTag(tag models.EpisodeTag) error
}

type CatalogBuilder interface {
	BuildCatalog(ctx context.Context, show fandom.ShowInput) []fandom.PageCandidate
}

type EpisodeMatcher interface {
	BatchMatch(titleID int64, candidates []matcher.Candidate) ([]matcher.MatchResult, error)
}

type TagExtractor interface {
	ExtractForMatch(ctx context.Context, wiki string, match matcher.MatchResult, keywords map[string]int64) (int, bool, error)
}

// ShowStats summarizes one full discover-match-extract pass over a show.
type ShowStats struct {
	Wiki            string `json:"wiki"`
	EpisodesFound   int    `json:"episodesFound"`
	EpisodesMatched int    `json:"episodesMatched"`
	EpisodesTagged  int    `json:"episodesTagged"`
	TagsAdded       int    `json:"tagsAdded"`
}

// Orchestrator drives the enhanced scrape for one show: build the wiki page
// catalog, match pages to catalog episodes, then extract tags from the
// matched pages.
type Orchestrator struct {
	catalog   CatalogStore
	tags      TagStore
	builder   CatalogBuilder
	matcher   EpisodeMatcher
	extractor TagExtractor
	logger    *slog.Logger
}

func NewOrchestrator(catalog CatalogStore, tags TagStore, builder CatalogBuilder, episodeMatcher EpisodeMatcher, extractor TagExtractor, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		catalog:   catalog,
		tags:      tags,
		builder:   builder,
		matcher:   episodeMatcher,
		extractor: extractor,
		logger:    logger,
	}
}

// ScrapeShow runs the full pipeline for one title. An empty tagFilter means
// every known tag is searched for. Errors here mean the show could not be
// scraped at all; per-page misses are just stats.
func (o *Orchestrator) ScrapeShow(ctx context.Context, titleID int64, tagFilter []int64) (ShowStats, error) {
	title, err := o.catalog.TitleByID(titleID)
	if err != nil {
		return ShowStats{}, err
	}
	if title == nil || title.MediaType != "tv" {
		return ShowStats{}, fmt.Errorf("title %d not found or not a tv show", titleID)
	}

	config, err := o.catalog.ShowConfigForTitle(titleID)
	if err != nil {
		return ShowStats{}, err
	}

	show := buildShowInput(*title, config)
	stats := ShowStats{Wiki: show.Wiki}

	candidates := o.builder.BuildCatalog(ctx, show)
	if len(candidates) == 0 {
		return stats, fmt.Errorf("no episode pages found on %s.fandom.com", show.Wiki)
	}
	stats.EpisodesFound = len(candidates)

	matchInput := make([]matcher.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		input := matcher.Candidate{
			PageTitle: candidate.PageTitle,
			PageID:    candidate.PageID,
			URL:       candidate.URL,
		}
		if candidate.HasNumbers {
			input.Season = candidate.Season
			input.Episode = candidate.Episode
		}
		matchInput = append(matchInput, input)
	}

	results, err := o.matcher.BatchMatch(titleID, matchInput)
	if err != nil {
		return stats, fmt.Errorf("match episodes: %w", err)
	}

	keywords, err := o.keywordTable(tagFilter)
	if err != nil {
		return stats, err
	}

	for _, result := range results {
		if result.EpisodeID == nil {
			continue
		}
		stats.EpisodesMatched++

		added, tagged, err := o.extractor.ExtractForMatch(ctx, show.Wiki, result, keywords)
		if err != nil {
			return stats, fmt.Errorf("extract tags for %q: %w", result.PageTitle, err)
		}
		stats.TagsAdded += added
		if tagged {
			stats.EpisodesTagged++
		}
	}

	o.logger.Info("show scrape finished",
		"title_id", titleID,
		"wiki", show.Wiki,
		"found", stats.EpisodesFound,
		"matched", stats.EpisodesMatched,
		"tagged", stats.EpisodesTagged,
		"tags_added", stats.TagsAdded,
	)

	return stats, nil
}

func (o *Orchestrator) keywordTable(tagFilter []int64) (map[string]int64, error) {
	tags, err := o.tags.ListTags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	if len(tagFilter) > 0 {
		wanted := make(map[int64]struct{}, len(tagFilter))
		for _, id := range tagFilter {
			wanted[id] = struct{}{}
		}
		filtered := tags[:0]
		for _, tag := range tags {
			if _, ok := wanted[tag.ID]; ok {
				filtered = append(filtered, tag)
			}
		}
		tags = filtered
	}

	return tagging.BuildKeywordTable(tags), nil
}

func buildShowInput(title models.Title, config *models.ShowConfig) fandom.ShowInput {
	show := fandom.ShowInput{
		TitleID: title.ID,
		Name:    title.Name,
	}

	if config != nil && config.WikiSlug != nil && *config.WikiSlug != "" {
		show.Wiki = *config.WikiSlug
	} else if title.WikiSlug != nil && *title.WikiSlug != "" {
		show.Wiki = *title.WikiSlug
	} else {
		show.Wiki = fandom.Slugify(title.Name)
	}

	if config != nil {
		if config.EpisodeListPage != nil {
			show.EpisodeListPage = *config.EpisodeListPage
		}
		if config.TableSelector != nil {
			show.TableSelector = *config.TableSelector
		}
	}

	return show
}

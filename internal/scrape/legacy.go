package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/axolotly/content-tagger/backend/internal/fandom"
	"github.com/axolotly/content-tagger/backend/internal/matcher"
	"github.com/axolotly/content-tagger/backend/internal/models"
	"github.com/axolotly/content-tagger/backend/internal/tagging"
)

const (
	defaultLegacyConfidence = 0.8
	categoryMemberLimit     = 500
)

var parentheticalPattern = regexp.MustCompile(`\([^)]*\)`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// wikiShowNames maps well-known wiki identifiers to the show name fragments
// used to find their titles in the catalog. Unlisted wikis fall back to the
// identifier itself with dashes as spaces.
var wikiShowNames = map[string][]string{
	"pawpatrol":    {"PAW Patrol", "Paw Patrol"},
	"peppa-pig":    {"Peppa Pig"},
	"bluey":        {"Bluey"},
	"daniel-tiger": {"Daniel Tiger"},
}

type CategoryLister interface {
	CategoryMembers(ctx context.Context, wiki, category string, limit int) []fandom.PageCandidate
	PageURL(wiki, pageTitle string) string
}

// LegacyStats is the per-category result shape of the original single-tag
// strategy, kept for the admin endpoint.
type LegacyStats struct {
	Tag                   string `json:"tag"`
	Category              string `json:"category"`
	TotalPages            int    `json:"totalPages"`
	EpisodesFound         int    `json:"episodesFound"`
	EpisodesTagged        int    `json:"episodesTagged"`
	EpisodesAlreadyTagged int    `json:"episodesAlreadyTagged"`
	EpisodesNotInDB       int    `json:"episodesNotInDb"`
	FailedParses          int    `json:"failedParses"`
}

// LegacyScraper implements the original one-category-one-tag strategy: every
// page filed under a themed category evidences that category's tag for any
// episode whose name it contains.
type LegacyScraper struct {
	client  CategoryLister
	catalog CatalogStore
	tags    TagStore
	logger  *slog.Logger
}

func NewLegacyScraper(client CategoryLister, catalog CatalogStore, tags TagStore, logger *slog.Logger) *LegacyScraper {
	if logger == nil {
		logger = slog.Default()
	}
	return &LegacyScraper{client: client, catalog: catalog, tags: tags, logger: logger}
}

// ScrapeCategory tags every catalog episode named by a member of the given
// wiki category. The category name itself selects the tag; confidence is
// caller-supplied because category membership is coarse evidence.
func (s *LegacyScraper) ScrapeCategory(ctx context.Context, wiki, category string, confidence float64) (LegacyStats, error) {
	if confidence <= 0 {
		confidence = defaultLegacyConfidence
	}

	tagSlug := tagging.CategoryTagSlug(category)
	if tagSlug == "" {
		return LegacyStats{}, fmt.Errorf("no matching tag for category %q", category)
	}

	tag, err := s.tags.TagBySlug(tagSlug)
	if err != nil {
		return LegacyStats{}, err
	}
	if tag == nil {
		return LegacyStats{}, fmt.Errorf("tag %q not in database", tagSlug)
	}

	members := s.client.CategoryMembers(ctx, wiki, category, categoryMemberLimit)
	if len(members) == 0 {
		return LegacyStats{}, fmt.Errorf("no members in category %q on %s.fandom.com", category, wiki)
	}

	stats := LegacyStats{
		Tag:        tagSlug,
		Category:   category,
		TotalPages: len(members),
	}

	episodes, err := s.episodesForWiki(wiki)
	if err != nil {
		return stats, err
	}

	for _, member := range members {
		if member.PageTitle == "" {
			stats.FailedParses++
			continue
		}

		matched := matchEpisodesByName(episodes, member.PageTitle)
		if len(matched) == 0 {
			stats.EpisodesNotInDB++
			continue
		}

		for _, episode := range matched {
			stats.EpisodesFound++

			exists, err := s.tags.EpisodeTagExists(episode.ID, tag.ID)
			if err != nil {
				return stats, fmt.Errorf("check episode tag: %w", err)
			}
			if exists {
				stats.EpisodesAlreadyTagged++
				continue
			}

			sourceURL := s.client.PageURL(wiki, member.PageTitle)
			method := tagging.MethodCategoryMembership
			err = s.tags.InsertEpisodeTag(models.EpisodeTag{
				EpisodeID:        episode.ID,
				TagID:            tag.ID,
				Source:           tagging.SourceScrape,
				Confidence:       confidence,
				SourceURL:        &sourceURL,
				ExtractionMethod: &method,
			})
			if err != nil {
				return stats, fmt.Errorf("insert episode tag: %w", err)
			}
			stats.EpisodesTagged++
		}
	}

	s.logger.Info("category scrape finished",
		"wiki", wiki,
		"category", category,
		"tag", tagSlug,
		"pages", stats.TotalPages,
		"tagged", stats.EpisodesTagged,
	)

	return stats, nil
}

// episodesForWiki collects every episode of every catalog title the wiki
// could belong to, deduplicated by episode id.
func (s *LegacyScraper) episodesForWiki(wiki string) ([]matcher.CatalogEpisode, error) {
	fragments, ok := wikiShowNames[strings.ToLower(wiki)]
	if !ok {
		fragments = []string{strings.ReplaceAll(wiki, "-", " ")}
	}

	seenTitles := make(map[int64]struct{})
	seenEpisodes := make(map[int64]struct{})
	episodes := make([]matcher.CatalogEpisode, 0, 64)

	for _, fragment := range fragments {
		titles, err := s.catalog.TitlesMatchingName(fragment)
		if err != nil {
			return nil, err
		}

		for _, title := range titles {
			if _, done := seenTitles[title.ID]; done {
				continue
			}
			seenTitles[title.ID] = struct{}{}

			titleEpisodes, err := s.catalog.EpisodesForTitle(title.ID)
			if err != nil {
				return nil, err
			}
			for _, episode := range titleEpisodes {
				if _, done := seenEpisodes[episode.ID]; done {
					continue
				}
				seenEpisodes[episode.ID] = struct{}{}
				episodes = append(episodes, episode)
			}
		}
	}

	return episodes, nil
}

// matchEpisodesByName finds episodes whose cleaned name contains, or is
// contained by, the cleaned page title. Multi-segment names like
// "Chickens / Fairies" match on either segment.
func matchEpisodesByName(episodes []matcher.CatalogEpisode, pageTitle string) []matcher.CatalogEpisode {
	cleaned := strings.ToLower(cleanEpisodeName(pageTitle))
	if cleaned == "" {
		return nil
	}

	matched := make([]matcher.CatalogEpisode, 0, 2)
	for _, episode := range episodes {
		if episode.Name == "" {
			continue
		}

		episodeName := strings.ToLower(cleanEpisodeName(episode.Name))
		if containsEither(cleaned, episodeName) {
			matched = append(matched, episode)
			continue
		}

		for _, segment := range strings.Split(episodeName, "/") {
			segment = strings.TrimSpace(segment)
			if segment != "" && containsEither(cleaned, segment) {
				matched = append(matched, episode)
				break
			}
		}
	}

	return matched
}

// cleanEpisodeName strips parenthetical qualifiers like "(episode)" and
// collapses whitespace.
func cleanEpisodeName(name string) string {
	name = parentheticalPattern.ReplaceAllString(name, "")
	name = whitespacePattern.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

func containsEither(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

package matcher

import (
	"fmt"
	"log/slog"

	"github.com/axolotly/content-tagger/backend/internal/models"
)

// Matching method labels recorded on links, in descending order of trust.
const (
	MethodHintBased         = "hint_based"
	MethodPatternExtraction = "pattern_extraction"
	MethodFuzzyNameMatch    = "fuzzy_name_match"
	MethodNoMatch           = "no_match"
	MethodLowConfidence     = "low_confidence"
	MethodNoEpisodes        = "no_episodes"
)

const (
	// Link persistence threshold: weaker results are reported but not stored.
	storeThreshold = 0.5
	// Fuzzy-only matches below this best score are rejected outright.
	fuzzyAcceptThreshold = 0.6
)

type CatalogEpisode struct {
	ID            int64
	SeasonNumber  int
	EpisodeNumber int
	Name          string
}

type EpisodeStore interface {
	EpisodeByNumber(titleID int64, season, episode int) (*CatalogEpisode, error)
	EpisodesForTitle(titleID int64) ([]CatalogEpisode, error)
}

type LinkStore interface {
	UpsertLink(link models.FandomEpisodeLink) error
}

// Candidate is one wiki page proposed as an episode of a show.
type Candidate struct {
	PageTitle string
	PageID    int64
	URL       string
	Season    int
	Episode   int
}

// MatchResult reports the outcome of matching one candidate page. A miss is
// a normal result with Confidence 0, not an error.
type MatchResult struct {
	EpisodeID     *int64
	Confidence    float64
	Method        string
	SeasonNumber  int
	EpisodeNumber int
	PageTitle     string
}

type Matcher struct {
	episodes EpisodeStore
	links    LinkStore
	logger   *slog.Logger
}

func New(episodes EpisodeStore, links LinkStore, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{episodes: episodes, links: links, logger: logger}
}

// MatchEpisode resolves a wiki page title to a catalog episode. Season and
// episode hints take priority; otherwise numbers are extracted from the page
// title; otherwise matching falls back to name similarity alone.
func (m *Matcher) MatchEpisode(titleID int64, pageTitle string, seasonHint, episodeHint int) (MatchResult, error) {
	var season, episode int
	var method string

	switch {
	case seasonHint > 0 && episodeHint > 0:
		season, episode = seasonHint, episodeHint
		method = MethodHintBased
	default:
		extractedSeason, extractedEpisode, ok := ExtractSeasonEpisode(pageTitle)
		if !ok {
			return m.fuzzyMatchOnly(titleID, pageTitle)
		}
		season, episode = extractedSeason, extractedEpisode
		method = MethodPatternExtraction
	}

	catalogEpisode, err := m.episodes.EpisodeByNumber(titleID, season, episode)
	if err != nil {
		return MatchResult{}, fmt.Errorf("lookup episode s%de%d: %w", season, episode, err)
	}

	if catalogEpisode == nil {
		return MatchResult{
			Confidence:    0,
			Method:        MethodNoMatch,
			SeasonNumber:  season,
			EpisodeNumber: episode,
			PageTitle:     pageTitle,
		}, nil
	}

	confidence := 0.80
	if catalogEpisode.Name != "" {
		nameScore := FuzzyScore(NormalizeName(pageTitle), NormalizeName(catalogEpisode.Name))
		if nameScore > 0.7 {
			confidence = 0.95
		} else {
			confidence = 0.85
		}
	}

	return MatchResult{
		EpisodeID:     &catalogEpisode.ID,
		Confidence:    confidence,
		Method:        method,
		SeasonNumber:  season,
		EpisodeNumber: episode,
		PageTitle:     pageTitle,
	}, nil
}

func (m *Matcher) fuzzyMatchOnly(titleID int64, pageTitle string) (MatchResult, error) {
	episodes, err := m.episodes.EpisodesForTitle(titleID)
	if err != nil {
		return MatchResult{}, fmt.Errorf("list episodes for title %d: %w", titleID, err)
	}

	if len(episodes) == 0 {
		return MatchResult{Method: MethodNoEpisodes, PageTitle: pageTitle}, nil
	}

	normalizedPage := NormalizeName(pageTitle)
	var best *CatalogEpisode
	bestScore := 0.0

	for index := range episodes {
		episode := episodes[index]
		if episode.Name == "" {
			continue
		}
		score := FuzzyScore(normalizedPage, NormalizeName(episode.Name))
		if score > bestScore {
			bestScore = score
			best = &episodes[index]
		}
	}

	if best == nil || bestScore < fuzzyAcceptThreshold {
		return MatchResult{Method: MethodLowConfidence, PageTitle: pageTitle}, nil
	}

	// Name-only evidence earns a discounted confidence.
	return MatchResult{
		EpisodeID:     &best.ID,
		Confidence:    bestScore * 0.8,
		Method:        MethodFuzzyNameMatch,
		SeasonNumber:  best.SeasonNumber,
		EpisodeNumber: best.EpisodeNumber,
		PageTitle:     pageTitle,
	}, nil
}

// BatchMatch runs MatchEpisode over every candidate and upserts a link for
// each result at or above the storage threshold. Re-running with the same
// input overwrites rather than duplicates.
func (m *Matcher) BatchMatch(titleID int64, candidates []Candidate) ([]MatchResult, error) {
	results := make([]MatchResult, 0, len(candidates))

	for _, candidate := range candidates {
		result, err := m.MatchEpisode(titleID, candidate.PageTitle, candidate.Season, candidate.Episode)
		if err != nil {
			return results, err
		}
		results = append(results, result)

		if result.Confidence < storeThreshold {
			continue
		}

		link := models.FandomEpisodeLink{
			TitleID:         titleID,
			EpisodeID:       result.EpisodeID,
			SeasonNumber:    result.SeasonNumber,
			EpisodeNumber:   result.EpisodeNumber,
			FandomPageTitle: result.PageTitle,
			Confidence:      result.Confidence,
			MatchingMethod:  result.Method,
		}
		if candidate.PageID > 0 {
			pageID := candidate.PageID
			link.FandomPageID = &pageID
		}
		if candidate.URL != "" {
			url := candidate.URL
			link.FandomURL = &url
		}

		if err := m.links.UpsertLink(link); err != nil {
			return results, fmt.Errorf("store link for %q: %w", candidate.PageTitle, err)
		}
	}

	return results, nil
}

package tagging

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/axolotly/content-tagger/backend/internal/fandom"
	"github.com/axolotly/content-tagger/backend/internal/matcher"
	"github.com/axolotly/content-tagger/backend/internal/models"
)

const (
	// Matches weaker than this are not trusted enough to tag from.
	extractionThreshold = 0.6
	// Keyword presence is indirect evidence, so tag confidence is
	// discounted relative to the match confidence.
	keywordDiscount = 0.9

	SourceScrape             = "scrape"
	MethodKeywordMatch       = "keyword_match"
	MethodCategoryMembership = "category_membership"
)

type PageFetcher interface {
	PageContent(ctx context.Context, wiki, pageTitle string) (fandom.PageContent, bool)
	PageURL(wiki, pageTitle string) string
}

type TagWriter interface {
	EpisodeTagExists(episodeID, tagID int64) (bool, error)
	InsertEpisodeTag(tag models.EpisodeTag) error
}

// Extractor scans matched wiki pages for keyword evidence of content tags
// and records an EpisodeTag per hit.
type Extractor struct {
	pages  PageFetcher
	tags   TagWriter
	logger *slog.Logger
}

func NewExtractor(pages PageFetcher, tags TagWriter, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{pages: pages, tags: tags, logger: logger}
}

// ExtractForMatch fetches the matched page, scans its HTML and category
// names for every keyword, and writes one EpisodeTag per newly evidenced
// tag. Returns the number of tags added and whether any keyword hit at all.
func (e *Extractor) ExtractForMatch(ctx context.Context, wiki string, match matcher.MatchResult, keywords map[string]int64) (int, bool, error) {
	if match.EpisodeID == nil || match.Confidence < extractionThreshold {
		return 0, false, nil
	}

	content, ok := e.pages.PageContent(ctx, wiki, match.PageTitle)
	if !ok {
		return 0, false, nil
	}

	combined := strings.ToLower(content.HTML + " " + strings.Join(content.Categories, " "))

	foundTagIDs := make(map[int64]struct{})
	for keyword, tagID := range keywords {
		if strings.Contains(combined, strings.ToLower(keyword)) {
			foundTagIDs[tagID] = struct{}{}
		}
	}

	if len(foundTagIDs) == 0 {
		return 0, false, nil
	}

	// Stable write order keeps reruns and tests predictable.
	tagIDs := make([]int64, 0, len(foundTagIDs))
	for tagID := range foundTagIDs {
		tagIDs = append(tagIDs, tagID)
	}
	sort.Slice(tagIDs, func(i, j int) bool { return tagIDs[i] < tagIDs[j] })

	added := 0
	for _, tagID := range tagIDs {
		exists, err := e.tags.EpisodeTagExists(*match.EpisodeID, tagID)
		if err != nil {
			return added, true, fmt.Errorf("check episode tag: %w", err)
		}
		if exists {
			continue
		}

		sourceURL := e.pages.PageURL(wiki, match.PageTitle)
		method := MethodKeywordMatch
		err = e.tags.InsertEpisodeTag(models.EpisodeTag{
			EpisodeID:        *match.EpisodeID,
			TagID:            tagID,
			Source:           SourceScrape,
			Confidence:       match.Confidence * keywordDiscount,
			SourceURL:        &sourceURL,
			ExtractionMethod: &method,
		})
		if err != nil {
			return added, true, fmt.Errorf("insert episode tag: %w", err)
		}
		added++
	}

	return added, true, nil
}

package tagging

import (
	"context"
	"math"
	"testing"

	"github.com/axolotly/content-tagger/backend/internal/fandom"
	"github.com/axolotly/content-tagger/backend/internal/matcher"
	"github.com/axolotly/content-tagger/backend/internal/models"
)

type fakePageFetcher struct {
	content fandom.PageContent
	ok      bool
	calls   int
}

func (f *fakePageFetcher) PageContent(_ context.Context, _, _ string) (fandom.PageContent, bool) {
	f.calls++
	return f.content, f.ok
}

func (f *fakePageFetcher) PageURL(wiki, pageTitle string) string {
	return "https://" + wiki + ".fandom.com/wiki/" + pageTitle
}

type fakeTagWriter struct {
	existing map[[2]int64]bool
	inserted []models.EpisodeTag
}

func newFakeTagWriter() *fakeTagWriter {
	return &fakeTagWriter{existing: make(map[[2]int64]bool)}
}

func (f *fakeTagWriter) EpisodeTagExists(episodeID, tagID int64) (bool, error) {
	return f.existing[[2]int64{episodeID, tagID}], nil
}

func (f *fakeTagWriter) InsertEpisodeTag(tag models.EpisodeTag) error {
	f.inserted = append(f.inserted, tag)
	return nil
}

func matchFor(episodeID int64, confidence float64) matcher.MatchResult {
	return matcher.MatchResult{
		EpisodeID:  &episodeID,
		Confidence: confidence,
		PageTitle:  "The Pond",
	}
}

func TestExtractForMatchSkipsWeakMatches(t *testing.T) {
	pages := &fakePageFetcher{ok: true}
	extractor := NewExtractor(pages, newFakeTagWriter(), nil)

	added, tagged, err := extractor.ExtractForMatch(context.Background(), "bluey", matchFor(1, 0.5), map[string]int64{"spider": 1})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if added != 0 || tagged {
		t.Fatalf("added=%d tagged=%v, want 0/false below threshold", added, tagged)
	}
	if pages.calls != 0 {
		t.Fatalf("page fetched %d times for a skipped match, want 0", pages.calls)
	}

	unmatched := matcher.MatchResult{Confidence: 0.9}
	added, tagged, err = extractor.ExtractForMatch(context.Background(), "bluey", unmatched, map[string]int64{"spider": 1})
	if err != nil {
		t.Fatalf("extract unmatched: %v", err)
	}
	if added != 0 || tagged {
		t.Fatalf("added=%d tagged=%v, want 0/false without an episode id", added, tagged)
	}
}

func TestExtractForMatchFindsKeywordsInHTMLAndCategories(t *testing.T) {
	pages := &fakePageFetcher{
		ok: true,
		content: fandom.PageContent{
			HTML:       "<p>A big SPIDER crawls out during the storm.</p>",
			Categories: []string{"Thunderstorms"},
		},
	}
	writer := newFakeTagWriter()
	extractor := NewExtractor(pages, writer, nil)

	keywords := map[string]int64{
		"spider":        1,
		"thunderstorms": 2,
		"snake":         3,
	}

	added, tagged, err := extractor.ExtractForMatch(context.Background(), "bluey", matchFor(7, 0.9), keywords)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !tagged || added != 2 {
		t.Fatalf("added=%d tagged=%v, want 2/true", added, tagged)
	}

	if len(writer.inserted) != 2 {
		t.Fatalf("inserted %d tags, want 2", len(writer.inserted))
	}
	// Writes are ordered by tag id for stable reruns.
	if writer.inserted[0].TagID != 1 || writer.inserted[1].TagID != 2 {
		t.Fatalf("insert order = %d,%d, want 1,2", writer.inserted[0].TagID, writer.inserted[1].TagID)
	}

	first := writer.inserted[0]
	if first.EpisodeID != 7 || first.Source != SourceScrape {
		t.Fatalf("unexpected insert %+v", first)
	}
	if math.Abs(first.Confidence-0.81) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.9*0.9", first.Confidence)
	}
	if first.ExtractionMethod == nil || *first.ExtractionMethod != MethodKeywordMatch {
		t.Fatalf("extraction method = %v, want %q", first.ExtractionMethod, MethodKeywordMatch)
	}
	if first.SourceURL == nil || *first.SourceURL == "" {
		t.Fatal("source url missing")
	}
}

func TestExtractForMatchSkipsExistingPairs(t *testing.T) {
	pages := &fakePageFetcher{
		ok:      true,
		content: fandom.PageContent{HTML: "spider"},
	}
	writer := newFakeTagWriter()
	writer.existing[[2]int64{7, 1}] = true
	extractor := NewExtractor(pages, writer, nil)

	added, tagged, err := extractor.ExtractForMatch(context.Background(), "bluey", matchFor(7, 0.9), map[string]int64{"spider": 1})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !tagged {
		t.Fatal("keyword hit should report tagged=true even when already stored")
	}
	if added != 0 || len(writer.inserted) != 0 {
		t.Fatalf("added=%d inserts=%d, want no new rows", added, len(writer.inserted))
	}
}

func TestExtractForMatchNoEvidence(t *testing.T) {
	pages := &fakePageFetcher{ok: true, content: fandom.PageContent{HTML: "a calm day at the beach"}}
	extractor := NewExtractor(pages, newFakeTagWriter(), nil)

	added, tagged, err := extractor.ExtractForMatch(context.Background(), "bluey", matchFor(7, 0.9), map[string]int64{"spider": 1})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if added != 0 || tagged {
		t.Fatalf("added=%d tagged=%v, want 0/false with no keyword hits", added, tagged)
	}
}

package fandom

import (
	"context"
	"net/http"
	"strings"
	"testing"
)

const episodeListHTML = `
<html><body>
<table class="wikitable">
<tr><th>No.</th><th>Title</th></tr>
<tr><td>1x01</td><td><a href="/wiki/Magic_Xylophone" title="Magic Xylophone">Magic Xylophone</a></td></tr>
<tr><td>1x02</td><td><a href="/wiki/The_Pool" title="The Pool">The Pool</a></td></tr>
<tr><td>malformed row</td></tr>
</table>
</body></html>`

func newCatalogTestServer(t *testing.T) *Builder {
	t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/wiki/") {
			_, _ = w.Write([]byte(episodeListHTML))
			return
		}

		query := r.URL.Query()
		switch query.Get("list") {
		case "categorymembers":
			if query.Get("cmtitle") == "Category:Episodes" {
				writeJSON(t, w, map[string]any{
					"query": map[string]any{
						"categorymembers": []map[string]any{
							{"pageid": 1, "title": "Magic Xylophone"},
							{"pageid": 2, "title": "The Pond"},
						},
					},
				})
				return
			}
			writeJSON(t, w, map[string]any{"query": map[string]any{}})
		case "backlinks":
			writeJSON(t, w, map[string]any{
				"query": map[string]any{
					"backlinks": []map[string]any{
						{"pageid": 3, "title": "Bob Bilby"},
						{"pageid": 1, "title": "Magic Xylophone"},
					},
				},
			})
		case "search":
			writeJSON(t, w, map[string]any{
				"query": map[string]any{
					"search": []map[string]any{
						{"pageid": 7, "title": "Hide and Seek (episode)"},
						{"pageid": 8, "title": "Charades"},
					},
				},
			})
		default:
			writeJSON(t, w, map[string]any{"query": map[string]any{}})
		}
	})

	client, _ := newTestClient(t, handler)
	return NewBuilder(client, nil)
}

func TestBuildCatalogMergesStrategiesFirstWins(t *testing.T) {
	builder := newCatalogTestServer(t)

	candidates := builder.BuildCatalog(context.Background(), ShowInput{
		TitleID:         1,
		Name:            "Bluey",
		Wiki:            "bluey",
		EpisodeListPage: "List of Bluey episodes",
	})

	byTitle := make(map[string]PageCandidate, len(candidates))
	for _, candidate := range candidates {
		byTitle[candidate.PageTitle] = candidate
	}

	// Episode-list rows come first, so the duplicate category hit for
	// Magic Xylophone must not overwrite the numbered variant.
	xylophone, ok := byTitle["Magic Xylophone"]
	if !ok {
		t.Fatal("Magic Xylophone missing from catalog")
	}
	if xylophone.Strategy != StrategyEpisodeList {
		t.Fatalf("Magic Xylophone strategy = %q, want %q", xylophone.Strategy, StrategyEpisodeList)
	}
	if !xylophone.HasNumbers || xylophone.Season != 1 || xylophone.Episode != 1 {
		t.Fatalf("Magic Xylophone numbers = %+v, want s1e1", xylophone)
	}

	if pond, ok := byTitle["The Pond"]; !ok || pond.Strategy != StrategyCategory {
		t.Fatalf("The Pond = %+v, want category candidate", pond)
	}
	if bilby, ok := byTitle["Bob Bilby"]; !ok || bilby.Strategy != StrategyBacklink {
		t.Fatalf("Bob Bilby = %+v, want backlink candidate", bilby)
	}
	if hide, ok := byTitle["Hide and Seek (episode)"]; !ok || hide.Strategy != StrategySearch {
		t.Fatalf("Hide and Seek = %+v, want search candidate", hide)
	}

	// Search hits without "episode" in the title are noise.
	if _, ok := byTitle["Charades"]; ok {
		t.Fatal("Charades should have been filtered out of search results")
	}

	if len(candidates) != 5 {
		t.Fatalf("candidates = %d, want 5 (2 list rows, 1 backlink, 1 category, 1 search)", len(candidates))
	}
}

func TestBuildCatalogWithoutListPage(t *testing.T) {
	builder := newCatalogTestServer(t)

	candidates := builder.BuildCatalog(context.Background(), ShowInput{
		TitleID: 1,
		Name:    "Bluey",
		Wiki:    "bluey",
	})

	for _, candidate := range candidates {
		if candidate.Strategy == StrategyEpisodeList {
			t.Fatalf("unexpected episode-list candidate %+v without a configured page", candidate)
		}
	}
	if len(candidates) != 3 {
		t.Fatalf("candidates = %d, want 3", len(candidates))
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Bluey":                "bluey",
		"Grandad's Adventures": "grandadsadventures",
		"PAW Patrol":           "pawpatrol",
	}

	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

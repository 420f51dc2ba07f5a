package fandom

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const defaultTableSelector = "table.wikitable, table.episode-table, table.episodes"

var rowNumberPattern = regexp.MustCompile(`(\d+)[x\-](\d+)`)

// ShowInput carries what the builder needs to know about one show: the
// catalog identity plus any per-show overrides.
type ShowInput struct {
	TitleID         int64
	Name            string
	Wiki            string
	EpisodeListPage string
	TableSelector   string
}

// Builder combines every discovery strategy into one deduplicated candidate
// list for a show. The first strategy to propose a page title wins; later
// duplicates are dropped.
type Builder struct {
	client *Client
	logger *slog.Logger
}

func NewBuilder(client *Client, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{client: client, logger: logger}
}

// BuildCatalog runs the episode-list page (table rows plus backlinks),
// category enumeration and search strategies and merges their candidates by
// page title.
func (b *Builder) BuildCatalog(ctx context.Context, show ShowInput) []PageCandidate {
	merged := make(map[string]PageCandidate)
	order := make([]string, 0, 64)

	add := func(candidate PageCandidate) {
		if candidate.PageTitle == "" {
			return
		}
		if _, exists := merged[candidate.PageTitle]; exists {
			return
		}
		merged[candidate.PageTitle] = candidate
		order = append(order, candidate.PageTitle)
	}

	if show.EpisodeListPage != "" {
		for _, candidate := range b.parseEpisodeListPage(ctx, show) {
			add(candidate)
		}
		// Episode pages usually link back to the list page, so its
		// backlinks catch rows the table parse missed.
		for _, candidate := range b.client.Backlinks(ctx, show.Wiki, show.EpisodeListPage, 200) {
			add(candidate)
		}
	}

	for _, category := range episodeCategories(show.Name) {
		for _, candidate := range b.client.CategoryMembers(ctx, show.Wiki, category, 200) {
			add(candidate)
		}
	}

	for _, term := range []string{fmt.Sprintf("%q episode", show.Name), "season episode"} {
		for _, candidate := range b.client.Search(ctx, show.Wiki, term, 50) {
			// Search casts a wide net; keep only titles that look episodic.
			if !strings.Contains(strings.ToLower(candidate.PageTitle), "episode") {
				continue
			}
			add(candidate)
		}
	}

	candidates := make([]PageCandidate, 0, len(order))
	for _, title := range order {
		candidates = append(candidates, merged[title])
	}

	b.logger.Debug("episode catalog built", "wiki", show.Wiki, "candidates", len(candidates))
	return candidates
}

// parseEpisodeListPage extracts season/episode numbers and linked page
// titles from the rows of a configured "List of episodes" page.
func (b *Builder) parseEpisodeListPage(ctx context.Context, show ShowInput) []PageCandidate {
	html, ok := b.client.PageHTML(ctx, show.Wiki, show.EpisodeListPage)
	if !ok {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		b.logger.Warn("episode list page unparseable", "wiki", show.Wiki, "page", show.EpisodeListPage, "error", err)
		return nil
	}

	selector := show.TableSelector
	if selector == "" {
		selector = defaultTableSelector
	}

	candidates := make([]PageCandidate, 0, 32)
	doc.Find(selector).Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(rowIndex int, row *goquery.Selection) {
			if rowIndex == 0 {
				return // header row
			}

			cells := row.Find("td, th")
			if cells.Length() < 2 {
				return
			}

			candidate := PageCandidate{Strategy: StrategyEpisodeList}
			cells.Each(func(_ int, cell *goquery.Selection) {
				text := strings.TrimSpace(cell.Text())
				if match := rowNumberPattern.FindStringSubmatch(text); match != nil {
					candidate.Season, _ = strconv.Atoi(match[1])
					candidate.Episode, _ = strconv.Atoi(match[2])
					candidate.HasNumbers = candidate.Season > 0 && candidate.Episode > 0
				}

				link := cell.Find("a").First()
				if link.Length() == 0 {
					return
				}
				pageTitle := strings.TrimSpace(link.AttrOr("title", link.Text()))
				href, hasHref := link.Attr("href")
				if pageTitle == "" || !hasHref {
					return
				}
				candidate.PageTitle = pageTitle
				if strings.HasPrefix(href, "/") {
					candidate.URL = b.client.wikiBase(show.Wiki) + href
				} else {
					candidate.URL = href
				}
			})

			if candidate.PageTitle != "" {
				candidates = append(candidates, candidate)
			}
		})
	})

	return candidates
}

// episodeCategories lists the category names most wikis file episodes under.
func episodeCategories(showName string) []string {
	return []string{
		"Episodes",
		showName + " episodes",
		"Season 1",
		"Season 2",
		"Season 3",
	}
}

// Slugify derives a wiki identifier from a show name the way most fandom
// communities do: lowercase with spaces and apostrophes removed.
func Slugify(showName string) string {
	slug := strings.ToLower(showName)
	slug = strings.ReplaceAll(slug, " ", "")
	slug = strings.ReplaceAll(slug, "'", "")
	return slug
}

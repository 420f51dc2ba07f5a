package fandom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const userAgent = "Axolotly/1.0 (Parental Control App; Educational Use)"

// Client talks to the MediaWiki query API of community wikis. Every failure
// path (transport error, timeout, non-2xx status, malformed payload)
// degrades to an empty result: the caller decides what an empty discovery
// means, and a flaky wiki never aborts a scrape.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	// baseURL overrides the per-wiki fandom.com host; used by tests.
	baseURL string
	logger  *slog.Logger
}

type ClientConfig struct {
	RatePerSec float64
	Burst      int
	Timeout    time.Duration
	// BaseURL, when set, replaces https://{wiki}.fandom.com entirely.
	BaseURL string
}

func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		logger:     logger,
	}
}

func (c *Client) wikiBase(wiki string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return "https://" + wiki + ".fandom.com"
}

func (c *Client) apiURL(wiki string) string {
	return c.wikiBase(wiki) + "/api.php"
}

// PageURL builds the human-facing article URL for a page title.
func (c *Client) PageURL(wiki, pageTitle string) string {
	return c.wikiBase(wiki) + "/wiki/" + url.PathEscape(strings.ReplaceAll(pageTitle, " ", "_"))
}

// CategoryMembers lists pages in a category, following continuation tokens
// until limit is reached or the category is exhausted.
func (c *Client) CategoryMembers(ctx context.Context, wiki, category string, limit int) []PageCandidate {
	if limit <= 0 {
		limit = 500
	}

	members := make([]PageCandidate, 0)
	continueToken := ""

	for {
		params := url.Values{}
		params.Set("action", "query")
		params.Set("list", "categorymembers")
		params.Set("cmtitle", "Category:"+category)
		params.Set("cmlimit", fmt.Sprintf("%d", min(limit, 500)))
		params.Set("format", "json")
		if continueToken != "" {
			params.Set("cmcontinue", continueToken)
		}

		var payload queryListResponse
		if !c.getJSON(ctx, wiki, params, &payload) {
			break
		}

		for _, item := range payload.Query.CategoryMembers {
			members = append(members, PageCandidate{
				PageTitle: item.Title,
				PageID:    item.PageID,
				URL:       c.PageURL(wiki, item.Title),
				Strategy:  StrategyCategory,
			})
		}

		if payload.Continue.CmContinue == "" || len(members) >= limit {
			break
		}
		continueToken = payload.Continue.CmContinue
	}

	if len(members) > limit {
		members = members[:limit]
	}
	return members
}

// Search runs a main-namespace full-text search, single shot.
func (c *Client) Search(ctx context.Context, wiki, query string, limit int) []PageCandidate {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srnamespace", "0")
	params.Set("srwhat", "text")
	params.Set("srlimit", fmt.Sprintf("%d", limit))
	params.Set("format", "json")

	var payload queryListResponse
	if !c.getJSON(ctx, wiki, params, &payload) {
		return nil
	}

	results := make([]PageCandidate, 0, len(payload.Query.Search))
	for _, item := range payload.Query.Search {
		results = append(results, PageCandidate{
			PageTitle: item.Title,
			PageID:    item.PageID,
			URL:       c.PageURL(wiki, item.Title),
			Strategy:  StrategySearch,
		})
	}
	return results
}

// Backlinks lists main-namespace pages linking to the given page.
func (c *Client) Backlinks(ctx context.Context, wiki, pageTitle string, limit int) []PageCandidate {
	if limit <= 0 {
		limit = 100
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "backlinks")
	params.Set("bltitle", pageTitle)
	params.Set("blnamespace", "0")
	params.Set("bllimit", fmt.Sprintf("%d", min(limit, 500)))
	params.Set("format", "json")

	var payload queryListResponse
	if !c.getJSON(ctx, wiki, params, &payload) {
		return nil
	}

	results := make([]PageCandidate, 0, len(payload.Query.Backlinks))
	for _, item := range payload.Query.Backlinks {
		results = append(results, PageCandidate{
			PageTitle: item.Title,
			PageID:    item.PageID,
			URL:       c.PageURL(wiki, item.Title),
			Strategy:  StrategyBacklink,
		})
	}
	return results
}

// PageContent fetches one page's rendered HTML and category names. The
// second return value reports whether anything usable came back.
func (c *Client) PageContent(ctx context.Context, wiki, pageTitle string) (PageContent, bool) {
	params := url.Values{}
	params.Set("action", "parse")
	params.Set("page", pageTitle)
	params.Set("prop", "text|categories")
	params.Set("format", "json")

	var payload parseResponse
	if !c.getJSON(ctx, wiki, params, &payload) {
		return PageContent{}, false
	}
	if payload.Parse == nil {
		return PageContent{}, false
	}

	categories := make([]string, 0, len(payload.Parse.Categories))
	for _, category := range payload.Parse.Categories {
		if category.Name != "" {
			categories = append(categories, category.Name)
		}
	}

	return PageContent{HTML: payload.Parse.Text.Value, Categories: categories}, true
}

// PageHTML fetches the rendered article page itself, for strategies that
// scrape page markup rather than the query API.
func (c *Client) PageHTML(ctx context.Context, wiki, pageTitle string) (string, bool) {
	body, ok := c.get(ctx, c.PageURL(wiki, pageTitle))
	return string(body), ok
}

func (c *Client) getJSON(ctx context.Context, wiki string, params url.Values, out any) bool {
	body, ok := c.get(ctx, c.apiURL(wiki)+"?"+params.Encode())
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Warn("wiki response malformed", "wiki", wiki, "error", err)
		return false
	}
	return true
}

func (c *Client) get(ctx context.Context, requestURL string) ([]byte, bool) {
	var body []byte

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)

		res, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %d", res.StatusCode)
		}

		body, err = io.ReadAll(res.Body)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(300*time.Millisecond), 2), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		c.logger.Warn("wiki request failed", "url", requestURL, "error", err)
		return nil, false
	}
	return body, true
}

type pageRef struct {
	PageID int64  `json:"pageid"`
	Title  string `json:"title"`
}

type queryListResponse struct {
	Query struct {
		CategoryMembers []pageRef `json:"categorymembers"`
		Search          []pageRef `json:"search"`
		Backlinks       []pageRef `json:"backlinks"`
	} `json:"query"`
	Continue struct {
		CmContinue string `json:"cmcontinue"`
	} `json:"continue"`
}

type parseResponse struct {
	Parse *struct {
		Text struct {
			Value string `json:"*"`
		} `json:"text"`
		Categories []struct {
			Name string `json:"*"`
		} `json:"categories"`
	} `json:"parse"`
}

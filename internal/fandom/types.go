package fandom

// Discovery strategies that can propose a page candidate.
const (
	StrategyEpisodeList = "episode_list"
	StrategyCategory    = "category"
	StrategySearch      = "search"
	StrategyBacklink    = "backlink"
)

// PageCandidate is the single normalized shape every discovery strategy
// produces, whatever the underlying API record looked like.
type PageCandidate struct {
	PageTitle  string `json:"pageTitle"`
	PageID     int64  `json:"pageId,omitempty"`
	URL        string `json:"url,omitempty"`
	Season     int    `json:"season,omitempty"`
	Episode    int    `json:"episode,omitempty"`
	HasNumbers bool   `json:"hasNumbers,omitempty"`
	Strategy   string `json:"strategy"`
}

// PageContent is the parsed body of one wiki page.
type PageContent struct {
	HTML       string
	Categories []string
}

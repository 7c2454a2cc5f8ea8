package sources

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// ScopusBaseURL is the Elsevier Scopus search endpoint.
	ScopusBaseURL = "https://api.elsevier.com/content/search/scopus"

	scopusRateLimit = 2.0
	scopusCount     = 3
)

// Scopus searches Elsevier's Scopus index by exact title phrase.
type Scopus struct {
	c client
}

// NewScopus creates a Scopus client. Without an API key every search is
// skipped.
func NewScopus(opts ...Option) *Scopus {
	return &Scopus{c: client{
		service: "Scopus",
		options: newOptions(ScopusBaseURL, scopusRateLimit, opts),
	}}
}

type scopusEntry struct {
	Title string `json:"dc:title"`
	URL   string `json:"prism:url"`
	DOI   string `json:"prism:doi"`
	Error string `json:"error"`
	Links []struct {
		Ref  string `json:"@ref"`
		Href string `json:"@href"`
	} `json:"link"`
}

// link prefers the human-facing Scopus record page over the API URL.
func (e scopusEntry) link() string {
	for _, l := range e.Links {
		if l.Ref == "scopus" && l.Href != "" {
			return l.Href
		}
	}
	if e.DOI != "" {
		return "https://doi.org/" + e.DOI
	}
	return e.URL
}

// Search queries TITLE("...") and accepts the first matching entry.
func (s *Scopus) Search(ctx context.Context, title string) Result {
	if s.c.apiKey == "" {
		return skipped(StatusNoAPIKey)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return skipped(StatusNoQuery)
	}

	q := url.Values{}
	q.Set("query", `TITLE("`+strings.ReplaceAll(title, `"`, ``)+`")`)
	q.Set("count", strconv.Itoa(scopusCount))

	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("X-ELS-APIKey", s.c.apiKey)

	var resp struct {
		SearchResults struct {
			Entries []scopusEntry `json:"entry"`
		} `json:"search-results"`
	}
	if err := s.c.getJSON(ctx, s.c.baseURL+"?"+q.Encode(), h, "", &resp); err != nil {
		return failed(err)
	}

	// An empty result set comes back as a single entry carrying "error"
	var entries []scopusEntry
	for _, e := range resp.SearchResults.Entries {
		if e.Error == "" && e.Title != "" {
			entries = append(entries, e)
		}
	}
	if len(entries) > scopusCount {
		entries = entries[:scopusCount]
	}
	if len(entries) == 0 {
		return noResult(StatusNoResults)
	}

	return bestCandidate(title, s.c.threshold, entries, func(e scopusEntry) (string, string) {
		return e.Title, e.link()
	})
}

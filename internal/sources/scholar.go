package sources

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/cwz-bot/reference-check/internal/match"
)

const (
	// SerpAPIBaseURL is the SerpAPI search endpoint used for Google Scholar.
	SerpAPIBaseURL = "https://serpapi.com/search.json"

	// ScholarSearchURL is the public Scholar results page linked for users.
	ScholarSearchURL = "https://scholar.google.com/scholar"

	serpAPIRateLimit = 1.0

	// suggestionRatio is the remedial similarity at which a ref-text hit is
	// offered as a suggestion.
	suggestionRatio = 0.6
)

// Scholar searches Google Scholar through SerpAPI.
type Scholar struct {
	c client
}

// NewScholar creates a Scholar client. Without an API key every search is
// skipped.
func NewScholar(opts ...Option) *Scholar {
	return &Scholar{c: client{
		service: "SerpAPI",
		options: newOptions(SerpAPIBaseURL, serpAPIRateLimit, opts),
	}}
}

type scholarResponse struct {
	Error   string `json:"error"`
	Organic []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"organic_results"`
}

// ByTitle searches for title and classifies the top hits. The returned URL is
// the Scholar results page for the query.
func (s *Scholar) ByTitle(ctx context.Context, title string) Result {
	if s.c.apiKey == "" {
		return skipped(StatusNoAPIKey)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return skipped(StatusNoQuery)
	}

	resp, err := s.search(ctx, title, 3)
	if err != nil {
		return failed(err)
	}
	if resp.Error != "" {
		return serpError(resp.Error)
	}
	if len(resp.Organic) == 0 {
		return noResult(StatusNoResults)
	}

	page := ScholarResultsURL(title)
	best := KindNoResult
	for _, hit := range resp.Organic {
		switch match.Classify(title, hit.Title, s.c.threshold) {
		case match.Exact:
			return matched(page)
		case match.Similar:
			best = KindSimilar
		}
	}
	if best == KindSimilar {
		return similar(page)
	}
	return noResult(StatusBelowThresh)
}

// ByRefText searches for the raw reference text and offers the top hit as a
// suggestion when its title appears in the text. It never verifies.
func (s *Scholar) ByRefText(ctx context.Context, text string) Result {
	if s.c.apiKey == "" {
		return skipped(StatusNoAPIKey)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return skipped(StatusNoQuery)
	}

	resp, err := s.search(ctx, text, 1)
	if err != nil {
		return failed(err)
	}
	if resp.Error != "" {
		return serpError(resp.Error)
	}
	if len(resp.Organic) == 0 {
		return noResult(StatusNoResults)
	}

	top := resp.Organic[0]
	if top.Title == "" {
		return noResult(StatusNoResults)
	}
	if !match.ContainedIn(text, top.Title) &&
		match.Ratio(match.RemedialNormalize(text), match.RemedialNormalize(top.Title)) < suggestionRatio {
		return noResult(StatusBelowThresh)
	}

	link := top.Link
	if link == "" {
		link = ScholarResultsURL(top.Title)
	}
	return Result{URL: link, Status: StatusOK, Kind: KindSuggestion}
}

func (s *Scholar) search(ctx context.Context, query string, num int) (*scholarResponse, error) {
	q := url.Values{}
	q.Set("engine", "google_scholar")
	q.Set("q", query)
	q.Set("num", strconv.Itoa(num))
	q.Set("api_key", s.c.apiKey)

	var resp scholarResponse
	if err := s.c.getJSON(ctx, s.c.baseURL+"?"+q.Encode(), nil, s.c.apiKey, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// serpError maps SerpAPI's in-band error field. An empty result set is
// reported this way too.
func serpError(msg string) Result {
	if strings.Contains(msg, "hasn't returned any results") {
		return noResult(StatusNoResults)
	}
	return Result{Status: msg, Kind: KindError}
}

// ScholarResultsURL returns the Google Scholar results page for query.
func ScholarResultsURL(query string) string {
	return ScholarSearchURL + "?q=" + url.QueryEscape(query)
}

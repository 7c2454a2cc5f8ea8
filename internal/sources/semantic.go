package sources

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const (
	// SemanticScholarBaseURL is the Semantic Scholar Graph API base URL.
	SemanticScholarBaseURL = "https://api.semanticscholar.org/graph/v1"

	// Unauthenticated clients share a pool of roughly one request per second.
	semanticScholarRateLimit = 1.0

	semanticScholarLimit = "5"
)

// SemanticScholar searches the Semantic Scholar paper index.
type SemanticScholar struct {
	c client
}

// NewSemanticScholar creates a Semantic Scholar client. The API key is
// optional.
func NewSemanticScholar(opts ...Option) *SemanticScholar {
	return &SemanticScholar{c: client{
		service: "Semantic Scholar",
		options: newOptions(SemanticScholarBaseURL, semanticScholarRateLimit, opts),
	}}
}

type s2Paper struct {
	PaperID     string         `json:"paperId"`
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	ExternalIDs map[string]any `json:"externalIds"` // CorpusId is numeric
}

func (p s2Paper) link() string {
	if doi, _ := p.ExternalIDs["DOI"].(string); doi != "" {
		return "https://doi.org/" + doi
	}
	if p.URL != "" {
		return p.URL
	}
	if p.PaperID != "" {
		return "https://www.semanticscholar.org/paper/" + p.PaperID
	}
	return ""
}

// Search queries by title, retrying with the author appended to the query
// when the title alone returns nothing.
func (s *SemanticScholar) Search(ctx context.Context, title, author string) Result {
	title = strings.TrimSpace(title)
	if title == "" {
		return skipped(StatusNoQuery)
	}

	papers, err := s.search(ctx, title)
	if err != nil {
		return failed(err)
	}
	if len(papers) == 0 && author != "" {
		if papers, err = s.search(ctx, title+" "+author); err != nil {
			return failed(err)
		}
	}
	if len(papers) == 0 {
		return noResult(StatusNoResults)
	}

	return bestCandidate(title, s.c.threshold, papers, func(p s2Paper) (string, string) {
		return p.Title, p.link()
	})
}

func (s *SemanticScholar) search(ctx context.Context, query string) ([]s2Paper, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", semanticScholarLimit)
	q.Set("fields", "title,url,externalIds")

	var h http.Header
	if s.c.apiKey != "" {
		h = http.Header{}
		h.Set("x-api-key", s.c.apiKey)
	}

	var resp struct {
		Data []s2Paper `json:"data"`
	}
	if err := s.c.getJSON(ctx, s.c.baseURL+"/paper/search?"+q.Encode(), h, "", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

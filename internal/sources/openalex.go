package sources

import (
	"context"
	"net/url"
	"strings"
)

const (
	// OpenAlexBaseURL is the OpenAlex API base URL.
	OpenAlexBaseURL = "https://api.openalex.org"

	openAlexRateLimit = 10.0
	openAlexPerPage   = "5"
)

// OpenAlex searches the OpenAlex works index.
type OpenAlex struct {
	c client
}

// NewOpenAlex creates an OpenAlex client.
func NewOpenAlex(opts ...Option) *OpenAlex {
	return &OpenAlex{c: client{
		service: "OpenAlex",
		options: newOptions(OpenAlexBaseURL, openAlexRateLimit, opts),
	}}
}

type openAlexWork struct {
	ID          string `json:"id"`
	DOI         string `json:"doi"`
	Title       string `json:"title"`
	DisplayName string `json:"display_name"`
}

func (w openAlexWork) title() string {
	if w.Title != "" {
		return w.Title
	}
	return w.DisplayName
}

// link returns the DOI URL when registered, else the OpenAlex work URL.
func (w openAlexWork) link() string {
	if w.DOI != "" {
		return w.DOI
	}
	return w.ID
}

// Search queries by title, retrying with the author appended to the query
// when the title alone returns nothing.
func (s *OpenAlex) Search(ctx context.Context, title, author string) Result {
	title = strings.TrimSpace(title)
	if title == "" {
		return skipped(StatusNoQuery)
	}

	works, err := s.search(ctx, title)
	if err != nil {
		return failed(err)
	}
	if len(works) == 0 && author != "" {
		if works, err = s.search(ctx, title+" "+author); err != nil {
			return failed(err)
		}
	}
	if len(works) == 0 {
		return noResult(StatusNoResults)
	}

	return bestCandidate(title, s.c.threshold, works, func(w openAlexWork) (string, string) {
		return w.title(), w.link()
	})
}

func (s *OpenAlex) search(ctx context.Context, query string) ([]openAlexWork, error) {
	q := url.Values{}
	q.Set("search", query)
	q.Set("per-page", openAlexPerPage)
	q.Set("select", "id,doi,title,display_name")
	if s.c.mailto != "" {
		q.Set("mailto", s.c.mailto)
	}

	var resp struct {
		Results []openAlexWork `json:"results"`
	}
	if err := s.c.getJSON(ctx, s.c.baseURL+"/works?"+q.Encode(), nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

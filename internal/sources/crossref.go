package sources

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cwz-bot/reference-check/internal/match"
)

const (
	// CrossrefBaseURL is the Crossref REST API base URL.
	CrossrefBaseURL = "https://api.crossref.org"

	// crossrefRateLimit stays inside the public pool allowance.
	crossrefRateLimit = 5.0

	// crossrefRows is the number of search candidates inspected.
	crossrefRows = 5

	// shortTitleLen is the title length under which the author is added to
	// the bibliographic query.
	shortTitleLen = 20
)

// Crossref looks up works by DOI or bibliographic search.
type Crossref struct {
	c client
}

// NewCrossref creates a Crossref client.
func NewCrossref(opts ...Option) *Crossref {
	return &Crossref{c: client{
		service: "Crossref",
		options: newOptions(CrossrefBaseURL, crossrefRateLimit, opts),
	}}
}

type crossrefWork struct {
	Title []string `json:"title"`
	URL   string   `json:"URL"`
	DOI   string   `json:"DOI"`
}

func (w crossrefWork) firstTitle() string {
	for _, t := range w.Title {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return ""
}

func (w crossrefWork) link() string {
	if w.URL != "" {
		return w.URL
	}
	if w.DOI != "" {
		return "https://doi.org/" + w.DOI
	}
	return ""
}

// ByDOI fetches the work registered under doi. When title is non-empty the
// registered title must match it; otherwise the DOI alone is trusted.
func (s *Crossref) ByDOI(ctx context.Context, doi, title string) Result {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return skipped("Skipped (no DOI)")
	}

	var resp struct {
		Message crossrefWork `json:"message"`
	}
	endpoint := s.c.baseURL + "/works/" + url.PathEscape(doi) + s.politeQuery("?")
	if err := s.c.getJSON(ctx, endpoint, s.header(), "", &resp); err != nil {
		if IsNotFound(err) {
			return noResult("DOI not found")
		}
		return failed(err)
	}

	work := resp.Message
	link := work.link()
	if link == "" {
		link = "https://doi.org/" + doi
	}

	registered := work.firstTitle()
	if title == "" || registered == "" {
		return matched(link)
	}
	switch match.Classify(title, registered, s.c.threshold) {
	case match.Exact:
		return matched(link)
	case match.Similar:
		return similar(link)
	default:
		return noResult(statusTitleMismatch)
	}
}

// Search runs a bibliographic query for title, adding the first author's
// family name when the title is short.
func (s *Crossref) Search(ctx context.Context, title, author string) Result {
	title = strings.TrimSpace(title)
	if title == "" {
		return skipped(StatusNoQuery)
	}

	q := url.Values{}
	q.Set("query.bibliographic", title)
	if author != "" && utf8.RuneCountInString(title) < shortTitleLen {
		q.Set("query.author", author)
	}
	q.Set("rows", strconv.Itoa(crossrefRows))
	q.Set("select", "title,URL,DOI")
	if s.c.mailto != "" {
		q.Set("mailto", s.c.mailto)
	}

	var resp struct {
		Message struct {
			Items []crossrefWork `json:"items"`
		} `json:"message"`
	}
	if err := s.c.getJSON(ctx, s.c.baseURL+"/works?"+q.Encode(), s.header(), "", &resp); err != nil {
		return failed(err)
	}

	items := resp.Message.Items
	if len(items) > crossrefRows {
		items = items[:crossrefRows]
	}
	if len(items) == 0 {
		return noResult(StatusNoResults)
	}

	return bestCandidate(title, s.c.threshold, items, func(w crossrefWork) (string, string) {
		return w.firstTitle(), w.link()
	})
}

func (s *Crossref) header() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	return h
}

func (s *Crossref) politeQuery(prefix string) string {
	if s.c.mailto == "" {
		return ""
	}
	return prefix + "mailto=" + url.QueryEscape(s.c.mailto)
}

// bestCandidate returns the first candidate classified as an exact match,
// else the first similar one.
func bestCandidate[T any](query string, threshold float64, items []T, fields func(T) (title, link string)) Result {
	var fallback *Result
	for _, item := range items {
		title, link := fields(item)
		if title == "" || link == "" {
			continue
		}
		switch match.Classify(query, title, threshold) {
		case match.Exact:
			return matched(link)
		case match.Similar:
			if fallback == nil {
				r := similar(link)
				fallback = &r
			}
		}
	}
	if fallback != nil {
		return *fallback
	}
	return noResult(StatusBelowThresh)
}

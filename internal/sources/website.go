package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const websiteRateLimit = 5.0

// Website checks whether a direct URL is reachable.
type Website struct {
	c client
}

// NewWebsite creates a link checker.
func NewWebsite(opts ...Option) *Website {
	return &Website{c: client{
		service: "Website",
		options: newOptions("", websiteRateLimit, opts),
	}}
}

// Check tries HEAD first, then a ranged GET for servers that reject HEAD.
// Any 2xx or 3xx final status counts as alive.
func (w *Website) Check(ctx context.Context, rawURL string) Result {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return skipped(StatusNotEligible)
	}

	if _, err := w.c.fetch(ctx, http.MethodHead, rawURL, browserHeader()); err == nil {
		return matched(rawURL)
	}

	h := browserHeader()
	h.Set("Range", "bytes=0-1023")
	_, err = w.c.fetch(ctx, http.MethodGet, rawURL, h)
	if err == nil {
		return matched(rawURL)
	}
	if ctx.Err() != nil {
		return failed(ctx.Err())
	}
	return noResult(linkFailedStatus(err))
}

func linkFailedStatus(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("Link Failed (%d)", apiErr.StatusCode)
	}
	return "Link Failed (unreachable)"
}

func browserHeader() http.Header {
	h := http.Header{}
	h.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	return h
}

package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/cwz-bot/reference-check/internal/match"
)

const (
	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxAttempts is the number of tries for throttled or timed-out
	// requests.
	DefaultMaxAttempts = 3

	// DefaultBackoff is multiplied by the attempt number between retries.
	DefaultBackoff = 500 * time.Millisecond

	// maxErrorBody caps how much of an error response is kept as a message.
	maxErrorBody = 512

	// maxBody caps any response body read into memory.
	maxBody = 32 << 20

	userAgent = "reference-check/1.0"
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Cache stores successful response bodies keyed by request URL.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, body []byte) error
}

// Option configures a client.
type Option func(*options)

type options struct {
	httpClient  Doer
	limiter     *rate.Limiter
	cache       Cache
	baseURL     string
	apiKey      string
	mailto      string
	threshold   float64
	maxAttempts int
	backoff     time.Duration
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc Doer) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithAPIKey sets the API key for services that need one.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

// WithMailto identifies the caller to services with a polite pool.
func WithMailto(email string) Option {
	return func(o *options) {
		o.mailto = email
	}
}

// WithThreshold sets the similarity threshold used to accept candidates.
func WithThreshold(t float64) Option {
	return func(o *options) {
		if t > 0 {
			o.threshold = t
		}
	}
}

// WithRateLimit caps requests per second. Zero disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(o *options) {
		if perSecond <= 0 {
			o.limiter = nil
			return
		}
		o.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithRetry sets the attempt count and linear backoff step.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.maxAttempts = attempts
		}
		o.backoff = backoff
	}
}

// WithCache stores successful responses in c.
func WithCache(c Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

func newOptions(baseURL string, perSecond float64, opts []Option) options {
	o := options{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(perSecond), 1),
		baseURL:     baseURL,
		threshold:   match.DefaultThreshold,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// client holds the request machinery shared by every service.
type client struct {
	service string
	options
}

// getJSON fetches rawURL and decodes the body into out. Cached bodies are
// used when available; secret is removed from the cache key.
func (c *client) getJSON(ctx context.Context, rawURL string, header http.Header, secret string, out any) error {
	key := cacheKey(rawURL, secret)
	if c.cache != nil {
		if body, ok := c.cache.Get(key); ok {
			if err := json.Unmarshal(body, out); err == nil {
				return nil
			}
		}
	}

	body, err := c.fetch(ctx, http.MethodGet, rawURL, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, c.service, err)
	}

	if c.cache != nil {
		if err := c.cache.Put(key, body); err != nil {
			slog.Debug("cache write failed", "service", c.service, "error", err)
		}
	}
	return nil
}

// fetch performs a request with rate limiting and bounded retry, returning
// the body of a 2xx response.
func (c *client) fetch(ctx context.Context, method, rawURL string, header http.Header) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * c.backoff):
			}
		}

		body, err := c.once(ctx, method, rawURL, header)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !shouldRetry(err, attempt) {
			break
		}
	}
	return nil, lastErr
}

func (c *client) once(ctx context.Context, method, rawURL string, header http.Header) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNetworkError, c.service, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(c.service, resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading body: %w", ErrNetworkError, c.service, err)
	}
	return body, nil
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(service string, resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		Service:    service,
		StatusCode: resp.StatusCode,
		Message:    errorMessage(msg),
	}
}

// errorMessage pulls a message out of a JSON error body when present.
func errorMessage(body []byte) string {
	var payload struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload.Error.(string); ok && s != "" {
			return s
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return ""
}

// shouldRetry reports whether another attempt is worthwhile. Throttling,
// gateway errors, and timeouts use the full attempt budget; 401 and 403 are
// final; other failures are retried once.
func shouldRetry(err error, attempt int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		case http.StatusUnauthorized, http.StatusForbidden:
			return false
		}
		return attempt < 2
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, ErrNetworkError) {
		return attempt < 2
	}
	return false
}

func cacheKey(rawURL, secret string) string {
	if secret == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for k, vs := range q {
		for _, v := range vs {
			if v == secret {
				q.Del(k)
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

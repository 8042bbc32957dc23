package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0"
	maxBodyBytes     = 16 << 20
)

// Client fetches flow pages, optionally through a fetch proxy. It does not
// retry: the next scheduled run is the retry.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	proxyURL   string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithProxy routes requests through proxy, passing the target as ?url=.
func WithProxy(proxy string) Option {
	return func(c *Client) { c.proxyURL = proxy }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRate limits requests per second. Zero or less disables limiting.
func WithRate(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// NewClient creates a markup client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchMarkup returns the HTML body served at target. Any transport failure
// or non-2xx status is a *FetchError.
func (c *Client) FetchMarkup(ctx context.Context, target string) (string, error) {
	endpoint, err := c.endpoint(target)
	if err != nil {
		return "", &FetchError{URL: target, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &FetchError{URL: target, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &FetchError{URL: target, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{URL: target, Err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &FetchError{URL: target, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	log.Debug().
		Str("url", target).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("fetched markup")

	return string(body), nil
}

func (c *Client) endpoint(target string) (string, error) {
	if _, err := url.ParseRequestURI(target); err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if c.proxyURL == "" {
		return target, nil
	}
	u, err := url.Parse(c.proxyURL)
	if err != nil {
		return "", fmt.Errorf("invalid proxy url: %w", err)
	}
	q := u.Query()
	q.Set("url", target)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

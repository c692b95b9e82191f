package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Default request settings.
const (
	DefaultUserAgent   = "newsledger/1.0"
	DefaultMaxBodySize = 5 * 1024 * 1024

	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptFeed = "application/rss+xml,application/atom+xml,application/feed+json,application/xml;q=0.9,*/*;q=0.8"
)

// Response is a fetched document.
type Response struct {
	// URL is the final URL after redirects.
	URL string

	// StatusCode is the HTTP status.
	StatusCode int

	// ContentType is the Content-Type header.
	ContentType string

	// Body is at most the configured body limit.
	Body []byte

	// Truncated is true when the body hit the limit.
	Truncated bool
}

// Fetcher performs GET requests for pages and feeds.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	logger      *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize caps the bytes read per response. Non-positive keeps the default.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher on client; nil means http.DefaultClient.
func NewFetcher(client *http.Client, opts ...Option) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ForSource returns a Fetcher that adds cookie and headers to every request.
func (f *Fetcher) ForSource(cookie string, headers map[string]string) *Fetcher {
	clone := *f
	clone.client = WithSourceHeaders(f.client, cookie, headers)
	return &clone
}

// Page fetches an HTML page.
func (f *Fetcher) Page(ctx context.Context, pageURL string) (*Response, error) {
	return f.get(ctx, pageURL, acceptHTML)
}

// Feed fetches an RSS, Atom or JSON feed.
func (f *Fetcher) Feed(ctx context.Context, feedURL string) (*Response, error) {
	return f.get(ctx, feedURL, acceptFeed)
}

func (f *Fetcher) get(ctx context.Context, target, accept string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096) //nolint:errcheck // best effort
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	// Read one extra byte to detect truncation.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}
	truncated := int64(len(body)) > f.maxBodySize
	if truncated {
		body = body[:f.maxBodySize]
		f.logger.Warn("response truncated", "url", target, "limit", f.maxBodySize)
	}

	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Truncated:   truncated,
	}, nil
}

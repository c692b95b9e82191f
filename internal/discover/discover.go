package discover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/nao1215/newsledger/internal/config"
	"github.com/nao1215/newsledger/internal/extract"
	"github.com/nao1215/newsledger/internal/fetch"
	"github.com/nao1215/newsledger/internal/model"
)

// ErrNoEntryPoint is returned for a source with neither feed nor listing.
var ErrNoEntryPoint = errors.New("source has no feed or listing URL")

// Fetcher is the subset of fetch.Fetcher used for discovery.
type Fetcher interface {
	Page(ctx context.Context, pageURL string) (*fetch.Response, error)
	Feed(ctx context.Context, feedURL string) (*fetch.Response, error)
}

// Discoverer lists the candidates of one source.
type Discoverer struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Discoverer) {
		d.logger = logger
	}
}

// New creates a Discoverer. f should already carry the source's headers.
func New(f Fetcher, opts ...Option) *Discoverer {
	d := &Discoverer{fetcher: f, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover returns the candidates advertised by src, without duplicates and
// filtered by the source's follow and ignore patterns. The feed is used when
// configured; the listing page otherwise.
func (d *Discoverer) Discover(ctx context.Context, src config.SourceConfig) ([]model.Candidate, error) {
	var (
		cands []model.Candidate
		err   error
	)
	switch {
	case src.Feed != "":
		cands, err = d.fromFeed(ctx, src.Feed)
	case src.Listing != "":
		cands, err = d.fromListing(ctx, src.Listing)
	default:
		return nil, ErrNoEntryPoint
	}
	if err != nil {
		return nil, err
	}

	out := make([]model.Candidate, 0, len(cands))
	seen := make(map[string]bool, len(cands))
	for _, c := range cands {
		key := extract.NormalizeURL(c.URL)
		if seen[key] || !ShouldFollow(c.URL, src.FollowPatterns, src.IgnorePatterns) {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}

	d.logger.Debug("discovered candidates", "source", src.ID, "advertised", len(cands), "kept", len(out))
	return out, nil
}

// fromFeed parses an RSS, Atom or JSON feed.
func (d *Discoverer) fromFeed(ctx context.Context, feedURL string) ([]model.Candidate, error) {
	resp, err := d.fetcher.Feed(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	// A Parser holds per-parse state; one per call keeps Discover reentrant.
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	base, _ := url.Parse(resp.URL) //nolint:errcheck // the fetched URL always parses
	cands := make([]model.Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := itemLink(item)
		if link == "" {
			continue
		}
		if base != nil {
			if ref, err := url.Parse(link); err == nil {
				link = base.ResolveReference(ref).String()
			}
		}

		c := model.Candidate{
			URL:            link,
			Title:          strings.TrimSpace(item.Title),
			FeedCategories: item.Categories,
		}
		switch {
		case item.PublishedParsed != nil:
			c.PublishedAt = model.TimestampOf(*item.PublishedParsed)
		case item.UpdatedParsed != nil:
			c.PublishedAt = model.TimestampOf(*item.UpdatedParsed)
		}
		cands = append(cands, c)
	}
	return cands, nil
}

// itemLink returns the item's article URL, falling back to its first link
// or a permalink guid.
func itemLink(item *gofeed.Item) string {
	if l := strings.TrimSpace(item.Link); l != "" {
		return l
	}
	for _, l := range item.Links {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	if g := strings.TrimSpace(item.GUID); strings.HasPrefix(g, "http://") || strings.HasPrefix(g, "https://") {
		return g
	}
	return ""
}

// fromListing collects same-host links of an HTML listing page.
func (d *Discoverer) fromListing(ctx context.Context, listingURL string) ([]model.Candidate, error) {
	resp, err := d.fetcher.Page(ctx, listingURL)
	if err != nil {
		return nil, err
	}
	links, err := extract.Links(resp.URL, bytes.NewReader(resp.Body))
	if err != nil {
		return nil, err
	}

	self := extract.NormalizeURL(resp.URL)
	cands := make([]model.Candidate, 0, len(links))
	for _, l := range links {
		if extract.NormalizeURL(l.URL) == self {
			continue
		}
		cands = append(cands, model.Candidate{URL: l.URL, Title: l.Text})
	}
	return cands, nil
}

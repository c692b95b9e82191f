package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/newsledger/internal/category"
	"github.com/nao1215/newsledger/internal/extract"
	"github.com/nao1215/newsledger/internal/fetch"
	"github.com/nao1215/newsledger/internal/media"
	"github.com/nao1215/newsledger/internal/model"
	"github.com/nao1215/newsledger/internal/publish"
)

// Renderer loads a page in a headless browser. fetch.Renderer implements it.
type Renderer interface {
	Render(ctx context.Context, pageURL string) ([]byte, error)
}

// FetchStep downloads the article page. Sources marked render go through the
// renderer when one is configured.
type FetchStep struct {
	renderer Renderer
	logger   *slog.Logger
}

// NewFetchStep creates the fetch step. renderer may be nil.
func NewFetchStep(renderer Renderer, logger *slog.Logger) *FetchStep {
	return &FetchStep{renderer: renderer, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do fetches item.Candidate.URL.
// A body already fetched while dating the pass is kept.
func (s *FetchStep) Do(ctx context.Context, item *Item) error {
	if item.Body != nil {
		return nil
	}
	item.FetchedAt = model.Now()

	if item.Source.Render {
		if s.renderer != nil {
			body, err := s.renderer.Render(ctx, item.Candidate.URL)
			if err != nil {
				return err
			}
			item.Body, item.BaseURL, item.Rendered = body, item.Candidate.URL, true
			return nil
		}
		s.logger.Warn("render requested but no renderer is configured, fetching plain HTML",
			"source", item.Source.ID)
	}

	resp, err := item.Fetcher.Page(ctx, item.Candidate.URL)
	if err != nil {
		return err
	}
	if resp.Truncated {
		s.logger.Debug("article body truncated", "url", resp.URL, "bytes", len(resp.Body))
	}
	item.Body, item.BaseURL = resp.Body, resp.URL
	return nil
}

// ExtractStep parses the fetched markup.
type ExtractStep struct{}

// NewExtractStep creates the extract step.
func NewExtractStep() *ExtractStep {
	return &ExtractStep{}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do sets item.Page.
func (s *ExtractStep) Do(_ context.Context, item *Item) error {
	page, err := extract.Extract(item.BaseURL, bytes.NewReader(item.Body))
	if err != nil {
		return err
	}
	page.Rendered = item.Rendered
	item.Page = page
	return nil
}

// FreshnessStep decides the article's publication time and drops pages that
// were already covered by a previous pass.
//
// Dated candidates were filtered before the pass. An undated candidate takes
// the page's date; once the source has a ledger entry, it is skipped when
// that date is missing or not newer than the last visit.
type FreshnessStep struct{}

// NewFreshnessStep creates the freshness step.
func NewFreshnessStep() *FreshnessStep {
	return &FreshnessStep{}
}

// Name returns the step name.
func (s *FreshnessStep) Name() string {
	return "freshness"
}

// Do sets item.Article.PublishedAt or item.Skip.
func (s *FreshnessStep) Do(_ context.Context, item *Item) error {
	if !item.Candidate.PublishedAt.IsZero() {
		item.Article.PublishedAt = item.Candidate.PublishedAt
		return nil
	}

	published := item.Page.PublishedAt
	if item.HasLast {
		switch {
		case published.IsZero():
			item.Skip, item.SkipReason = true, "undated page on a visited source"
			return nil
		case !item.LastVisit.Before(published):
			item.Skip, item.SkipReason = true, "published before the last visit"
			return nil
		}
	}
	item.Article.PublishedAt = published
	return nil
}

// ImageStep resolves the article images. When the plain markup yields none
// and a renderer is available, the page is rendered and extracted again so
// that script-driven lazy loaders can fill in the real URLs. og:image is the
// last resort for the lead image.
type ImageStep struct {
	resolver *media.Resolver
	renderer Renderer
	logger   *slog.Logger
}

// NewImageStep creates the image step. renderer may be nil.
func NewImageStep(resolver *media.Resolver, renderer Renderer, logger *slog.Logger) *ImageStep {
	if resolver == nil {
		resolver = media.NewResolver()
	}
	return &ImageStep{resolver: resolver, renderer: renderer, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *ImageStep) Name() string {
	return "images"
}

// Do sets item.Article.Images and item.Article.Image.
func (s *ImageStep) Do(ctx context.Context, item *Item) error {
	images := s.resolve(item.Page)

	if len(images) == 0 && !item.Page.Rendered && s.renderer != nil {
		if page, err := s.render(ctx, item.Candidate.URL); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, fetch.ErrRenderUnavailable) {
				s.logger.Debug("render fallback failed", "url", item.Candidate.URL, "error", err)
			}
		} else {
			images = s.resolve(page)
			if page.OGImage != "" && item.Page.OGImage == "" {
				item.Page.OGImage = page.OGImage
			}
		}
	}

	item.Article.Images = images
	switch {
	case len(images) > 0:
		lead := images[0]
		item.Article.Image = &lead
	case item.Page.OGImage != "":
		item.Article.Image = &model.ResolvedImage{URL: item.Page.OGImage}
	}
	return nil
}

func (s *ImageStep) resolve(page *model.Page) []model.ResolvedImage {
	images := s.resolver.ResolveAll(page.Images)
	for i := range images {
		images[i] = media.Absolutize(images[i], page.URL)
	}
	return images
}

func (s *ImageStep) render(ctx context.Context, pageURL string) (*model.Page, error) {
	body, err := s.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	page, err := extract.Extract(pageURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	page.Rendered = true
	return page, nil
}

// ClassifyStep assigns the category label and completes the article record.
type ClassifyStep struct {
	taxonomy *category.Taxonomy
}

// NewClassifyStep creates the classify step.
func NewClassifyStep(taxonomy *category.Taxonomy) *ClassifyStep {
	return &ClassifyStep{taxonomy: taxonomy}
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return "classify"
}

// Do fills the identity, title and category of item.Article.
func (s *ClassifyStep) Do(_ context.Context, item *Item) error {
	page := item.Page

	articleURL := page.CanonicalURL
	if articleURL == "" {
		articleURL = page.URL
	}
	if articleURL == "" {
		articleURL = item.Candidate.URL
	}

	title := page.Title
	if title == "" {
		title = item.Candidate.Title
	}

	hints := make([]string, 0, len(item.Candidate.FeedCategories)+1)
	hints = append(hints, item.Candidate.FeedCategories...)
	if page.Section != "" {
		hints = append(hints, page.Section)
	}

	a := &item.Article
	a.ID = model.ArticleID(articleURL)
	a.SourceID = item.Source.SourceID()
	a.URL = articleURL
	a.Title = title
	a.FetchedAt = item.FetchedAt
	a.Category, a.CategoryOrigin = s.taxonomy.Resolve(a.SourceID, articleURL, hints...)
	return nil
}

// PublishStep hands the article to the publisher.
type PublishStep struct {
	publisher publish.Publisher
}

// NewPublishStep creates the publish step.
func NewPublishStep(p publish.Publisher) *PublishStep {
	return &PublishStep{publisher: p}
}

// Name returns the step name.
func (s *PublishStep) Name() string {
	return "publish"
}

// Do publishes item.Article.
func (s *PublishStep) Do(ctx context.Context, item *Item) error {
	return s.publisher.Publish(ctx, item.Article)
}

// DefaultSteps returns the standard article steps in order.
func DefaultSteps(
	resolver *media.Resolver,
	taxonomy *category.Taxonomy,
	publisher publish.Publisher,
	renderer Renderer,
	logger *slog.Logger,
) []Step {
	return []Step{
		NewFetchStep(renderer, logger),
		NewExtractStep(),
		NewFreshnessStep(),
		NewImageStep(resolver, renderer, logger),
		NewClassifyStep(taxonomy),
		NewPublishStep(publisher),
	}
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

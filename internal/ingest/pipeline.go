package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/newsledger/internal/config"
	"github.com/nao1215/newsledger/internal/discover"
	"github.com/nao1215/newsledger/internal/extract"
	"github.com/nao1215/newsledger/internal/fetch"
	"github.com/nao1215/newsledger/internal/ledger"
	"github.com/nao1215/newsledger/internal/metrics"
	"github.com/nao1215/newsledger/internal/model"
)

// Item is the working state of one article while it moves through the steps.
type Item struct {
	// Source is the merged configuration of the article's source.
	Source config.SourceConfig

	// Candidate is what discovery advertised.
	Candidate model.Candidate

	// Fetcher carries the source's headers and cookie.
	Fetcher *fetch.Fetcher

	// LastVisit and HasLast are the ledger state read at the start of the pass.
	LastVisit model.Timestamp
	HasLast   bool

	// FetchedAt is set by the fetch step.
	FetchedAt model.Timestamp

	// Body and BaseURL are the markup the page was read from.
	Body    []byte
	BaseURL string

	// Rendered is true when Body came from the headless browser.
	Rendered bool

	// Page is set by the extract step.
	Page *model.Page

	// Article is filled progressively and handed to the publisher.
	Article model.Article

	// Skip stops the remaining steps without counting as a failure.
	Skip       bool
	SkipReason string
}

// Step processes one article.
type Step interface {
	// Do advances item. A returned error fails the article; setting
	// item.Skip ends processing without failing it.
	Do(ctx context.Context, item *Item) error

	// Name returns the step's name for logging.
	Name() string
}

// Pipeline runs source passes.
// It holds no per-pass state and may be shared between goroutines.
type Pipeline struct {
	steps        []Step
	ledger       ledger.Ledger
	fetcher      *fetch.Fetcher
	metrics      *metrics.Metrics
	logger       *slog.Logger
	requestDelay time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics records pass outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithRequestDelay sets the pause between two articles of the same source.
func WithRequestDelay(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.requestDelay = d
		}
	}
}

// New creates a Pipeline without steps.
func New(l ledger.Ledger, f *fetch.Fetcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		ledger:       l,
		fetcher:      f,
		requestDelay: config.DefaultRequestDelay,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddStep appends a step. Steps run in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// Execute runs every step on item, stopping at the first error or skip.
func (p *Pipeline) Execute(ctx context.Context, item *Item) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.Do(ctx, item); err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
		if item.Skip {
			p.logger.Debug("article skipped",
				"source", item.Source.ID,
				"url", item.Candidate.URL,
				"step", step.Name(),
				"reason", item.SkipReason,
			)
			return nil
		}
	}
	return nil
}

// Run performs one pass over src and reports its outcome.
//
// The ledger is written once at the end, and only when every selected
// article was published and ctx is still alive. The recorded value is the
// newest publication time among the published articles, or the pass start
// when none of them was dated. A pass that published nothing writes nothing.
func (p *Pipeline) Run(ctx context.Context, src config.SourceConfig) *model.SourceReport {
	id := src.SourceID()
	report := model.NewSourceReport(id)
	passStart := model.TimestampOf(report.StartedAt)
	logger := p.logger.With("source", src.ID)

	defer func() {
		report.Elapsed = time.Since(report.StartedAt)
		p.metrics.Pass(report)
	}()

	last, hasLast, err := p.ledger.Get(ctx, id)
	if err != nil {
		p.fail(ctx, report, fmt.Errorf("failed to read ledger: %w", err))
		return report
	}
	report.PreviousVisit = last

	fetcher := p.fetcher.ForSource(src.Cookie, src.Headers)
	cands, err := discover.New(fetcher, discover.WithLogger(logger)).Discover(ctx, src)
	if err != nil {
		p.fail(ctx, report, fmt.Errorf("discovery failed: %w", err))
		return report
	}
	report.Discovered = len(cands)

	fresh := discover.FilterNew(cands, last, hasLast)
	report.New = len(fresh)
	if len(fresh) == 0 {
		report.Status = model.StatusUpToDate
		p.metrics.LedgerWrite(metrics.LedgerSkipped)
		logger.Info("source is up to date", "last_visit", last)
		return report
	}

	var (
		newest   model.Timestamp
		firstErr error
		prefetch map[string]prefetched
	)

	selected, truncated := discover.Select(fresh, src.MaxArticles)
	if truncated && discover.Undated(fresh) {
		// Capping undated links in page order could leave older articles
		// behind the recorded visit, so they are dated first.
		var dated []model.Candidate
		dated, prefetch, report.Failed, firstErr = p.datePages(ctx, src, fetcher, fresh, logger)
		fresh = discover.FilterNew(dated, last, hasLast)
		report.New = len(fresh)
		selected, truncated = discover.Select(fresh, src.MaxArticles)
		if truncated && discover.Undated(fresh) {
			logger.Warn("undated pages left for a later pass", "new", len(fresh), "max_articles", src.MaxArticles)
		}
	}
	if truncated {
		logger.Info("pass capped", "new", len(fresh), "max_articles", src.MaxArticles)
	}
	attempted := report.Failed + len(selected)

	for i, cand := range selected {
		if i > 0 {
			if err := sleep(ctx, p.requestDelay); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		item := &Item{
			Source:    src,
			Candidate: cand,
			Fetcher:   fetcher,
			LastVisit: last,
			HasLast:   hasLast,
		}
		if pf, ok := prefetch[cand.URL]; ok {
			item.Body, item.BaseURL, item.FetchedAt = pf.body, pf.baseURL, pf.fetchedAt
		}
		if err := p.Execute(ctx, item); err != nil {
			if ctx.Err() != nil {
				break
			}
			report.Failed++
			p.metrics.Article(id, metrics.ArticleFailed)
			logger.Warn("article failed", "url", cand.URL, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if item.Skip {
			p.metrics.Article(id, metrics.ArticleSkipped)
			continue
		}

		p.count(report, item.Article)
		if newest.Before(item.Article.PublishedAt) {
			newest = item.Article.PublishedAt
		}
	}

	if err := ctx.Err(); err != nil {
		report.Fail(model.StatusCancelled, err)
		p.metrics.LedgerWrite(metrics.LedgerSkipped)
		logger.Warn("pass interrupted, ledger left unchanged", "published", report.Published)
		return report
	}

	if report.Failed > 0 {
		report.Fail(model.StatusPartial, fmt.Errorf("%d of %d articles failed: %w", report.Failed, attempted, firstErr))
		p.metrics.LedgerWrite(metrics.LedgerSkipped)
		logger.Warn("pass incomplete, ledger left unchanged", "failed", report.Failed, "published", report.Published)
		return report
	}

	if report.Published == 0 {
		report.Status = model.StatusUpToDate
		p.metrics.LedgerWrite(metrics.LedgerSkipped)
		logger.Info("no unseen articles after page checks")
		return report
	}

	visit := newest
	if visit.IsZero() {
		if truncated {
			// Advancing to the pass start would hide the undated items left
			// for the next pass.
			report.Status = model.StatusCompleted
			p.metrics.LedgerWrite(metrics.LedgerSkipped)
			logger.Warn("capped pass without dated articles, ledger left unchanged")
			return report
		}
		visit = passStart
	}

	if err := p.ledger.RecordVisit(ctx, id, visit); err != nil {
		report.Fail(model.StatusFailed, fmt.Errorf("failed to record visit: %w", err))
		p.metrics.LedgerWrite(metrics.LedgerFailed)
		logger.Error("ledger write failed", "error", err)
		return report
	}

	report.Status = model.StatusCompleted
	report.LedgerAdvanced = true
	report.RecordedVisit = visit
	p.metrics.LedgerWrite(metrics.LedgerOK)
	logger.Info("pass completed", "published", report.Published, "recorded_visit", visit)
	return report
}

// prefetched is an article page downloaded while dating a capped pass.
type prefetched struct {
	body      []byte
	baseURL   string
	fetchedAt model.Timestamp
}

// datePages fetches the page of every undated candidate and copies the
// page's publication time onto it. Pages of plain sources are kept for the
// article steps. A page that cannot be fetched or parsed is dropped from the
// returned candidates and counted as failed, which keeps the ledger in place
// until it is retried.
func (p *Pipeline) datePages(
	ctx context.Context,
	src config.SourceConfig,
	fetcher *fetch.Fetcher,
	cands []model.Candidate,
	logger *slog.Logger,
) ([]model.Candidate, map[string]prefetched, int, error) {
	var (
		out      = make([]model.Candidate, 0, len(cands))
		cache    = make(map[string]prefetched)
		failed   int
		firstErr error
		fetched  int
	)
	for _, c := range cands {
		if !c.PublishedAt.IsZero() {
			out = append(out, c)
			continue
		}
		if fetched > 0 {
			if err := sleep(ctx, p.requestDelay); err != nil {
				break
			}
		}
		fetched++

		resp, err := fetcher.Page(ctx, c.URL)
		if err == nil {
			var page *model.Page
			if page, err = extract.Extract(resp.URL, bytes.NewReader(resp.Body)); err == nil {
				c.PublishedAt = page.PublishedAt
				if !src.Render {
					cache[c.URL] = prefetched{body: resp.Body, baseURL: resp.URL, fetchedAt: model.Now()}
				}
				out = append(out, c)
				continue
			}
		}
		if ctx.Err() != nil {
			break
		}
		failed++
		p.metrics.Article(src.SourceID(), metrics.ArticleFailed)
		logger.Warn("article failed", "url", c.URL, "step", "date", "error", err)
		if firstErr == nil {
			firstErr = fmt.Errorf("date: %w", err)
		}
	}
	return out, cache, failed, firstErr
}

// fail marks a pass that could not start as failed, or cancelled when ctx
// ended.
func (p *Pipeline) fail(ctx context.Context, report *model.SourceReport, err error) {
	status := model.StatusFailed
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		status = model.StatusCancelled
	}
	report.Fail(status, err)
	p.metrics.LedgerWrite(metrics.LedgerSkipped)
	p.logger.Error("pass failed", "source", report.SourceID, "status", status, "error", err)
}

// count adds a published article to the report and metrics.
func (p *Pipeline) count(report *model.SourceReport, a model.Article) {
	report.Published++
	for _, img := range a.Images {
		if img.WasLazyLoaded {
			report.LazyImages++
		}
	}
	if a.Image == nil {
		report.MissingImages++
	}
	if a.CategoryOrigin == model.CategoryNone {
		report.Unclassified++
	}

	p.metrics.Article(report.SourceID, metrics.ArticlePublished)
	p.metrics.Image(a.Image)
	p.metrics.Classification(a.CategoryOrigin)
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package ingest

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/newsledger/internal/config"
	"github.com/nao1215/newsledger/internal/model"
)

// BatchProcessor runs the passes of several sources concurrently.
//
// Sources are independent: a failing source is recorded in its report and
// never stops the others. The shared ledger keeps per-source updates
// isolated.
type BatchProcessor struct {
	pipeline    *Pipeline
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets how many sources run at once.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor around p.
func NewBatchProcessor(p *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipeline:    p,
		concurrency: config.DefaultBatchSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(bp)
	}
	return bp
}

// ProcessBatch runs one pass per source and returns the run report with the
// source reports in input order. Sources not started because ctx ended get
// a cancelled report.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sources []config.SourceConfig) *model.RunReport {
	run := &model.RunReport{
		StartedAt: time.Now(),
		Sources:   make([]*model.SourceReport, len(sources)),
	}

	bp.logger.Info("starting ingestion run",
		"sources", len(sources),
		"concurrency", bp.concurrency,
	)

	_ = bp.ProcessBatchWithCallback(ctx, sources, func(r *model.SourceReport, i int) { //nolint:errcheck // per-source errors live in the reports
		run.Sources[i] = r
	})

	for i, r := range run.Sources {
		if r == nil {
			r = model.NewSourceReport(sources[i].SourceID())
			r.Fail(model.StatusCancelled, ctx.Err())
			run.Sources[i] = r
		}
	}

	run.FinishedAt = time.Now()
	bp.logger.Info("ingestion run complete",
		"sources", len(sources),
		"published", run.TotalPublished(),
		"failed", run.CountStatus(model.StatusFailed),
		"partial", run.CountStatus(model.StatusPartial),
		"elapsed", run.FinishedAt.Sub(run.StartedAt),
	)
	return run
}

// ProcessBatchWithCallback runs the sources and calls callback with each
// report as soon as its pass ends. callback runs on the worker goroutine and
// receives the source's index in sources; distinct indexes may be reported
// concurrently. The returned error is ctx's error when the run was cut short.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sources []config.SourceConfig,
	callback func(report *model.SourceReport, index int),
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, src := range sources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report := bp.pipeline.Run(gctx, src)
			if report.Err != nil {
				bp.logger.Warn("source pass did not complete",
					"source", src.ID,
					"status", report.Status,
					"error", report.Err,
				)
			}
			callback(report, i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Package metrics exposes ingestion counters in the Prometheus format.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/newsledger/internal/model"
)

const namespace = "newsledger"

// Article results.
const (
	ArticlePublished = "published"
	ArticleFailed    = "failed"
	ArticleSkipped   = "skipped"
)

// Image kinds.
const (
	ImageLazy   = "lazy"
	ImageDirect = "direct"
	ImageNone   = "none"
)

// Ledger write results.
const (
	LedgerOK      = "ok"
	LedgerSkipped = "skipped"
	LedgerFailed  = "failed"
)

// Metrics holds the collectors of one process. A nil *Metrics is valid and
// records nothing, so components can take it unconditionally.
type Metrics struct {
	registry *prometheus.Registry

	articles        *prometheus.CounterVec
	images          *prometheus.CounterVec
	classifications *prometheus.CounterVec
	ledgerWrites    *prometheus.CounterVec
	passes          *prometheus.CounterVec
	passDuration    *prometheus.HistogramVec
}

// New creates the collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		articles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Articles processed, by source and result.",
		}, []string{"source", "result"}),
		images: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_total",
			Help:      "Lead images by how they were resolved.",
		}, []string{"kind"}),
		classifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Published articles by category origin.",
		}, []string{"origin"}),
		ledgerWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_writes_total",
			Help:      "Ledger updates at the end of a source pass.",
		}, []string{"result"}),
		passes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_passes_total",
			Help:      "Source passes by final status.",
		}, []string{"source", "status"}),
		passDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_pass_duration_seconds",
			Help:      "Wall-clock duration of a source pass.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"source"}),
	}
}

// Article counts one article outcome.
func (m *Metrics) Article(source model.SourceID, result string) {
	if m == nil {
		return
	}
	m.articles.WithLabelValues(string(source), result).Inc()
}

// Image counts how the lead image of a published article was obtained.
func (m *Metrics) Image(img *model.ResolvedImage) {
	if m == nil {
		return
	}
	kind := ImageNone
	if img != nil {
		kind = ImageDirect
		if img.WasLazyLoaded {
			kind = ImageLazy
		}
	}
	m.images.WithLabelValues(kind).Inc()
}

// Classification counts the origin of a published article's label.
func (m *Metrics) Classification(origin model.CategoryOrigin) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(string(origin)).Inc()
}

// LedgerWrite counts one ledger decision.
func (m *Metrics) LedgerWrite(result string) {
	if m == nil {
		return
	}
	m.ledgerWrites.WithLabelValues(result).Inc()
}

// Pass records a finished source pass.
func (m *Metrics) Pass(r *model.SourceReport) {
	if m == nil || r == nil {
		return
	}
	m.passes.WithLabelValues(string(r.SourceID), string(r.Status)).Inc()
	m.passDuration.WithLabelValues(string(r.SourceID)).Observe(r.Elapsed.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/newsledger/internal/config"
	"github.com/nao1215/newsledger/internal/fetch"
	"github.com/nao1215/newsledger/internal/ingest"
	"github.com/nao1215/newsledger/internal/ledger"
	"github.com/nao1215/newsledger/internal/media"
	"github.com/nao1215/newsledger/internal/metrics"
	"github.com/nao1215/newsledger/internal/model"
	"github.com/nao1215/newsledger/internal/publish"
	"github.com/nao1215/newsledger/internal/report"
)

// publishTokenEnv is read when --publish-token is not given.
const publishTokenEnv = "NEWSLEDGER_PUBLISH_TOKEN"

// errRunFailed is returned when at least one source did not complete.
var errRunFailed = errors.New("ingestion run incomplete")

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [source...]",
		Short: "Publish the articles that appeared since the last visit",
		Long: `Run performs one pass over every configured source, or over the named
sources. New articles are fetched, their lead image resolved, their category
decided, and they are published as JSON lines or to an HTTP endpoint.

The ledger of a source only advances when every new article of the pass was
published. A source that failed is retried from the same point next time.

Examples:
  # One pass over every source, articles on stdout
  newsledger run

  # Two sources, articles appended to a file, Markdown run report
  newsledger run example-daily example-weekly -o articles.jsonl -f markdown

  # Publish to a CMS every 15 minutes with a sqlite ledger
  newsledger run --publish-url https://cms.example/api/articles \
    --interval 15m --ledger sqlite --metrics-addr :9090

  # Fall back to a headless browser for pages with lazy-loaded images
  newsledger run --render`,
		Args: cobra.ArbitraryArgs,
		RunE: runRunCmd,
	}

	addLedgerFlags(cmd)

	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout of each HTTP request")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sources processed concurrently")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent sent to sources")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum bytes read from one page")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port)")
	cmd.Flags().Duration("delay", config.DefaultRequestDelay,
		"Pause between two article fetches of the same source")

	cmd.Flags().Bool("render", false,
		"Use a headless browser for render sources and pages without usable images")
	cmd.Flags().Duration("render-timeout", config.DefaultRenderTimeout,
		"Timeout of one headless render")

	cmd.Flags().Duration("interval", 0,
		"Repeat runs with this pause until interrupted (0 runs once)")

	cmd.Flags().StringP("output", "o", "-",
		"Append published articles as JSON lines to this file (- for stdout)")
	cmd.Flags().String("publish-url", "",
		"POST published articles to this endpoint instead of writing JSON lines")
	cmd.Flags().String("publish-token", "",
		"Bearer token for --publish-url (default: $"+publishTokenEnv+")")

	cmd.Flags().StringP("format", "f", config.ReportText,
		"Run report format: text, markdown or json")
	cmd.Flags().String("report", "",
		"Write the run report to this file (creates directories if needed)")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address, e.g. :9090")

	return cmd
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runIngest(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildConfig creates a Config from the run command's flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Sources = args
	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")
	cfg.ConfigFilePath = getStringFlag(cmd, "config")

	if err := readLedgerFlags(cmd, cfg); err != nil {
		return nil, err
	}

	var err error
	flags := cmd.Flags()
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.RequestDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.Render, err = flags.GetBool("render"); err != nil {
		return nil, err
	}
	if cfg.RenderTimeout, err = flags.GetDuration("render-timeout"); err != nil {
		return nil, err
	}
	if cfg.Interval, err = flags.GetDuration("interval"); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.PublisherEndpoint, err = flags.GetString("publish-url"); err != nil {
		return nil, err
	}
	if cfg.PublisherToken, err = flags.GetString("publish-token"); err != nil {
		return nil, err
	}
	if cfg.PublisherToken == "" {
		cfg.PublisherToken = os.Getenv(publishTokenEnv)
	}
	if cfg.ReportFormat, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report"); err != nil {
		return nil, err
	}
	if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return nil, err
	}

	// An HTTP publisher replaces the default stdout stream.
	if cfg.PublisherEndpoint != "" && !flags.Changed("output") {
		cfg.OutputFile = ""
	}

	if cfg.File, err = loadSourcesFile(cfg.ConfigFilePath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runIngest wires the components of cfg and performs one run, or one run
// per interval until ctx ends.
func runIngest(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	sources := cfg.SelectedSources()
	logger.Info("starting newsledger",
		"sources", len(sources),
		"ledger", cfg.LedgerBackend,
		"batch", cfg.BatchSize,
		"render", cfg.Render,
		"interval", cfg.Interval,
	)

	l, err := ledger.Open(ctx, cfg.LedgerOptions())
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer l.Close()

	client, err := fetch.NewHTTPClient(cfg.ProxyAddress, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}
	fetcher := fetch.NewFetcher(client,
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithLogger(logger),
	)

	// A nil *fetch.Renderer must not reach the steps as a non-nil interface.
	var renderer ingest.Renderer
	if cfg.Render {
		r := fetch.NewRenderer(
			fetch.WithRenderTimeout(cfg.RenderTimeout),
			fetch.WithRenderUserAgent(cfg.UserAgent),
			fetch.WithUserDataDir(filepath.Join(config.XDGCacheDir(), "chrome")),
			fetch.WithRenderLogger(logger),
		)
		defer r.Close()
		renderer = r
	}

	taxonomy, err := cfg.File.Taxonomy()
	if err != nil {
		return fmt.Errorf("invalid category configuration: %w", err)
	}
	resolver := media.NewResolver(
		media.WithExtraPlaceholderMarkers(cfg.File.Images.PlaceholderMarkers),
		media.WithFallbackAttrs(cfg.File.Images.FallbackAttrs),
	)

	publisher, err := openPublisher(cfg, stdout, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close publisher", "error", err)
		}
	}()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	p := ingest.New(l, fetcher,
		ingest.WithLogger(logger),
		ingest.WithMetrics(m),
		ingest.WithRequestDelay(cfg.RequestDelay),
	)
	p.AddSteps(ingest.DefaultSteps(resolver, taxonomy, publisher, renderer, logger)...)
	bp := ingest.NewBatchProcessor(p,
		ingest.WithConcurrency(cfg.BatchSize),
		ingest.WithBatchLogger(logger),
	)

	// Articles streamed to stdout keep the stream parseable by sending the
	// report to stderr.
	reportOut := stdout
	if cfg.PublisherEndpoint == "" && cfg.OutputFile == "-" {
		reportOut = stderr
	}

	for {
		run := bp.ProcessBatch(ctx, sources)
		if err := outputReport(cfg, reportOut, run); err != nil {
			return err
		}

		if cfg.Interval == 0 {
			return runError(run)
		}
		if ctx.Err() != nil {
			logger.Info("interrupted, stopping")
			return nil
		}
		if run.HasFailures() {
			logger.Warn("run incomplete, failed sources are retried next run",
				"failed", run.CountStatus(model.StatusFailed),
				"partial", run.CountStatus(model.StatusPartial),
			)
		}

		t := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			logger.Info("interrupted, stopping")
			return nil
		case <-t.C:
		}
	}
}

// openPublisher returns the HTTP publisher when an endpoint is configured,
// otherwise a JSON lines publisher on stdout or the output file.
func openPublisher(cfg *config.Config, stdout io.Writer, logger *slog.Logger) (publish.Publisher, error) {
	if cfg.PublisherEndpoint != "" {
		client, err := fetch.NewHTTPClient("", cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create publisher client: %w", err)
		}
		return publish.NewHTTPPublisher(cfg.PublisherEndpoint,
			publish.WithToken(cfg.PublisherToken),
			publish.WithHTTPClient(client),
			publish.WithLogger(logger),
		), nil
	}
	if cfg.OutputFile == "" || cfg.OutputFile == "-" {
		return publish.NewJSONLinesPublisher(stdout), nil
	}
	return publish.OpenJSONLinesFile(cfg.OutputFile)
}

// outputReport writes the run report to cfg.ReportFile, or to w.
func outputReport(cfg *config.Config, w io.Writer, run *model.RunReport) error {
	if cfg.ReportFile != "" {
		if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided report path is intentional
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		w = f
	}

	writer, err := report.New(cfg.ReportFormat, w, getVersion())
	if err != nil {
		return err
	}
	if _, err := writer.Write(run); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// runError maps a finished run to the command's exit status.
func runError(run *model.RunReport) error {
	if !run.HasFailures() {
		return nil
	}
	bad := run.CountStatus(model.StatusFailed) +
		run.CountStatus(model.StatusPartial) +
		run.CountStatus(model.StatusCancelled)
	return fmt.Errorf("%w: %d of %d sources did not complete", errRunFailed, bad, len(run.Sources))
}

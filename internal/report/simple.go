package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/newsledger/internal/model"
)

// SimpleWriter outputs a plain text summary for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose adds the image and category counters of each source.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables per-source detail lines.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders run as text.
func (w *SimpleWriter) Write(run *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, run)
	w.writeSources(&sb, run)
	w.writeFooter(&sb, run)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.RunReport) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("NEWSLEDGER RUN\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Started:   %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:  %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(sb, "Sources:   %d\n", len(run.Sources))
	fmt.Fprintf(sb, "Published: %d\n", run.TotalPublished())
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSources(sb *strings.Builder, run *model.RunReport) {
	for _, r := range run.Sources {
		if r == nil {
			continue
		}
		fmt.Fprintf(sb, "[%s] %s\n", indicator(r.Status), r.SourceID)
		fmt.Fprintf(sb, "    status: %s, new: %d, published: %d, failed: %d\n",
			statusText(r.Status), r.New, r.Published, r.Failed)
		fmt.Fprintf(sb, "    ledger: %s\n", ledgerText(r))
		if w.verbose {
			fmt.Fprintf(sb, "    discovered: %d, lazy images: %d, missing images: %d, unclassified: %d\n",
				r.Discovered, r.LazyImages, r.MissingImages, r.Unclassified)
			fmt.Fprintf(sb, "    previous visit: %s, elapsed: %s\n", r.PreviousVisit, r.Elapsed.Round(time.Millisecond))
		}
		if r.Error != "" {
			fmt.Fprintf(sb, "    error: %s\n", r.Error)
		}
	}
	sb.WriteString("\n")
}

// indicator returns a short marker for the status.
func indicator(s model.SourceStatus) string {
	switch s {
	case model.StatusCompleted:
		return "+"
	case model.StatusUpToDate:
		return "="
	case model.StatusPartial:
		return "!"
	case model.StatusFailed:
		return "!!"
	case model.StatusCancelled:
		return "x"
	default:
		return "?"
	}
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder, run *model.RunReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "completed: %d  up to date: %d  partial: %d  failed: %d  cancelled: %d\n",
		run.CountStatus(model.StatusCompleted),
		run.CountStatus(model.StatusUpToDate),
		run.CountStatus(model.StatusPartial),
		run.CountStatus(model.StatusFailed),
		run.CountStatus(model.StatusCancelled),
	)
}

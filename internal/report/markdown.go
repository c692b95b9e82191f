package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/newsledger/internal/model"
)

// MarkdownWriter outputs a run summary in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write renders run as Markdown.
func (w *MarkdownWriter) Write(run *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeSources(md, run)
	w.writeErrors(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.RunReport) {
	md.H1("newsledger run")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()},
			{"Sources", strconv.Itoa(len(run.Sources))},
			{"Published", strconv.Itoa(run.TotalPublished())},
		},
	})
	md.PlainText("")

	switch {
	case run.CountStatus(model.StatusFailed) > 0:
		md.Cautionf("%d source(s) failed; their ledger entries were not advanced.", run.CountStatus(model.StatusFailed))
	case run.HasFailures():
		md.Warningf("%d source(s) did not complete; they will be retried in full on the next run.",
			run.CountStatus(model.StatusPartial)+run.CountStatus(model.StatusCancelled))
	case run.TotalPublished() == 0:
		md.Note("All sources are up to date.")
	default:
		md.Tip("All sources completed.")
	}
	md.PlainText("")

	if run.TotalPublished() > 0 {
		w.writePieChart(md, run)
	}
}

// writePieChart shows how the published articles split across sources.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, run *model.RunReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Published articles by source"),
		piechart.WithShowData(true),
	)
	for _, r := range run.Sources {
		if r != nil && r.Published > 0 {
			chart.LabelAndIntValue(string(r.SourceID), uint64(r.Published)) //nolint:gosec // counts are never negative
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeSources(md *markdown.Markdown, run *model.RunReport) {
	md.H2("Sources")
	md.PlainText("")

	rows := make([][]string, 0, len(run.Sources))
	for _, r := range run.Sources {
		if r == nil {
			continue
		}
		rows = append(rows, []string{
			"`" + string(r.SourceID) + "`",
			statusText(r.Status),
			strconv.Itoa(r.New),
			strconv.Itoa(r.Published),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.LazyImages),
			strconv.Itoa(r.Unclassified),
			ledgerText(r),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Source", "Status", "New", "Published", "Failed", "Lazy images", "Unclassified", "Ledger"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, run *model.RunReport) {
	var failed []*model.SourceReport
	for _, r := range run.Sources {
		if r != nil && r.Error != "" {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		return
	}

	md.H2("Errors")
	md.PlainText("")
	for _, r := range failed {
		md.Details(string(r.SourceID), truncateString(r.Error, 500))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by newsledger*")
}

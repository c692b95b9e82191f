package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/newsledger/internal/model"
)

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown report format")

// Format names accepted by New.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Writer outputs a run report.
type Writer interface {
	// Write renders run and returns the number of bytes written.
	Write(run *model.RunReport) (int, error)
}

// New returns the writer for format. version is embedded in JSON output.
func New(format string, output io.Writer, version string) (Writer, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return NewSimpleWriter(output), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(version)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes the same run to several Writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders run with every writer and stops at the first error.
func (m *MultiWriter) Write(run *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText is the short human form of a source status.
func statusText(s model.SourceStatus) string {
	switch s {
	case model.StatusUpToDate:
		return "up to date"
	case model.StatusCompleted:
		return "completed"
	case model.StatusPartial:
		return "partial"
	case model.StatusFailed:
		return "failed"
	case model.StatusCancelled:
		return "cancelled"
	default:
		return string(s)
	}
}

// ledgerText describes what happened to the ledger during a pass.
func ledgerText(r *model.SourceReport) string {
	if r.LedgerAdvanced {
		return "advanced to " + r.RecordedVisit.String()
	}
	return "unchanged"
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

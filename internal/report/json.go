package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/newsledger/internal/model"
)

// JSONWriter outputs run reports as JSON.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string

	// version, when set, wraps the run in a JSONReport.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion wraps the output with the newsledger version.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport wraps a run with metadata.
type JSONReport struct {
	// Version is the newsledger version that produced the run.
	Version string `json:"version"`

	// Published is the total across sources.
	Published int `json:"published"`

	// HasFailures is true when any source did not complete.
	HasFailures bool `json:"has_failures"`

	// Run is the full run report.
	Run *model.RunReport `json:"run"`
}

// Write renders run as JSON followed by a newline.
func (w *JSONWriter) Write(run *model.RunReport) (int, error) {
	if w.version == "" {
		return w.writeJSON(run)
	}
	return w.writeJSON(&JSONReport{
		Version:     w.version,
		Published:   run.TotalPublished(),
		HasFailures: run.HasFailures(),
		Run:         run,
	})
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

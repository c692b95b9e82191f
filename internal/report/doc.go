// Package report renders the outcome of an ingestion run.
//
// Writers implement the Writer interface:
//   - SimpleWriter: plain text for the terminal
//   - MarkdownWriter: a Markdown summary for sharing, built with nao1215/markdown
//   - JSONWriter: structured output for other tools
//
// The run data itself lives in the model package.
package report

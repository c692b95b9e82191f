// Package publish hands normalized articles to their destination: a JSON
// lines stream for local runs and pipelines, or a CMS ingestion endpoint.
package publish

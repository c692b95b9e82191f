// Package ingest runs the ingestion pass of each source.
//
// A pass reads the source's last visit from the ledger, discovers candidates,
// keeps the new ones and sends every article through an ordered list of
// steps: fetch, extract, freshness check, image resolution, classification
// and publishing. The ledger advances only when every article of the pass
// went through all steps, so a failed or interrupted pass is repeated in
// full on the next run.
//
// Articles of one source are processed sequentially with a politeness delay.
// BatchProcessor runs several sources at once, bounded with errgroup.
package ingest

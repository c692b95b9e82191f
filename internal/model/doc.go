// Package model defines the core data structures used throughout newsledger.
//
// This package contains the following main types:
//   - SourceID and Timestamp: identity and canonical time of a crawl target
//   - VisitRecord: the ledger entry for one source
//   - ImageCandidate and ResolvedImage: input and output of image resolution
//   - CategoryRule and Label: the per-source taxonomy table
//   - Candidate, Page and Article: discovered, extracted and normalized content
//   - SourceReport and RunReport: the outcome of an ingestion pass
//
// Models live in their own package so that the ledger, resolver, classifier
// and the ingestion loop can share them without import cycles.
package model

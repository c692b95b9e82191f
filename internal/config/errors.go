package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors returned by Config.Validate and File.Validate.
var (
	// ErrNoSources is returned when the sources file defines no source.
	ErrNoSources = errors.New("no sources configured: add sources to .newsledger or pass --config")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidRequestDelay is returned when the request delay is negative.
	ErrInvalidRequestDelay = errors.New("invalid request delay: must be non-negative")

	// ErrInvalidInterval is returned when the run interval is negative.
	ErrInvalidInterval = errors.New("invalid interval: must be non-negative")

	// ErrInvalidLedgerBackend is returned for an unknown --ledger value.
	ErrInvalidLedgerBackend = errors.New("invalid ledger backend: use memory, file, sqlite or redis")

	// ErrMissingRedisURL is returned when the redis ledger has no URL.
	ErrMissingRedisURL = errors.New("redis ledger requires --redis-url")

	// ErrInvalidReportFormat is returned for an unknown --format value.
	ErrInvalidReportFormat = errors.New("invalid report format: use text, markdown or json")

	// ErrConflictingPublishers is returned when both --publish-url and an
	// output file are given.
	ErrConflictingPublishers = errors.New("conflicting publishers: --publish-url and --output cannot be used together")

	// ErrMissingSourceID is returned for a source entry without id.
	ErrMissingSourceID = errors.New("source without id")

	// ErrDuplicateSource is returned when two sources share an id.
	ErrDuplicateSource = errors.New("duplicate source id")

	// ErrNoEntryPoint is returned for a source with neither feed nor listing URL.
	ErrNoEntryPoint = errors.New("source needs a feed or listing URL")
)

// UnknownSourceError is returned when a requested source id is not in the
// sources file.
type UnknownSourceError struct {
	ID string
}

// Error implements error.
func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source %q", e.ID)
}

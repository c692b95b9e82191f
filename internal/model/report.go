package model

import "time"

// SourceStatus is the outcome of one source's ingestion pass.
type SourceStatus string

// Source statuses.
const (
	// StatusUpToDate means no new candidates were found.
	StatusUpToDate SourceStatus = "up_to_date"

	// StatusCompleted means every new article was published and the ledger advanced.
	StatusCompleted SourceStatus = "completed"

	// StatusPartial means at least one article failed, so the ledger was left alone.
	StatusPartial SourceStatus = "partial"

	// StatusFailed means the pass could not run (discovery or ledger failure).
	StatusFailed SourceStatus = "failed"

	// StatusCancelled means the pass was interrupted before completion.
	StatusCancelled SourceStatus = "cancelled"
)

// SourceReport summarizes one source's ingestion pass.
type SourceReport struct {
	// SourceID is the source that was processed.
	SourceID SourceID `json:"source_id"`

	// Status is the outcome of the pass.
	Status SourceStatus `json:"status"`

	// StartedAt is when the pass began.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the wall-clock duration of the pass.
	Elapsed time.Duration `json:"elapsed"`

	// PreviousVisit is the ledger value read at the start of the pass.
	PreviousVisit Timestamp `json:"previous_visit,omitempty"`

	// Discovered is the number of candidates found on the source.
	Discovered int `json:"discovered"`

	// New is the number of candidates newer than PreviousVisit.
	New int `json:"new"`

	// Published is the number of articles handed to the publisher.
	Published int `json:"published"`

	// Failed is the number of articles that could not be processed.
	Failed int `json:"failed"`

	// LazyImages counts resolved images that came from a lazy attribute.
	LazyImages int `json:"lazy_images"`

	// MissingImages counts articles with no resolvable image.
	MissingImages int `json:"missing_images"`

	// Unclassified counts articles published without a label.
	Unclassified int `json:"unclassified"`

	// LedgerAdvanced is true when RecordVisit was called successfully.
	LedgerAdvanced bool `json:"ledger_advanced"`

	// RecordedVisit is the timestamp written to the ledger, if any.
	RecordedVisit Timestamp `json:"recorded_visit,omitempty"`

	// Error holds the failure message for reports and storage.
	Error string `json:"error,omitempty"`

	// Err is the underlying error, not serialized.
	Err error `json:"-"`
}

// NewSourceReport creates a report for the given source.
func NewSourceReport(id SourceID) *SourceReport {
	return &SourceReport{
		SourceID:  id,
		StartedAt: time.Now(),
	}
}

// Fail records err on the report with the given status.
func (r *SourceReport) Fail(status SourceStatus, err error) {
	r.Status = status
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
}

// RunReport aggregates the source reports of one ingestion run.
type RunReport struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last source finished.
	FinishedAt time.Time `json:"finished_at"`

	// Sources holds one report per processed source, in configuration order.
	Sources []*SourceReport `json:"sources"`
}

// TotalPublished returns the number of articles published across all sources.
func (r *RunReport) TotalPublished() int {
	total := 0
	for _, s := range r.Sources {
		if s != nil {
			total += s.Published
		}
	}
	return total
}

// CountStatus returns how many sources ended with the given status.
func (r *RunReport) CountStatus(status SourceStatus) int {
	n := 0
	for _, s := range r.Sources {
		if s != nil && s.Status == status {
			n++
		}
	}
	return n
}

// HasFailures reports whether any source failed, was partial, or was cancelled.
func (r *RunReport) HasFailures() bool {
	return r.CountStatus(StatusFailed)+r.CountStatus(StatusPartial)+r.CountStatus(StatusCancelled) > 0
}

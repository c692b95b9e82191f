package model

import (
	"strconv"
	"time"
)

// SourceID identifies one crawl target (a site or a feed).
// It is opaque to the core and stable across runs.
type SourceID string

// String returns the source id as a plain string.
func (id SourceID) String() string {
	return string(id)
}

// Timestamp is the canonical time representation: milliseconds since the
// Unix epoch in UTC. Every ordering comparison in newsledger uses it.
type Timestamp int64

// TimestampOf converts a time.Time to a Timestamp.
// The zero time maps to 0.
func TimestampOf(t time.Time) Timestamp {
	if t.IsZero() {
		return 0
	}
	return Timestamp(t.UnixMilli())
}

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return TimestampOf(time.Now())
}

// Time converts the Timestamp back to a UTC time.Time.
func (ts Timestamp) Time() time.Time {
	return time.UnixMilli(int64(ts)).UTC()
}

// IsZero reports whether the timestamp is unset.
func (ts Timestamp) IsZero() bool {
	return ts == 0
}

// Before reports whether ts is strictly older than other.
func (ts Timestamp) Before(other Timestamp) bool {
	return ts < other
}

// String formats the timestamp as RFC 3339 with millisecond precision.
func (ts Timestamp) String() string {
	if ts.IsZero() {
		return "never"
	}
	return ts.Time().Format("2006-01-02T15:04:05.000Z07:00")
}

// ParseTimestamp accepts either epoch milliseconds or an RFC 3339 string.
func ParseTimestamp(s string) (Timestamp, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Timestamp(ms), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, err
	}
	return TimestampOf(t), nil
}

// VisitRecord is the ledger entry for one source.
// There is exactly one record per SourceID; it is overwritten, never appended.
type VisitRecord struct {
	// SourceID is the source this record belongs to.
	SourceID SourceID `json:"source_id"`

	// LastVisitedAt is the most recent successfully processed timestamp.
	// It never decreases over the lifetime of the record.
	LastVisitedAt Timestamp `json:"last_visited_at"`
}

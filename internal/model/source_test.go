package model

import (
	"testing"
	"time"
)

// TestTimestampOf tests conversion between time.Time and Timestamp.
func TestTimestampOf(t *testing.T) {
	t.Parallel()

	t.Run("zero time maps to zero timestamp", func(t *testing.T) {
		t.Parallel()
		if ts := TimestampOf(time.Time{}); ts != 0 {
			t.Errorf("expected 0, got %d", ts)
		}
	})

	t.Run("round trips with millisecond precision", func(t *testing.T) {
		t.Parallel()
		in := time.Date(2024, 3, 15, 10, 30, 0, 123_000_000, time.UTC)
		ts := TimestampOf(in)
		if ts != Timestamp(in.UnixMilli()) {
			t.Errorf("expected %d, got %d", in.UnixMilli(), ts)
		}
		if !ts.Time().Equal(in) {
			t.Errorf("expected %v, got %v", in, ts.Time())
		}
	})

	t.Run("timezone does not change the timestamp", func(t *testing.T) {
		t.Parallel()
		tokyo := time.FixedZone("JST", 9*60*60)
		utc := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		if TimestampOf(utc) != TimestampOf(utc.In(tokyo)) {
			t.Error("expected identical timestamps for the same instant")
		}
	})
}

// TestTimestampString tests timestamp formatting.
func TestTimestampString(t *testing.T) {
	t.Parallel()

	if got := Timestamp(0).String(); got != "never" {
		t.Errorf("expected 'never', got %q", got)
	}
	if got := Timestamp(1710498600123).String(); got != "2024-03-15T10:30:00.123Z" {
		t.Errorf("unexpected format: %q", got)
	}
}

// TestParseTimestamp tests parsing of epoch and RFC 3339 input.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Timestamp
		wantErr bool
	}{
		{name: "epoch milliseconds", input: "1710498600123", want: 1710498600123},
		{name: "RFC 3339", input: "2024-03-15T10:30:00Z", want: 1710498600000},
		{name: "RFC 3339 with offset", input: "2024-03-15T19:30:00+09:00", want: 1710498600000},
		{name: "garbage", input: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTimestamp(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

// TestArticleID tests stable article id derivation.
func TestArticleID(t *testing.T) {
	t.Parallel()

	a := ArticleID("https://Example.com/politics/123-x/")
	b := ArticleID("  https://example.com/politics/123-x/ ")
	if a != b {
		t.Errorf("expected equal ids, got %q and %q", a, b)
	}
	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(a))
	}
	if c := ArticleID("https://example.com/Politics/123-x/"); c == a {
		t.Error("path case must be significant")
	}
}

// TestRunReport tests the run report aggregates.
func TestRunReport(t *testing.T) {
	t.Parallel()

	r := &RunReport{Sources: []*SourceReport{
		{SourceID: "a", Status: StatusCompleted, Published: 3},
		{SourceID: "b", Status: StatusUpToDate},
		nil,
		{SourceID: "c", Status: StatusPartial, Published: 1},
	}}

	if got := r.TotalPublished(); got != 4 {
		t.Errorf("expected 4 published, got %d", got)
	}
	if got := r.CountStatus(StatusCompleted); got != 1 {
		t.Errorf("expected 1 completed, got %d", got)
	}
	if !r.HasFailures() {
		t.Error("expected HasFailures to be true with a partial source")
	}
}

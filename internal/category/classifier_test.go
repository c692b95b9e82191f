package category

import (
	"errors"
	"testing"

	"github.com/nao1215/newsledger/internal/model"
)

// newsRules is a rule table where two different path segments mean News.
var newsRules = []model.CategoryRule{
	{PathSubstrings: []string{"/politics/", "/business-economy/"}, Category: "News"},
	{PathSubstrings: []string{"/entertainment/"}, Category: "Entertainment"},
}

// TestClassify tests the generic first-match classifier.
func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		url    string
		rules  []model.CategoryRule
		want   model.Label
		wantOK bool
	}{
		{name: "first substring of a rule", url: "https://site.example/politics/123-x/", rules: newsRules, want: "News", wantOK: true},
		{name: "second substring of a rule", url: "https://site.example/business-economy/9-y/", rules: newsRules, want: "News", wantOK: true},
		{name: "second rule", url: "https://site.example/entertainment/123-y/", rules: newsRules, want: "Entertainment", wantOK: true},
		{name: "no match is absent", url: "https://site.example/people/1-z/", rules: newsRules, wantOK: false},
		{name: "elided prefix", url: ".../politics/123-x/", rules: newsRules, want: "News", wantOK: true},
		{name: "path is lower-cased", url: "https://site.example/Politics/123-X/", rules: newsRules, want: "News", wantOK: true},
		{name: "rule substrings are lower-cased", url: "https://site.example/sport/1/", rules: []model.CategoryRule{{PathSubstrings: []string{"/SPORT/"}, Category: "Sports"}}, want: "Sports", wantOK: true},
		{name: "host is not inspected", url: "https://politics.example/people/1/", rules: []model.CategoryRule{{PathSubstrings: []string{"politics"}, Category: "News"}}, wantOK: false},
		{name: "query is not inspected", url: "https://site.example/people/1/?from=/politics/", rules: newsRules, wantOK: false},
		{name: "label differs from segment", url: "https://third.example/business/77/", rules: []model.CategoryRule{{PathSubstrings: []string{"/business/"}, Category: "News"}}, want: "News", wantOK: true},
		{name: "malformed url is absent", url: "http://[::1/politics/", rules: newsRules, wantOK: false},
		{name: "empty rules", url: "https://site.example/politics/1/", rules: nil, wantOK: false},
		{name: "empty substring never matches", url: "https://site.example/x/", rules: []model.CategoryRule{{PathSubstrings: []string{""}, Category: "News"}}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Classify(tt.url, tt.rules)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v (label %q)", tt.wantOK, ok, got)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestClassifyRuleOrder tests that the earlier rule wins when two rules match.
func TestClassifyRuleOrder(t *testing.T) {
	t.Parallel()

	url := "https://site.example/articles/news/sport-roundup/"
	a := model.CategoryRule{PathSubstrings: []string{"/news/"}, Category: "News"}
	b := model.CategoryRule{PathSubstrings: []string{"sport"}, Category: "Sports"}

	if got, _ := Classify(url, []model.CategoryRule{a, b}); got != "News" {
		t.Errorf("expected News first, got %q", got)
	}
	if got, _ := Classify(url, []model.CategoryRule{b, a}); got != "Sports" {
		t.Errorf("expected Sports first, got %q", got)
	}
	unrelated := model.CategoryRule{PathSubstrings: []string{"/weather/"}, Category: "Lifestyle"}
	if got, _ := Classify(url, []model.CategoryRule{unrelated, a, unrelated, b}); got != "News" {
		t.Errorf("expected News regardless of unrelated rules, got %q", got)
	}
}

// TestNormalizePath tests path normalization.
func TestNormalizePath(t *testing.T) {
	t.Parallel()

	got, ok := NormalizePath("  https://Site.Example/ÉCONOMIE/Article?id=1#top ")
	if !ok {
		t.Fatal("expected ok")
	}
	if got != "/économie/article" {
		t.Errorf("unexpected path %q", got)
	}
}

// TestTaxonomy tests per-source tables, hints and fallbacks.
func TestTaxonomy(t *testing.T) {
	t.Parallel()

	labels := []model.Label{"News", "Entertainment", "Lifestyle", "Sports", "Business"}

	newTaxonomy := func(t *testing.T) *Taxonomy {
		t.Helper()
		tx, err := NewTaxonomy(labels)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := tx.AddSource("daily", Table{
			Rules:    newsRules,
			Aliases:  map[string]model.Label{"Showbiz": "entertainment"},
			Fallback: "news",
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := tx.AddSource("weekly", Table{
			Rules: []model.CategoryRule{{PathSubstrings: []string{"/articles/news/"}, Category: "News"}},
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return tx
	}

	t.Run("empty label set is rejected", func(t *testing.T) {
		t.Parallel()
		if _, err := NewTaxonomy([]model.Label{""}); !errors.Is(err, ErrEmptyLabelSet) {
			t.Errorf("expected ErrEmptyLabelSet, got %v", err)
		}
	})

	t.Run("duplicate labels collapse", func(t *testing.T) {
		t.Parallel()
		tx, err := NewTaxonomy([]model.Label{"News", "news", "Sports"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := tx.Labels(); len(got) != 2 {
			t.Errorf("expected 2 labels, got %v", got)
		}
	})

	t.Run("unknown rule label is rejected", func(t *testing.T) {
		t.Parallel()
		tx := newTaxonomy(t)
		err := tx.AddSource("bad", Table{Rules: []model.CategoryRule{{PathSubstrings: []string{"/x/"}, Category: "Weather"}}})
		if !errors.Is(err, ErrUnknownLabel) {
			t.Errorf("expected ErrUnknownLabel, got %v", err)
		}
	})

	t.Run("unknown alias and fallback labels are rejected", func(t *testing.T) {
		t.Parallel()
		tx := newTaxonomy(t)
		if err := tx.AddSource("bad", Table{Aliases: map[string]model.Label{"x": "Weather"}}); !errors.Is(err, ErrUnknownLabel) {
			t.Errorf("expected ErrUnknownLabel for alias, got %v", err)
		}
		if err := tx.AddSource("bad", Table{Fallback: "Weather"}); !errors.Is(err, ErrUnknownLabel) {
			t.Errorf("expected ErrUnknownLabel for fallback, got %v", err)
		}
	})

	t.Run("tables are per source", func(t *testing.T) {
		t.Parallel()
		tx := newTaxonomy(t)
		url := "https://any.example/articles/news/1/"
		if _, ok := tx.Classify("daily", url); ok {
			t.Error("daily rules must not match weekly paths")
		}
		if got, ok := tx.Classify("weekly", url); !ok || got != "News" {
			t.Errorf("expected News for weekly, got %q ok=%v", got, ok)
		}
		if _, ok := tx.Classify("unknown", url); ok {
			t.Error("unknown source must not match")
		}
	})

	t.Run("resolve prefers rules", func(t *testing.T) {
		t.Parallel()
		tx := newTaxonomy(t)
		got, origin := tx.Resolve("daily", "https://d.example/entertainment/1/", "politics")
		if got != "Entertainment" || origin != model.CategoryFromRule {
			t.Errorf("expected Entertainment from rule, got %q from %s", got, origin)
		}
	})

	t.Run("resolve uses aliases then label names", func(t *testing.T) {
		t.Parallel()
		tx := newTaxonomy(t)
		got, origin := tx.Resolve("daily", "https://d.example/people/1/", "", "SHOWBIZ")
		if got != "Entertainment" || origin != model.CategoryFromSource {
			t.Errorf("expected Entertainment from alias, got %q from %s", got, origin)
		}
		got, origin = tx.Resolve("daily", "https://d.example/people/1/", "sports")
		if got != "Sports" || origin != model.CategoryFromSource {
			t.Errorf("expected Sports from label name, got %q from %s", got, origin)
		}
	})

	t.Run("resolve falls back to canonical fallback label", func(t *testing.T) {
		t.Parallel()
		tx := newTaxonomy(t)
		got, origin := tx.Resolve("daily", "https://d.example/people/1/", "gardening")
		if got != "News" || origin != model.CategoryFromFallback {
			t.Errorf("expected News fallback, got %q from %s", got, origin)
		}
	})

	t.Run("resolve without fallback is none", func(t *testing.T) {
		t.Parallel()
		tx := newTaxonomy(t)
		got, origin := tx.Resolve("weekly", "https://w.example/people/1/")
		if got != "" || origin != model.CategoryNone {
			t.Errorf("expected no label, got %q from %s", got, origin)
		}
	})
}

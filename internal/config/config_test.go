package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/newsledger/internal/category"
	"github.com/nao1215/newsledger/internal/ledger"
	"github.com/nao1215/newsledger/internal/model"
)

// TestNewConfig documents the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default ledger backend is file", func(t *testing.T) {
		t.Parallel()
		if cfg.LedgerBackend != ledger.BackendFile {
			t.Errorf("expected file backend, got %q", cfg.LedgerBackend)
		}
	})

	t.Run("default ledger dir is the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.LedgerDir != XDGDataDir() {
			t.Errorf("expected %q, got %q", XDGDataDir(), cfg.LedgerDir)
		}
	})

	t.Run("default timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default batch size is 4", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 4 {
			t.Errorf("expected 4, got %d", cfg.BatchSize)
		}
	})

	t.Run("default output is stdout json lines", func(t *testing.T) {
		t.Parallel()
		if cfg.OutputFile != "-" {
			t.Errorf("expected \"-\", got %q", cfg.OutputFile)
		}
	})

	t.Run("default report format is text", func(t *testing.T) {
		t.Parallel()
		if cfg.ReportFormat != ReportText {
			t.Errorf("expected text, got %q", cfg.ReportFormat)
		}
	})

	t.Run("single pass by default", func(t *testing.T) {
		t.Parallel()
		if cfg.Interval != 0 {
			t.Errorf("expected no interval, got %v", cfg.Interval)
		}
	})

	t.Run("default user agent names the project", func(t *testing.T) {
		t.Parallel()
		if !strings.Contains(cfg.UserAgent, "newsledger") {
			t.Errorf("unexpected user agent %q", cfg.UserAgent)
		}
	})
}

// TestConfigValidate tests every validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.File = &File{Sources: []SourceConfig{
			{ID: "daily", Feed: "https://daily.example/feed"},
			{ID: "weekly", Listing: "https://weekly.example/"},
		}}
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("known source filter is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Sources = []string{"weekly"}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("unknown source filter is rejected", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Sources = []string{"monthly"}

		var unknown *UnknownSourceError
		if err := cfg.Validate(); !errors.As(err, &unknown) || unknown.ID != "monthly" {
			t.Errorf("expected UnknownSourceError for monthly, got %v", err)
		}
	})

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{name: "nil file", modify: func(c *Config) { c.File = nil }, want: ErrNoSources},
		{name: "empty sources", modify: func(c *Config) { c.File.Sources = nil }, want: ErrNoSources},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, want: ErrInvalidTimeout},
		{name: "zero batch size", modify: func(c *Config) { c.BatchSize = 0 }, want: ErrInvalidBatchSize},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, want: ErrInvalidMaxBodySize},
		{name: "negative delay", modify: func(c *Config) { c.RequestDelay = -time.Second }, want: ErrInvalidRequestDelay},
		{name: "negative interval", modify: func(c *Config) { c.Interval = -time.Minute }, want: ErrInvalidInterval},
		{name: "unknown backend", modify: func(c *Config) { c.LedgerBackend = "etcd" }, want: ErrInvalidLedgerBackend},
		{name: "redis without url", modify: func(c *Config) { c.LedgerBackend = "redis" }, want: ErrMissingRedisURL},
		{name: "unknown report format", modify: func(c *Config) { c.ReportFormat = "html" }, want: ErrInvalidReportFormat},
		{name: "publisher endpoint and output file", modify: func(c *Config) {
			c.PublisherEndpoint = "https://cms.example/api"
			c.OutputFile = "articles.jsonl"
		}, want: ErrConflictingPublishers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("redis with url is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.LedgerBackend = "REDIS"
		cfg.RedisURL = "redis://localhost:6379/0"
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("publisher endpoint with stdout output is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.PublisherEndpoint = "https://cms.example/api"
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

// TestLedgerOptions tests the mapping to ledger.Options.
func TestLedgerOptions(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.LedgerBackend = ledger.BackendSQLite
	cfg.LedgerDir = "/var/lib/newsledger"
	cfg.RedisKey = "k"

	got := cfg.LedgerOptions()
	want := ledger.Options{Backend: "sqlite", Dir: "/var/lib/newsledger", RedisKey: "k"}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

// TestFileSource tests merging of defaults into a source.
func TestFileSource(t *testing.T) {
	t.Parallel()

	f := &File{
		Defaults: SourceConfig{
			Cookie:         "consent=1",
			Headers:        map[string]string{"Accept-Language": "en", "X-Env": "prod"},
			IgnorePatterns: []string{"/tag/*"},
			Aliases:        map[string]model.Label{"showbiz": "Entertainment"},
			Fallback:       "News",
			MaxArticles:    10,
		},
		Sources: []SourceConfig{
			{
				ID:      "daily",
				Feed:    "https://daily.example/feed",
				Headers: map[string]string{"X-Env": "staging"},
				Rules:   []model.CategoryRule{{PathSubstrings: []string{"/politics/"}, Category: "News"}},
				Aliases: map[string]model.Label{"footy": "Sports"},
			},
			{
				ID:          "weekly",
				Listing:     "https://weekly.example/",
				Cookie:      "consent=2",
				Render:      true,
				MaxArticles: 3,
				Fallback:    "Lifestyle",
			},
		},
	}

	t.Run("unknown source", func(t *testing.T) {
		t.Parallel()
		if _, ok := f.Source("monthly"); ok {
			t.Error("expected unknown source")
		}
	})

	t.Run("defaults fill unset fields", func(t *testing.T) {
		t.Parallel()
		got, ok := f.Source("daily")
		if !ok {
			t.Fatal("expected daily")
		}
		if got.Cookie != "consent=1" || got.Fallback != "News" || got.MaxArticles != 10 {
			t.Errorf("defaults not applied: %+v", got)
		}
		if got.Headers["Accept-Language"] != "en" || got.Headers["X-Env"] != "staging" {
			t.Errorf("headers not merged: %v", got.Headers)
		}
		if got.Aliases["showbiz"] != "Entertainment" || got.Aliases["footy"] != "Sports" {
			t.Errorf("aliases not merged: %v", got.Aliases)
		}
		if len(got.IgnorePatterns) != 1 || len(got.Rules) != 1 {
			t.Errorf("lists not carried: %+v", got)
		}
	})

	t.Run("source values override defaults", func(t *testing.T) {
		t.Parallel()
		got, _ := f.Source("weekly")
		if got.Cookie != "consent=2" || got.Fallback != "Lifestyle" || got.MaxArticles != 3 || !got.Render {
			t.Errorf("overrides not applied: %+v", got)
		}
		if got.Feed != "" || got.Listing != "https://weekly.example/" {
			t.Errorf("entry points must come from the source: %+v", got)
		}
	})

	t.Run("defaults are not mutated", func(t *testing.T) {
		t.Parallel()
		_, _ = f.Source("daily")
		if f.Defaults.Headers["X-Env"] != "prod" {
			t.Error("merge mutated the defaults")
		}
	})

	t.Run("max articles falls back to the package default", func(t *testing.T) {
		t.Parallel()
		bare := &File{Sources: []SourceConfig{{ID: "a", Feed: "https://a.example/feed"}}}
		got, _ := bare.Source("a")
		if got.MaxArticles != DefaultMaxArticles {
			t.Errorf("expected %d, got %d", DefaultMaxArticles, got.MaxArticles)
		}
	})
}

// TestFileValidate tests source list validation.
func TestFileValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sources []SourceConfig
		want    error
	}{
		{name: "valid", sources: []SourceConfig{{ID: "a", Feed: "x"}, {ID: "b", Listing: "y"}}},
		{name: "missing id", sources: []SourceConfig{{Feed: "x"}}, want: ErrMissingSourceID},
		{name: "duplicate id", sources: []SourceConfig{{ID: "a", Feed: "x"}, {ID: "a", Feed: "y"}}, want: ErrDuplicateSource},
		{name: "no entry point", sources: []SourceConfig{{ID: "a"}}, want: ErrNoEntryPoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := (&File{Sources: tt.sources}).Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestSelectedSources tests the --source filter.
func TestSelectedSources(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.File = &File{
		Defaults: SourceConfig{Fallback: "News"},
		Sources: []SourceConfig{
			{ID: "a", Feed: "https://a.example/feed"},
			{ID: "b", Feed: "https://b.example/feed"},
			{ID: "c", Feed: "https://c.example/feed"},
		},
	}

	if got := cfg.SelectedSources(); len(got) != 3 {
		t.Fatalf("expected all sources, got %d", len(got))
	}

	cfg.Sources = []string{"c", "a"}
	got := cfg.SelectedSources()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("expected a and c in file order, got %+v", got)
	}
	if got[0].Fallback != "News" {
		t.Error("expected merged defaults")
	}
}

// TestFileTaxonomy tests building per-source taxonomies.
func TestFileTaxonomy(t *testing.T) {
	t.Parallel()

	t.Run("default labels", func(t *testing.T) {
		t.Parallel()
		f := &File{Sources: []SourceConfig{{
			ID:    "a",
			Feed:  "https://a.example/feed",
			Rules: []model.CategoryRule{{PathSubstrings: []string{"/business/"}, Category: "news"}},
		}}}
		tx, err := f.Taxonomy()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, ok := tx.Classify("a", "https://a.example/business/1/")
		if !ok || got != "News" {
			t.Errorf("expected News, got %q ok=%v", got, ok)
		}
	})

	t.Run("label outside the set is rejected", func(t *testing.T) {
		t.Parallel()
		f := &File{
			Labels:  []model.Label{"News"},
			Sources: []SourceConfig{{ID: "a", Feed: "x", Fallback: "Sports"}},
		}
		if _, err := f.Taxonomy(); !errors.Is(err, category.ErrUnknownLabel) {
			t.Errorf("expected ErrUnknownLabel, got %v", err)
		}
	})
}

// TestLoadConfigFile tests reading the sources file.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		return path
	}

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadConfigFile("/nonexistent/path/.newsledger")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()
		path := write(t, `labels: [News, Entertainment, Lifestyle, Sports, Business]
images:
  placeholderMarkers: ["blank.gif"]
  fallbackAttrs: [data-src, data-original]
defaults:
  cookie: "consent=1"
  fallback: News
sources:
  - id: daily
    feed: https://daily.example/feed
    rules:
      - paths: ["/politics/", "/business-economy/"]
        category: News
      - paths: ["/entertainment/"]
        category: Entertainment
    aliases:
      showbiz: Entertainment
  - id: weekly
    listing: https://weekly.example/
    render: true
    followPatterns: ["/articles/*"]
`)

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cf.Labels) != 5 || len(cf.Sources) != 2 {
			t.Fatalf("unexpected file: %+v", cf)
		}
		if cf.Images.PlaceholderMarkers[0] != "blank.gif" || len(cf.Images.FallbackAttrs) != 2 {
			t.Errorf("unexpected images: %+v", cf.Images)
		}
		daily := cf.Sources[0]
		if len(daily.Rules) != 2 || daily.Rules[0].PathSubstrings[1] != "/business-economy/" || daily.Rules[1].Category != "Entertainment" {
			t.Errorf("unexpected rules: %+v", daily.Rules)
		}
		if daily.Aliases["showbiz"] != "Entertainment" {
			t.Errorf("unexpected aliases: %v", daily.Aliases)
		}
		weekly := cf.Sources[1]
		if !weekly.Render || weekly.FollowPatterns[0] != "/articles/*" {
			t.Errorf("unexpected weekly source: %+v", weekly)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()
		if _, err := LoadConfigFile(write(t, `invalid: yaml: content: [}`)); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("rejects invalid sources", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(write(t, "sources:\n  - id: a\n"))
		if !errors.Is(err, ErrNoEntryPoint) {
			t.Errorf("expected ErrNoEntryPoint, got %v", err)
		}
	})
}

// TestFindConfigFile tests the search order.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("sources: []"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()
		if got := FindConfigFile("/nonexistent/path/config.yaml"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

// TestXDGDirs tests XDG directory helpers.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
		"cache":  XDGCacheDir(),
	} {
		if filepath.Base(dir) != AppName {
			t.Errorf("%s dir %q does not end with %q", name, dir, AppName)
		}
	}
}

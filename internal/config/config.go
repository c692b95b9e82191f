package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/newsledger/internal/ledger"
)

// Default configuration values.
const (
	// AppName is used for XDG directory paths.
	AppName = "newsledger"

	// DefaultTimeout bounds one HTTP request to a source or the publisher.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of sources processed concurrently.
	// Articles of one source are processed sequentially so that a failed
	// article stops the pass before the ledger is touched.
	DefaultBatchSize = 4

	// DefaultUserAgent identifies the crawler in source access logs.
	DefaultUserAgent = "newsledger/1.0 (+https://github.com/nao1215/newsledger)"

	// DefaultMaxBodySize caps how much of a page is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultMaxArticles caps the new articles handled per source and pass.
	// Zero in the sources file means this default.
	DefaultMaxArticles = 50

	// DefaultRequestDelay is the politeness delay between article fetches
	// on the same source.
	DefaultRequestDelay = 500 * time.Millisecond

	// DefaultRenderTimeout bounds one headless render.
	DefaultRenderTimeout = 45 * time.Second
)

// Report formats.
const (
	ReportText     = "text"
	ReportMarkdown = "markdown"
	ReportJSON     = "json"
)

// Config holds the options of one newsledger invocation.
// It is populated from CLI flags and passed down explicitly.
type Config struct {
	// ConfigFilePath is the sources file. When empty, .newsledger is
	// searched in the current directory and then in the home directory.
	ConfigFilePath string

	// File is the loaded sources file.
	File *File

	// Sources restricts a run to these source ids. Empty means all.
	Sources []string

	// LedgerBackend is memory, file, sqlite or redis. Empty means file.
	LedgerBackend string

	// LedgerDir holds the file and sqlite ledgers.
	// Defaults to the XDG data directory (~/.local/share/newsledger on Linux).
	LedgerDir string

	// LedgerPath overrides the ledger file or database path.
	LedgerPath string

	// RedisURL is the redis:// URL of the redis ledger.
	RedisURL string

	// RedisKey is the hash holding the visits. Empty means the ledger default.
	RedisKey string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// BatchSize is the number of sources processed concurrently.
	BatchSize int

	// UserAgent is sent with every source request.
	UserAgent string

	// MaxBodySize caps a response body in bytes. Zero means the default.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in host:port form.
	ProxyAddress string

	// RequestDelay is the pause between two article fetches of one source.
	RequestDelay time.Duration

	// Render enables the headless browser fallback for pages whose static
	// markup yields no usable image, and for sources marked render: true.
	Render bool

	// RenderTimeout bounds one headless render.
	RenderTimeout time.Duration

	// Interval repeats runs until interrupted. Zero means a single pass.
	Interval time.Duration

	// OutputFile receives published articles as JSON lines. "-" is stdout.
	OutputFile string

	// PublisherEndpoint, when set, receives each article as an HTTP POST.
	PublisherEndpoint string

	// PublisherToken is sent as a bearer token to PublisherEndpoint.
	PublisherToken string

	// ReportFormat is text, markdown or json.
	ReportFormat string

	// ReportFile receives the run report instead of stdout.
	ReportFile string

	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090".
	MetricsAddr string

	// Verbose selects Debug logging; otherwise only warnings and errors.
	Verbose bool

	// LogJSON selects JSON log output.
	LogJSON bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		LedgerBackend: ledger.BackendFile,
		LedgerDir:     XDGDataDir(),
		Timeout:       DefaultTimeout,
		BatchSize:     DefaultBatchSize,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
		RequestDelay:  DefaultRequestDelay,
		RenderTimeout: DefaultRenderTimeout,
		OutputFile:    "-",
		ReportFormat:  ReportText,
	}
}

// XDGDataDir returns the data directory.
// On Linux: ~/.local/share/newsledger
// On macOS: ~/Library/Application Support/newsledger
// On Windows: %LOCALAPPDATA%\newsledger
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the cache directory, used for the headless browser profile.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.File == nil || len(c.File.Sources) == 0 {
		return ErrNoSources
	}
	for _, id := range c.Sources {
		if _, ok := c.File.Source(id); !ok {
			return &UnknownSourceError{ID: id}
		}
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.RequestDelay < 0 {
		return ErrInvalidRequestDelay
	}
	if c.Interval < 0 {
		return ErrInvalidInterval
	}

	switch strings.ToLower(c.LedgerBackend) {
	case "", ledger.BackendMemory, ledger.BackendFile, ledger.BackendSQLite:
	case ledger.BackendRedis:
		if c.RedisURL == "" {
			return ErrMissingRedisURL
		}
	default:
		return ErrInvalidLedgerBackend
	}

	switch c.ReportFormat {
	case "", ReportText, ReportMarkdown, ReportJSON:
	default:
		return ErrInvalidReportFormat
	}

	if c.PublisherEndpoint != "" && c.OutputFile != "" && c.OutputFile != "-" {
		return ErrConflictingPublishers
	}
	return nil
}

// LedgerOptions maps the ledger settings to ledger.Options.
func (c *Config) LedgerOptions() ledger.Options {
	return ledger.Options{
		Backend:  c.LedgerBackend,
		Dir:      c.LedgerDir,
		Path:     c.LedgerPath,
		RedisURL: c.RedisURL,
		RedisKey: c.RedisKey,
	}
}

// SelectedSources returns the sources of this run, merged with the file
// defaults, in file order. Call Validate first.
func (c *Config) SelectedSources() []SourceConfig {
	if c.File == nil {
		return nil
	}
	want := make(map[string]bool, len(c.Sources))
	for _, id := range c.Sources {
		want[id] = true
	}

	out := make([]SourceConfig, 0, len(c.File.Sources))
	for _, s := range c.File.Sources {
		if len(want) > 0 && !want[s.ID] {
			continue
		}
		merged, _ := c.File.Source(s.ID)
		out = append(out, merged)
	}
	return out
}

package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	// HTTP headers sent to sources and to the publisher endpoint
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,

	// Publisher and proxy credentials
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"api-key":       true,
	"access_token":  true,
	"refresh_token": true,
	"password":      true,
	"passwd":        true,
	"secret":        true,

	// Sessions
	"session":    true,
	"session_id": true,
	"sessionid":  true,
	"sid":        true,
}

// sensitiveKeywords mask any key that contains them, such as
// "publisher_token" or "proxy_password". The bare word "key" is left out on
// purpose: "cache_key" or "redis_key" are ordinary attributes here.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "cookie",
}

// sensitivePatterns mask a string value regardless of its key.
var sensitivePatterns = []*regexp.Regexp{
	// JWT
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Bearer and Basic credentials
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),

	// Long opaque API keys. Article ids are 32 hex characters and must stay
	// readable, so the threshold sits above that.
	regexp.MustCompile(`^[a-zA-Z0-9]{40,}$`),

	// AWS access keys
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`),

	// PEM private keys
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),

	// Credentials embedded in a URL (proxy or Redis URLs)
	regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://[^/@\s]*:[^/@\s]+@`),
}

// MaskValue replaces sensitive values.
const MaskValue = "***REDACTED***"

// SecureHandler wraps an slog.Handler and masks sensitive attributes before
// they reach it.
type SecureHandler struct {
	handler slog.Handler

	// extra are lower-cased keys masked in addition to sensitiveKeys,
	// typically custom header names from the sources file.
	extra map[string]bool
}

// NewSecureHandler wraps handler. A nil handler falls back to
// slog.Default().Handler(). extraKeys are masked in addition to the built-in
// sensitive keys, matched case-insensitively.
func NewSecureHandler(handler slog.Handler, extraKeys ...string) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	h := &SecureHandler{handler: handler}
	for _, k := range extraKeys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			if h.extra == nil {
				h.extra = make(map[string]bool)
			}
			h.extra[k] = true
		}
	}
	return h
}

// Enabled delegates to the wrapped handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and forwards it.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs masks attrs before attaching them.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitized[i] = h.sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitized), extra: h.extra}
}

// WithGroup returns a handler that nests attributes under name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name), extra: h.extra}
}

// sanitizeAttr masks a, descending into groups.
func (h *SecureHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitized := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			sanitized[i] = h.sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitized...)}
	}

	key := strings.ToLower(a.Key)
	if sensitiveKeys[key] || h.extra[key] || containsSensitiveKeyword(key) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString && isSensitiveValue(a.Value.String()) {
		return slog.String(a.Key, MaskValue)
	}
	return a
}

// containsSensitiveKeyword reports whether key contains a sensitive keyword.
func containsSensitiveKeyword(key string) bool {
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue reports whether value matches a sensitive pattern.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// Options selects the level and format of a logger built by New.
type Options struct {
	// Verbose selects Debug; otherwise only warnings and errors are written.
	Verbose bool

	// JSON selects the JSON handler instead of the text handler.
	JSON bool

	// SensitiveKeys are extra attribute keys to mask.
	SensitiveKeys []string
}

// New creates a masking logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	ho := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if opts.JSON {
		inner = slog.NewJSONHandler(w, ho)
	} else {
		inner = slog.NewTextHandler(w, ho)
	}
	return slog.New(NewSecureHandler(inner, opts.SensitiveKeys...))
}

// NewSecureLogger creates a masking text logger. verbose selects Debug,
// otherwise Warn.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return New(w, Options{Verbose: verbose})
}

// NewSecureJSONLogger is NewSecureLogger with JSON output, for log shippers.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return New(w, Options{Verbose: verbose, JSON: true})
}

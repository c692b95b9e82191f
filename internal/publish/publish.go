package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nao1215/newsledger/internal/model"
)

// ErrRejected matches every non-2xx answer of the publishing endpoint.
var ErrRejected = errors.New("article rejected by publisher")

// Publisher delivers articles. Implementations must be safe for concurrent use.
type Publisher interface {
	// Publish delivers one article. A nil error means the article is durable
	// at the destination.
	Publish(ctx context.Context, a model.Article) error

	// Close flushes and releases the destination.
	Close() error
}

// JSONLinesPublisher writes one JSON object per line.
type JSONLinesPublisher struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	enc    *json.Encoder
}

// NewJSONLinesPublisher writes to w. Close does not close w.
func NewJSONLinesPublisher(w io.Writer) *JSONLinesPublisher {
	return &JSONLinesPublisher{w: w, enc: json.NewEncoder(w)}
}

// OpenJSONLinesFile appends to the file at path, creating it and its
// directory when missing.
func OpenJSONLinesFile(path string) (*JSONLinesPublisher, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}
	p := NewJSONLinesPublisher(f)
	p.closer = f
	return p, nil
}

// Publish writes a as one line. Lines from concurrent sources never interleave.
func (p *JSONLinesPublisher) Publish(ctx context.Context, a model.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enc.Encode(a); err != nil {
		return fmt.Errorf("failed to write article %s: %w", a.ID, err)
	}
	return nil
}

// Close syncs and closes the file opened by OpenJSONLinesFile.
func (p *JSONLinesPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closer == nil {
		return nil
	}
	if f, ok := p.closer.(*os.File); ok {
		if err := f.Sync(); err != nil {
			_ = f.Close() //nolint:errcheck // the sync error is the one to report
			return err
		}
	}
	err := p.closer.Close()
	p.closer = nil
	return err
}

// RejectedError is returned when the endpoint answers with a non-2xx status.
type RejectedError struct {
	ArticleID  string
	StatusCode int
	Message    string
}

// Error implements error.
func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("article %s rejected: %d", e.ArticleID, e.StatusCode)
	}
	return fmt.Sprintf("article %s rejected: %d: %s", e.ArticleID, e.StatusCode, e.Message)
}

// Is makes errors.Is(err, ErrRejected) true.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// maxErrorBody bounds how much of an error response is kept in RejectedError.
const maxErrorBody = 512

// HTTPPublisher POSTs each article as JSON to a CMS endpoint.
type HTTPPublisher struct {
	client   *http.Client
	endpoint string
	token    string
	logger   *slog.Logger
}

// HTTPOption configures an HTTPPublisher.
type HTTPOption func(*HTTPPublisher)

// WithToken sets the bearer token.
func WithToken(token string) HTTPOption {
	return func(p *HTTPPublisher) {
		p.token = token
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPPublisher) {
		if c != nil {
			p.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(p *HTTPPublisher) {
		p.logger = logger
	}
}

// NewHTTPPublisher creates a publisher for endpoint.
func NewHTTPPublisher(endpoint string, opts ...HTTPOption) *HTTPPublisher {
	p := &HTTPPublisher{
		client:   http.DefaultClient,
		endpoint: endpoint,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish POSTs a. The article id is sent as Idempotency-Key, and 409
// Conflict is treated as already published, so a pass repeated after a
// ledger failure does not create duplicates.
func (p *HTTPPublisher) Publish(ctx context.Context, a model.Article) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode article %s: %w", a.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", a.ID)
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	p.logger.Debug("publishing article", "id", a.ID, "url", a.URL, "endpoint", p.endpoint, "token", p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to publish article %s: %w", a.ID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode == http.StatusConflict:
		p.logger.Debug("article already published", "id", a.ID)
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // message is informational
	return &RejectedError{
		ArticleID:  a.ID,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(msg)),
	}
}

// Close is a no-op; the HTTP client is shared.
func (p *HTTPPublisher) Close() error {
	return nil
}

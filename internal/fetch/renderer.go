package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// Renderer defaults.
const (
	DefaultRenderTimeout = 45 * time.Second
	defaultScrollSteps   = 6
	defaultScrollPause   = 300 * time.Millisecond
)

// Renderer loads pages in one shared headless Chrome, one tab per page.
// The browser starts on the first Render call.
type Renderer struct {
	timeout     time.Duration
	userAgent   string
	execPath    string
	userDataDir string
	scrollSteps int
	scrollPause time.Duration
	logger      *slog.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithRenderTimeout bounds one page render.
func WithRenderTimeout(d time.Duration) RendererOption {
	return func(r *Renderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRenderUserAgent sets the browser User-Agent.
func WithRenderUserAgent(ua string) RendererOption {
	return func(r *Renderer) {
		r.userAgent = ua
	}
}

// WithExecPath selects the Chrome binary. Empty means auto-detect.
func WithExecPath(path string) RendererOption {
	return func(r *Renderer) {
		r.execPath = path
	}
}

// WithUserDataDir sets the browser profile directory.
func WithUserDataDir(dir string) RendererOption {
	return func(r *Renderer) {
		r.userDataDir = dir
	}
}

// WithScroll sets how many viewport-high scroll steps are taken, and the
// pause after each, before the markup is captured.
func WithScroll(steps int, pause time.Duration) RendererOption {
	return func(r *Renderer) {
		if steps >= 0 {
			r.scrollSteps = steps
		}
		if pause >= 0 {
			r.scrollPause = pause
		}
	}
}

// WithRenderLogger sets the logger.
func WithRenderLogger(logger *slog.Logger) RendererOption {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// NewRenderer creates a Renderer. No browser is started yet.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		timeout:     DefaultRenderTimeout,
		scrollSteps: defaultScrollSteps,
		scrollPause: defaultScrollPause,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// allocatorOptions returns the Chrome flags for this renderer.
func (r *Renderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	if r.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(r.userAgent))
	}
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}
	if r.userDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(r.userDataDir))
	}
	return opts
}

// browser returns the shared browser context, starting it if needed.
func (r *Renderer) browser() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browserCtx != nil {
		return r.browserCtx
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), r.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		r.logger.Debug(fmt.Sprintf(format, args...))
	}))
	r.browserCtx, r.browserCancel, r.allocCancel = browserCtx, browserCancel, allocCancel
	return browserCtx
}

// Render loads pageURL, scrolls through it and returns the serialized DOM.
func (r *Renderer) Render(ctx context.Context, pageURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A tab derived from the browser context; cancelling it closes the tab
	// only. The caller's ctx is linked so that shutdown aborts the render.
	tabCtx, cancelTab := chromedp.NewContext(r.browser())
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTimeout()

	var out string
	start := time.Now()
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		r.scroll(),
		chromedp.OuterHTML("html", &out, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrRenderUnavailable, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to render %s: %w", pageURL, err)
	}

	r.logger.Debug("page rendered", "url", pageURL, "elapsed", time.Since(start), "bytes", len(out))
	return []byte(out), nil
}

// scroll steps through the page so that intersection-observer based lazy
// loaders swap in the real image URLs.
func (r *Renderer) scroll() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for range r.scrollSteps {
			if err := chromedp.Evaluate(`window.scrollBy(0, window.innerHeight)`, nil).Do(ctx); err != nil {
				return err
			}
			if err := chromedp.Sleep(r.scrollPause).Do(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close shuts the browser down. It is safe to call when no render happened.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browserCancel != nil {
		r.browserCancel()
		r.allocCancel()
		r.browserCtx, r.browserCancel, r.allocCancel = nil, nil, nil
	}
	return nil
}

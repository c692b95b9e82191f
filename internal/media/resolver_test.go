package media

import (
	"sync"
	"testing"

	"github.com/nao1215/newsledger/internal/model"
)

// TestResolve tests the resolution order over candidate attributes.
func TestResolve(t *testing.T) {
	t.Parallel()

	r := NewResolver()

	tests := []struct {
		name   string
		in     model.ImageCandidate
		want   model.ResolvedImage
		wantOK bool
	}{
		{
			name:   "plain src wins",
			in:     model.ImageCandidate{"src": "http://x/a.jpg"},
			want:   model.ResolvedImage{URL: "http://x/a.jpg"},
			wantOK: true,
		},
		{
			name:   "placeholder src falls back to data-src",
			in:     model.ImageCandidate{"src": "http://x/lazy_placeholder.gif", "data-src": "http://x/real.jpg"},
			want:   model.ResolvedImage{URL: "http://x/real.jpg", WasLazyLoaded: true},
			wantOK: true,
		},
		{
			name:   "missing src is a placeholder",
			in:     model.ImageCandidate{"data-src": "http://x/real.jpg"},
			want:   model.ResolvedImage{URL: "http://x/real.jpg", WasLazyLoaded: true},
			wantOK: true,
		},
		{
			name:   "inline svg src is overridden",
			in:     model.ImageCandidate{"src": "data:image/svg+xml,%3Csvg%3E", "data-src": "http://x/y.jpg"},
			want:   model.ResolvedImage{URL: "http://x/y.jpg", WasLazyLoaded: true},
			wantOK: true,
		},
		{
			name:   "base64 src with upper-case scheme is overridden",
			in:     model.ImageCandidate{"src": "DATA:image/gif;base64,R0lGOD", "data-lazy-src": "http://x/z.jpg"},
			want:   model.ResolvedImage{URL: "http://x/z.jpg", WasLazyLoaded: true},
			wantOK: true,
		},
		{
			name:   "empty candidate is absent",
			in:     model.ImageCandidate{},
			wantOK: false,
		},
		{
			name:   "nil candidate is absent",
			in:     nil,
			wantOK: false,
		},
		{
			name:   "data-src beats data-lazy-src",
			in:     model.ImageCandidate{"data-lazy-src": "http://x/second.jpg", "data-src": "http://x/first.jpg"},
			want:   model.ResolvedImage{URL: "http://x/first.jpg", WasLazyLoaded: true},
			wantOK: true,
		},
		{
			name:   "empty data-src falls through to data-lazy-src",
			in:     model.ImageCandidate{"src": "", "data-src": "  ", "data-lazy-src": "http://x/b.jpg"},
			want:   model.ResolvedImage{URL: "http://x/b.jpg", WasLazyLoaded: true},
			wantOK: true,
		},
		{
			name:   "data-src-fg is an extra fallback",
			in:     model.ImageCandidate{"src": "/img/placeholder.png", "data-src-fg": "http://x/fg.jpg"},
			want:   model.ResolvedImage{URL: "http://x/fg.jpg", WasLazyLoaded: true},
			wantOK: true,
		},
		{
			name:   "data-lazy is the last fallback",
			in:     model.ImageCandidate{"class": "lazy-load", "data-lazy": "http://x/last.jpg"},
			want:   model.ResolvedImage{URL: "http://x/last.jpg", WasLazyLoaded: true},
			wantOK: true,
		},
		{
			name:   "marker match is case-insensitive",
			in:     model.ImageCandidate{"src": "http://x/Lazy-Load/spacer.jpg", "data-src": "http://x/real.jpg"},
			want:   model.ResolvedImage{URL: "http://x/real.jpg", WasLazyLoaded: true},
			wantOK: true,
		},
		{
			name:   "placeholder without fallback is absent",
			in:     model.ImageCandidate{"src": "http://x/placeholder.gif"},
			wantOK: false,
		},
		{
			name:   "data uri in fallback is skipped",
			in:     model.ImageCandidate{"src": "data:,", "data-src": "data:image/png;base64,AAA", "data-lazy-src": "http://x/ok.jpg"},
			want:   model.ResolvedImage{URL: "http://x/ok.jpg", WasLazyLoaded: true},
			wantOK: true,
		},
		{
			name:   "valid src ignores lazy attributes",
			in:     model.ImageCandidate{"src": "http://x/a.jpg", "data-src": "http://x/b.jpg"},
			want:   model.ResolvedImage{URL: "http://x/a.jpg"},
			wantOK: true,
		},
		{
			name:   "whitespace is trimmed",
			in:     model.ImageCandidate{"src": "  http://x/a.jpg\n"},
			want:   model.ResolvedImage{URL: "http://x/a.jpg"},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := r.Resolve(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v (%+v)", tt.wantOK, ok, got)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

// TestResolverOptions tests custom markers and fallback chains.
func TestResolverOptions(t *testing.T) {
	t.Parallel()

	t.Run("custom markers replace defaults", func(t *testing.T) {
		t.Parallel()
		r := NewResolver(WithPlaceholderMarkers([]string{"SPACER", ""}))
		if !r.IsPlaceholder("http://x/spacer.gif") {
			t.Error("expected custom marker to match")
		}
		if r.IsPlaceholder("http://x/placeholder.gif") {
			t.Error("expected default marker to be replaced")
		}
	})

	t.Run("extra markers extend defaults", func(t *testing.T) {
		t.Parallel()
		r := NewResolver(WithExtraPlaceholderMarkers([]string{"blank.gif"}))
		if !r.IsPlaceholder("http://x/blank.gif") || !r.IsPlaceholder("http://x/placeholder.gif") {
			t.Error("expected both extra and default markers")
		}
	})

	t.Run("custom fallback order", func(t *testing.T) {
		t.Parallel()
		r := NewResolver(WithFallbackAttrs([]string{"data-original", "data-src"}))
		got, ok := r.Resolve(model.ImageCandidate{"data-src": "http://x/b.jpg", "data-original": "http://x/a.jpg"})
		if !ok || got.URL != "http://x/a.jpg" {
			t.Errorf("expected data-original to win, got %+v ok=%v", got, ok)
		}
	})

	t.Run("empty fallback list keeps defaults", func(t *testing.T) {
		t.Parallel()
		r := NewResolver(WithFallbackAttrs(nil))
		if _, ok := r.Resolve(model.ImageCandidate{"data-src": "http://x/a.jpg"}); !ok {
			t.Error("expected default chain")
		}
	})
}

// TestResolveAll tests batch resolution.
func TestResolveAll(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	got := r.ResolveAll([]model.ImageCandidate{
		{"src": "http://x/a.jpg"},
		{"src": "data:image/gif;base64,R0lG"},
		{"data-src": "http://x/b.jpg"},
		{"src": "http://x/a.jpg"},
	})

	want := []model.ResolvedImage{
		{URL: "http://x/a.jpg"},
		{URL: "http://x/b.jpg", WasLazyLoaded: true},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d images, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("image %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

// TestAbsolutize tests relative URL resolution.
func TestAbsolutize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		img     string
		page    string
		wantURL string
	}{
		{name: "relative path", img: "/img/a.jpg", page: "https://news.example.com/politics/1/", wantURL: "https://news.example.com/img/a.jpg"},
		{name: "protocol relative", img: "//cdn.example.com/a.jpg", page: "https://news.example.com/", wantURL: "https://cdn.example.com/a.jpg"},
		{name: "already absolute", img: "http://x/a.jpg", page: "https://news.example.com/", wantURL: "http://x/a.jpg"},
		{name: "page without scheme is left alone", img: "a.jpg", page: "news.example.com", wantURL: "a.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Absolutize(model.ResolvedImage{URL: tt.img, WasLazyLoaded: true}, tt.page)
			if got.URL != tt.wantURL {
				t.Errorf("expected %q, got %q", tt.wantURL, got.URL)
			}
			if !got.WasLazyLoaded {
				t.Error("lazy flag must be preserved")
			}
		})
	}
}

// TestResolverConcurrentUse tests that a shared resolver needs no locking.
func TestResolverConcurrentUse(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok := r.Resolve(model.ImageCandidate{"src": "x/lazy_placeholder.gif", "data-src": "http://x/real.jpg"})
			if !ok || got.URL != "http://x/real.jpg" {
				t.Errorf("unexpected result %+v", got)
			}
		}()
	}
	wg.Wait()
}

// Package media resolves the canonical image URL of a markup image node.
//
// News sites defer image loading in many incompatible ways: the real asset may
// live in src, data-src, data-lazy-src or a site-specific attribute, while src
// holds a tiny placeholder or an inline SVG. The Resolver untangles these
// conventions into one renderable URL.
//
// Resolution is a pure function of the node's attributes. A Resolver holds
// only immutable configuration and is safe for concurrent use.
package media

import (
	"net/url"
	"strings"

	"github.com/nao1215/newsledger/internal/model"
)

// DefaultPlaceholderMarkers are substrings that mark a src as a placeholder.
// Matching is case-insensitive.
var DefaultPlaceholderMarkers = []string{
	"lazy_placeholder",
	"placeholder.gif",
	"placeholder.png",
	"lazy-load",
}

// DefaultFallbackAttrs is the canonical lazy attribute precedence.
// data-src and data-lazy-src come first; data-src-fg and data-lazy are
// additional fallbacks seen on fewer sites.
var DefaultFallbackAttrs = []string{
	model.AttrDataSrc,
	model.AttrDataLazySrc,
	model.AttrDataSrcFg,
	model.AttrDataLazy,
}

// dataURIPrefix marks an inline data URI.
const dataURIPrefix = "data:"

// Resolver picks the canonical image URL among candidate attributes.
type Resolver struct {
	// markers are lower-cased placeholder substrings.
	markers []string

	// fallbacks are the lazy attributes tried in order.
	fallbacks []string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPlaceholderMarkers replaces the placeholder markers.
// Empty markers are ignored.
func WithPlaceholderMarkers(markers []string) Option {
	return func(r *Resolver) {
		r.markers = lowerNonEmpty(markers)
	}
}

// WithExtraPlaceholderMarkers adds markers to the current set.
func WithExtraPlaceholderMarkers(markers []string) Option {
	return func(r *Resolver) {
		r.markers = append(r.markers, lowerNonEmpty(markers)...)
	}
}

// WithFallbackAttrs replaces the lazy attribute precedence.
// An empty list keeps the default chain.
func WithFallbackAttrs(attrs []string) Option {
	return func(r *Resolver) {
		if len(attrs) > 0 {
			r.fallbacks = append([]string(nil), attrs...)
		}
	}
}

// NewResolver creates a Resolver with the default markers and fallback chain.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		markers:   lowerNonEmpty(DefaultPlaceholderMarkers),
		fallbacks: append([]string(nil), DefaultFallbackAttrs...),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the canonical image of c.
//
// A non-placeholder src wins as is. Otherwise the fallback attributes are
// tried in order and the first usable value is returned as lazy-loaded.
// ok is false when the node carries no extractable asset; what to do then
// (drop the node, try a rendered pass) is the caller's decision.
func (r *Resolver) Resolve(c model.ImageCandidate) (model.ResolvedImage, bool) {
	src := strings.TrimSpace(c[model.AttrSrc])
	if !r.IsPlaceholder(src) {
		return model.ResolvedImage{URL: src, WasLazyLoaded: false}, true
	}

	for _, attr := range r.fallbacks {
		v := strings.TrimSpace(c[attr])
		if v == "" || isDataURI(v) {
			continue
		}
		return model.ResolvedImage{URL: v, WasLazyLoaded: true}, true
	}

	return model.ResolvedImage{}, false
}

// IsPlaceholder reports whether src cannot be the final image: it is empty,
// an inline data URI, or contains a placeholder marker.
func (r *Resolver) IsPlaceholder(src string) bool {
	src = strings.TrimSpace(src)
	if src == "" || isDataURI(src) {
		return true
	}
	lower := strings.ToLower(src)
	for _, m := range r.markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// ResolveAll resolves every candidate and returns the usable images in
// document order, without duplicate URLs.
func (r *Resolver) ResolveAll(cands []model.ImageCandidate) []model.ResolvedImage {
	out := make([]model.ResolvedImage, 0, len(cands))
	seen := make(map[string]bool, len(cands))
	for _, c := range cands {
		img, ok := r.Resolve(c)
		if !ok || seen[img.URL] {
			continue
		}
		seen[img.URL] = true
		out = append(out, img)
	}
	return out
}

// Absolutize resolves a possibly relative image URL against the page URL.
// Protocol-relative URLs ("//cdn.example.com/a.jpg") take the page's scheme.
// The input is returned unchanged when either URL fails to parse.
func Absolutize(img model.ResolvedImage, pageURL string) model.ResolvedImage {
	base, err := url.Parse(pageURL)
	if err != nil || base.Scheme == "" {
		return img
	}
	ref, err := url.Parse(img.URL)
	if err != nil {
		return img
	}
	img.URL = base.ResolveReference(ref).String()
	return img
}

// isDataURI reports whether v is an inline data URI.
func isDataURI(v string) bool {
	return len(v) >= len(dataURIPrefix) && strings.EqualFold(v[:len(dataURIPrefix)], dataURIPrefix)
}

// lowerNonEmpty lower-cases markers and drops empty entries.
func lowerNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

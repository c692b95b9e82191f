package model

// Image attribute names understood by the resolver.
const (
	AttrSrc         = "src"
	AttrDataSrc     = "data-src"
	AttrDataLazySrc = "data-lazy-src"
	AttrDataSrcFg   = "data-src-fg"
	AttrDataLazy    = "data-lazy"
	AttrClass       = "class"
)

// ImageCandidate is the attribute set of one markup image node.
// Absent attributes are simply missing from the map.
// It is built per extraction call and never persisted.
type ImageCandidate map[string]string

// ResolvedImage is the canonical renderable image of one candidate.
type ResolvedImage struct {
	// URL is the resolved asset URL.
	URL string `json:"url"`

	// WasLazyLoaded is true when the URL came from a lazy-loading attribute
	// rather than from src.
	WasLazyLoaded bool `json:"was_lazy_loaded"`
}

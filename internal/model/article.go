package model

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Candidate is an article URL discovered on a source's feed or listing page.
type Candidate struct {
	// URL is the absolute article URL.
	URL string `json:"url"`

	// Title is the title advertised by the feed, if any.
	Title string `json:"title,omitempty"`

	// PublishedAt is the publication time advertised by the source.
	// Zero when the source does not date its items.
	PublishedAt Timestamp `json:"published_at,omitempty"`

	// FeedCategories are the categories the feed attached to the item.
	// They are a hint only; many sources fill them inconsistently.
	FeedCategories []string `json:"feed_categories,omitempty"`
}

// Page is the markup-level information extracted from one article page.
type Page struct {
	// URL is the URL the page was fetched from.
	URL string `json:"url"`

	// CanonicalURL comes from <link rel="canonical"> or og:url.
	CanonicalURL string `json:"canonical_url,omitempty"`

	// Title is og:title if present, otherwise <title>.
	Title string `json:"title,omitempty"`

	// Section is the article:section meta value, the source's own category.
	Section string `json:"section,omitempty"`

	// OGImage is the og:image meta value.
	OGImage string `json:"og_image,omitempty"`

	// PublishedAt comes from article:published_time or the first <time datetime>.
	PublishedAt Timestamp `json:"published_at,omitempty"`

	// Images holds the attribute sets of every <img> node in document order.
	Images []ImageCandidate `json:"-"`

	// Rendered is true when the markup came from a headless render pass.
	Rendered bool `json:"rendered,omitempty"`
}

// CategoryOrigin records which strategy produced an article's label.
type CategoryOrigin string

// Category origins, in the order the ingestion loop tries them.
const (
	CategoryFromRule     CategoryOrigin = "rule"
	CategoryFromSource   CategoryOrigin = "source"
	CategoryFromFallback CategoryOrigin = "fallback"
	CategoryNone         CategoryOrigin = "none"
)

// Article is the normalized record handed to the publisher.
type Article struct {
	// ID is a stable identifier derived from the canonical URL.
	ID string `json:"id"`

	// SourceID is the source the article was discovered on.
	SourceID SourceID `json:"source_id"`

	// URL is the canonical article URL.
	URL string `json:"url"`

	// Title is the article title.
	Title string `json:"title"`

	// PublishedAt is the publication time, zero when unknown.
	PublishedAt Timestamp `json:"published_at,omitempty"`

	// Category is the resolved label; empty when CategoryOrigin is "none".
	Category Label `json:"category,omitempty"`

	// CategoryOrigin tells how Category was obtained.
	CategoryOrigin CategoryOrigin `json:"category_origin"`

	// Image is the lead image: the first resolved image, or og:image.
	Image *ResolvedImage `json:"image,omitempty"`

	// Images are all resolved images in document order.
	Images []ResolvedImage `json:"images,omitempty"`

	// FetchedAt is when the article page was fetched.
	FetchedAt Timestamp `json:"fetched_at"`
}

// ArticleID derives a stable id from an article URL.
// The URL is trimmed and its scheme and host lower-cased before hashing so
// that trivial spelling differences map to the same id.
func ArticleID(rawURL string) string {
	normalized := strings.TrimSpace(rawURL)
	if i := strings.Index(normalized, "://"); i > 0 {
		rest := normalized[i+3:]
		host, path, found := strings.Cut(rest, "/")
		normalized = strings.ToLower(normalized[:i]) + "://" + strings.ToLower(host)
		if found {
			normalized += "/" + path
		}
	}
	sum := sha3.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}

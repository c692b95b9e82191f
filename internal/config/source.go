package config

import (
	"fmt"
	"maps"
	"strings"

	"github.com/nao1215/newsledger/internal/category"
	"github.com/nao1215/newsledger/internal/model"
)

// DefaultLabels is the label set used when the sources file declares none.
var DefaultLabels = []model.Label{"News", "Entertainment", "Lifestyle", "Sports", "Business"}

// SourceConfig describes one crawl target.
type SourceConfig struct {
	// ID is the stable source identifier used as the ledger key.
	ID string `yaml:"id"`

	// Feed is an RSS, Atom or JSON feed URL. Preferred over Listing.
	Feed string `yaml:"feed,omitempty"`

	// Listing is an HTML page linking to articles, used when the source has
	// no feed.
	Listing string `yaml:"listing,omitempty"`

	// Headers are sent with every request to this source.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Cookie is sent with every request, e.g. a consent cookie.
	Cookie string `yaml:"cookie,omitempty"`

	// FollowPatterns restrict listing links to matching URL paths (glob).
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// IgnorePatterns drop listing links with matching URL paths (glob).
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// MaxArticles caps new articles per pass. Zero means DefaultMaxArticles.
	MaxArticles int `yaml:"maxArticles,omitempty"`

	// Render always fetches articles through the headless browser.
	Render bool `yaml:"render,omitempty"`

	// Rules is the ordered category rule table; first match wins.
	Rules []model.CategoryRule `yaml:"rules,omitempty"`

	// Aliases map the source's own category names to labels.
	Aliases map[string]model.Label `yaml:"aliases,omitempty"`

	// Fallback is the label used when nothing else classifies an article.
	Fallback model.Label `yaml:"fallback,omitempty"`
}

// SourceID returns the id as a model.SourceID.
func (s SourceConfig) SourceID() model.SourceID {
	return model.SourceID(s.ID)
}

// ImageConfig tunes the image resolver.
type ImageConfig struct {
	// PlaceholderMarkers are added to the built-in placeholder markers.
	PlaceholderMarkers []string `yaml:"placeholderMarkers,omitempty"`

	// FallbackAttrs replace the lazy attribute precedence when non-empty.
	FallbackAttrs []string `yaml:"fallbackAttrs,omitempty"`
}

// File represents the .newsledger sources file.
type File struct {
	// Labels is the closed category label set.
	Labels []model.Label `yaml:"labels,omitempty"`

	// Images tunes image resolution for every source.
	Images ImageConfig `yaml:"images,omitempty"`

	// Defaults apply to every source unless overridden.
	Defaults SourceConfig `yaml:"defaults,omitempty"`

	// Sources are the crawl targets in processing order.
	Sources []SourceConfig `yaml:"sources,omitempty"`
}

// Validate checks source ids and entry points.
func (cf *File) Validate() error {
	seen := make(map[string]bool, len(cf.Sources))
	for i, s := range cf.Sources {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			return fmt.Errorf("sources[%d]: %w", i, ErrMissingSourceID)
		}
		if seen[id] {
			return fmt.Errorf("sources[%d]: %w: %q", i, ErrDuplicateSource, id)
		}
		seen[id] = true
		if s.Feed == "" && s.Listing == "" {
			return fmt.Errorf("source %q: %w", id, ErrNoEntryPoint)
		}
	}
	return nil
}

// Source returns the configuration of id merged with the defaults.
// Scalars and lists set on the source replace the default; header and alias
// maps are merged key by key.
func (cf *File) Source(id string) (SourceConfig, bool) {
	var src SourceConfig
	found := false
	for _, s := range cf.Sources {
		if s.ID == id {
			src, found = s, true
			break
		}
	}
	if !found {
		return SourceConfig{}, false
	}

	result := cf.Defaults
	result.ID = src.ID
	result.Feed = src.Feed
	result.Listing = src.Listing
	result.Headers = mergeMaps(cf.Defaults.Headers, src.Headers)
	result.Aliases = mergeMaps(cf.Defaults.Aliases, src.Aliases)
	if src.Cookie != "" {
		result.Cookie = src.Cookie
	}
	if len(src.FollowPatterns) > 0 {
		result.FollowPatterns = src.FollowPatterns
	}
	if len(src.IgnorePatterns) > 0 {
		result.IgnorePatterns = src.IgnorePatterns
	}
	if src.MaxArticles != 0 {
		result.MaxArticles = src.MaxArticles
	}
	if result.MaxArticles == 0 {
		result.MaxArticles = DefaultMaxArticles
	}
	result.Render = cf.Defaults.Render || src.Render
	if len(src.Rules) > 0 {
		result.Rules = src.Rules
	}
	if src.Fallback != "" {
		result.Fallback = src.Fallback
	}
	return result, true
}

// SourceIDs returns every source id in file order.
func (cf *File) SourceIDs() []string {
	ids := make([]string, 0, len(cf.Sources))
	for _, s := range cf.Sources {
		ids = append(ids, s.ID)
	}
	return ids
}

// LabelSet returns Labels, or DefaultLabels when none are declared.
func (cf *File) LabelSet() []model.Label {
	if len(cf.Labels) == 0 {
		return DefaultLabels
	}
	return cf.Labels
}

// Taxonomy builds the category taxonomy of every source, rejecting rule,
// alias and fallback labels outside the label set.
func (cf *File) Taxonomy() (*category.Taxonomy, error) {
	tx, err := category.NewTaxonomy(cf.LabelSet())
	if err != nil {
		return nil, err
	}
	for _, s := range cf.Sources {
		merged, _ := cf.Source(s.ID)
		table := category.Table{
			Rules:    merged.Rules,
			Aliases:  merged.Aliases,
			Fallback: merged.Fallback,
		}
		if err := tx.AddSource(merged.SourceID(), table); err != nil {
			return nil, err
		}
	}
	return tx, nil
}

// mergeMaps returns a copy of base overridden by over, or nil when both are empty.
func mergeMaps[V any](base, over map[string]V) map[string]V {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]V, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}

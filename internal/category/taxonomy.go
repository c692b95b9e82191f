package category

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/newsledger/internal/model"
)

var (
	// ErrUnknownLabel is returned when a rule, alias or fallback names a label
	// outside the configured label set.
	ErrUnknownLabel = errors.New("label is not in the label set")

	// ErrEmptyLabelSet is returned when a Taxonomy is built without labels.
	ErrEmptyLabelSet = errors.New("label set is empty")
)

// Table is one source's taxonomy.
type Table struct {
	// Rules are matched against the article URL path in order.
	Rules []model.CategoryRule

	// Aliases map a source-provided category (feed category, article:section)
	// to a label. Keys are matched case-insensitively.
	Aliases map[string]model.Label

	// Fallback is used when neither rules nor source hints give a label.
	// Empty means the article stays unclassified.
	Fallback model.Label
}

// Taxonomy holds the closed label set and one Table per source.
type Taxonomy struct {
	labels   []model.Label
	labelSet map[string]model.Label
	tables   map[model.SourceID]Table
}

// NewTaxonomy creates a Taxonomy over the given label set.
func NewTaxonomy(labels []model.Label) (*Taxonomy, error) {
	t := &Taxonomy{
		labelSet: make(map[string]model.Label, len(labels)),
		tables:   make(map[model.SourceID]Table),
	}
	for _, l := range labels {
		if l == "" {
			continue
		}
		key := fold(string(l))
		if _, dup := t.labelSet[key]; dup {
			continue
		}
		t.labelSet[key] = l
		t.labels = append(t.labels, l)
	}
	if len(t.labels) == 0 {
		return nil, ErrEmptyLabelSet
	}
	return t, nil
}

// Labels returns the label set in configuration order.
func (t *Taxonomy) Labels() []model.Label {
	return append([]model.Label(nil), t.labels...)
}

// AddSource registers the table for id after checking every label it names.
// Rule substrings and alias keys are folded once here.
func (t *Taxonomy) AddSource(id model.SourceID, table Table) error {
	compiled := Table{
		Rules:    make([]model.CategoryRule, 0, len(table.Rules)),
		Aliases:  make(map[string]model.Label, len(table.Aliases)),
		Fallback: table.Fallback,
	}

	for i, rule := range table.Rules {
		label, ok := t.canonical(rule.Category)
		if !ok {
			return fmt.Errorf("source %q rule %d: %w: %q", id, i, ErrUnknownLabel, rule.Category)
		}
		subs := make([]string, 0, len(rule.PathSubstrings))
		for _, s := range rule.PathSubstrings {
			if s = strings.TrimSpace(s); s != "" {
				subs = append(subs, fold(s))
			}
		}
		compiled.Rules = append(compiled.Rules, model.CategoryRule{PathSubstrings: subs, Category: label})
	}

	for k, l := range table.Aliases {
		label, ok := t.canonical(l)
		if !ok {
			return fmt.Errorf("source %q alias %q: %w: %q", id, k, ErrUnknownLabel, l)
		}
		compiled.Aliases[fold(strings.TrimSpace(k))] = label
	}

	if table.Fallback != "" {
		label, ok := t.canonical(table.Fallback)
		if !ok {
			return fmt.Errorf("source %q fallback: %w: %q", id, ErrUnknownLabel, table.Fallback)
		}
		compiled.Fallback = label
	}

	t.tables[id] = compiled
	return nil
}

// Rules returns the compiled rules for id.
func (t *Taxonomy) Rules(id model.SourceID) []model.CategoryRule {
	return t.tables[id].Rules
}

// Classify applies the rule table of id to rawURL.
// Sources without a table never match.
func (t *Taxonomy) Classify(id model.SourceID, rawURL string) (model.Label, bool) {
	return Classify(rawURL, t.tables[id].Rules)
}

// Resolve decides the label of an article in three steps: the URL rules, then
// the source's own category hints (aliases, or a hint naming a label
// directly), then the source fallback.
func (t *Taxonomy) Resolve(id model.SourceID, rawURL string, hints ...string) (model.Label, model.CategoryOrigin) {
	table := t.tables[id]

	if l, ok := Classify(rawURL, table.Rules); ok {
		return l, model.CategoryFromRule
	}

	for _, h := range hints {
		key := fold(strings.TrimSpace(h))
		if key == "" {
			continue
		}
		if l, ok := table.Aliases[key]; ok {
			return l, model.CategoryFromSource
		}
		if l, ok := t.labelSet[key]; ok {
			return l, model.CategoryFromSource
		}
	}

	if table.Fallback != "" {
		return table.Fallback, model.CategoryFromFallback
	}
	return "", model.CategoryNone
}

// canonical returns the label set's spelling of l, compared case-insensitively.
func (t *Taxonomy) canonical(l model.Label) (model.Label, bool) {
	label, ok := t.labelSet[fold(string(l))]
	return label, ok
}

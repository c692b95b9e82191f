// Package category infers an article's category label from the shape of its URL.
//
// Sources encode the same logical category under different path segments:
// one uses /politics/ and /business-economy/ for news, another
// /articles/news/, a third /business/. Instead of per-site branching, the
// classifier is one generic matcher driven by an ordered rule table per source.
//
// Classify is a pure function and safe for concurrent use. A Taxonomy may be
// shared between goroutines once every source has been added.
package category

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/newsledger/internal/model"
)

// Classify returns the label of the first rule whose substrings match the
// lower-cased path of rawURL. Substrings within one rule are OR'd; rule order
// is the only tie-break.
//
// ok is false when no rule matches or when rawURL cannot be parsed. A bad URL
// never fails the caller's batch.
func Classify(rawURL string, rules []model.CategoryRule) (model.Label, bool) {
	path, ok := NormalizePath(rawURL)
	if !ok {
		return "", false
	}

	for _, rule := range rules {
		for _, sub := range rule.PathSubstrings {
			if sub == "" {
				continue
			}
			if strings.Contains(path, fold(sub)) {
				return rule.Category, true
			}
		}
	}
	return "", false
}

// NormalizePath returns the lower-cased path component of rawURL.
func NormalizePath(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	return fold(u.Path), true
}

// fold lower-cases s with Unicode rules.
// A Caser keeps internal state, so a fresh one is built per call.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

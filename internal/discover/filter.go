package discover

import (
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nao1215/newsledger/internal/model"
)

// FilterNew keeps the candidates that may be new since the last visit.
//
// Without a previous visit every candidate is new. Otherwise a dated
// candidate is new when it is strictly newer than last. Undated candidates
// (listing pages, careless feeds) are kept: the ingestion loop re-checks them
// against the date found on the article page itself.
func FilterNew(cands []model.Candidate, last model.Timestamp, hasLast bool) []model.Candidate {
	if !hasLast {
		return slices.Clone(cands)
	}
	out := make([]model.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.PublishedAt.IsZero() || last.Before(c.PublishedAt) {
			out = append(out, c)
		}
	}
	return out
}

// Select orders candidates oldest first, undated ones last in advertised
// order, and keeps at most limit of them. truncated reports whether any
// candidate was left for a later pass. A non-positive limit keeps all.
//
// Oldest first matters: when a pass is capped, the ledger advances only to
// the newest processed date, so the skipped newer items stay new. For the
// same reason the cut never falls between two candidates of equal date: the
// limit is exceeded until the tie is complete.
func Select(cands []model.Candidate, limit int) (selected []model.Candidate, truncated bool) {
	ordered := slices.Clone(cands)
	slices.SortStableFunc(ordered, func(a, b model.Candidate) int {
		switch {
		case a.PublishedAt.IsZero() && b.PublishedAt.IsZero():
			return 0
		case a.PublishedAt.IsZero():
			return 1
		case b.PublishedAt.IsZero():
			return -1
		case a.PublishedAt < b.PublishedAt:
			return -1
		case a.PublishedAt > b.PublishedAt:
			return 1
		}
		return 0
	})
	if limit <= 0 || len(ordered) <= limit {
		return ordered, false
	}

	n := limit
	if last := ordered[n-1].PublishedAt; !last.IsZero() {
		for n < len(ordered) && ordered[n].PublishedAt == last {
			n++
		}
	}
	return ordered[:n], n < len(ordered)
}

// Undated reports whether any candidate lacks a publication time.
func Undated(cands []model.Candidate) bool {
	return slices.ContainsFunc(cands, func(c model.Candidate) bool {
		return c.PublishedAt.IsZero()
	})
}

// ShouldFollow applies glob patterns to the path of targetURL:
// an ignore match drops the URL; when follow patterns exist, one must match.
func ShouldFollow(targetURL string, follow, ignore []string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range ignore {
		if matchPattern(pattern, path) {
			return false
		}
	}
	if len(follow) == 0 {
		return true
	}
	for _, pattern := range follow {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern matches a URL path against a glob.
//   - "/politics/*" matches "/politics" and everything below it
//   - "*.pdf" matches any path ending in .pdf
//   - other patterns use filepath.Match, where * stays within one segment
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") && !strings.ContainsAny(ext, "*?/[") {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	// Bare file patterns such as "amp-*" apply to the last segment.
	if strings.ContainsAny(pattern, "*?") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}
	return false
}

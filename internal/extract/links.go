package extract

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is an anchor found on a listing page.
type Link struct {
	// URL is absolute and has no fragment.
	URL string

	// Text is the anchor text with whitespace collapsed.
	Text string
}

// Links returns the same-host links of a listing page in document order,
// without duplicates. Script, mail, phone and data links are dropped.
func Links(baseURL string, body io.Reader) ([]Link, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}

	var links []Link
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		u := resolveLink(base, s.AttrOr("href", ""))
		if u == nil || !strings.EqualFold(u.Hostname(), base.Hostname()) {
			return
		}
		key := NormalizeURL(u.String())
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, Link{
			URL:  u.String(),
			Text: strings.Join(strings.Fields(s.Text()), " "),
		})
	})
	return links, nil
}

// resolveLink resolves href against base, or returns nil for links that do
// not point at a page.
func resolveLink(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	if href == "" || href == "#" ||
		strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "data:") {
		return nil
	}
	u, err := url.Parse(href)
	if err != nil {
		return nil
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil
	}
	resolved.Fragment = ""
	return resolved
}

// NormalizeURL returns a deduplication key for a page URL: lower-case scheme
// and host, no fragment, and "/" for an empty path.
func NormalizeURL(pageURL string) string {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return pageURL
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/newsledger/internal/model"
)

// timeLayouts are tried in order when parsing publication dates.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// Extract parses an article page fetched from baseURL.
func Extract(baseURL string, body io.Reader) (*model.Page, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	root, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)
	ld := readLinkedData(doc)

	page := &model.Page{URL: baseURL}

	page.Title = firstNonEmpty(
		metaProperty(doc, "og:title"),
		ld.Headline,
		strings.TrimSpace(doc.Find("title").First().Text()),
	)

	page.CanonicalURL = resolve(base, firstNonEmpty(
		doc.Find("link[rel='canonical']").First().AttrOr("href", ""),
		metaProperty(doc, "og:url"),
	))

	page.Section = firstNonEmpty(
		metaProperty(doc, "article:section"),
		ld.Section,
	)

	page.OGImage = resolve(base, firstNonEmpty(
		metaProperty(doc, "og:image"),
		metaProperty(doc, "og:image:url"),
		metaName(doc, "twitter:image"),
	))

	published := firstNonEmpty(
		metaProperty(doc, "article:published_time"),
		doc.Find("[itemprop='datePublished']").First().AttrOr("content", ""),
		ld.DatePublished,
		doc.Find("time[datetime]").First().AttrOr("datetime", ""),
	)
	page.PublishedAt = ParseTime(published)

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		page.Images = append(page.Images, attrs(s.Nodes[0]))
	})

	return page, nil
}

// ParseTime parses a publication date in the formats news sites use.
// Unparseable input returns the zero Timestamp.
func ParseTime(s string) model.Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.TimestampOf(t)
		}
	}
	return 0
}

// attrs copies the attributes of an element node. Keys are already
// lower-cased by the HTML parser; the first occurrence of a duplicate wins.
func attrs(n *html.Node) model.ImageCandidate {
	c := make(model.ImageCandidate, len(n.Attr))
	for _, a := range n.Attr {
		if a.Namespace != "" {
			continue
		}
		if _, dup := c[a.Key]; !dup {
			c[a.Key] = a.Val
		}
	}
	return c
}

func metaProperty(doc *goquery.Document, property string) string {
	return strings.TrimSpace(doc.Find("meta[property='" + property + "']").First().AttrOr("content", ""))
}

func metaName(doc *goquery.Document, name string) string {
	return strings.TrimSpace(doc.Find("meta[name='" + name + "']").First().AttrOr("content", ""))
}

// resolve makes ref absolute against base. Empty or unparseable refs give "".
func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// linkedData holds the schema.org article fields read from JSON-LD.
type linkedData struct {
	Headline      string
	Section       string
	DatePublished string
}

// readLinkedData reads the first NewsArticle-like object from the page's
// JSON-LD blocks. Broken blocks are skipped.
func readLinkedData(doc *goquery.Document) linkedData {
	var out linkedData
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var raw any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &raw); err != nil {
			return true
		}
		for _, obj := range flattenLD(raw) {
			if !isArticleType(obj["@type"]) {
				continue
			}
			out.Headline = stringField(obj["headline"])
			out.Section = stringField(obj["articleSection"])
			out.DatePublished = stringField(obj["datePublished"])
			return false
		}
		return true
	})
	return out
}

// flattenLD returns the objects of a JSON-LD value, expanding arrays and @graph.
func flattenLD(v any) []map[string]any {
	switch t := v.(type) {
	case []any:
		var out []map[string]any
		for _, item := range t {
			out = append(out, flattenLD(item)...)
		}
		return out
	case map[string]any:
		out := []map[string]any{t}
		if g, ok := t["@graph"]; ok {
			out = append(out, flattenLD(g)...)
		}
		return out
	}
	return nil
}

func isArticleType(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.HasSuffix(t, "Article") || t == "BlogPosting"
	case []any:
		for _, item := range t {
			if isArticleType(item) {
				return true
			}
		}
	}
	return false
}

// stringField returns a string value, or the first string of a list.
func stringField(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// internal/crawler/parser.go
package crawler

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// PageMeta holds what the sitemap needs from a page's <head>.
type PageMeta struct {
	Title     string
	Robots    []string
	Canonical string
}

// NoIndex reports whether the page asks crawlers not to index it.
func (m *PageMeta) NoIndex() bool {
	for _, directive := range m.Robots {
		if directive == "noindex" || directive == "none" {
			return true
		}
	}
	return false
}

// ParsePage parses an HTML document and extracts its title, robots directives
// and canonical link.
func ParsePage(r io.Reader) (*PageMeta, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	meta := &PageMeta{
		Title: strings.Join(strings.Fields(doc.Find("title").First().Text()), " "),
	}

	doc.Find("meta[name]").Each(func(i int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(name), "robots") {
			return
		}
		content, exists := s.Attr("content")
		if !exists {
			return
		}
		for _, d := range strings.Split(content, ",") {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				meta.Robots = append(meta.Robots, d)
			}
		}
	})

	doc.Find("link[rel]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		if !strings.EqualFold(strings.TrimSpace(rel), "canonical") {
			return true
		}
		meta.Canonical, _ = s.Attr("href")
		meta.Canonical = strings.TrimSpace(meta.Canonical)
		return false
	})

	return meta, nil
}

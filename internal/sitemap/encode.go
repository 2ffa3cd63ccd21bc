package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/romangod6/sitemap-builder/internal/models"
	"github.com/romangod6/sitemap-builder/internal/urlpath"
)

// Encode writes entries as a UTF-8 sitemap document in the given order.
func Encode(w io.Writer, entries []models.URLEntry) error {
	set := models.Sitemap{
		Xmlns: models.Namespace,
		URLs:  make([]models.URL, 0, len(entries)),
	}
	for _, e := range entries {
		set.URLs = append(set.URLs, e.ToURL())
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("encode sitemap: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("flush sitemap: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Render returns the encoded document.
func Render(entries []models.URLEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a sitemap document.
func Decode(r io.Reader) (*models.Sitemap, error) {
	var set models.Sitemap
	if err := xml.NewDecoder(r).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode sitemap: %w", err)
	}
	return &set, nil
}

// RenderRobots returns a robots.txt allowing everything and pointing at the
// sitemap published as sitemapName under domain.
func RenderRobots(domain, sitemapName string) string {
	return "User-agent: *\n" +
		"Allow: /\n" +
		"\n" +
		"Sitemap: " + urlpath.Location(domain, sitemapName) + "\n"
}

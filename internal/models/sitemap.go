// internal/models/sitemap.go
package models

import (
	"encoding/xml"
	"time"
)

// Namespace is the sitemap protocol schema namespace.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Sitemap represents the structure of an XML sitemap.
type Sitemap struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr,omitempty"`
	URLs    []URL    `xml:"url"`
}

// URL represents a single URL entry in the sitemap.
type URL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// ToURL converts an entry to its XML form. LastMod is written as RFC 3339 in UTC.
func (e URLEntry) ToURL() URL {
	u := URL{
		Loc:        e.Loc,
		ChangeFreq: string(e.ChangeFreq),
		Priority:   FormatPriority(e.Priority),
	}
	if e.LastMod != nil {
		u.LastMod = e.LastMod.UTC().Format(time.RFC3339)
	}
	return u
}

package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChangeFreq is the sitemap protocol's <changefreq> vocabulary.
type ChangeFreq string

const (
	Always  ChangeFreq = "always"
	Hourly  ChangeFreq = "hourly"
	Daily   ChangeFreq = "daily"
	Weekly  ChangeFreq = "weekly"
	Monthly ChangeFreq = "monthly"
	Yearly  ChangeFreq = "yearly"
	Never   ChangeFreq = "never"
)

var changeFreqs = map[ChangeFreq]struct{}{
	Always: {}, Hourly: {}, Daily: {}, Weekly: {}, Monthly: {}, Yearly: {}, Never: {},
}

// ParseChangeFreq accepts any casing and surrounding whitespace.
func ParseChangeFreq(s string) (ChangeFreq, bool) {
	cf := ChangeFreq(strings.ToLower(strings.TrimSpace(s)))
	_, ok := changeFreqs[cf]
	return cf, ok
}

// URLEntry is one page of the generated sitemap.
type URLEntry struct {
	Loc        string     `json:"loc"`
	LastMod    *time.Time `json:"lastmod,omitempty"`
	ChangeFreq ChangeFreq `json:"changefreq"`
	Priority   float64    `json:"priority"`
	Title      string     `json:"title,omitempty"`
	SourceFile string     `json:"source_file,omitempty"`
}

// FormatPriority renders p with at least one fractional digit ("1.0", "0.5", "0.95").
func FormatPriority(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Run is one recorded sitemap generation.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	Domain     string     `json:"domain"`
	RootDir    string     `json:"root_dir"`
	OutPath    string     `json:"out_path"`
	Exclude    []string   `json:"exclude"`
	URLCount   int        `json:"url_count"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Entries    []URLEntry `json:"entries,omitempty"`
}

// Package rules assigns changefreq and priority to canonical URL paths.
package rules

import (
	"strings"

	"github.com/romangod6/sitemap-builder/internal/models"
)

// Meta is the metadata assigned to one URL path.
type Meta struct {
	ChangeFreq models.ChangeFreq
	Priority   float64
}

// Rule matches URL paths and supplies their default metadata.
type Rule struct {
	Name  string
	Match func(urlPath string) bool
	Meta  Meta
}

func exact(p string) func(string) bool {
	return func(urlPath string) bool { return urlPath == p }
}

func prefix(p string) func(string) bool {
	return func(urlPath string) bool { return strings.HasPrefix(urlPath, p) }
}

// Fallback applies when no rule matches.
var Fallback = Meta{ChangeFreq: models.Monthly, Priority: 0.5}

// DefaultRules is evaluated in order; the first match wins.
var DefaultRules = []Rule{
	{Name: "home", Match: exact("/"), Meta: Meta{ChangeFreq: models.Weekly, Priority: 1.0}},
	{Name: "fonts", Match: prefix("/fonts/"), Meta: Meta{ChangeFreq: models.Monthly, Priority: 0.9}},
	{Name: "blog", Match: prefix("/blog/"), Meta: Meta{ChangeFreq: models.Weekly, Priority: 0.8}},
	{Name: "about", Match: prefix("/about"), Meta: Meta{ChangeFreq: models.Yearly, Priority: 0.6}},
}

// Engine resolves metadata from a rule table and a set of overrides.
type Engine struct {
	rules     []Rule
	overrides Overrides
}

// NewEngine builds an engine over DefaultRules. A nil Overrides is allowed.
func NewEngine(overrides Overrides) *Engine {
	return &Engine{rules: DefaultRules, overrides: overrides}
}

// Heuristic returns the rule-table metadata for urlPath, ignoring overrides.
func (e *Engine) Heuristic(urlPath string) Meta {
	for _, r := range e.rules {
		if r.Match(urlPath) {
			return r.Meta
		}
	}
	return Fallback
}

// Resolve returns the metadata for urlPath. Override fields replace heuristic
// fields one by one, so a partial override keeps the other heuristic value.
func (e *Engine) Resolve(urlPath string) Meta {
	meta := e.Heuristic(urlPath)
	o, ok := e.overrides[urlPath]
	if !ok {
		return meta
	}
	if o.ChangeFreq != nil {
		meta.ChangeFreq = *o.ChangeFreq
	}
	if o.Priority != nil {
		meta.Priority = *o.Priority
	}
	return meta
}

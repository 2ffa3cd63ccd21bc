// Package sitemap turns a static site tree into a sitemap protocol document.
//
// The pipeline is a chain of plain functions over values:
//
//	walker.Walk -> CollectPages -> DedupPages -> Builder.Annotate -> Sort -> Encode
package sitemap

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/romangod6/sitemap-builder/internal/crawler"
	"github.com/romangod6/sitemap-builder/internal/models"
	"github.com/romangod6/sitemap-builder/internal/rules"
	"github.com/romangod6/sitemap-builder/internal/urlpath"
	"github.com/romangod6/sitemap-builder/internal/utils"
	"github.com/romangod6/sitemap-builder/internal/walker"
	"github.com/spf13/afero"
)

// Options describe one sitemap build.
type Options struct {
	Domain    string // normalized with urlpath.NormalizeDomain
	Root      string
	Exclude   []string
	Overrides rules.Overrides
	// InspectPages parses each page for its title and drops pages marked noindex.
	InspectPages bool
}

// Page is an HTML file together with its canonical URL path.
type Page struct {
	File    walker.File
	URLPath string
}

type Builder struct {
	fs     afero.Fs
	logger *utils.Logger
}

func NewBuilder(fsys afero.Fs, logger *utils.Logger) *Builder {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Builder{fs: fsys, logger: logger}
}

// Build walks opts.Root and returns the deduplicated, annotated and sorted entries.
func (b *Builder) Build(ctx context.Context, opts Options) ([]models.URLEntry, error) {
	files := walker.Walk(b.fs, opts.Root, walker.Options{
		Exclude: opts.Exclude,
		OnSkip: func(path string, err error) {
			b.logger.LogWarn("Skipping unreadable path %s: %v", path, err)
		},
	})

	pages, err := CollectPages(ctx, files)
	if err != nil {
		return nil, err
	}
	pages = DedupPages(pages)

	entries, err := b.Annotate(ctx, pages, opts)
	if err != nil {
		return nil, err
	}
	Sort(entries)
	return entries, nil
}

// CollectPages keeps the HTML files of a walk and computes their URL paths.
// Partials (basename starting with "_") are skipped.
func CollectPages(ctx context.Context, files iter.Seq2[walker.File, error]) ([]Page, error) {
	var pages []Page
	for f, err := range files {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := filepath.Base(f.RelPath)
		if !urlpath.IsHTML(name) || strings.HasPrefix(name, "_") {
			continue
		}
		pages = append(pages, Page{File: f, URLPath: urlpath.ToURLPath(f.RelPath)})
	}
	return pages, nil
}

// DedupPages keeps the first page for every URL path.
func DedupPages(pages []Page) []Page {
	seen := make(map[string]struct{}, len(pages))
	out := pages[:0:0]
	for _, p := range pages {
		if _, ok := seen[p.URLPath]; ok {
			continue
		}
		seen[p.URLPath] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Annotate resolves metadata and modification times for each page. A failed
// stat leaves LastMod nil; a page that cannot be parsed keeps an empty title.
func (b *Builder) Annotate(ctx context.Context, pages []Page, opts Options) ([]models.URLEntry, error) {
	engine := rules.NewEngine(opts.Overrides)
	entries := make([]models.URLEntry, 0, len(pages))

	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		meta := engine.Resolve(p.URLPath)
		entry := models.URLEntry{
			Loc:        urlpath.Location(opts.Domain, p.URLPath),
			ChangeFreq: meta.ChangeFreq,
			Priority:   meta.Priority,
			SourceFile: p.File.Path,
		}

		if info, err := b.fs.Stat(p.File.Path); err != nil {
			b.logger.LogDebug("No modification time for %s: %v", p.File.Path, err)
		} else {
			mod := info.ModTime().UTC().Truncate(time.Second)
			entry.LastMod = &mod
		}

		if opts.InspectPages {
			page, err := b.inspect(p.File.Path)
			switch {
			case err != nil:
				b.logger.LogDebug("Could not inspect %s: %v", p.File.Path, err)
			case page.NoIndex():
				b.logger.LogDebug("Skipping noindex page: %s", entry.Loc)
				continue
			default:
				entry.Title = page.Title
			}
		}

		b.logger.LogDebug("Found page: %s", entry.Loc)
		entries = append(entries, entry)
	}
	return entries, nil
}

func (b *Builder) inspect(path string) (*crawler.PageMeta, error) {
	f, err := b.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer f.Close()
	return crawler.ParsePage(f)
}

// Sort orders entries by priority, highest first, then by location.
func Sort(entries []models.URLEntry) {
	slices.SortStableFunc(entries, func(a, b models.URLEntry) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return strings.Compare(a.Loc, b.Loc)
	})
}

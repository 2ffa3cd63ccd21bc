package sitemap

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/romangod6/sitemap-builder/internal/models"
	"github.com/spf13/afero"
)

// GenerateOptions extend Options with where to write the output.
type GenerateOptions struct {
	Options
	OutPath     string
	WriteRobots bool
}

// Result describes a completed generation.
type Result struct {
	Entries     []models.URLEntry
	SitemapPath string
	RobotsPath  string
}

// Generate builds the sitemap and writes it (and robots.txt when asked).
// Everything is rendered before the first write, and each file is replaced
// atomically, so a failed run never leaves a partial sitemap behind.
func (b *Builder) Generate(ctx context.Context, opts GenerateOptions) (*Result, error) {
	entries, err := b.Build(ctx, opts.Options)
	if err != nil {
		return nil, err
	}

	doc, err := Render(entries)
	if err != nil {
		return nil, err
	}

	outPath, err := filepath.Abs(opts.OutPath)
	if err != nil {
		return nil, fmt.Errorf("resolve output path: %w", err)
	}
	res := &Result{Entries: entries, SitemapPath: outPath}

	var robots string
	if opts.WriteRobots {
		res.RobotsPath = filepath.Join(filepath.Dir(outPath), "robots.txt")
		robots = RenderRobots(opts.Domain, filepath.Base(outPath))
	}

	if err := WriteFileAtomic(b.fs, outPath, doc); err != nil {
		return nil, err
	}
	b.logger.LogDebug("Sitemap written to %s (%d URLs)", outPath, len(entries))

	if opts.WriteRobots {
		if err := WriteFileAtomic(b.fs, res.RobotsPath, []byte(robots)); err != nil {
			return nil, err
		}
		b.logger.LogDebug("robots.txt written to %s", res.RobotsPath)
	}
	return res, nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it into place.
func WriteFileAtomic(fsys afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(fsys, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		fsys.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		fsys.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := fsys.Chmod(tmpName, 0644); err != nil {
		fsys.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		fsys.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

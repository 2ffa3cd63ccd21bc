// Package walker enumerates the files of a static site tree.
package walker

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrRootUnreadable is returned when the site root cannot be listed.
var ErrRootUnreadable = errors.New("site root is not readable")

// DefaultExclude names directories that never hold pages.
var DefaultExclude = []string{"node_modules", ".git", "assets", "css", "js", "images", "scripts"}

// File is one regular file found under the root.
type File struct {
	Path    string // absolute
	RelPath string // relative to the root, OS separators
}

// Options control a walk.
type Options struct {
	// Exclude lists directory or file names skipped wherever they appear in a path.
	Exclude []string
	// OnSkip is told about entries that could not be read. Their subtree is skipped.
	OnSkip func(path string, err error)
}

type visitFunc func(path, rel string, info os.FileInfo) (bool, error)

// Walk lazily yields every regular file under root. Hidden entries and excluded
// segments are skipped with their whole subtree. Order follows the filesystem.
// An unreadable root yields a single ErrRootUnreadable error.
func Walk(fsys afero.Fs, root string, opts Options) iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		err := walk(fsys, root, opts, func(path, rel string, info os.FileInfo) (bool, error) {
			if !info.Mode().IsRegular() {
				return true, nil
			}
			return yield(File{Path: path, RelPath: rel}, nil), nil
		})
		if err != nil {
			yield(File{}, err)
		}
	}
}

// Dirs returns root and every directory below it that Walk would descend into.
func Dirs(fsys afero.Fs, root string, opts Options) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRootUnreadable, root, err)
	}
	dirs := []string{abs}
	err = walk(fsys, abs, opts, func(path, _ string, info os.FileInfo) (bool, error) {
		if info.IsDir() {
			dirs = append(dirs, path)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

// Excluded reports whether any segment of rel is hidden or in the exclude set.
func Excluded(rel string, exclude []string) bool {
	return excludedPath(rel, toSet(exclude))
}

func walk(fsys afero.Fs, root string, opts Options, visit visitFunc) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRootUnreadable, root, err)
	}
	exclude := toSet(opts.Exclude)

	stopped := false
	err = afero.Walk(fsys, absRoot, func(path string, info os.FileInfo, err error) error {
		if path == absRoot {
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrRootUnreadable, absRoot, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("%w: %s is not a directory", ErrRootUnreadable, absRoot)
			}
			return nil
		}

		if err != nil {
			if opts.OnSkip != nil {
				opts.OnSkip(path, err)
			}
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		if excludedPath(rel, exclude) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		more, err := visit(path, rel, info)
		if err != nil {
			return err
		}
		if !more {
			stopped = true
			return filepath.SkipAll
		}
		return nil
	})
	if stopped || errors.Is(err, filepath.SkipAll) {
		return nil
	}
	return err
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func excludedPath(rel string, exclude map[string]struct{}) bool {
	segments := strings.FieldsFunc(rel, func(r rune) bool { return r == '/' || r == '\\' })
	for _, seg := range segments {
		if strings.HasPrefix(seg, ".") {
			return true
		}
		if _, ok := exclude[seg]; ok {
			return true
		}
	}
	return false
}

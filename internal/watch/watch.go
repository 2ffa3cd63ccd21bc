// Package watch regenerates the sitemap when pages under the site root change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/romangod6/sitemap-builder/internal/urlpath"
	"github.com/romangod6/sitemap-builder/internal/utils"
	"github.com/romangod6/sitemap-builder/internal/walker"
	"github.com/spf13/afero"
)

const DefaultDebounce = 500 * time.Millisecond

type Options struct {
	Root     string
	Exclude  []string
	Debounce time.Duration
	// OnChange runs once per burst of relevant events. Its error is logged.
	OnChange func(ctx context.Context) error
	Logger   *utils.Logger
}

type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	exclude  []string
	debounce time.Duration
	onChange func(ctx context.Context) error
	logger   *utils.Logger
}

// New watches root and every non-excluded directory below it.
func New(opts Options) (*Watcher, error) {
	if opts.OnChange == nil {
		return nil, errors.New("watch: OnChange is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", walker.ErrRootUnreadable, opts.Root, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		root:     root,
		exclude:  opts.Exclude,
		debounce: opts.Debounce,
		onChange: opts.OnChange,
		logger:   opts.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = utils.NewNopLogger()
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run dispatches events until ctx is done. It closes the watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.handle(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.LogWarn("Watch error: %v", err)

		case <-fire:
			fire = nil
			if err := w.onChange(ctx); err != nil {
				w.logger.LogError("Regeneration failed: %v", err)
			}
		}
	}
}

// handle reports whether ev should trigger a regeneration. New directories
// are added to the watch set.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || walker.Excluded(rel, w.exclude) {
		return false
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.LogWarn("Failed to watch %s: %v", ev.Name, err)
			}
			return true
		}
	}

	if urlpath.IsHTML(ev.Name) {
		w.logger.LogDebug("Change detected: %s", ev)
		return true
	}
	// A removed or renamed directory takes its pages with it.
	return ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) addTree(dir string) error {
	dirs, err := walker.Dirs(afero.NewOsFs(), dir, walker.Options{
		Exclude: w.exclude,
		OnSkip: func(path string, err error) {
			w.logger.LogWarn("Skipping unreadable path %s: %v", path, err)
		},
	})
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := w.fsw.Add(d); err != nil {
			return fmt.Errorf("failed to watch %s: %w", d, err)
		}
		w.logger.LogDebug("Watching %s", d)
	}
	return nil
}

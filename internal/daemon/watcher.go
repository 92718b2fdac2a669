package daemon

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitepipe/internal/fileio"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
)

// Watcher reports changes below a set of directories and to individual
// files. New directories are watched as they appear.
type Watcher struct {
	w      *fsnotify.Watcher
	files  map[string]bool
	dirs   map[string]bool // watched tree directories, grown only by Run
	ignore []string
	logger *slog.Logger
}

// NewWatcher watches every directory below roots, skipping the ignored
// trees, plus each listed file.
func NewWatcher(roots, files, ignore []string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{w: fw, files: make(map[string]bool), dirs: make(map[string]bool), logger: logger}
	for _, p := range ignore {
		if abs, err := filepath.Abs(p); err == nil {
			w.ignore = append(w.ignore, abs)
		}
	}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("resolve %s: %w", root, err)
		}
		w.addTree(abs)
	}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		w.files[abs] = true
		// Watch the directory; editors often replace files instead of writing them.
		if err := fw.Add(filepath.Dir(abs)); err != nil {
			logger.Warn("Watch add failed", logfields.Path(abs), logfields.Error(err))
		}
	}
	return w, nil
}

func (w *Watcher) addTree(root string) {
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(p) || (p != root && strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := w.w.Add(p); err != nil {
			w.logger.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
			return nil
		}
		w.dirs[p] = true
		return nil
	})
}

func (w *Watcher) ignored(p string) bool {
	for _, root := range w.ignore {
		if fileio.IsWithin(filepath.ToSlash(root), filepath.ToSlash(p)) {
			return true
		}
	}
	return false
}

// Run forwards relevant changes to onChange until ctx is done or the
// watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if p, ok := w.relevant(ev); ok {
				w.logger.Debug("Change detected", logfields.Path(p), slog.String("op", ev.Op.String()))
				onChange(p)
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) (string, bool) {
	if ev.Op == fsnotify.Chmod {
		return "", false
	}
	p := filepath.Clean(ev.Name)
	if w.files[p] {
		return p, true
	}
	if !w.dirs[filepath.Dir(p)] || w.ignored(p) || shouldIgnoreEvent(p) {
		return "", false
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			w.addTree(p)
		}
	}
	return p, true
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.w.Close()
}

// shouldIgnoreEvent filters hidden, editor swap and OS metadata files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db" || base == "4913":
		return true
	}
	return false
}

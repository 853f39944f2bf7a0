// Package watch triggers rebuilds when content files change.
//
// It watches a set of root directories recursively with fsnotify and
// coalesces bursts of events (an editor save, a git checkout) into a single
// callback once the tree has been quiet for the debounce interval.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 300 * time.Millisecond

// Watcher watches content directories and calls onChange after changes
// settle. Callbacks never overlap.
type Watcher struct {
	roots      []string
	extensions []string
	onChange   func(paths []string)
	debounce   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	pending  map[string]struct{}
	timer    *time.Timer
	started  bool
	done     chan struct{}
	stopOnce sync.Once
	fire     sync.Mutex // serializes onChange
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets the quiet period before onChange fires. Values <= 0 keep
// the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over roots. extensions filters which files count as
// content (empty = all); onChange receives the sorted, deduplicated paths
// that changed since the last call.
func New(roots, extensions []string, onChange func(paths []string), opts ...Option) *Watcher {
	w := &Watcher{
		roots:      slices.Clone(roots),
		extensions: slices.Clone(extensions),
		onChange:   onChange,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		pending:    make(map[string]struct{}),
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start begins watching. It returns once all roots are registered; events
// are handled in the background until ctx is cancelled or Stop is called.
// Roots that do not exist yet are created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	w.watcher = fsw

	for _, root := range w.roots {
		if err := w.addTreeLocked(root, true); err != nil {
			_ = fsw.Close()
			w.watcher = nil

			return err
		}
	}

	w.started = true
	w.logger.Debug("watcher started", zap.Strings("roots", w.roots), zap.Strings("extensions", w.extensions))

	go w.run(ctx, fsw)

	return nil
}

// Done is closed after the watcher stops.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()

			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}

			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}

			if err != nil {
				w.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.underRoot(path) || hidden(path) {
		return
	}

	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))

	if ev.Has(fsnotify.Create) {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.mu.Lock()
			if !w.started {
				w.mu.Unlock()

				return
			}

			addErr := w.addTreeLocked(path, false)
			w.mu.Unlock()

			if addErr != nil {
				w.logger.Warn("watcher failed to add directory", zap.String("path", path), zap.Error(addErr))
			}

			// Files moved in with the directory count as changes.
			w.schedule(path)

			return
		}
	}

	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return
	}

	if matchExtension(path, w.extensions) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.schedule(path)
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}

	w.pending[path] = struct{}{}

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.fire.Lock()
	defer w.fire.Unlock()

	w.mu.Lock()
	if !w.started || len(w.pending) == 0 {
		w.mu.Unlock()

		return
	}

	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}

	clear(w.pending)
	w.timer = nil
	w.mu.Unlock()

	slices.Sort(paths)
	w.logger.Debug("watcher flushing changes", zap.Int("paths", len(paths)))

	if w.onChange != nil {
		w.onChange(paths)
	}
}

// addTreeLocked watches dir and every non-hidden subdirectory. When create
// is set and dir is missing it is created first.
func (w *Watcher) addTreeLocked(dir string, create bool) error {
	if w.watcher == nil {
		return nil
	}

	dir = filepath.Clean(dir)

	if _, err := os.Stat(dir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || !create {
			return err
		}

		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != dir && hidden(path) {
			return fs.SkipDir
		}

		return w.watcher.Add(path)
	})
}

func (w *Watcher) underRoot(path string) bool {
	for _, root := range w.roots {
		rootClean := filepath.Clean(root)
		if rootClean == path || inDir(rootClean, path) {
			return true
		}
	}

	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// hidden reports whether the base name marks an ignored file (editor swap
// files, drafts).
func hidden(path string) bool {
	base := filepath.Base(path)

	return strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") || strings.HasSuffix(base, "~")
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}

	return false
}

// Stop stops the watcher, drops pending changes and waits for a running
// onChange to return. It must not be called from onChange.
func (w *Watcher) Stop() {
	w.mu.Lock()

	if !w.started {
		w.mu.Unlock()

		return
	}

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	clear(w.pending)
	fsw := w.watcher
	w.watcher = nil
	w.started = false
	w.mu.Unlock()

	_ = fsw.Close()

	// Wait out an in-flight callback.
	w.fire.Lock()
	w.fire.Unlock() //nolint:staticcheck // empty critical section

	w.stopOnce.Do(func() { close(w.done) })
}

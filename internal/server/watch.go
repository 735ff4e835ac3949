package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/clickit/internal/logfields"
)

// BuildFunc runs one site build.
type BuildFunc func(ctx context.Context) error

const defaultDebounce = 300 * time.Millisecond

// Watcher rebuilds the site when files below the source root change and
// notifies live reload clients after every build. Rebuilds are serialized on
// a single worker; changes arriving during a build coalesce into one
// follow-up build.
type Watcher struct {
	sourceDir string
	ignore    []string
	build     BuildFunc
	hub       *LiveReloadHub
	logger    *slog.Logger
	debounce  time.Duration

	rebuild   chan struct{}
	ready     chan struct{}
	readyOnce sync.Once

	mu      sync.Mutex
	timer   *time.Timer
	lastErr error
}

// NewWatcher returns a watcher for sourceDir. Paths below any of ignore (the
// output root, typically) never trigger rebuilds.
func NewWatcher(sourceDir string, ignore []string, build BuildFunc, hub *LiveReloadHub, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	abs := make([]string, 0, len(ignore))
	for _, p := range ignore {
		if p == "" {
			continue
		}
		if a, err := filepath.Abs(p); err == nil {
			abs = append(abs, a)
		}
	}
	return &Watcher{
		sourceDir: sourceDir,
		ignore:    abs,
		build:     build,
		hub:       hub,
		logger:    logger,
		debounce:  defaultDebounce,
		rebuild:   make(chan struct{}, 1),
		ready:     make(chan struct{}),
	}
}

// Ready is closed once the first build has finished, successfully or not.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// LastError returns the error of the most recent build, if any.
func (w *Watcher) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Run performs the initial build and then watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	root, err := filepath.Abs(w.sourceDir)
	if err != nil {
		return fmt.Errorf("resolve source dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fsw.Close() }()
	w.addDirsRecursive(fsw, root)

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx)
	}()
	w.request()

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.rebuild:
			w.runBuild(ctx)
		}
	}
}

func (w *Watcher) runBuild(ctx context.Context) {
	start := time.Now()
	err := w.build(ctx)

	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()

	hash := strconv.FormatInt(time.Now().UnixNano(), 36)
	if err != nil {
		w.logger.Warn("Rebuild failed", logfields.Error(err))
		hash = "error-" + hash
	} else {
		w.logger.Info("Site rebuilt", logfields.DurationMS(float64(time.Since(start))/float64(time.Millisecond)))
	}
	w.readyOnce.Do(func() { close(w.ready) })
	if w.hub != nil {
		w.hub.Broadcast(hash)
	}
}

// request queues a rebuild; a request made while one is pending is dropped.
func (w *Watcher) request() {
	select {
	case w.rebuild <- struct{}{}:
	default:
	}
}

// trigger debounces bursts of file events into one rebuild request.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.request)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if w.ignored(ev.Name) || shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(fsw, ev.Name)
		}
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.trigger()
}

func (w *Watcher) ignored(p string) bool {
	abs, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	for _, dir := range w.ignore {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addDirsRecursive(fsw *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != root && (w.ignored(p) || strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			w.logger.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent reports editor temp files and other noise.
func shouldIgnoreEvent(p string) bool {
	base := filepath.Base(p)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}

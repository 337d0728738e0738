// Package watcher reports settled changes to catalog files so the service can reload
// them. Editors that save by writing a temp file and renaming it over the original
// produce a single EventChanged for the original path.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors catalog files through fsnotify with per-path settling.
//
// Files are watched through their parent directory, so a file replaced by rename
// keeps being watched.
type Watcher struct {
	logger *slog.Logger
	opts   Options
	fs     *fsnotify.Watcher

	mu      sync.Mutex
	files   map[string]bool // explicitly watched files
	dirs    map[string]bool // directories whose every file is watched
	added   map[string]bool // directories registered with fsnotify
	pending map[string]*pendingEvent

	events chan Event
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// pendingEvent tracks a path that may still be changing
type pendingEvent struct {
	exists  bool
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// New creates a watcher. Nothing is watched until Watch is called, and no events
// are delivered until Start.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts.setDefaults()

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		logger:  logger,
		opts:    opts,
		fs:      fs,
		files:   make(map[string]bool),
		dirs:    make(map[string]bool),
		added:   make(map[string]bool),
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, 16),
		errors:  make(chan error, 4),
		done:    make(chan struct{}),
	}, nil
}

// Watch adds a file or a directory. A directory watch covers the files directly
// inside it, minus ignored names.
func (w *Watcher) Watch(path string) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}

	dir := path
	w.mu.Lock()
	if info.IsDir() {
		w.dirs[path] = true
	} else {
		w.files[path] = true
		dir = filepath.Dir(path)
	}
	alreadyAdded := w.added[dir]
	w.added[dir] = true
	w.mu.Unlock()

	if alreadyAdded {
		return nil
	}
	if err := w.fs.Add(dir); err != nil {
		return fmt.Errorf("failed to add watch on %s: %w", dir, err)
	}
	w.logger.Debug("added watch", "path", path)
	return nil
}

// Start processes file system events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.wg.Add(1)
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.reportError(err)
		}
	}
}

// Events returns the channel of settled events. It is never closed; stop reading
// when the context passed to Start is done.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop releases the fsnotify watcher and cancels pending events.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)

		w.mu.Lock()
		for _, p := range w.pending {
			p.timer.Stop()
		}
		clear(w.pending)
		w.mu.Unlock()

		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) relevant(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.files[path] {
		return true
	}
	return w.dirs[filepath.Dir(path)] && !w.opts.shouldIgnore(path)
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if event.Op == fsnotify.Chmod || !w.relevant(path) {
		return
	}
	w.logger.Debug("file event", "path", path, "op", event.Op.String())
	w.settle(path)
}

// settle records the current state of path and (re)arms its settle timer.
func (w *Watcher) settle(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pending[path]
	if ok {
		p.timer.Stop()
	} else {
		p = &pendingEvent{}
		w.pending[path] = p
	}

	p.exists, p.size, p.modTime = stat(path)
	p.timer = time.AfterFunc(w.opts.SettleDelay, func() { w.checkSettled(path) })
}

// checkSettled emits an event once path looks the same as it did a settle delay ago.
func (w *Watcher) checkSettled(path string) {
	w.mu.Lock()
	p, ok := w.pending[path]
	if !ok {
		w.mu.Unlock()
		return
	}

	exists, size, modTime := stat(path)
	if exists != p.exists || size != p.size || !modTime.Equal(p.modTime) {
		// Still changing
		p.exists, p.size, p.modTime = exists, size, modTime
		p.timer = time.AfterFunc(w.opts.SettleDelay, func() { w.checkSettled(path) })
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	event := Event{Type: EventRemoved, Path: path}
	if exists {
		event = Event{Type: EventChanged, Path: path, Size: size, ModTime: modTime}
	}
	w.emit(event)
}

func stat(path string) (exists bool, size int64, modTime time.Time) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false, 0, time.Time{}
	}
	return true, info.Size(), info.ModTime()
}

func (w *Watcher) emit(event Event) {
	select {
	case w.events <- event:
	case <-w.done:
	}
}

func (w *Watcher) reportError(err error) {
	select {
	case w.errors <- err:
	default:
		w.logger.Warn("dropping watch error", "error", err)
	}
}

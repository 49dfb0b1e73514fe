package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/seekd/seekd/internal/parser"
)

// DirWatcher watches one directory tree with fsnotify and emits debounced
// batches of file events. Only files with supported extensions are
// reported; directory events are consumed internally to keep the
// recursive watch set current.
type DirWatcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	events    chan []FileEvent
	errors    chan error
	stopCh    chan struct{}
	rootPath  string
	opts      Options
	mu        sync.RWMutex
	stopped   bool
}

// NewDirWatcher creates a watcher for a single directory tree.
func NewDirWatcher(opts Options) (*DirWatcher, error) {
	opts = opts.WithDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &DirWatcher{
		fsWatcher: fsw,
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}, nil
}

// Start begins watching the given directory recursively. It blocks until
// Stop is called or the context is cancelled.
func (w *DirWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	w.rootPath = absPath

	if err := w.addRecursive(absPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	go w.forwardDebouncedEvents(ctx)

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// handleFsnotifyEvent converts and filters raw fsnotify events.
func (w *DirWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	// The path may already be gone for delete and rename events; a failed
	// stat just means we treat it as a plain file.
	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	if isDir {
		// New subdirectories join the watch set; everything else about
		// directories is noise to the indexer.
		if event.Op&fsnotify.Create != 0 {
			_ = w.fsWatcher.Add(event.Name)
		}
		return
	}

	if !parser.IsSupported(filepath.Ext(event.Name)) {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		// Rename reports the old name, which no longer exists.
		op = OpDelete
	default:
		// Chmod and friends do not change content.
		return
	}

	w.debouncer.Add(FileEvent{
		Path:      event.Name,
		Operation: op,
		Timestamp: time.Now(),
	})
}

// forwardDebouncedEvents forwards debounced batches to the output channel.
func (w *DirWatcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case events, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			if len(events) == 0 {
				continue
			}
			w.emitEvents(events)
		}
	}
}

// addRecursive adds all directories under root to the fsnotify watcher.
func (w *DirWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip what we cannot read
		}
		if !d.IsDir() {
			return nil
		}
		return w.fsWatcher.Add(path)
	})
}

// emitEvents sends a batch to the output channel without blocking.
func (w *DirWatcher) emitEvents(events []FileEvent) {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case w.events <- events:
	default:
	}
}

// emitError sends an error to the error channel without blocking.
func (w *DirWatcher) emitError(err error) {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher and releases resources.
// Safe to call multiple times.
func (w *DirWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)

	w.debouncer.Stop()
	_ = w.fsWatcher.Close()

	// The events and errors channels stay open: emitEvents may be between
	// its stopped check and its send, and a send on a closed channel
	// panics. Consumers exit through their context or stopCh instead.
	return nil
}

// Events returns the channel of batched file events. The channel is never
// closed; consumers select against their own context.
func (w *DirWatcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns the channel of watcher errors. Never closed, like Events.
func (w *DirWatcher) Errors() <-chan error {
	return w.errors
}

// RootPath returns the root path being watched.
func (w *DirWatcher) RootPath() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.rootPath
}

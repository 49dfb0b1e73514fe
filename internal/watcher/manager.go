package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	seekderrors "github.com/seekd/seekd/internal/errors"
	"github.com/seekd/seekd/internal/indexer"
)

// FileIndexer is the slice of the indexer the manager drives.
type FileIndexer interface {
	IndexFile(ctx context.Context, path string) (indexer.FileResult, error)
	ReindexFile(ctx context.Context, path string) (indexer.FileResult, error)
	RemoveFile(ctx context.Context, path string) (indexer.RemoveResult, error)
}

// Manager runs one DirWatcher per registered directory and applies the
// coalesced events to the indexer: creates are indexed, modifications
// reindexed, deletions removed.
type Manager struct {
	ix   FileIndexer
	opts Options

	mu      sync.Mutex
	watches map[string]*watch
	wg      sync.WaitGroup
	stopped bool
}

type watch struct {
	watcher *DirWatcher
	cancel  context.CancelFunc
}

// NewManager creates a watch manager over the given indexer.
func NewManager(ix FileIndexer, opts Options) *Manager {
	return &Manager{
		ix:      ix,
		opts:    opts.WithDefaults(),
		watches: make(map[string]*watch),
	}
}

// Watch starts watching a directory tree. Watching an already-watched
// directory is a no-op.
func (m *Manager) Watch(ctx context.Context, dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return seekderrors.Wrap(seekderrors.ErrCodeInvalidPath, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return seekderrors.New(seekderrors.ErrCodeInternal, "watch manager is stopped", nil)
	}
	if _, ok := m.watches[absDir]; ok {
		return nil
	}

	w, err := NewDirWatcher(m.opts)
	if err != nil {
		return err
	}

	wctx, cancel := context.WithCancel(ctx)
	m.watches[absDir] = &watch{watcher: w, cancel: cancel}

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		if err := w.Start(wctx, absDir); err != nil && wctx.Err() == nil {
			slog.Error("watcher stopped",
				slog.String("dir", absDir),
				slog.String("error", err.Error()))
		}
	}()
	go func() {
		defer m.wg.Done()
		m.consume(wctx, w)
	}()

	slog.Info("watching directory", slog.String("dir", absDir))
	return nil
}

// Unwatch stops watching a directory. Unknown directories are a no-op.
func (m *Manager) Unwatch(dir string) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return
	}

	m.mu.Lock()
	w, ok := m.watches[absDir]
	if ok {
		delete(m.watches, absDir)
	}
	m.mu.Unlock()

	if ok {
		w.cancel()
		_ = w.watcher.Stop()
	}
}

// WatchedDirs returns the directories currently being watched.
func (m *Manager) WatchedDirs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	dirs := make([]string, 0, len(m.watches))
	for dir := range m.watches {
		dirs = append(dirs, dir)
	}
	return dirs
}

// Stop stops all watchers and waits for their goroutines to exit.
// Safe to call multiple times.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	watches := m.watches
	m.watches = make(map[string]*watch)
	m.mu.Unlock()

	for _, w := range watches {
		w.cancel()
		_ = w.watcher.Stop()
	}
	m.wg.Wait()
}

// consume applies event batches from one watcher to the indexer.
func (m *Manager) consume(ctx context.Context, w *DirWatcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-w.Events():
			if !ok {
				return
			}
			for _, ev := range batch {
				m.apply(ctx, ev)
			}
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			slog.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// apply dispatches one coalesced event to the indexer. Files that vanish
// between the event and the index call are expected during rapid churn
// and are not errors.
func (m *Manager) apply(ctx context.Context, ev FileEvent) {
	var err error
	switch ev.Operation {
	case OpCreate:
		_, err = m.ix.IndexFile(ctx, ev.Path)
	case OpModify:
		_, err = m.ix.ReindexFile(ctx, ev.Path)
	case OpDelete:
		_, err = m.ix.RemoveFile(ctx, ev.Path)
	default:
		return
	}

	if err != nil {
		if seekderrors.GetCode(err) == seekderrors.ErrCodeFileNotFound {
			slog.Debug("file vanished before indexing",
				slog.String("path", ev.Path),
				slog.String("op", ev.Operation.String()))
			return
		}
		slog.Warn("watch event failed",
			slog.String("path", ev.Path),
			slog.String("op", ev.Operation.String()),
			slog.String("error", err.Error()))
	}
}

package monitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"pegasus/internal/listfile"
	"pegasus/internal/logging"
)

// ListWatcher reports edits of the list file made outside this process.
// It watches the parent directory because atomic replacement swaps the
// file's inode. Content this process wrote itself is recognised by checksum
// and ignored.
type ListWatcher struct {
	path      string
	isOwn     func(checksum string) bool
	onEdit    func()
	logger    *slog.Logger
	watcher   *fsnotify.Watcher
	debouncer *Debouncer

	mu       sync.Mutex
	lastSeen string
	stopOnce sync.Once
	done     chan struct{}
}

// NewListWatcher watches path's directory. isOwn may be nil.
func NewListWatcher(path string, delay time.Duration, isOwn func(checksum string) bool, onEdit func(), logger *slog.Logger) (*ListWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	w := &ListWatcher{
		path:    path,
		isOwn:   isOwn,
		onEdit:  onEdit,
		logger:  logging.NewComponentLogger(logger, "list-watcher"),
		watcher: watcher,
		done:    make(chan struct{}),
	}
	w.lastSeen = w.checksum()
	w.debouncer = NewDebouncer(delay, func(string) { w.check() })
	return w, nil
}

// Start processes filesystem events until ctx ends or Stop is called.
func (w *ListWatcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Stop closes the watcher and waits for the event loop to exit.
func (w *ListWatcher) Stop() {
	w.stopOnce.Do(func() {
		w.debouncer.Stop()
		_ = w.watcher.Close()
	})
	<-w.done
}

func (w *ListWatcher) loop(ctx context.Context) {
	defer close(w.done)
	target := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			w.debouncer.Stop()
			_ = w.watcher.Close()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.debouncer.Add(target)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WarnWithContext(w.logger, "list watcher error", "list_watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "a hand edit of the list may be missed"),
			)
		}
	}
}

func (w *ListWatcher) checksum() string {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ""
		}
		return "unreadable"
	}
	return listfile.Checksum(data)
}

func (w *ListWatcher) check() {
	sum := w.checksum()

	w.mu.Lock()
	changed := sum != w.lastSeen
	w.lastSeen = sum
	w.mu.Unlock()

	if !changed {
		return
	}
	if w.isOwn != nil && w.isOwn(sum) {
		w.logger.Debug("ignoring list change written by this process")
		return
	}
	w.logger.Info("list file edited externally",
		logging.String(logging.FieldEventType, "list_edited"),
		logging.String("path", w.path),
	)
	if w.onEdit != nil {
		w.onEdit()
	}
}

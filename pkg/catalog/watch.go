package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const defaultWatchDebounce = 400 * time.Millisecond

// Watcher refreshes a Store whenever the catalog file changes on disk.
// The parent directory is watched, since many writers replace the file by
// renaming a temp file over it.
type Watcher struct {
	store    *Store
	path     string
	debounce time.Duration

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	timer    *time.Timer
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for path that refreshes store.
func NewWatcher(store *Store, path string) *Watcher {
	return &Watcher{
		store:    store,
		path:     filepath.Clean(path),
		debounce: defaultWatchDebounce,
		done:     make(chan struct{}),
	}
}

// SetDebounce changes the delay between the last file event and the refresh.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Start begins watching. It returns once the watch is registered; events are
// handled until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return err
	}

	w.mu.Lock()
	w.watcher = fw
	w.mu.Unlock()

	log.Debugf("Watching catalog file %s", w.path)
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule(ctx)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			log.Warnf("Catalog watcher error: %v", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.store.Refresh(ctx); err != nil {
			log.Errorf("Catalog reload after change failed: %v", err)
			return
		}
		log.Infof("Catalog reloaded: %d entries", w.store.Current().Len())
	})
}

// Stop stops watching and cancels a pending refresh. Safe to call twice.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
		w.mu.Unlock()
		close(w.done)
	})
}

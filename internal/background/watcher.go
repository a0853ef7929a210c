package background

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// watcher monitors the backgrounds directory for changes using fsnotify
// with a polling fallback.
type watcher struct {
	// dir is the directory being monitored.
	dir string
	// events delivers a signal each time the directory content changes.
	// The channel is buffered to 1 so back-to-back changes coalesce.
	events chan struct{}
	// done is closed by [watcher.Close] to signal goroutines to exit.
	done chan struct{}
	// mu guards fsw, which the watch goroutine clears when it falls back
	// to polling while [watcher.Close] reads it from the caller.
	mu sync.Mutex
	// fsw is the underlying fsnotify watcher; nil when polling.
	fsw *fsnotify.Watcher
	// once ensures [watcher.Close] is idempotent.
	once sync.Once
	// polling is true when the watcher has fallen back to stat-based polling.
	polling atomic.Bool
	// pollInterval is the duration between directory scans in polling mode.
	pollInterval time.Duration
}

// newWatcher creates a watcher for dir. It uses fsnotify as the primary
// change detection mechanism and falls back to polling if fsnotify is
// unavailable.
func newWatcher(dir string) (*watcher, error) {
	w := &watcher{
		dir:          dir,
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: 5 * time.Second,
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to polling", "error", err)
		w.polling.Store(true)
		go w.poll()
		return w, nil
	}

	w.fsw = fsw
	if err := fsw.Add(dir); err != nil {
		slog.Info("cannot watch directory, falling back to polling", "path", dir, "error", err)
		fsw.Close()
		w.fsw = nil
		w.polling.Store(true)
		go w.poll()
		return w, nil
	}

	go w.watch()
	return w, nil
}

// watch loops over fsnotify events and forwards change notifications to
// the events channel. If fsnotify encounters an error, watch closes the
// native watcher and falls back to [watcher.poll].
func (w *watcher) watch() {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return
	}

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.notify()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "error", err)
			w.closeFSW()
			w.polling.Store(true)
			go w.poll()
			return
		}
	}
}

// poll periodically fingerprints the directory and sends a notification
// when its content changes.
func (w *watcher) poll() {
	last := w.fingerprint()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			fp := w.fingerprint()
			if fp != last {
				last = fp
				w.notify()
			}
		}
	}
}

// fingerprint summarizes the directory content as name/size/mtime tuples.
func (w *watcher) fingerprint() string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return ""
	}
	var fp string
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		fp += fmt.Sprintf("%s:%d:%d;", e.Name(), info.Size(), info.ModTime().UnixNano())
	}
	return fp
}

// closeFSW closes and clears the native watcher under the field lock.
func (w *watcher) closeFSW() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return nil
	}
	err := w.fsw.Close()
	w.fsw = nil
	return err
}

// notify performs a non-blocking send on the events channel.
func (w *watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}

// logRescanError reports a failed rescan triggered by a change event.
func (w *watcher) logRescanError(err error) {
	slog.Warn("background rescan failed", "path", w.dir, "error", err)
}

// Events returns a channel that receives a signal when the directory changes.
func (w *watcher) Events() <-chan struct{} {
	return w.events
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *watcher) Polling() bool {
	return w.polling.Load()
}

// Close stops the watcher and releases resources.
func (w *watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if closeErr := w.closeFSW(); closeErr != nil {
			err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
		}
	})
	return err
}

// Package background maintains the catalog of base images that text is
// rendered onto. The catalog scans a directory with a glob pattern, hands
// out decoded images through a pluggable selection policy, and can keep
// itself current by watching the directory for changes.
package background

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/disintegration/imaging"
)

// ErrEmpty is returned by [Catalog.Pick] when no background files match
// the configured pattern.
var ErrEmpty = errors.New("background catalog is empty")

// maxDimension caps background width and height; larger files are scaled
// down on pick. Keeps render time and outgoing photo size bounded when
// users drop camera originals into the directory.
const maxDimension = 1920

// ///////////////////////////////////////////////
// Selection
// ///////////////////////////////////////////////

// Selector chooses an index in [0, n) from a catalog of n files. n is
// always at least 1 when a Selector is called.
type Selector func(n int) int

// First always selects the first file in sorted order.
func First(int) int { return 0 }

// Random returns a Selector backed by its own seeded source, so picks are
// reproducible in tests and independent of the global generator.
func Random(seed int64) Selector {
	rng := rand.New(rand.NewSource(seed))
	var mu sync.Mutex
	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		return rng.Intn(n)
	}
}

// ///////////////////////////////////////////////
// Catalog
// ///////////////////////////////////////////////

// Catalog is a concurrency-safe view of the background files under a
// directory. Rescans replace the file list atomically; picks decode the
// selected file on demand so edits on disk take effect without restart.
type Catalog struct {
	// dir is the root directory scanned for backgrounds.
	dir string
	// pattern is a doublestar glob matched against paths relative to dir.
	pattern string
	// selector picks which of the matched files a call to Pick uses.
	selector Selector

	// mu guards files.
	mu    sync.RWMutex
	files []string

	// watcher is non-nil after a successful call to [Catalog.Watch].
	watcher *watcher
}

// Open scans dir with pattern and returns a catalog over the matches.
// A directory with no matches is not an error; Pick reports [ErrEmpty]
// until files appear and a rescan sees them.
func Open(dir, pattern string, selector Selector) (*Catalog, error) {
	if selector == nil {
		return nil, fmt.Errorf("background: nil selector")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("background directory: %w", err)
	}

	c := &Catalog{dir: dir, pattern: pattern, selector: selector}
	if err := c.Rescan(); err != nil {
		return nil, err
	}
	return c, nil
}

// Rescan re-globs the directory and swaps in the new file list. Matches
// are sorted so selection is stable across scans of unchanged content.
func (c *Catalog) Rescan() error {
	matches, err := doublestar.Glob(os.DirFS(c.dir), c.pattern)
	if err != nil {
		return fmt.Errorf("glob %q: %w", c.pattern, err)
	}
	sort.Strings(matches)

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		files = append(files, filepath.Join(c.dir, filepath.FromSlash(m)))
	}

	c.mu.Lock()
	c.files = files
	c.mu.Unlock()
	return nil
}

// Len reports how many files the last scan matched.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}

// Pick selects a background via the catalog's selector and decodes it.
// The returned path identifies the chosen file for logging.
func (c *Catalog) Pick() (image.Image, string, error) {
	c.mu.RLock()
	files := c.files
	c.mu.RUnlock()

	if len(files) == 0 {
		return nil, "", ErrEmpty
	}

	idx := c.selector(len(files))
	if idx < 0 || idx >= len(files) {
		return nil, "", fmt.Errorf("selector returned %d for %d files", idx, len(files))
	}
	path := files[idx]

	img, err := imaging.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open background %s: %w", path, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}
	return img, path, nil
}

// Watch starts monitoring the catalog directory; any create, write, remove
// or rename under it triggers a rescan. Safe to call once per catalog.
func (c *Catalog) Watch() error {
	w, err := newWatcher(c.dir)
	if err != nil {
		return err
	}
	c.watcher = w
	if w.Polling() {
		slog.Info("watching backgrounds via polling", "path", c.dir)
	}

	go func() {
		for {
			select {
			case <-w.done:
				return
			case <-w.Events():
				if err := c.Rescan(); err != nil {
					w.logRescanError(err)
				}
			}
		}
	}()
	return nil
}

// Close stops the directory watcher, if one was started.
func (c *Catalog) Close() error {
	if c.watcher == nil {
		return nil
	}
	return c.watcher.Close()
}

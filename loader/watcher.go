package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// eventChannelBuffer is the size of the watch event channel.
const eventChannelBuffer = 64

// defaultDebounce is how long the watcher waits for further changes
// before emitting events.
const defaultDebounce = 500 * time.Millisecond

// Event reports a changed definition file.
type Event struct {
	// Path is the changed file's path.
	Path string
	// Removed is true when the file was deleted or renamed away.
	Removed bool
}

// Watcher watches catalog directories for definition file changes and
// emits debounced events. Changes that do not alter file content (e.g.
// touch) are suppressed by content hashing.
type Watcher struct {
	dirs     []string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashMu sync.Mutex
	hashes map[string]string

	events chan Event
}

// NewWatcher creates a watcher over the directories containing the
// given glob patterns. The debounce delay falls back to a default when
// zero.
func NewWatcher(patterns []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &Watcher{
		dirs:     watchRoots(patterns),
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		events:   make(chan Event, eventChannelBuffer),
	}, nil
}

// Events returns the channel of debounced change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start adds watches for all directories under the watch roots and
// begins event processing. The events channel closes when the context
// is cancelled or the watcher is stopped.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.dirs {
		if err := w.addWatchesRecursive(dir); err != nil {
			return err
		}
	}

	go w.processEvents(ctx)

	w.logger.Info("Definition watcher started",
		"dirs", w.dirs,
		"debounce", w.debounce)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") && base != "." {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		// Watch newly created directories for future definition files.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				if err := w.watcher.Add(path); err != nil {
					w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
				}
			}
		}
		return
	}

	w.pendingMu.Lock()
	w.pending[path] = event.Op
	w.pendingMu.Unlock()
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range toProcess {
		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			w.dropHash(path)
			w.send(Event{Path: path, Removed: true})
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				w.dropHash(path)
				w.send(Event{Path: path, Removed: true})
			} else {
				w.logger.Warn("Failed to read changed file", "path", path, "error", err)
			}
			continue
		}

		if !w.updateHash(path, content) {
			continue // content unchanged
		}
		w.send(Event{Path: path})
	}
}

// updateHash records the content hash and reports whether it changed.
func (w *Watcher) updateHash(path string, content []byte) bool {
	sum := sha256.Sum256(content)
	h := hex.EncodeToString(sum[:])

	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	if w.hashes[path] == h {
		return false
	}
	w.hashes[path] = h
	return true
}

func (w *Watcher) dropHash(path string) {
	w.hashMu.Lock()
	delete(w.hashes, path)
	w.hashMu.Unlock()
}

func (w *Watcher) send(e Event) {
	select {
	case w.events <- e:
	default:
		w.logger.Warn("Event channel full, dropping event", "path", e.Path)
	}
}

// watchRoots derives the directories to watch from glob patterns: the
// longest path prefix before the first glob character.
func watchRoots(patterns []string) []string {
	seen := make(map[string]bool)
	var roots []string

	for _, pattern := range patterns {
		root := pattern
		if i := strings.IndexAny(pattern, "*?[{"); i >= 0 {
			root = filepath.Dir(pattern[:i+1])
		} else {
			root = filepath.Dir(pattern)
		}
		if root == "" {
			root = "."
		}
		if !seen[root] {
			seen[root] = true
			roots = append(roots, root)
		}
	}
	return roots
}

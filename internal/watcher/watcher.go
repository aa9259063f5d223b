// Package watcher observes the docs directory and signals when a
// re-ingestion is due. Rapid editor save bursts are coalesced by a
// debouncer so one save produces one re-index.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file was deleted.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents one document change.
type FileEvent struct {
	// Path is relative to the watched directory.
	Path string

	// Operation is the type of change.
	Operation Operation

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// DocsWatcher watches a docs directory recursively with fsnotify.
// Batches of coalesced events arrive on Events.
type DocsWatcher struct {
	fsWatcher  *fsnotify.Watcher
	debouncer  *Debouncer
	extensions map[string]bool
	logger     *slog.Logger

	rootPath string

	mu      sync.Mutex
	stopped bool
	stopCh  chan struct{}
	errors  chan error
}

// New creates a docs watcher. extensions lists the file extensions worth
// reacting to, without dots ("txt", "md", "pdf"); events for other files
// are dropped.
func New(debounce time.Duration, extensions []string, logger *slog.Logger) (*DocsWatcher, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	extSet := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		extSet[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}

	return &DocsWatcher{
		fsWatcher:  fsw,
		debouncer:  NewDebouncer(debounce),
		extensions: extSet,
		logger:     logger,
		stopCh:     make(chan struct{}),
		errors:     make(chan error, 10),
	}, nil
}

// Start watches path recursively until the context ends or Stop is
// called. It blocks; run it in a goroutine.
func (w *DocsWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	w.rootPath = absPath

	if err := w.addRecursive(absPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	w.logger.Info("watching docs directory", slog.String("path", absPath))

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
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// addRecursive registers path and every non-hidden subdirectory.
func (w *DocsWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *DocsWatcher) handleEvent(event fsnotify.Event) {
	// New directories need watching for their own events
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !strings.HasPrefix(filepath.Base(event.Name), ".") {
				_ = w.addRecursive(event.Name)
			}
			return
		}
	}

	if !w.relevant(event.Name) {
		return
	}

	rel, err := filepath.Rel(w.rootPath, event.Name)
	if err != nil {
		rel = event.Name
	}

	var op Operation
	switch {
	case event.Op.Has(fsnotify.Create):
		op = OpCreate
	case event.Op.Has(fsnotify.Write):
		op = OpModify
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		op = OpDelete
	default:
		return
	}

	w.debouncer.Add(FileEvent{
		Path:      rel,
		Operation: op,
		Timestamp: time.Now(),
	})
}

// relevant reports whether the path has a watched extension and is not
// hidden.
func (w *DocsWatcher) relevant(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	if ext == "" {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	return w.extensions[ext]
}

// Events returns the channel of debounced event batches.
func (w *DocsWatcher) Events() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Errors returns non-fatal watcher errors.
func (w *DocsWatcher) Errors() <-chan error {
	return w.errors
}

// Stop stops the watcher. Safe to call multiple times.
func (w *DocsWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true

	close(w.stopCh)
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}

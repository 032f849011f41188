package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cvsubs74/dm-consent/pkg/logging"
	"github.com/fsnotify/fsnotify"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeWritten ChangeType = iota // created, written or renamed into place
	ChangeTypeRemoved
)

func (t ChangeType) String() string {
	if t == ChangeTypeRemoved {
		return "removed"
	}
	return "written"
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches a set of files. It watches their directories, since
// editors usually replace a file instead of writing it in place.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool // absolute paths
	events  chan ChangeEvent
}

// NewFileWatcher creates a watcher for the given files
func NewFileWatcher(files ...string) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: w,
		files:   make(map[string]bool),
		events:  make(chan ChangeEvent, 100),
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		fw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return fw, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) {
	logging.Info("watching files", "count", len(fw.files))
	go fw.processEvents(ctx)
}

// processEvents forwards events for the watched files only
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !fw.files[abs] {
				continue
			}

			change := ChangeTypeWritten
			if event.Has(fsnotify.Remove) {
				change = ChangeTypeRemoved
			} else if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue // chmod only
			}

			logging.Trace("file event", "path", abs, "op", event.Op.String())
			select {
			case fw.events <- ChangeEvent{Type: change, Paths: []string{abs}, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events; it is closed when the watcher stops
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/zerr"
)

// Op classifies a vault event.
type Op int

const (
	// OpWrite is a document created or modified.
	OpWrite Op = iota
	// OpRemove is a document removed or renamed away. Renames surface as
	// a remove of the old id plus a write of the new one: there is no
	// rename tracking, the sweep prunes the dangling old owner.
	OpRemove
)

// Event is a single vault change.
type Event struct {
	// Path is the absolute path of the affected file.
	Path string
	Op   Op
}

// skipDirectories are directories never watched.
var skipDirectories = map[string]bool{
	".git":         true,
	".jj":          true,
	"node_modules": true,
}

const eventChannelBuffer = 100

// Watcher watches a vault directory tree for markdown changes using
// fsnotify.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	events    chan Event
}

// NewWatcher creates a new vault watcher.
func NewWatcher() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create fsnotify watcher")
	}
	return &Watcher{
		fsWatcher: fsw,
		events:    make(chan Event, eventChannelBuffer),
	}, nil
}

// Start begins watching root recursively. It returns after registering
// the directory tree; events flow on Events until ctx is done.
func (w *Watcher) Start(ctx context.Context, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (skipDirectories[name] || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to watch vault"), "root", root)
	}

	go w.loop(ctx)
	return nil
}

// Events returns the channel vault events are delivered on. The channel
// closes when the watcher stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.events)
	defer w.fsWatcher.Close() //nolint:errcheck // Best effort close on shutdown

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			// fsnotify errors are transient (overflow, races with
			// deletion); keep watching.
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	// New directories must be added to the recursive watch.
	if ev.Op.Has(fsnotify.Create) {
		name := filepath.Base(ev.Name)
		if !skipDirectories[name] && !strings.HasPrefix(name, ".") {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				_ = w.fsWatcher.Add(ev.Name)
			}
		}
	}

	if !strings.EqualFold(filepath.Ext(ev.Name), ".md") {
		return
	}

	var out Event
	switch {
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		out = Event{Path: ev.Name, Op: OpRemove}
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		out = Event{Path: ev.Name, Op: OpWrite}
	default:
		return
	}

	select {
	case w.events <- out:
	case <-ctx.Done():
	}
}

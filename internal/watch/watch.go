package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"
)

// DefaultSettle is how long a change must be quiet before the callback runs.
const DefaultSettle = 150 * time.Millisecond

// File calls a function after a watched file is saved. Editors write files in several
// steps (truncate, write, rename), so the events of one save are coalesced into one call.
type File struct {
	w        *fsnotify.Watcher
	path     string
	settle   time.Duration
	onChange func()
	group    singleflight.Group
	pending  atomic.Bool
	logger   *slog.Logger
}

// NewFile watches path. The parent directory is watched rather than the file itself so
// that rename-on-save editors keep working. settle <= 0 uses DefaultSettle.
func NewFile(path string, settle time.Duration, onChange func(), logger *slog.Logger) (*File, error) {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch: %w", err)
	}
	return &File{
		w:        w,
		path:     abs,
		settle:   settle,
		onChange: onChange,
		logger:   logger.With("component", "watch", "path", abs),
	}, nil
}

// Run delivers change callbacks until ctx is done or the watcher is closed.
func (f *File) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-f.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			f.logger.Debug("File event", "op", ev.Op.String())
			go f.trigger()
		case err, ok := <-f.w.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("Watcher error", "error", err)
		}
	}
}

// trigger marks the file dirty and makes sure one callback loop is running. The loop
// runs the callback once per settled burst; a save landing while the callback runs
// sets pending again and gets its own run. Callers whose Do joined a loop that already
// finished re-enter until pending is consumed.
func (f *File) trigger() {
	f.pending.Store(true)
	for f.pending.Load() {
		_, _, _ = f.group.Do(f.path, func() (any, error) {
			f.drain()
			return nil, nil
		})
	}
}

func (f *File) drain() {
	for {
		time.Sleep(f.settle)
		if !f.pending.Swap(false) {
			return
		}
		f.onChange()
	}
}

// Close stops the watcher; Run returns once the event channels close.
func (f *File) Close() error {
	return f.w.Close()
}

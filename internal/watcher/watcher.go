// Package watcher wraps fsnotify to observe exactly one directory per
// watched role. Re-pointing a watcher to a new path atomically cancels the
// old watch; the previous path delivers no further events.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lanecast/lanecast/internal/errors"
	"github.com/lanecast/lanecast/internal/observability"
)

// Op is the logical filesystem operation delivered to callbacks.
type Op uint8

const (
	OpCreate Op = iota
	OpModify
	OpDelete
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is one coalesced filesystem notification.
type Event struct {
	Path string
	Op   Op
}

// Callback receives events on the watcher's own goroutine. Callbacks doing
// slow work must hand it off so they do not stall later notifications.
type Callback func(Event)

// DirWatcher observes a single directory for files matching a suffix.
// It holds one watch slot: Watch replaces any previous watch.
type DirWatcher struct {
	role     string
	suffix   string
	debounce time.Duration
	callback Callback
	logger   *slog.Logger
	metrics  *observability.WatcherMetrics

	mu     sync.Mutex
	cancel context.CancelFunc
	path   string
	gen    atomic.Int64
}

// New creates a watcher for one role. suffix filters events by filename
// (case insensitive). A positive debounce coalesces bursts of events into a
// single callback after a quiet period; zero delivers every event.
func New(role, suffix string, debounce time.Duration, cb Callback, logger *slog.Logger, metrics *observability.WatcherMetrics) *DirWatcher {
	return &DirWatcher{
		role:     role,
		suffix:   strings.ToLower(suffix),
		debounce: debounce,
		callback: cb,
		logger:   logger.With("role", role),
		metrics:  metrics,
	}
}

// Watch points the watcher at path, cancelling any previous watch. A
// non-existent path is a deliberate no-op: no watch is established, no
// error returned, and an existing watch keeps running. Failure to establish
// the watch (e.g. permissions) is returned to the caller. Watch does not
// replay existing directory contents; callers rescan after a successful
// Watch to pick up pre-existing files.
func (w *DirWatcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if path == "" {
		w.stopLocked()
		return nil
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		w.logger.Debug("watch target missing, skipping", "path", path)
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New(err).
			Component("watcher").
			Category(errors.CategoryFileIO).
			Context("role", w.role).
			Build()
	}
	if err := fw.Add(path); err != nil {
		_ = fw.Close()
		return errors.New(err).
			Component("watcher").
			Category(errors.CategoryFileIO).
			Context("role", w.role).
			Context("path", path).
			Build()
	}

	// The new watch is live; retire the old one.
	w.stopLocked()
	gen := w.gen.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.path = path

	if w.metrics != nil {
		w.metrics.WatchesStarted.WithLabelValues(w.role).Inc()
	}
	w.logger.Debug("watching directory", "path", path)

	go w.run(ctx, fw, gen)
	return nil
}

// Stop cancels the current watch, if any.
func (w *DirWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
}

// Path returns the currently watched directory, or empty.
func (w *DirWatcher) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

func (w *DirWatcher) stopLocked() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.path = ""
	w.gen.Add(1)
}

func (w *DirWatcher) run(ctx context.Context, fw *fsnotify.Watcher, gen int64) {
	defer fw.Close() //nolint:errcheck // best effort shutdown

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending Event
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case fe, ok := <-fw.Events:
			if !ok {
				return
			}
			ev, relevant := w.translate(fe)
			if !relevant {
				continue
			}
			if w.debounce <= 0 {
				w.deliver(ev, gen)
				continue
			}
			pending = ev
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timerC = nil
			timer = nil
			w.deliver(pending, gen)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if w.metrics != nil {
				w.metrics.WatchErrors.WithLabelValues(w.role).Inc()
			}
			w.logger.Warn("notification source error", "error", err)
		}
	}
}

// translate maps an fsnotify event to a logical Event, filtering by suffix
// and dropping directory-level and attribute-only notifications.
func (w *DirWatcher) translate(fe fsnotify.Event) (Event, bool) {
	if !strings.HasSuffix(strings.ToLower(fe.Name), w.suffix) {
		return Event{}, false
	}
	var op Op
	switch {
	case fe.Has(fsnotify.Create):
		op = OpCreate
	case fe.Has(fsnotify.Write):
		op = OpModify
	case fe.Has(fsnotify.Remove):
		op = OpDelete
	case fe.Has(fsnotify.Rename):
		op = OpRename
	default:
		// Chmod and friends do not change content.
		return Event{}, false
	}
	if op == OpCreate {
		if info, err := os.Stat(fe.Name); err == nil && info.IsDir() {
			return Event{}, false
		}
	}
	return Event{Path: fe.Name, Op: op}, true
}

func (w *DirWatcher) deliver(ev Event, gen int64) {
	// A Watch call may have retired this generation while an event was in
	// flight; suppress delivery from the old path.
	if w.gen.Load() != gen {
		return
	}
	if w.metrics != nil {
		w.metrics.EventsDelivered.WithLabelValues(w.role).Inc()
	}
	w.logger.Debug("filesystem event", "op", ev.Op.String(), "path", ev.Path)
	w.callback(ev)
}

package intake

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mstanton/overseer/internal/models"
)

// SubmitFunc receives each built work item. It must not block for long; the
// pipeline queue applies its own backpressure.
type SubmitFunc func(item *models.WorkItem)

// WatcherOptions configures the file watcher.
type WatcherOptions struct {
	// DebounceWindow is how long to wait for further writes to the same
	// file before snapshotting it. Agents save in bursts.
	DebounceWindow time.Duration
	// BufferSize is the size of the raw change channel.
	BufferSize int
}

// DefaultWatcherOptions returns the defaults used by the watch command.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		DebounceWindow: 500 * time.Millisecond,
		BufferSize:     1024,
	}
}

// Watcher monitors directories recursively and submits a work item for each
// reviewable file that settles after modification.
type Watcher struct {
	roots    []string
	filter   Filter
	builder  *Builder
	submit   SubmitFunc
	debounce time.Duration
	log      *slog.Logger

	fsw      *fsnotify.Watcher
	changes  chan string
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher over roots. Events are filtered, debounced
// per path, built into work items, and handed to submit.
func NewWatcher(roots []string, filter Filter, builder *Builder, submit SubmitFunc, opts WatcherOptions, log *slog.Logger) (*Watcher, error) {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultWatcherOptions().DebounceWindow
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultWatcherOptions().BufferSize
	}
	if log == nil {
		log = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		roots:    roots,
		filter:   filter,
		builder:  builder,
		submit:   submit,
		debounce: opts.DebounceWindow,
		log:      log,
		fsw:      fsw,
		changes:  make(chan string, opts.BufferSize),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. It returns after the watch goroutines are running;
// they exit when ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	for _, root := range w.roots {
		if err := w.addRecursive(root); err != nil {
			return err
		}
	}
	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	w.log.Info("file monitoring started", "roots", w.roots)
	return nil
}

// Stop stops the watcher and releases the inotify handles.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
	})
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		for _, ex := range w.filter.Excludes {
			if filepath.Base(path) == ex {
				return filepath.SkipDir
			}
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				// New directories must be added to the watch set.
				if st, err := os.Stat(event.Name); err == nil && st.IsDir() {
					_ = w.addRecursive(event.Name)
					continue
				}
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if !w.filter.ShouldReview(event.Name) {
				continue
			}
			select {
			case w.changes <- event.Name:
			default:
				w.log.Warn("change buffer full, dropping event", "path", event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", "error", err)
		}
	}
}

// debounceLoop tracks the last write per path and flushes a path once it has
// been quiet for the debounce window.
func (w *Watcher) debounceLoop(ctx context.Context) {
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case path := <-w.changes:
			pending[path] = time.Now()
		case <-ticker.C:
			now := time.Now()
			for path, last := range pending {
				if now.Sub(last) < w.debounce {
					continue
				}
				delete(pending, path)
				w.handleChange(path)
			}
		}
	}
}

func (w *Watcher) handleChange(path string) {
	item, err := w.builder.Build(path)
	if err != nil {
		w.log.Error("failed to build work item", "path", path, "error", err)
		return
	}
	w.log.Info("queued for review", "path", path, "agent", item.Agent, "project", item.Project)
	w.submit(item)
}

package watcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is used when falling back to polling.
const DefaultPollInterval = time.Second

// Op describes what happened to a message file.
type Op uint32

const (
	// Create is reported when a message file appears.
	Create Op = 1 << iota
	// Write is reported when a message file changes.
	Write
	// Remove is reported when a message file disappears or is renamed away.
	Remove
)

// String returns a compact representation such as "create|write".
func (o Op) String() string {
	var parts []string
	if o&Create != 0 {
		parts = append(parts, "create")
	}
	if o&Write != 0 {
		parts = append(parts, "write")
	}
	if o&Remove != 0 {
		parts = append(parts, "remove")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

func opFromFsnotify(op fsnotify.Op) Op {
	var o Op
	if op.Has(fsnotify.Create) {
		o |= Create
	}
	if op.Has(fsnotify.Write) {
		o |= Write
	}
	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		o |= Remove
	}
	return o
}

// Change is one coalesced change to a message file.
type Change struct {
	Path string
	Op   Op
}

// Handler receives the changes accumulated during one debounce window,
// sorted by path with at most one Change per path.
type Handler func(changes []Change)

// fileMeta stores file metadata for poll-based change detection.
type fileMeta struct {
	ModTime time.Time
	Size    int64
}

// Watcher watches a single repository directory for message file changes.
type Watcher struct {
	dir        string
	handler    Handler
	logger     *slog.Logger
	extensions map[string]bool

	fsWatcher    *fsnotify.Watcher
	debounce     time.Duration
	debouncer    *Debouncer
	forcePoll    bool
	pollInterval time.Duration
	snapshot     map[string]fileMeta
	closeCh      chan struct{}
	done         chan struct{}

	mu      sync.Mutex
	pending map[string]Op
	closed  bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period used to coalesce bursts of writes.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithPolling forces polling mode (useful for network filesystems and tests).
func WithPolling(force bool) Option {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

// WithPollInterval sets the polling interval (used when polling mode is active).
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithExtensions restricts reported changes to files with these extensions.
// Without it every regular file is reported.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) {
		w.extensions = make(map[string]bool, len(exts))
		for _, e := range exts {
			w.extensions[strings.ToLower(e)] = true
		}
	}
}

// WithLogger sets the logger for watch errors.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New starts watching dir. The directory must exist. When fsnotify cannot
// be used the watcher falls back to polling.
func New(dir string, handler Handler, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watcher: %s is not a directory", abs)
	}

	w := &Watcher{
		dir:          abs,
		handler:      handler,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		debounce:     DefaultDebounce,
		pollInterval: DefaultPollInterval,
		closeCh:      make(chan struct{}),
		done:         make(chan struct{}),
		pending:      make(map[string]Op),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounce, w.flush)

	if !w.forcePoll {
		fsWatcher, err := fsnotify.NewWatcher()
		if err == nil {
			err = fsWatcher.Add(abs)
			if err == nil {
				w.fsWatcher = fsWatcher
			} else {
				fsWatcher.Close()
			}
		}
		if err != nil {
			w.logger.Warn("fsnotify unavailable, using polling fallback", "dir", abs, "error", err)
		}
	}

	if w.fsWatcher != nil {
		go w.run()
	} else {
		snap, err := w.scan()
		if err != nil {
			return nil, err
		}
		w.snapshot = snap
		go w.runPoll()
	}
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Polling reports whether the watcher is polling instead of using fsnotify.
func (w *Watcher) Polling() bool {
	return w.fsWatcher == nil
}

// Run blocks until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-w.done:
	}
	return w.Close()
}

// Close stops the watcher and releases resources. Pending changes are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.debouncer.Stop()
	close(w.closeCh)
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}

func (w *Watcher) relevant(path string) bool {
	name := filepath.Base(path)
	// Skip hidden and temp files written by atomic savers.
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".tmp") {
		return false
	}
	if w.extensions == nil {
		return true
	}
	return w.extensions[strings.ToLower(filepath.Ext(name))]
}

// run processes events from fsnotify.
func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case <-w.closeCh:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			op := opFromFsnotify(event.Op)
			if op == 0 || !w.relevant(event.Name) {
				continue
			}
			if op&Remove == 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					continue
				}
			}
			w.record(event.Name, op)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "dir", w.dir, "error", err)
		}
	}
}

// runPoll processes events by periodically scanning the directory.
func (w *Watcher) runPoll() {
	defer close(w.done)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.pollOnce()
		case <-w.closeCh:
			return
		}
	}
}

// pollOnce compares the directory against the last snapshot.
func (w *Watcher) pollOnce() {
	current, err := w.scan()
	if err != nil {
		w.logger.Warn("poll failed", "dir", w.dir, "error", err)
		return
	}

	for path, meta := range current {
		prev, ok := w.snapshot[path]
		switch {
		case !ok:
			w.record(path, Create)
		case meta != prev:
			w.record(path, Write)
		}
	}
	for path := range w.snapshot {
		if _, ok := current[path]; !ok {
			w.record(path, Remove)
		}
	}
	w.snapshot = current
}

func (w *Watcher) scan() (map[string]fileMeta, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}
	snap := make(map[string]fileMeta, len(entries))
	for _, d := range entries {
		if d.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, d.Name())
		if !w.relevant(path) {
			continue
		}
		fi, err := d.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		snap[path] = fileMeta{ModTime: fi.ModTime(), Size: fi.Size()}
	}
	return snap, nil
}

func (w *Watcher) record(path string, op Op) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending[path] |= op
	w.mu.Unlock()
	w.debouncer.Trigger()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	changes := make([]Change, 0, len(w.pending))
	for path, op := range w.pending {
		changes = append(changes, Change{Path: path, Op: op})
	}
	w.pending = make(map[string]Op)
	w.mu.Unlock()

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	if w.handler != nil {
		w.handler(changes)
	}
}

// Package watch turns filesystem activity in a working copy into debounced
// refresh signals.
//
// The working tree is watched recursively. Inside the git directory only
// the index and HEAD are of interest; everything else there (objects, refs,
// lock files) is ignored. Events arriving within the debounce window are
// coalesced into one Batch.
package watch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/commitdesk/internal/logging"
)

// ErrClosed is returned by operations on a closed Watcher.
var ErrClosed = errors.New("watcher is closed")

// Op is a set of filesystem operations.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
)

// Has reports whether op includes o.
func (op Op) Has(o Op) bool {
	return op&o == o
}

func (op Op) String() string {
	var parts []string
	for _, p := range []struct {
		op   Op
		name string
	}{{OpCreate, "create"}, {OpWrite, "write"}, {OpRemove, "remove"}, {OpRename, "rename"}} {
		if op.Has(p.op) {
			parts = append(parts, p.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Batch is a coalesced group of changes.
type Batch struct {
	// Paths are root-relative, slash-separated and sorted.
	Paths []string

	// Ops is the union of the operations seen.
	Ops Op

	// At is when the batch was flushed.
	At time.Time
}

// Stats reports watcher counters.
type Stats struct {
	WatchedDirs int
	Events      int64
	Batches     int64
	Errors      int64
}

// Watcher watches one working copy.
type Watcher struct {
	root   string
	gitDir string
	config config
	logger logging.Logger

	fsw *fsnotify.Watcher

	mu     sync.Mutex
	dirs   map[string]bool
	closed bool

	batches chan Batch
	errors  chan error
	closeCh chan struct{}
	done    sync.WaitGroup

	events     atomic.Int64
	numBatches atomic.Int64
	numErrors  atomic.Int64
}

// New starts watching the working copy rooted at root.
func New(root string, opts ...Option) (*Watcher, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "watch", Path: abs, Err: errors.New("not a directory")}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:    abs,
		gitDir:  filepath.Join(abs, ".git"),
		config:  cfg,
		logger:  logging.WithComponent(cfg.logger, "watch"),
		fsw:     fsw,
		dirs:    make(map[string]bool),
		batches: make(chan Batch, cfg.buffer),
		errors:  make(chan error, cfg.buffer),
		closeCh: make(chan struct{}),
	}

	if err := w.addTree(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if info, err := os.Stat(w.gitDir); err == nil && info.IsDir() {
		if err := w.add(w.gitDir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	w.done.Add(1)
	go w.loop()

	return w, nil
}

// Root returns the absolute path being watched.
func (w *Watcher) Root() string {
	return w.root
}

// Batches returns the channel of coalesced changes. It is closed by Close.
func (w *Watcher) Batches() <-chan Batch {
	return w.batches
}

// Errors returns the channel of watch errors. It is closed by Close.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// IsWatching reports whether dir is watched.
func (w *Watcher) IsWatching(dir string) bool {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirs[abs]
}

// Stats returns the watcher counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	n := len(w.dirs)
	w.mu.Unlock()

	return Stats{
		WatchedDirs: n,
		Events:      w.events.Load(),
		Batches:     w.numBatches.Load(),
		Errors:      w.numErrors.Load(),
	}
}

// Close stops the watcher. Pending changes are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.done.Wait()
	close(w.batches)
	close(w.errors)
	return w.fsw.Close()
}

func (w *Watcher) add(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.dirs[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

// addTree watches dir and every directory below it, skipping the git
// directory and ignored names.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && (p == w.gitDir || w.ignoredName(d.Name())) {
			return filepath.SkipDir
		}
		return w.add(p)
	})
}

func (w *Watcher) ignoredName(name string) bool {
	return slices.Contains(w.config.ignore, name)
}

// classify returns the root-relative path for an event and whether it can
// affect the repository state.
func (w *Watcher) classify(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)

	if rel == ".git" {
		return "", false
	}
	if git, ok := strings.CutPrefix(rel, ".git/"); ok {
		return rel, git == "index" || git == "HEAD"
	}
	for _, seg := range strings.Split(rel, "/") {
		if w.ignoredName(seg) {
			return "", false
		}
	}
	return rel, true
}

func (w *Watcher) loop() {
	defer w.done.Done()

	timer := time.NewTimer(w.config.debounce)
	timer.Stop()
	armed := false

	pending := make(map[string]bool)
	var ops Op

	for {
		select {
		case <-w.closeCh:
			timer.Stop()
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			op := convertOp(ev.Op)
			if op == 0 {
				continue
			}
			rel, ok := w.classify(ev.Name)
			if !ok {
				continue
			}
			w.events.Add(1)
			w.track(ev.Name, op)

			pending[rel] = true
			ops |= op
			timer.Reset(w.config.debounce)
			armed = true

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.report(err)

		case now := <-timer.C:
			if !armed || len(pending) == 0 {
				continue
			}
			armed = false
			b := Batch{Paths: sortedKeys(pending), Ops: ops, At: now}
			clear(pending)
			ops = 0
			w.flush(b)
		}
	}
}

// track keeps the watch set in step with directories appearing and going
// away inside the working tree.
func (w *Watcher) track(path string, op Op) {
	if op.Has(OpCreate) && !strings.HasPrefix(path, w.gitDir+string(filepath.Separator)) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addTree(path); err != nil {
				w.report(err)
			}
		}
	}
	if op.Has(OpRemove) || op.Has(OpRename) {
		w.mu.Lock()
		delete(w.dirs, path)
		w.mu.Unlock()
	}
}

func (w *Watcher) flush(b Batch) {
	w.logger.Debug("changes detected", "paths", len(b.Paths), "ops", b.Ops.String())
	select {
	case w.batches <- b:
		w.numBatches.Add(1)
	case <-w.closeCh:
	}
}

func (w *Watcher) report(err error) {
	w.numErrors.Add(1)
	w.logger.Warn("watch error", "error", err)
	select {
	case w.errors <- err:
	default:
	}
}

func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	return op
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Package workspace holds the repository state machine: the unstaged and
// staged change sets, the Normal/Amend mode that decides what "staged" means,
// and the operations that mutate the backing store and publish the
// resulting row edits.
//
// A Workspace is not safe for concurrent use. Every operation runs to
// completion on the calling goroutine, including event delivery, and
// handlers must not call back into the workspace.
package workspace

import (
	"context"
	"fmt"

	"github.com/dshills/commitdesk/internal/change"
	"github.com/dshills/commitdesk/internal/event"
	"github.com/dshills/commitdesk/internal/event/events"
	"github.com/dshills/commitdesk/internal/event/topic"
	"github.com/dshills/commitdesk/internal/logging"
	"github.com/dshills/commitdesk/internal/reconcile"
	"github.com/dshills/commitdesk/internal/store"
)

// Mode selects what the staged side is computed against.
type Mode = change.Mode

// Modes.
const (
	Normal = change.ModeNormal
	Amend  = change.ModeAmend
)

// Workspace is the repository state machine.
type Workspace struct {
	store        store.Store
	bus          event.Bus
	pub          *event.Publisher
	logger       logging.Logger
	clock        Clock
	identity     *store.Signature
	contextLines int

	mode     Mode
	unstaged change.Set
	staged   change.Set
}

// New creates a workspace in Normal mode with empty change sets. Call
// Refresh to load the store's state, or use Open.
func New(st store.Store, opts ...Option) *Workspace {
	w := &Workspace{
		store:        st,
		logger:       logging.Nop(),
		clock:        SystemClock{},
		contextLines: DefaultContextLines,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.WithComponent(w.logger, "workspace")
	if w.bus == nil {
		w.bus = event.NewBus(event.WithLogger(w.logger))
	}
	w.pub = event.NewPublisher(w.bus, "workspace")
	return w
}

// Open creates a workspace and loads its initial state.
func Open(ctx context.Context, st store.Store, opts ...Option) (*Workspace, error) {
	w := New(st, opts...)
	if err := w.Refresh(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// Bus returns the bus events are published on.
func (w *Workspace) Bus() event.Bus {
	return w.bus
}

// Store returns the backing store.
func (w *Workspace) Store() store.Store {
	return w.store
}

// Mode returns the current mode.
func (w *Workspace) Mode() Mode {
	return w.mode
}

// Unstaged returns the unstaged changes.
func (w *Workspace) Unstaged() change.Set {
	return w.unstaged
}

// Staged returns the staged changes.
func (w *Workspace) Staged() change.Set {
	return w.staged
}

// Refresh reloads both change sets from the store and publishes the row
// edits followed by one Refreshed event.
func (w *Workspace) Refresh(ctx context.Context) error {
	w.logger.Debug("refresh", "op", "refresh", "mode", w.mode)

	pub, _ := w.pub.Correlated()
	if err := w.recompute(ctx, pub, change.Unstaged); err != nil {
		return err
	}
	w.publishRefreshed(ctx, pub)
	return nil
}

// Stage moves c, which must be in the unstaged set, into the index.
//
// In Normal mode a rename stages the new path and drops the old path from
// the index. Amend mode stages renames like any other change.
func (w *Workspace) Stage(ctx context.Context, c change.FileChange) error {
	w.logger.Debug("stage", "op", "stage", "path", c.Path, "mode", w.mode)

	if !w.unstaged.Contains(c) {
		return fmt.Errorf("%w: %s", ErrNotUnstaged, c.Path)
	}

	var err error
	switch {
	case c.Status == change.StatusDeleted:
		err = w.store.RemovePath(ctx, c.Path)
	case c.IsRename() && w.mode == Normal:
		if err = w.store.AddPath(ctx, c.Path); err == nil {
			err = w.store.RemovePath(ctx, c.OldPath)
		}
	default:
		err = w.store.AddPath(ctx, c.Path)
	}
	if err != nil {
		return w.storeError("stage", err)
	}

	pub, _ := w.pub.Correlated()
	return w.recompute(ctx, pub, change.Unstaged)
}

// Unstage resets c, which must be in the staged set, to the baseline: the
// last commit in Normal mode or its parent in Amend mode. Without a
// baseline the paths are dropped from the index.
func (w *Workspace) Unstage(ctx context.Context, c change.FileChange) error {
	w.logger.Debug("unstage", "op", "unstage", "path", c.Path, "mode", w.mode)

	if !w.staged.Contains(c) {
		return fmt.Errorf("%w: %s", ErrNotStaged, c.Path)
	}

	base, err := w.baseline(ctx, w.mode)
	if err != nil {
		return err
	}
	if err := w.store.ResetPaths(ctx, c.Paths(), base); err != nil {
		return w.storeError("reset paths", err)
	}

	pub, _ := w.pub.Correlated()
	return w.recompute(ctx, pub, change.Staged)
}

// Commit creates a commit from the index on top of the last commit.
// It fails with ErrNoIdentity when no author is configured and with
// ErrNothingToCommit when the index matches the last commit.
func (w *Workspace) Commit(ctx context.Context, message string) (store.CommitID, error) {
	w.logger.Debug("commit", "op", "commit", "mode", w.mode)

	sig, err := w.resolveIdentity(ctx)
	if err != nil {
		return "", err
	}
	if w.mode == Normal && w.staged.IsEmpty() {
		return "", ErrNothingToCommit
	}

	tree, err := w.store.WriteIndexTree(ctx)
	if err != nil {
		return "", w.storeError("write tree", err)
	}
	last, err := w.store.LastCommit(ctx)
	if err != nil {
		return "", w.storeError("last commit", err)
	}

	req := store.CommitRequest{Tree: tree, Message: message}
	headTree := store.EmptyTree
	if last != nil {
		headTree = last.Tree
		req.Parents = []store.CommitID{last.ID}
	}
	if tree == headTree {
		return "", ErrNothingToCommit
	}

	sig.When = w.clock.Now()
	req.Author, req.Committer = sig, sig

	id, err := w.store.CreateCommit(ctx, req)
	if err != nil {
		return "", w.storeError("create commit", err)
	}
	w.logger.Info("committed", "commit", id.Short(), "parents", len(req.Parents))

	pub, _ := w.pub.Correlated()
	if err := w.recompute(ctx, pub, change.Staged); err != nil {
		return id, err
	}

	parents := make([]string, len(req.Parents))
	for i, p := range req.Parents {
		parents[i] = string(p)
	}
	publish(ctx, w, pub, events.TopicCommitted, events.Committed{
		Commit:  string(id),
		Parents: parents,
		Message: message,
	})
	return id, nil
}

// AmendCommit replaces the last commit with one built from the index,
// keeping its parents, author and committer. An empty message keeps the
// original message.
func (w *Workspace) AmendCommit(ctx context.Context, message string) (store.CommitID, error) {
	w.logger.Debug("amend", "op", "amend", "mode", w.mode)

	last, err := w.store.LastCommit(ctx)
	if err != nil {
		return "", w.storeError("last commit", err)
	}
	if last == nil {
		return "", ErrNoCommit
	}

	tree, err := w.store.WriteIndexTree(ctx)
	if err != nil {
		return "", w.storeError("write tree", err)
	}
	id, err := w.store.AmendLastCommit(ctx, tree, message)
	if err != nil {
		return "", w.storeError("amend commit", err)
	}
	w.logger.Info("amended", "commit", id.Short(), "replaced", last.ID.Short())

	if message == "" {
		message = last.Message
	}

	pub, _ := w.pub.Correlated()
	if err := w.recompute(ctx, pub, change.Staged); err != nil {
		return id, err
	}
	publish(ctx, w, pub, events.TopicAmended, events.AmendedCommit{
		Commit:   string(id),
		Replaced: string(last.ID),
		Message:  message,
	})
	return id, nil
}

// EnableAmendMode switches to Amend mode, where the staged side shows what
// the last commit introduced relative to its parent. It fails with
// ErrNoCommit when there is no commit. Enabling it twice is a no-op.
func (w *Workspace) EnableAmendMode(ctx context.Context) error {
	if w.mode == Amend {
		return nil
	}

	last, err := w.store.LastCommit(ctx)
	if err != nil {
		return w.storeError("last commit", err)
	}
	if last == nil {
		return ErrNoCommit
	}
	return w.switchMode(ctx, Amend)
}

// DisableAmendMode switches back to Normal mode. Disabling it when already
// Normal is a no-op.
func (w *Workspace) DisableAmendMode(ctx context.Context) error {
	if w.mode == Normal {
		return nil
	}
	return w.switchMode(ctx, Normal)
}

func (w *Workspace) switchMode(ctx context.Context, mode Mode) error {
	w.logger.Debug("switch mode", "op", "mode", "from", w.mode, "to", mode)

	prev := w.mode
	w.mode = mode

	pub, _ := w.pub.Correlated()
	if err := w.recompute(ctx, pub, change.Unstaged); err != nil {
		w.mode = prev
		return err
	}
	w.publishRefreshed(ctx, pub)
	return nil
}

// Diff returns the hunks of c on side, against the mode's baseline for the
// staged side and against the index for the unstaged side.
func (w *Workspace) Diff(ctx context.Context, c change.FileChange, side change.Side) ([]store.Hunk, error) {
	req := store.DiffRequest{Path: c.Path, ContextLines: w.contextLines}

	switch side {
	case change.Staged:
		if !w.staged.Contains(c) {
			return nil, fmt.Errorf("%w: %s", ErrNotStaged, c.Path)
		}
		base, err := w.baseline(ctx, w.mode)
		if err != nil {
			return nil, err
		}
		req.Staged = true
		req.Baseline = base
		req.OldPath = c.OldPath
	case change.Unstaged:
		if !w.unstaged.Contains(c) {
			return nil, fmt.Errorf("%w: %s", ErrNotUnstaged, c.Path)
		}
		req.Untracked = c.Status == change.StatusNew
	default:
		panic(fmt.Sprintf("workspace: unknown side %d", side))
	}

	hunks, err := w.store.Diff(ctx, req)
	if err != nil {
		return nil, w.storeError("diff", err)
	}
	return hunks, nil
}

// baseline returns the tree the staged side is computed against, or ""
// when there is none.
func (w *Workspace) baseline(ctx context.Context, mode Mode) (store.TreeID, error) {
	var (
		c   *store.Commit
		err error
	)
	switch mode {
	case Normal:
		c, err = w.store.LastCommit(ctx)
	case Amend:
		c, err = w.store.ParentOfLastCommit(ctx)
	default:
		panic(fmt.Sprintf("workspace: unknown mode %d", mode))
	}
	if err != nil {
		return "", w.storeError("baseline", err)
	}
	if c == nil {
		return "", nil
	}
	return c.Tree, nil
}

// load queries the store for both change sets as they are under mode.
func (w *Workspace) load(ctx context.Context, mode Mode) (unstaged, staged change.Set, err error) {
	rows, err := w.store.QueryStatus(ctx)
	if err != nil {
		return change.Set{}, change.Set{}, w.storeError("query status", err)
	}
	u, s := change.Classify(rows)

	if mode == Amend {
		base, err := w.baseline(ctx, mode)
		if err != nil {
			return change.Set{}, change.Set{}, err
		}
		if base == "" {
			base = store.EmptyTree
		}
		indexRows, err := w.store.QueryIndexChanges(ctx, base)
		if err != nil {
			return change.Set{}, change.Set{}, w.storeError("query index", err)
		}
		s = change.IndexChanges(indexRows)
	}

	return mustSet(change.Unstaged, u), mustSet(change.Staged, s), nil
}

// recompute reloads both sides, stores the new snapshots and publishes the
// row edits. Removals on from are published first, then removals on the
// other side, then additions and updates on the other side, then on from.
// A path that moves between sides is therefore never on both at once.
func (w *Workspace) recompute(ctx context.Context, pub *event.Publisher, from change.Side) error {
	nextUnstaged, nextStaged, err := w.load(ctx, w.mode)
	if err != nil {
		return err
	}

	plans := map[change.Side][2][]reconcile.Op{}
	plans[change.Unstaged] = plan(w.unstaged, nextUnstaged)
	plans[change.Staged] = plan(w.staged, nextStaged)

	w.unstaged, w.staged = nextUnstaged, nextStaged

	to := from.Opposite()
	w.publishOps(ctx, pub, from, plans[from][0])
	w.publishOps(ctx, pub, to, plans[to][0])
	w.publishOps(ctx, pub, to, plans[to][1])
	w.publishOps(ctx, pub, from, plans[from][1])
	return nil
}

func plan(prev, next change.Set) [2][]reconcile.Op {
	removals, upserts := reconcile.Plan(prev, next)
	return [2][]reconcile.Op{removals, upserts}
}

func (w *Workspace) publishOps(ctx context.Context, pub *event.Publisher, side change.Side, ops []reconcile.Op) {
	added, removed, updated := events.ChangeTopics(side)

	for _, op := range ops {
		switch op.Kind {
		case reconcile.Insert:
			publish(ctx, w, pub, added, events.ChangeAdded{Side: side, At: op.At, Change: op.Change})
		case reconcile.Remove:
			publish(ctx, w, pub, removed, events.ChangeRemoved{Side: side, At: op.At, Change: op.Change})
		case reconcile.Update:
			publish(ctx, w, pub, updated, events.ChangeUpdated{
				Side:     side,
				At:       op.At,
				Previous: op.Previous,
				Change:   op.Change,
			})
		default:
			panic(fmt.Sprintf("workspace: unknown op %s on %s", op.Kind, side))
		}
	}
}

func (w *Workspace) publishRefreshed(ctx context.Context, pub *event.Publisher) {
	publish(ctx, w, pub, events.TopicRefreshed, events.Refreshed{
		Mode:     w.mode,
		Unstaged: w.unstaged,
		Staged:   w.staged,
	})
}

// publish delivers one event. Handler failures are logged by the bus and do
// not fail the operation.
func publish[T any](ctx context.Context, w *Workspace, pub *event.Publisher, t topic.Topic, payload T) {
	if err := event.PublishEvent(ctx, pub, t, payload); err != nil {
		w.logger.Debug("handler errors", "topic", t, "err", err)
	}
}

func (w *Workspace) resolveIdentity(ctx context.Context) (store.Signature, error) {
	if w.identity != nil {
		return *w.identity, nil
	}
	sig, ok, err := w.store.Identity(ctx)
	if err != nil {
		return store.Signature{}, w.storeError("identity", err)
	}
	if !ok || !sig.Valid() {
		return store.Signature{}, ErrNoIdentity
	}
	return sig, nil
}

func (w *Workspace) storeError(op string, err error) error {
	w.logger.Error("store failure", "op", op, "err", err)
	return &StoreError{Op: op, Err: err}
}

func mustSet(side change.Side, changes []change.FileChange) change.Set {
	s, err := change.NewSet(changes)
	if err != nil {
		panic(fmt.Sprintf("workspace: %s changes: %v", side, err))
	}
	return s
}

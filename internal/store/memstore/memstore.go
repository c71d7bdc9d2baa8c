// Package memstore is an in-memory store.Store. It models a working copy,
// an index, trees and a linear commit history, detects renames by exact
// content on both sides, and can be told to fail any operation.
package memstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/dshills/commitdesk/internal/change"
	"github.com/dshills/commitdesk/internal/store"
)

// Operation names accepted by FailOn.
const (
	OpQueryStatus        = "QueryStatus"
	OpQueryIndexChanges  = "QueryIndexChanges"
	OpAddPath            = "AddPath"
	OpRemovePath         = "RemovePath"
	OpResetPaths         = "ResetPaths"
	OpWriteIndexTree     = "WriteIndexTree"
	OpFindTree           = "FindTree"
	OpLastCommit         = "LastCommit"
	OpParentOfLastCommit = "ParentOfLastCommit"
	OpCreateCommit       = "CreateCommit"
	OpAmendLastCommit    = "AmendLastCommit"
	OpIdentity           = "Identity"
	OpDiff               = "Diff"
)

// files maps a path to a blob ID.
type files map[string]string

// Store is an in-memory repository. The zero value is not usable; call New.
type Store struct {
	mu sync.Mutex

	root     string
	work     map[string]string // path -> content
	index    files
	blobs    map[string]string // blob ID -> content
	trees    map[store.TreeID]files
	commits  map[store.CommitID]*store.Commit
	head     store.CommitID
	identity *store.Signature
	renames  bool
	failures map[string]error
}

// Option configures a Store.
type Option func(*Store)

// WithIdentity sets the identity returned by Identity.
func WithIdentity(name, email string) Option {
	return func(s *Store) {
		s.identity = &store.Signature{Name: name, Email: email}
	}
}

// WithRenameDetection turns rename detection on or off. It is on by default.
func WithRenameDetection(on bool) Option {
	return func(s *Store) {
		s.renames = on
	}
}

// WithRoot sets the path reported by Root.
func WithRoot(root string) Option {
	return func(s *Store) {
		s.root = root
	}
}

// New returns an empty repository with no commits.
func New(opts ...Option) *Store {
	s := &Store{
		root:     "memory",
		work:     make(map[string]string),
		index:    make(files),
		blobs:    make(map[string]string),
		trees:    map[store.TreeID]files{store.EmptyTree: {}},
		commits:  make(map[store.CommitID]*store.Commit),
		renames:  true,
		failures: make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WriteFile creates or replaces a working copy file.
func (s *Store) WriteFile(path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.work[change.CleanPath(path)] = content
}

// RemoveFile deletes a working copy file.
func (s *Store) RemoveFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.work, change.CleanPath(path))
}

// RenameFile moves a working copy file.
func (s *Store) RenameFile(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, to = change.CleanPath(from), change.CleanPath(to)
	if content, ok := s.work[from]; ok {
		delete(s.work, from)
		s.work[to] = content
	}
}

// ReadFile returns a working copy file.
func (s *Store) ReadFile(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.work[change.CleanPath(path)]
	return content, ok
}

// SetIdentity replaces the configured identity. A zero signature clears it.
func (s *Store) SetIdentity(sig store.Signature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sig.Valid() {
		s.identity = &sig
	} else {
		s.identity = nil
	}
}

// FailOn makes every later call of op return err. A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// TreeFiles returns the content of every file in tree.
func (s *Store) TreeFiles(id store.TreeID) (map[string]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trees[id]
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(t))
	for p, blob := range t {
		out[p] = s.blobs[blob]
	}
	return out, true
}

// Commit returns a stored commit by ID.
func (s *Store) Commit(id store.CommitID) (*store.Commit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commits[id]
	if !ok {
		return nil, false
	}
	return cloneCommit(c), true
}

// Head returns the current commit ID, or "" before the first commit.
func (s *Store) Head() store.CommitID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head
}

// Log returns the commits reachable from HEAD through first parents,
// newest first.
func (s *Store) Log() []*store.Commit {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*store.Commit
	for id := s.head; id != ""; {
		c := s.commits[id]
		out = append(out, cloneCommit(c))
		if len(c.Parents) == 0 {
			break
		}
		id = c.Parents[0]
	}
	return out
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) QueryStatus(ctx context.Context) ([]change.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, OpQueryStatus); err != nil {
		return nil, err
	}

	staged := s.compare(s.headTree(), s.index)

	workBlobs := make(files, len(s.work))
	for p, content := range s.work {
		workBlobs[p] = blobID(content)
	}
	unstaged := s.compare(s.index, workBlobs)

	rows := make([]change.Row, 0, len(staged)+len(unstaged))
	for _, c := range staged {
		rows = append(rows, change.Row{Path: c.Path, OldPath: c.OldPath, Index: c.Status})
	}
	for _, c := range unstaged {
		rows = append(rows, change.Row{Path: c.Path, OldPath: c.OldPath, WorkTree: c.Status})
	}
	return rows, nil
}

func (s *Store) QueryIndexChanges(ctx context.Context, baseline store.TreeID) ([]change.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, OpQueryIndexChanges); err != nil {
		return nil, err
	}

	base, ok := s.trees[baseline]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrTreeNotFound, baseline)
	}

	var rows []change.Row
	for _, c := range s.compare(base, s.index) {
		rows = append(rows, change.Row{Path: c.Path, OldPath: c.OldPath, Index: c.Status})
	}
	return rows, nil
}

func (s *Store) AddPath(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, OpAddPath); err != nil {
		return err
	}

	path = change.CleanPath(path)
	content, ok := s.work[path]
	if !ok {
		// Adding a missing file records its deletion.
		delete(s.index, path)
		return nil
	}
	s.index[path] = s.writeBlob(content)
	return nil
}

func (s *Store) RemovePath(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, OpRemovePath); err != nil {
		return err
	}
	delete(s.index, change.CleanPath(path))
	return nil
}

func (s *Store) ResetPaths(ctx context.Context, paths []string, tree store.TreeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, OpResetPaths); err != nil {
		return err
	}

	var source files
	if tree != "" {
		t, ok := s.trees[tree]
		if !ok {
			return fmt.Errorf("%w: %s", store.ErrTreeNotFound, tree)
		}
		source = t
	}

	for _, p := range paths {
		p = change.CleanPath(p)
		if blob, ok := source[p]; ok {
			s.index[p] = blob
		} else {
			delete(s.index, p)
		}
	}
	return nil
}

func (s *Store) WriteIndexTree(ctx context.Context) (store.TreeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, OpWriteIndexTree); err != nil {
		return "", err
	}
	return s.writeTree(s.index), nil
}

func (s *Store) FindTree(ctx context.Context, id store.TreeID) (store.TreeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, OpFindTree); err != nil {
		return "", err
	}
	if _, ok := s.trees[id]; !ok {
		return "", fmt.Errorf("%w: %s", store.ErrTreeNotFound, id)
	}
	return id, nil
}

func (s *Store) LastCommit(ctx context.Context) (*store.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, OpLastCommit); err != nil {
		return nil, err
	}
	if s.head == "" {
		return nil, nil
	}
	return cloneCommit(s.commits[s.head]), nil
}

func (s *Store) ParentOfLastCommit(ctx context.Context) (*store.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, OpParentOfLastCommit); err != nil {
		return nil, err
	}
	if s.head == "" {
		return nil, nil
	}
	last := s.commits[s.head]
	if len(last.Parents) == 0 {
		return nil, nil
	}
	return cloneCommit(s.commits[last.Parents[0]]), nil
}

func (s *Store) CreateCommit(ctx context.Context, req store.CommitRequest) (store.CommitID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, OpCreateCommit); err != nil {
		return "", err
	}
	if _, ok := s.trees[req.Tree]; !ok {
		return "", fmt.Errorf("%w: %s", store.ErrTreeNotFound, req.Tree)
	}
	for _, p := range req.Parents {
		if _, ok := s.commits[p]; !ok {
			return "", fmt.Errorf("unknown parent commit %s", p)
		}
	}

	c := &store.Commit{
		Tree:      req.Tree,
		Parents:   slices.Clone(req.Parents),
		Author:    req.Author,
		Committer: req.Committer,
		Message:   req.Message,
	}
	c.ID = commitID(c)
	s.commits[c.ID] = c
	s.head = c.ID
	return c.ID, nil
}

func (s *Store) AmendLastCommit(ctx context.Context, tree store.TreeID, message string) (store.CommitID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, OpAmendLastCommit); err != nil {
		return "", err
	}
	if s.head == "" {
		return "", store.ErrNoCommit
	}

	last := s.commits[s.head]
	c := cloneCommit(last)
	if tree != "" {
		if _, ok := s.trees[tree]; !ok {
			return "", fmt.Errorf("%w: %s", store.ErrTreeNotFound, tree)
		}
		c.Tree = tree
	}
	if message != "" {
		c.Message = message
	}
	c.ID = commitID(c)
	s.commits[c.ID] = c
	s.head = c.ID
	return c.ID, nil
}

func (s *Store) Identity(ctx context.Context) (store.Signature, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, OpIdentity); err != nil {
		return store.Signature{}, false, err
	}
	if s.identity == nil {
		return store.Signature{}, false, nil
	}
	return *s.identity, true, nil
}

func (s *Store) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.failures[op]; err != nil {
		return fmt.Errorf("memstore %s: %w", strings.ToLower(op), err)
	}
	return nil
}

func (s *Store) headTree() files {
	if s.head == "" {
		return s.trees[store.EmptyTree]
	}
	return s.trees[s.commits[s.head].Tree]
}

func (s *Store) writeBlob(content string) string {
	id := blobID(content)
	s.blobs[id] = content
	return id
}

func (s *Store) writeTree(f files) store.TreeID {
	if len(f) == 0 {
		return store.EmptyTree
	}
	h := sha1.New()
	for _, p := range slices.Sorted(maps.Keys(f)) {
		fmt.Fprintf(h, "%s\x00%s\n", p, f[p])
	}
	id := store.TreeID(hex.EncodeToString(h.Sum(nil)))
	s.trees[id] = maps.Clone(f)
	return id
}

// compare lists the changes that turn from into to. Renames are paired by
// identical content when detection is on.
func (s *Store) compare(from, to files) []change.FileChange {
	var added, deleted, out []change.FileChange

	for p, blob := range to {
		old, ok := from[p]
		switch {
		case !ok:
			added = append(added, change.New(p, change.StatusNew))
		case old != blob:
			out = append(out, change.New(p, change.StatusModified))
		}
	}
	for p := range from {
		if _, ok := to[p]; !ok {
			deleted = append(deleted, change.New(p, change.StatusDeleted))
		}
	}

	if s.renames {
		slices.SortFunc(added, change.Compare)
		slices.SortFunc(deleted, change.Compare)

		used := make([]bool, len(deleted))
		kept := added[:0]
		for _, a := range added {
			j := slices.IndexFunc(deleted, func(d change.FileChange) bool {
				return from[d.Path] == to[a.Path]
			})
			for j >= 0 && used[j] {
				next := slices.IndexFunc(deleted[j+1:], func(d change.FileChange) bool {
					return from[d.Path] == to[a.Path]
				})
				if next < 0 {
					j = -1
					break
				}
				j += next + 1
			}
			if j < 0 {
				kept = append(kept, a)
				continue
			}
			used[j] = true
			out = append(out, change.Renamed(deleted[j].Path, a.Path))
		}
		added = kept

		remaining := deleted[:0]
		for i, d := range deleted {
			if !used[i] {
				remaining = append(remaining, d)
			}
		}
		deleted = remaining
	}

	out = append(out, added...)
	out = append(out, deleted...)
	slices.SortFunc(out, change.Compare)
	return out
}

func blobID(content string) string {
	sum := sha1.Sum([]byte("blob\x00" + content))
	return hex.EncodeToString(sum[:])
}

func commitID(c *store.Commit) store.CommitID {
	h := sha1.New()
	fmt.Fprintf(h, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(h, "parent %s\n", p)
	}
	fmt.Fprintf(h, "author %s %d\n", c.Author, c.Author.When.UnixNano())
	fmt.Fprintf(h, "committer %s %d\n\n%s", c.Committer, c.Committer.When.UnixNano(), c.Message)
	return store.CommitID(hex.EncodeToString(h.Sum(nil)))
}

func cloneCommit(c *store.Commit) *store.Commit {
	out := *c
	out.Parents = slices.Clone(c.Parents)
	return &out
}

var _ store.Store = (*Store)(nil)

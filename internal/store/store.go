// Package store defines the backing store the workspace delegates all
// durable version-control state to: the object database, the index and the
// working copy.
//
// Two implementations exist. gitcli drives the git binary against a real
// repository; memstore keeps everything in memory for tests and demos.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/commitdesk/internal/change"
)

// EmptyTree is the ID of the tree with no entries. Stores accept it
// wherever a tree ID is expected, whether or not it was ever written.
const EmptyTree TreeID = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// Errors returned by stores.
var (
	// ErrNotRepository indicates the path is not inside a repository.
	ErrNotRepository = errors.New("not a repository")

	// ErrTreeNotFound indicates a tree ID does not resolve to a tree.
	ErrTreeNotFound = errors.New("tree not found")

	// ErrNoCommit indicates the repository has no commits yet.
	ErrNoCommit = errors.New("repository has no commits")
)

// TreeID identifies a tree object.
type TreeID string

// CommitID identifies a commit object.
type CommitID string

// Short returns the abbreviated form used in logs and listings.
func (c CommitID) Short() string {
	if len(c) > 7 {
		return string(c[:7])
	}
	return string(c)
}

// Signature is an author or committer identity with a timestamp.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Valid reports whether the signature names someone.
func (s Signature) Valid() bool {
	return strings.TrimSpace(s.Name) != "" && strings.TrimSpace(s.Email) != ""
}

// String renders "Name <email>".
func (s Signature) String() string {
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}

// Commit is a commit as read back from the store.
type Commit struct {
	ID        CommitID
	Tree      TreeID
	Parents   []CommitID
	Author    Signature
	Committer Signature
	Message   string
}

// Subject returns the first line of the message.
func (c *Commit) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return subject
}

// CommitRequest describes a commit to create.
type CommitRequest struct {
	Parents   []CommitID
	Tree      TreeID
	Author    Signature
	Committer Signature
	Message   string
}

// DiffRequest selects the content a Diff call compares.
type DiffRequest struct {
	// Path is the file to diff.
	Path string

	// OldPath, for renames, is the path on the baseline side.
	OldPath string

	// Staged compares Baseline to the index. Otherwise the index is compared
	// to the working copy.
	Staged bool

	// Baseline is the tree for staged diffs.
	Baseline TreeID

	// Untracked marks an unstaged path that is absent from the index.
	Untracked bool

	// ContextLines is the number of unchanged lines around each change.
	ContextLines int
}

// Store is the narrow interface the workspace calls into. All methods block
// until the underlying work is done.
type Store interface {
	// Root returns the working copy root.
	Root() string

	// QueryStatus reports one or more rows per changed path, covering both
	// last-commit-tree to index and index to working copy, with rename
	// detection on both sides.
	QueryStatus(ctx context.Context) ([]change.Row, error)

	// QueryIndexChanges compares baseline to the index with rename detection.
	// Only the Index column of the returned rows is set.
	QueryIndexChanges(ctx context.Context, baseline TreeID) ([]change.Row, error)

	AddPath(ctx context.Context, path string) error
	RemovePath(ctx context.Context, path string) error

	// ResetPaths makes the index entries for paths match tree. An empty tree
	// ID removes the paths from the index.
	ResetPaths(ctx context.Context, paths []string, tree TreeID) error

	WriteIndexTree(ctx context.Context) (TreeID, error)
	FindTree(ctx context.Context, id TreeID) (TreeID, error)

	// LastCommit returns nil, nil when there are no commits.
	LastCommit(ctx context.Context) (*Commit, error)

	// ParentOfLastCommit returns nil, nil when the last commit has no parent
	// or there is no last commit.
	ParentOfLastCommit(ctx context.Context) (*Commit, error)

	// CreateCommit writes a commit and advances the current branch to it.
	CreateCommit(ctx context.Context, req CommitRequest) (CommitID, error)

	// AmendLastCommit replaces the last commit with one that has the same
	// parents, author and committer. An empty tree or message keeps the
	// original. It fails with ErrNoCommit when there is nothing to amend.
	AmendLastCommit(ctx context.Context, tree TreeID, message string) (CommitID, error)

	// Identity returns the configured committer identity, if any.
	Identity(ctx context.Context) (Signature, bool, error)

	Diff(ctx context.Context, req DiffRequest) ([]Hunk, error)
}

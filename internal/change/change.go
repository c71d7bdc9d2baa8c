// Package change models the per-file differences a repository shows between
// its last commit, its index and its working copy.
package change

import (
	"cmp"
	"strings"
)

// Status is the kind of difference recorded for a path.
type Status int

const (
	// StatusUnmodified means the side shows no difference. It only appears in
	// status rows, never in a FileChange.
	StatusUnmodified Status = iota
	// StatusNew indicates the path does not exist on the baseline side.
	StatusNew
	// StatusModified indicates the content changed.
	StatusModified
	// StatusDeleted indicates the path no longer exists on the target side.
	StatusDeleted
	// StatusRenamed indicates the path was moved from OldPath.
	StatusRenamed
	// StatusTypeChanged indicates the entry kind changed (file, symlink, submodule).
	StatusTypeChanged
	// StatusUnmerged indicates an unresolved merge conflict.
	StatusUnmerged
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusUnmodified:
		return "unmodified"
	case StatusNew:
		return "new"
	case StatusModified:
		return "modified"
	case StatusDeleted:
		return "deleted"
	case StatusRenamed:
		return "renamed"
	case StatusTypeChanged:
		return "typechange"
	case StatusUnmerged:
		return "unmerged"
	default:
		return "unknown"
	}
}

// Symbol returns the one-letter code used in compact listings.
func (s Status) Symbol() string {
	switch s {
	case StatusNew:
		return "A"
	case StatusModified:
		return "M"
	case StatusDeleted:
		return "D"
	case StatusRenamed:
		return "R"
	case StatusTypeChanged:
		return "T"
	case StatusUnmerged:
		return "U"
	default:
		return " "
	}
}

// FileChange is one file's change on one side of the repository. It is a
// plain value: two changes are equal when all fields are equal.
type FileChange struct {
	// Path is repository-relative and slash-separated.
	Path string

	// OldPath is set only when Status is StatusRenamed.
	OldPath string

	// Status is the kind of change.
	Status Status
}

// New returns a change for path with the given status.
func New(path string, status Status) FileChange {
	return FileChange{Path: path, Status: status}
}

// Renamed returns a rename of oldPath to path.
func Renamed(oldPath, path string) FileChange {
	return FileChange{Path: path, OldPath: oldPath, Status: StatusRenamed}
}

// IsRename reports whether the change carries an old path.
func (c FileChange) IsRename() bool {
	return c.Status == StatusRenamed && c.OldPath != ""
}

// Paths returns the path followed by the old path for renames.
func (c FileChange) Paths() []string {
	if c.IsRename() {
		return []string{c.Path, c.OldPath}
	}
	return []string{c.Path}
}

// String renders the change the way status listings show it.
func (c FileChange) String() string {
	if c.IsRename() {
		return c.Status.Symbol() + " " + c.OldPath + " -> " + c.Path
	}
	return c.Status.Symbol() + " " + c.Path
}

// Compare orders changes by path only, byte-wise.
func Compare(a, b FileChange) int {
	return cmp.Compare(a.Path, b.Path)
}

// SamePayload reports whether two changes for the same path carry the same
// status and old path.
func SamePayload(a, b FileChange) bool {
	return a.Status == b.Status && a.OldPath == b.OldPath
}

// CleanPath normalizes a path to the slash-separated, repository-relative
// form used throughout the package.
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	return strings.TrimSuffix(p, "/")
}

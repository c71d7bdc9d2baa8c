package workspace

import (
	"errors"
	"fmt"
)

// Errors returned by workspace operations.
var (
	// ErrNoIdentity indicates no author identity could be resolved for a commit.
	ErrNoIdentity = errors.New("no author identity configured")

	// ErrNoCommit indicates the repository has no commit to amend.
	ErrNoCommit = errors.New("no commit to amend")

	// ErrNothingToCommit indicates the index matches the last commit.
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrNotUnstaged indicates a change given to Stage is not in the unstaged set.
	ErrNotUnstaged = errors.New("change is not unstaged")

	// ErrNotStaged indicates a change given to Unstage is not in the staged set.
	ErrNotStaged = errors.New("change is not staged")
)

// StoreError wraps a failure reported by the backing store.
type StoreError struct {
	// Op is the store operation that failed.
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err came from the backing store.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

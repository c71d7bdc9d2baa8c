package change

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrDuplicatePath indicates two changes for the same path were given to a Set.
var ErrDuplicatePath = errors.New("duplicate path in change set")

// Set is an immutable sequence of changes, strictly ascending by path.
// The zero value is an empty set.
type Set struct {
	entries []FileChange
}

// NewSet sorts changes by path and returns them as a Set. It fails with
// ErrDuplicatePath when two entries share a path. The input slice is not
// retained.
func NewSet(changes []FileChange) (Set, error) {
	entries := slices.Clone(changes)
	slices.SortFunc(entries, Compare)

	for i := 1; i < len(entries); i++ {
		if entries[i-1].Path == entries[i].Path {
			return Set{}, fmt.Errorf("%w: %s", ErrDuplicatePath, entries[i].Path)
		}
	}

	return Set{entries: entries}, nil
}

// MustSet is like NewSet but panics on duplicates.
func MustSet(changes ...FileChange) Set {
	s, err := NewSet(changes)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of entries.
func (s Set) Len() int {
	return len(s.entries)
}

// IsEmpty reports whether the set has no entries.
func (s Set) IsEmpty() bool {
	return len(s.entries) == 0
}

// At returns the entry at index i.
func (s Set) At(i int) FileChange {
	return s.entries[i]
}

// Entries returns a copy of the entries in path order.
func (s Set) Entries() []FileChange {
	return slices.Clone(s.entries)
}

// Index returns the position of path, or -1.
func (s Set) Index(path string) int {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Path >= path
	})
	if i < len(s.entries) && s.entries[i].Path == path {
		return i
	}
	return -1
}

// Lookup returns the entry for path.
func (s Set) Lookup(path string) (FileChange, bool) {
	i := s.Index(path)
	if i < 0 {
		return FileChange{}, false
	}
	return s.entries[i], true
}

// Contains reports whether the set holds exactly c.
func (s Set) Contains(c FileChange) bool {
	got, ok := s.Lookup(c.Path)
	return ok && got == c
}

// Paths returns the entry paths in order.
func (s Set) Paths() []string {
	paths := make([]string, len(s.entries))
	for i, e := range s.entries {
		paths[i] = e.Path
	}
	return paths
}

// Equal reports whether both sets hold the same entries.
func (s Set) Equal(other Set) bool {
	return slices.Equal(s.entries, other.entries)
}

// Filter returns the entries whose path is also present in keep. Entries
// keep their own payload.
func (s Set) Filter(keep Set) Set {
	out := make([]FileChange, 0, min(len(s.entries), len(keep.entries)))
	for _, e := range s.entries {
		if keep.Index(e.Path) >= 0 {
			out = append(out, e)
		}
	}
	return Set{entries: out}
}

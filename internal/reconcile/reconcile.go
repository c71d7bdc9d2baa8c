// Package reconcile turns two path-sorted change sets into the ordered list
// of positional edits that transforms the first into the second.
//
// Positions in the emitted operations refer to the list as it is being
// edited, left to right. A consumer that applies the operations in order to
// its own copy of the previous list ends up with the next list, and every
// row whose path, status and old path are unchanged keeps its identity.
package reconcile

import (
	"fmt"

	"github.com/dshills/commitdesk/internal/change"
)

// Kind is the type of an edit operation.
type Kind int

const (
	// Insert places Change at position At.
	Insert Kind = iota
	// Update replaces the entry at position At with Change.
	Update
	// Remove deletes the entry at position At.
	Remove
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Remove:
		return "remove"
	default:
		return "unknown"
	}
}

// Op is a single positional edit.
type Op struct {
	Kind Kind
	At   int

	// Change is the new entry for Insert and Update, and the entry being
	// dropped for Remove.
	Change change.FileChange

	// Previous is the replaced entry for Update.
	Previous change.FileChange
}

// String renders the op for logs and test failures.
func (o Op) String() string {
	return fmt.Sprintf("%s@%d(%s)", o.Kind, o.At, o.Change.Path)
}

// Diff computes the edit sequence from prev to next in a single forward
// merge pass, O(len(prev)+len(next)).
func Diff(prev, next change.Set) []Op {
	var ops []Op

	i := 0 // cursor into the list being edited
	p := 0 // cursor into prev's original entries
	for n := 0; n < next.Len(); {
		entry := next.At(n)

		if p >= prev.Len() {
			ops = append(ops, Op{Kind: Insert, At: i, Change: entry})
			i++
			n++
			continue
		}

		current := prev.At(p)
		switch {
		case entry.Path < current.Path:
			ops = append(ops, Op{Kind: Insert, At: i, Change: entry})
			i++
			n++
		case entry.Path == current.Path:
			if !change.SamePayload(entry, current) {
				ops = append(ops, Op{Kind: Update, At: i, Change: entry, Previous: current})
			}
			i++
			p++
			n++
		default:
			// current is gone; the list shrinks so i now points at its successor.
			ops = append(ops, Op{Kind: Remove, At: i, Change: current})
			p++
		}
	}

	for ; p < prev.Len(); p++ {
		ops = append(ops, Op{Kind: Remove, At: i, Change: prev.At(p)})
	}

	return ops
}

// Plan splits the edit sequence into two phases. Removals takes prev to the
// entries of prev whose path survives into next, and contains only Remove
// ops. Upserts then takes that intermediate list to next and contains only
// Insert and Update ops. Applying Removals followed by Upserts is equivalent
// to applying Diff(prev, next).
func Plan(prev, next change.Set) (removals, upserts []Op) {
	survivors := prev.Filter(next)
	return Diff(prev, survivors), Diff(survivors, next)
}

// Apply replays ops against list and returns the result. The input slice is
// not modified. It panics when an op's position is out of range, which means
// the ops were not computed against list.
func Apply(list []change.FileChange, ops []Op) []change.FileChange {
	out := make([]change.FileChange, len(list), len(list)+len(ops))
	copy(out, list)

	for _, op := range ops {
		switch op.Kind {
		case Insert:
			if op.At < 0 || op.At > len(out) {
				panic(fmt.Sprintf("reconcile: insert at %d out of range [0,%d]", op.At, len(out)))
			}
			out = append(out, change.FileChange{})
			copy(out[op.At+1:], out[op.At:])
			out[op.At] = op.Change
		case Update:
			checkIndex(op, len(out))
			out[op.At] = op.Change
		case Remove:
			checkIndex(op, len(out))
			out = append(out[:op.At], out[op.At+1:]...)
		default:
			panic(fmt.Sprintf("reconcile: unknown op kind %d", op.Kind))
		}
	}

	return out
}

func checkIndex(op Op, n int) {
	if op.At < 0 || op.At >= n {
		panic(fmt.Sprintf("reconcile: %s at %d out of range [0,%d)", op.Kind, op.At, n))
	}
}

// Count tallies ops by kind.
func Count(ops []Op) (inserts, updates, removes int) {
	for _, op := range ops {
		switch op.Kind {
		case Insert:
			inserts++
		case Update:
			updates++
		case Remove:
			removes++
		}
	}
	return inserts, updates, removes
}

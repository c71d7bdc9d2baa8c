// Package view keeps observer-side copies of the workspace change lists in
// step with workspace events.
package view

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/commitdesk/internal/change"
	"github.com/dshills/commitdesk/internal/event"
	"github.com/dshills/commitdesk/internal/event/events"
	"github.com/dshills/commitdesk/internal/event/topic"
)

// ErrOutOfSync indicates an event does not fit the rows the list holds.
var ErrOutOfSync = errors.New("change list out of sync")

// ChangeList is the row model of one side. It applies positional change
// events and keeps the selection on its row while unrelated rows move.
type ChangeList struct {
	side     change.Side
	rows     []change.FileChange
	selected int
}

// NewChangeList creates a list for side holding the entries of initial.
func NewChangeList(side change.Side, initial change.Set) *ChangeList {
	return &ChangeList{
		side:     side,
		rows:     initial.Entries(),
		selected: -1,
	}
}

// Side returns the side the list shows.
func (l *ChangeList) Side() change.Side {
	return l.side
}

// Len returns the number of rows.
func (l *ChangeList) Len() int {
	return len(l.rows)
}

// Row returns the row at i.
func (l *ChangeList) Row(i int) change.FileChange {
	return l.rows[i]
}

// Rows returns a copy of the rows.
func (l *ChangeList) Rows() []change.FileChange {
	return slices.Clone(l.rows)
}

// Selected returns the selected row, if any.
func (l *ChangeList) Selected() (change.FileChange, bool) {
	if l.selected < 0 {
		return change.FileChange{}, false
	}
	return l.rows[l.selected], true
}

// SelectedIndex returns the selected position or -1.
func (l *ChangeList) SelectedIndex() int {
	return l.selected
}

// Select selects row i. An out of range index clears the selection and
// returns false.
func (l *ChangeList) Select(i int) bool {
	if i < 0 || i >= len(l.rows) {
		l.selected = -1
		return false
	}
	l.selected = i
	return true
}

// SelectPath selects the row for path.
func (l *ChangeList) SelectPath(path string) bool {
	for i, r := range l.rows {
		if r.Path == path {
			l.selected = i
			return true
		}
	}
	return false
}

// Reset replaces all rows, keeping the selection on the same path when it
// survives.
func (l *ChangeList) Reset(set change.Set) {
	prev, ok := l.Selected()
	l.rows = set.Entries()
	l.selected = -1
	if ok {
		l.SelectPath(prev.Path)
	}
}

// Handle applies one workspace event. Events for the other side are
// ignored. A Refreshed event whose snapshot differs from the rows resets
// the list.
func (l *ChangeList) Handle(ev any) error {
	if p, ok := event.PayloadOf[events.ChangeAdded](ev); ok {
		if p.Side != l.side {
			return nil
		}
		return l.insert(p.At, p.Change)
	}
	if p, ok := event.PayloadOf[events.ChangeRemoved](ev); ok {
		if p.Side != l.side {
			return nil
		}
		return l.remove(p.At, p.Change)
	}
	if p, ok := event.PayloadOf[events.ChangeUpdated](ev); ok {
		if p.Side != l.side {
			return nil
		}
		return l.update(p.At, p.Previous, p.Change)
	}
	if p, ok := event.PayloadOf[events.Refreshed](ev); ok {
		snapshot := p.Unstaged
		if l.side == change.Staged {
			snapshot = p.Staged
		}
		if !slices.Equal(l.rows, snapshot.Entries()) {
			l.Reset(snapshot)
		}
	}
	return nil
}

func (l *ChangeList) handle(_ context.Context, ev any) error {
	return l.Handle(ev)
}

func (l *ChangeList) insert(at int, c change.FileChange) error {
	if at < 0 || at > len(l.rows) {
		return fmt.Errorf("%w: insert %s at %d of %d", ErrOutOfSync, c.Path, at, len(l.rows))
	}
	l.rows = slices.Insert(l.rows, at, c)
	if l.selected >= at {
		l.selected++
	}
	return nil
}

func (l *ChangeList) remove(at int, c change.FileChange) error {
	if at < 0 || at >= len(l.rows) || l.rows[at].Path != c.Path {
		return fmt.Errorf("%w: remove %s at %d", ErrOutOfSync, c.Path, at)
	}
	l.rows = slices.Delete(l.rows, at, at+1)

	switch {
	case l.selected > at:
		l.selected--
	case l.selected == at && at >= len(l.rows):
		// The last row went away; fall back to the one before it.
		l.selected = len(l.rows) - 1
	}
	return nil
}

func (l *ChangeList) update(at int, prev, c change.FileChange) error {
	if at < 0 || at >= len(l.rows) || l.rows[at] != prev {
		return fmt.Errorf("%w: update %s at %d", ErrOutOfSync, c.Path, at)
	}
	l.rows[at] = c
	return nil
}

// Attach subscribes l to the change events of its side and to refreshes.
// The subscriptions hold l weakly: once l is unreachable they stop
// delivering and the bus drops them. Closing the returned group detaches
// l explicitly.
func Attach(bus event.Bus, l *ChangeList) (*event.Group, error) {
	g := event.NewGroup(bus)
	for _, pattern := range []topic.Topic{events.SideTopics(l.side), events.TopicRefreshed} {
		sub, err := event.SubscribeWeak(bus, pattern, l, (*ChangeList).handle)
		if err != nil {
			_ = g.Close()
			return nil, err
		}
		if err := g.Track(sub); err != nil {
			return nil, err
		}
	}
	return g, nil
}

package store

import (
	"strconv"
	"strings"
)

// LineKind is the role of a line within a hunk.
type LineKind int

// Line kinds.
const (
	LineContext LineKind = iota
	LineAdded
	LineDeleted
)

// Prefix returns the unified diff marker for the kind.
func (k LineKind) Prefix() string {
	switch k {
	case LineAdded:
		return "+"
	case LineDeleted:
		return "-"
	default:
		return " "
	}
}

// Line is one line of a hunk, without its trailing newline.
type Line struct {
	Kind    LineKind
	Content string
}

// Hunk is a contiguous block of changes.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Section  string
	Lines    []Line
}

// Header renders the "@@ -a,b +c,d @@" line.
func (h Hunk) Header() string {
	var b strings.Builder
	b.WriteString("@@ -")
	writeRange(&b, h.OldStart, h.OldLines)
	b.WriteString(" +")
	writeRange(&b, h.NewStart, h.NewLines)
	b.WriteString(" @@")
	if h.Section != "" {
		b.WriteString(" ")
		b.WriteString(h.Section)
	}
	return b.String()
}

// Counts tallies added and deleted lines.
func (h Hunk) Counts() (added, deleted int) {
	for _, l := range h.Lines {
		switch l.Kind {
		case LineAdded:
			added++
		case LineDeleted:
			deleted++
		}
	}
	return added, deleted
}

func writeRange(b *strings.Builder, start, n int) {
	b.WriteString(strconv.Itoa(start))
	if n != 1 {
		b.WriteString(",")
		b.WriteString(strconv.Itoa(n))
	}
}

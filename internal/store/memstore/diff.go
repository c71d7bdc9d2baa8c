package memstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"

	"github.com/dshills/commitdesk/internal/change"
	"github.com/dshills/commitdesk/internal/store"
)

func (s *Store) Diff(ctx context.Context, req store.DiffRequest) ([]store.Hunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, OpDiff); err != nil {
		return nil, err
	}

	path := change.CleanPath(req.Path)
	var before, after string

	if req.Staged {
		baseline := req.Baseline
		if baseline == "" {
			baseline = store.EmptyTree
		}
		base, ok := s.trees[baseline]
		if !ok {
			return nil, fmt.Errorf("%w: %s", store.ErrTreeNotFound, baseline)
		}
		from := path
		if req.OldPath != "" {
			from = change.CleanPath(req.OldPath)
		}
		before = s.blobs[base[from]]
		after = s.blobs[s.index[path]]
	} else {
		if !req.Untracked {
			before = s.blobs[s.index[path]]
		}
		after = s.work[path]
	}

	return hunks(path, before, after, req.ContextLines), nil
}

// hunks computes line hunks between before and after with n lines of
// context around each change.
func hunks(path, before, after string, n int) []store.Hunk {
	if before == after {
		return nil
	}
	if n < 0 {
		n = 0
	}

	edits := myers.ComputeEdits(span.URIFromPath(path), before, after)
	u := gotextdiff.ToUnified(path, path, before, edits)

	// Expand the fixed-context hunks into one line sequence covering the
	// whole file, then regroup it with the requested context.
	old := splitLines(before)
	var lines []store.Line
	next := 1
	for _, h := range u.Hunks {
		for ; next < h.FromLine && next <= len(old); next++ {
			lines = append(lines, store.Line{Kind: store.LineContext, Content: old[next-1]})
		}
		for _, l := range h.Lines {
			content := strings.TrimSuffix(l.Content, "\n")
			switch l.Kind {
			case gotextdiff.Delete:
				lines = append(lines, store.Line{Kind: store.LineDeleted, Content: content})
				next++
			case gotextdiff.Insert:
				lines = append(lines, store.Line{Kind: store.LineAdded, Content: content})
			default:
				lines = append(lines, store.Line{Kind: store.LineContext, Content: content})
				next++
			}
		}
	}
	for ; next <= len(old); next++ {
		lines = append(lines, store.Line{Kind: store.LineContext, Content: old[next-1]})
	}

	return group(lines, n)
}

func group(lines []store.Line, n int) []store.Hunk {
	// oldAt[i] and newAt[i] count the old and new lines before lines[i].
	oldAt := make([]int, len(lines)+1)
	newAt := make([]int, len(lines)+1)
	for i, l := range lines {
		oldAt[i+1], newAt[i+1] = oldAt[i], newAt[i]
		if l.Kind != store.LineAdded {
			oldAt[i+1]++
		}
		if l.Kind != store.LineDeleted {
			newAt[i+1]++
		}
	}

	var out []store.Hunk
	for i := 0; i < len(lines); {
		for i < len(lines) && lines[i].Kind == store.LineContext {
			i++
		}
		if i == len(lines) {
			break
		}

		start := max(i-n, 0)
		end := i
		for {
			for end < len(lines) && lines[end].Kind != store.LineContext {
				end++
			}
			j := end
			for j < len(lines) && lines[j].Kind == store.LineContext {
				j++
			}
			if j < len(lines) && j-end <= 2*n {
				end = j
				continue
			}
			break
		}
		stop := min(end+n, len(lines))

		h := store.Hunk{
			OldStart: oldAt[start] + 1,
			OldLines: oldAt[stop] - oldAt[start],
			NewStart: newAt[start] + 1,
			NewLines: newAt[stop] - newAt[start],
			Lines:    append([]store.Line(nil), lines[start:stop]...),
		}
		if h.OldLines == 0 {
			h.OldStart--
		}
		if h.NewLines == 0 {
			h.NewStart--
		}
		out = append(out, h)
		i = stop
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

package gitcli

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/dshills/commitdesk/internal/store"
)

// Diff returns the unified hunks for one path on the requested side.
func (s *Store) Diff(ctx context.Context, req store.DiffRequest) ([]store.Hunk, error) {
	unified := "-U" + strconv.Itoa(max(req.ContextLines, 0))

	var c call
	switch {
	case req.Staged:
		baseline := req.Baseline
		if baseline == "" {
			baseline = store.EmptyTree
		}
		c.args = []string{"diff-index", "--cached", "-p", unified, "--no-color", "--no-ext-diff"}
		if s.renames {
			c.args = append(c.args, "-M")
		}
		c.args = append(c.args, string(baseline), "--", req.Path)
		if req.OldPath != "" {
			c.args = append(c.args, req.OldPath)
		}
	case req.Untracked:
		// --no-index exits 1 when the files differ.
		c.args = []string{"diff", "--no-index", unified, "--no-color", "--no-ext-diff", "--", "/dev/null", req.Path}
		c.okCodes = []int{1}
	default:
		c.args = []string{"diff-files", "-p", unified, "--no-color", "--no-ext-diff", "--", req.Path}
	}

	out, err := s.git.do(ctx, c)
	if err != nil {
		return nil, err
	}
	return parseHunks(out)
}

// parseHunks collects the hunks of every file in a unified diff.
func parseHunks(out string) ([]store.Hunk, error) {
	if out == "" {
		return nil, nil
	}

	files, err := diff.ParseMultiFileDiff([]byte(out))
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}

	var hunks []store.Hunk
	for _, f := range files {
		for _, h := range f.Hunks {
			hunks = append(hunks, store.Hunk{
				OldStart: int(h.OrigStartLine),
				OldLines: int(h.OrigLines),
				NewStart: int(h.NewStartLine),
				NewLines: int(h.NewLines),
				Section:  h.Section,
				Lines:    parseBody(h.Body),
			})
		}
	}
	return hunks, nil
}

func parseBody(body []byte) []store.Line {
	if len(body) == 0 {
		return nil
	}

	var lines []store.Line
	for _, raw := range bytes.Split(bytes.TrimSuffix(body, []byte("\n")), []byte("\n")) {
		if len(raw) == 0 {
			lines = append(lines, store.Line{Kind: store.LineContext})
			continue
		}

		var kind store.LineKind
		switch raw[0] {
		case '+':
			kind = store.LineAdded
		case '-':
			kind = store.LineDeleted
		case ' ':
			kind = store.LineContext
		default:
			// "\ No newline at end of file"
			continue
		}
		lines = append(lines, store.Line{Kind: kind, Content: string(raw[1:])})
	}
	return lines
}

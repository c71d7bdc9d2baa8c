package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/commitdesk/internal/change"
	"github.com/dshills/commitdesk/internal/store"
)

type hunkJSON struct {
	Header  string   `json:"header"`
	Lines   []string `json:"lines"`
	Added   int      `json:"added"`
	Deleted int      `json:"deleted"`
}

type diffResult struct {
	Change changeJSON `json:"change"`
	Side   string     `json:"side"`
	Hunks  []hunkJSON `json:"hunks"`
}

func newDiffCmd(a *app) *cobra.Command {
	var staged bool
	cmd := &cobra.Command{
		Use:   "diff PATH",
		Short: "Show the hunks of one change",
		Long: `Show the unified hunks of one unstaged change, or of one staged change
with --staged. Staged hunks are relative to the last commit, or to its parent
in amend mode.

Examples:
  commitdesk diff main.go
  commitdesk diff --staged main.go
  commitdesk diff --staged --amend main.go`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			side := change.Unstaged
			if staged {
				side = change.Staged
			}
			return runDiff(cmd, a, args[0], side)
		},
	}
	cmd.Flags().BoolVar(&staged, "staged", false, "Diff the staged change")
	return cmd
}

func runDiff(cmd *cobra.Command, a *app, path string, side change.Side) error {
	s, err := a.session(cmd)
	if err != nil {
		return err
	}

	found, err := selectChanges(sideSet(s.ws, side), []string{path}, false)
	if err != nil {
		return s.fail(err)
	}
	c := found[0]

	hunks, err := s.ws.Diff(cmd.Context(), c, side)
	if err != nil {
		return s.fail(err)
	}

	p := s.printer
	if p.json {
		res := diffResult{
			Change: toJSON([]change.FileChange{c})[0],
			Side:   side.String(),
			Hunks:  make([]hunkJSON, 0, len(hunks)),
		}
		for _, h := range hunks {
			res.Hunks = append(res.Hunks, toHunkJSON(h))
		}
		return p.writeJSON(res)
	}

	old := c.Path
	if c.IsRename() {
		old = c.OldPath
	}
	p.Printf("%s\n", p.styles.Title.Render(fmt.Sprintf("--- a/%s", old)))
	p.Printf("%s\n", p.styles.Title.Render(fmt.Sprintf("+++ b/%s", c.Path)))
	for _, h := range hunks {
		p.Hunk(h)
	}
	return nil
}

func toHunkJSON(h store.Hunk) hunkJSON {
	added, deleted := h.Counts()
	lines := make([]string, 0, len(h.Lines))
	for _, l := range h.Lines {
		lines = append(lines, l.Kind.Prefix()+l.Content)
	}
	return hunkJSON{Header: h.Header(), Lines: lines, Added: added, Deleted: deleted}
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/commitdesk/internal/change"
	"github.com/dshills/commitdesk/internal/event"
	"github.com/dshills/commitdesk/internal/event/events"
	"github.com/dshills/commitdesk/internal/workspace"
)

// moveResult reports the rows that arrived on the target side.
type moveResult struct {
	Mode     string       `json:"mode"`
	Moved    []changeJSON `json:"moved"`
	Unstaged []changeJSON `json:"unstaged"`
	Staged   []changeJSON `json:"staged"`
}

func newStageCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "stage [PATH...]",
		Short: "Move unstaged changes to the staged list",
		Long: `Stage the named unstaged changes, or every unstaged change with --all.

Paths are relative to the working copy root.

Examples:
  commitdesk stage main.go
  commitdesk stage --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(cmd, a, args, all, change.Unstaged)
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "A", false, "Stage every unstaged change")
	return cmd
}

func newUnstageCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "unstage [PATH...]",
		Short: "Move staged changes back to the unstaged list",
		Long: `Unstage the named staged changes, or every staged change with --all.

In amend mode unstaging a path removes it from the amended commit.

Examples:
  commitdesk unstage main.go
  commitdesk unstage --amend --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(cmd, a, args, all, change.Staged)
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "A", false, "Unstage every staged change")
	return cmd
}

func runMove(cmd *cobra.Command, a *app, args []string, all bool, from change.Side) error {
	if len(args) == 0 && !all {
		err := newUserError("no paths given; name paths or use --all", nil)
		a.newPrinter(cmd).Error(err)
		return err
	}

	s, err := a.session(cmd)
	if err != nil {
		return err
	}

	targets, err := selectChanges(sideSet(s.ws, from), args, all)
	if err != nil {
		return s.fail(err)
	}

	// Record what lands on the other side; renames can arrive in a
	// different form than they left in.
	var moved []change.FileChange
	added, _, updated := events.ChangeTopics(from.Opposite())
	collect := func(_ context.Context, ev any) error {
		if p, ok := event.PayloadOf[events.ChangeAdded](ev); ok {
			moved = append(moved, p.Change)
		}
		if p, ok := event.PayloadOf[events.ChangeUpdated](ev); ok {
			moved = append(moved, p.Change)
		}
		return nil
	}
	g := event.NewGroup(s.ws.Bus())
	defer g.Close()
	if _, err := g.Subscribe(added, event.HandlerFunc(collect)); err != nil {
		return s.fail(err)
	}
	if _, err := g.Subscribe(updated, event.HandlerFunc(collect)); err != nil {
		return s.fail(err)
	}

	ctx := cmd.Context()
	for _, c := range targets {
		if from == change.Unstaged {
			err = s.ws.Stage(ctx, c)
		} else {
			err = s.ws.Unstage(ctx, c)
		}
		if err != nil {
			return s.fail(err)
		}
	}

	p := s.printer
	if p.json {
		return p.writeJSON(moveResult{
			Mode:     s.ws.Mode().String(),
			Moved:    toJSON(moved),
			Unstaged: toJSON(s.ws.Unstaged().Entries()),
			Staged:   toJSON(s.ws.Staged().Entries()),
		})
	}
	verb := "Staged"
	if from == change.Staged {
		verb = "Unstaged"
	}
	p.Section(fmt.Sprintf("%s %d change(s)", verb, len(targets)))
	for _, c := range moved {
		p.Change(c)
	}
	return nil
}

func sideSet(ws *workspace.Workspace, side change.Side) change.Set {
	if side == change.Staged {
		return ws.Staged()
	}
	return ws.Unstaged()
}

// selectChanges resolves paths against set. A rename can be named by
// either of its paths.
func selectChanges(set change.Set, paths []string, all bool) ([]change.FileChange, error) {
	if all {
		if set.IsEmpty() {
			return nil, newUserError("nothing to move", nil)
		}
		return set.Entries(), nil
	}

	var out []change.FileChange
	seen := make(map[string]bool)
	for _, raw := range paths {
		p := change.CleanPath(raw)
		c, ok := set.Lookup(p)
		if !ok {
			c, ok = lookupOldPath(set, p)
		}
		if !ok {
			return nil, newUserError(fmt.Sprintf("no change for %q in this list", raw), nil)
		}
		if !seen[c.Path] {
			seen[c.Path] = true
			out = append(out, c)
		}
	}
	return out, nil
}

func lookupOldPath(set change.Set, p string) (change.FileChange, bool) {
	for _, c := range set.Entries() {
		if c.IsRename() && c.OldPath == p {
			return c, true
		}
	}
	return change.FileChange{}, false
}

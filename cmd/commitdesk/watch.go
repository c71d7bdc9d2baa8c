package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/commitdesk/internal/change"
	"github.com/dshills/commitdesk/internal/event"
	"github.com/dshills/commitdesk/internal/event/events"
	"github.com/dshills/commitdesk/internal/view"
	"github.com/dshills/commitdesk/internal/watch"
)

type watchLine struct {
	Event  string     `json:"event"`
	Side   string     `json:"side,omitempty"`
	At     int        `json:"at"`
	Change changeJSON `json:"change"`
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the working copy and print list changes as they happen",
		Long: `Watch the working copy for changes. Each time files or the index change the
lists are refreshed and every row that appears, disappears or changes is
printed. Stop with Ctrl-C.

Examples:
  commitdesk watch
  commitdesk watch --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.flags.memory {
				err := newUserError("watch needs a real working copy", nil)
				a.newPrinter(cmd).Error(err)
				return err
			}
			s, err := a.session(cmd)
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), s)
		},
	}
}

func runWatch(ctx context.Context, s *session) error {
	w, err := watch.New(s.store.Root(),
		watch.WithDebounce(s.cfg.Watch.Debounce.Std()),
		watch.WithIgnore(s.cfg.Watch.Ignore...),
		watch.WithLogger(s.logger),
	)
	if err != nil {
		return s.fail(newSystemError("starting watcher", err))
	}
	defer w.Close()

	lists := map[change.Side]*view.ChangeList{
		change.Unstaged: view.NewChangeList(change.Unstaged, s.ws.Unstaged()),
		change.Staged:   view.NewChangeList(change.Staged, s.ws.Staged()),
	}
	for _, l := range lists {
		g, err := view.Attach(s.ws.Bus(), l)
		if err != nil {
			return s.fail(err)
		}
		defer g.Close()
	}

	sub, err := s.ws.Bus().SubscribeFunc(events.TopicAllChanges, func(_ context.Context, ev any) error {
		printWatchEvent(s.printer, ev)
		return nil
	})
	if err != nil {
		return s.fail(err)
	}
	defer func() { _ = s.ws.Bus().Unsubscribe(sub) }()

	p := s.printer
	if !p.json {
		p.Printf("%s\n", p.styles.Dim.Render("watching "+s.describe()))
		summarize(p, lists)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.Batches():
			if !ok {
				return nil
			}
			if err := s.ws.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				p.Warn("refresh failed: %v", err)
				continue
			}
			if !p.json {
				summarize(p, lists)
			}
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			p.Warn("watch: %v", err)
		}
	}
}

func printWatchEvent(p *printer, ev any) {
	line, ok := watchLineOf(ev)
	if !ok {
		return
	}
	if p.json {
		_ = p.writeJSON(line)
		return
	}
	marker := map[string]string{"added": "+", "removed": "-", "updated": "~"}[line.Event]
	p.Printf("%s %-8s %s\n", marker, line.Side, line.Change.Path)
}

func watchLineOf(ev any) (watchLine, bool) {
	row := func(c change.FileChange) changeJSON { return toJSON([]change.FileChange{c})[0] }

	if e, ok := event.PayloadOf[events.ChangeAdded](ev); ok {
		return watchLine{Event: "added", Side: e.Side.String(), At: e.At, Change: row(e.Change)}, true
	}
	if e, ok := event.PayloadOf[events.ChangeRemoved](ev); ok {
		return watchLine{Event: "removed", Side: e.Side.String(), At: e.At, Change: row(e.Change)}, true
	}
	if e, ok := event.PayloadOf[events.ChangeUpdated](ev); ok {
		return watchLine{Event: "updated", Side: e.Side.String(), At: e.At, Change: row(e.Change)}, true
	}
	return watchLine{}, false
}

func summarize(p *printer, lists map[change.Side]*view.ChangeList) {
	p.Printf("%s\n", p.styles.Dim.Render(fmt.Sprintf("%d unstaged, %d staged",
		lists[change.Unstaged].Len(), lists[change.Staged].Len())))
}

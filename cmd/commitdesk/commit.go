package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/commitdesk/internal/event"
	"github.com/dshills/commitdesk/internal/event/events"
)

type commitResult struct {
	Commit   string   `json:"commit"`
	Parents  []string `json:"parents,omitempty"`
	Replaced string   `json:"replaced,omitempty"`
	Message  string   `json:"message"`
	Mode     string   `json:"mode"`
}

func newCommitCmd(a *app) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "commit -m MESSAGE",
		Short: "Commit the staged changes",
		Long: `Create a commit from the staged changes, advancing the current branch.

With --amend the last commit is rewritten instead, as with the amend command.

Examples:
  commitdesk commit -m "Fix parser"
  commitdesk commit --amend -m "Fix parser and lexer"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.flags.amend {
				return runAmend(cmd, a, message)
			}
			return runCommit(cmd, a, message)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message")
	return cmd
}

func newAmendCmd(a *app) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "amend [-m MESSAGE]",
		Short: "Rewrite the last commit from the index",
		Long: `Replace the last commit with one built from the current index. Parents,
author and committer are kept. Without -m the original message is kept.

Examples:
  commitdesk amend
  commitdesk amend -m "Better message"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAmend(cmd, a, message)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Replacement commit message")
	return cmd
}

func runCommit(cmd *cobra.Command, a *app, message string) error {
	if strings.TrimSpace(message) == "" {
		err := newUserError("a commit message is required (-m)", nil)
		a.newPrinter(cmd).Error(err)
		return err
	}

	s, err := a.session(cmd)
	if err != nil {
		return err
	}

	var done events.Committed
	sub, err := s.ws.Bus().Subscribe(events.TopicCommitted,
		event.AsHandler(func(_ context.Context, ev event.Event[events.Committed]) error {
			done = ev.Payload
			s.logger.Debug("commit published", "source", ev.Metadata.Source, "commit", done.Commit)
			return nil
		}), event.WithOnce())
	if err != nil {
		return s.fail(err)
	}
	defer func() { _ = s.ws.Bus().Unsubscribe(sub) }()

	if _, err := s.ws.Commit(cmd.Context(), message); err != nil {
		return s.fail(err)
	}

	return printCommit(s, commitResult{
		Commit:  done.Commit,
		Parents: done.Parents,
		Message: done.Message,
		Mode:    s.ws.Mode().String(),
	})
}

func runAmend(cmd *cobra.Command, a *app, message string) error {
	s, err := a.session(cmd)
	if err != nil {
		return err
	}

	var done events.AmendedCommit
	sub, err := s.ws.Bus().Subscribe(events.TopicAmended,
		event.PayloadHandler(func(_ context.Context, c events.AmendedCommit) error {
			done = c
			return nil
		}), event.WithOnce())
	if err != nil {
		return s.fail(err)
	}
	defer func() { _ = s.ws.Bus().Unsubscribe(sub) }()

	if _, err := s.ws.AmendCommit(cmd.Context(), message); err != nil {
		return s.fail(err)
	}

	return printCommit(s, commitResult{
		Commit:   done.Commit,
		Replaced: done.Replaced,
		Message:  done.Message,
		Mode:     s.ws.Mode().String(),
	})
}

func printCommit(s *session, r commitResult) error {
	p := s.printer
	if p.json {
		return p.writeJSON(r)
	}

	subject, _, _ := strings.Cut(r.Message, "\n")
	id := r.Commit
	if len(id) > 7 {
		id = id[:7]
	}
	p.Printf("[%s] %s\n", p.styles.Added.Render(id), subject)
	if r.Replaced != "" {
		rep := r.Replaced
		if len(rep) > 7 {
			rep = rep[:7]
		}
		p.Printf("%s\n", p.styles.Dim.Render("replaces "+rep))
	}
	return nil
}

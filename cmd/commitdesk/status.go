package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/commitdesk/internal/change"
)

type statusResult struct {
	Root     string       `json:"root"`
	Mode     string       `json:"mode"`
	Head     string       `json:"head,omitempty"`
	Subject  string       `json:"subject,omitempty"`
	Unstaged []changeJSON `json:"unstaged"`
	Staged   []changeJSON `json:"staged"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List unstaged and staged changes",
		Long: `List the unstaged and staged changes of the working copy.

In amend mode the staged list is relative to the parent of the last commit.

Examples:
  commitdesk status
  commitdesk status --amend
  commitdesk status --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.session(cmd)
			if err != nil {
				return err
			}
			return runStatus(cmd, s)
		},
	}
}

func runStatus(cmd *cobra.Command, s *session) error {
	last, err := s.store.LastCommit(cmd.Context())
	if err != nil {
		return s.fail(err)
	}

	result := statusResult{
		Root:     s.store.Root(),
		Mode:     s.ws.Mode().String(),
		Unstaged: toJSON(s.ws.Unstaged().Entries()),
		Staged:   toJSON(s.ws.Staged().Entries()),
	}
	if last != nil {
		result.Head = string(last.ID)
		result.Subject = last.Subject()
	}

	p := s.printer
	if p.json {
		return p.writeJSON(result)
	}

	p.Printf("%s\n", p.styles.Dim.Render(s.describe()))
	if last != nil {
		p.Printf("%s %s\n", p.styles.Dim.Render(last.ID.Short()), last.Subject())
	} else {
		p.Printf("%s\n", p.styles.Dim.Render("no commits yet"))
	}
	printSide(p, "Staged changes", s.ws.Staged())
	printSide(p, "Unstaged changes", s.ws.Unstaged())
	return nil
}

func printSide(p *printer, title string, set change.Set) {
	p.Printf("\n")
	p.Section(title)
	if set.IsEmpty() {
		p.Printf("  %s\n", p.styles.Dim.Render("(none)"))
		return
	}
	for _, c := range set.Entries() {
		p.Change(c)
	}
}

// Package main provides the entry point for the commitdesk CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Build info set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" && date == "unknown" {
		return version
	}
	short := commit
	if len(short) > 7 {
		short = short[:7]
	}
	return fmt.Sprintf("%s (%s, %s)", version, short, date)
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := fang.Execute(ctx, newRootCmd(openStore), fang.WithVersion(buildVersion()))
	return exitCode(err)
}

// newRootCmd creates the root command. open builds the backing store for
// each invocation.
func newRootCmd(open storeOpener) *cobra.Command {
	a := &app{open: open}

	cmd := &cobra.Command{
		Use:   "commitdesk",
		Short: "Stage, unstage and commit changes in a git working copy",
		Long: `Commitdesk shows a working copy as two lists, unstaged and staged changes,
and moves files between them.

In amend mode (--amend) the staged list shows what the last commit introduced,
and committing rewrites that commit instead of creating a new one.

All commands support --json for structured output.`,
		Version:       buildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&a.flags.repo, "repo", "C", "", "Working copy to operate on (default from config, else .)")
	f.StringVar(&a.flags.config, "config", "", "Path to a TOML or YAML config file")
	f.BoolVar(&a.flags.amend, "amend", false, "Operate in amend mode")
	f.BoolVar(&a.flags.json, "json", false, "Output in JSON format")
	f.BoolVar(&a.flags.memory, "memory", false, "Use an in-memory demo repository")
	f.StringVar(&a.flags.color, "color", "auto", "Colorize output: auto, always or never")
	f.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	lipgloss.SetHasDarkBackground(true)

	cmd.AddGroup(&cobra.Group{ID: "inspect", Title: "Inspect Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "change", Title: "Change Commands:"})

	addGroupedCommand(cmd, newStatusCmd(a), "inspect")
	addGroupedCommand(cmd, newDiffCmd(a), "inspect")
	addGroupedCommand(cmd, newWatchCmd(a), "inspect")
	addGroupedCommand(cmd, newStageCmd(a), "change")
	addGroupedCommand(cmd, newUnstageCmd(a), "change")
	addGroupedCommand(cmd, newCommitCmd(a), "change")
	addGroupedCommand(cmd, newAmendCmd(a), "change")

	return cmd
}

func addGroupedCommand(parent, child *cobra.Command, groupID string) {
	child.GroupID = groupID
	parent.AddCommand(child)
}

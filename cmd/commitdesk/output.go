package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/dshills/commitdesk/internal/change"
	"github.com/dshills/commitdesk/internal/store"
)

// printer writes either JSON or styled human output.
type printer struct {
	w      io.Writer
	errW   io.Writer
	json   bool
	isTTY  bool
	styles styles
}

type styles struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Title   lipgloss.Style
	Dim     lipgloss.Style
	Added   lipgloss.Style
	Deleted lipgloss.Style
	Changed lipgloss.Style
	Hunk    lipgloss.Style
}

func newPrinter(w io.Writer, jsonMode, tty bool) *printer {
	s := styles{
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Added:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Deleted: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Changed: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Hunk:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	}
	if !tty {
		plain := lipgloss.NewStyle()
		s = styles{plain, plain, plain, plain, plain, plain, plain, plain}
	}
	return &printer{w: w, errW: w, json: jsonMode, isTTY: tty, styles: s}
}

// withStderr sends human-mode errors and warnings to w.
func (p *printer) withStderr(w io.Writer) *printer {
	p.errW = w
	return p
}

// resolveColorMode applies the --color flag to the detected TTY state.
func resolveColorMode(mode string, tty bool) bool {
	switch mode {
	case "never":
		return false
	case "always":
		return true
	default:
		return tty
	}
}

// isTTY reports whether w is a terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// Error reports err. JSON mode writes {"error", "code"} to the output.
func (p *printer) Error(err error) {
	code := ExitUserError
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
	}
	if p.json {
		_ = p.writeJSON(map[string]any{"error": err.Error(), "code": code})
		return
	}
	fmt.Fprintf(p.errW, "%s: %s\n", p.styles.Error.Render("Error"), err)
}

// Warn reports a non-fatal problem.
func (p *printer) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.json {
		_ = p.writeJSON(map[string]any{"warning": msg})
		return
	}
	fmt.Fprintf(p.errW, "%s: %s\n", p.styles.Warning.Render("Warning"), msg)
}

func (p *printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) Section(title string) {
	fmt.Fprintln(p.w, p.styles.Title.Render(title))
}

func (p *printer) statusStyle(s change.Status) lipgloss.Style {
	switch s {
	case change.StatusNew:
		return p.styles.Added
	case change.StatusDeleted:
		return p.styles.Deleted
	default:
		return p.styles.Changed
	}
}

// Change writes one listing row.
func (p *printer) Change(c change.FileChange) {
	name := c.Path
	if c.IsRename() {
		name = c.OldPath + " -> " + c.Path
	}
	fmt.Fprintf(p.w, "  %s %s\n", p.statusStyle(c.Status).Render(c.Status.Symbol()), name)
}

// Hunk writes one hunk in unified form.
func (p *printer) Hunk(h store.Hunk) {
	fmt.Fprintln(p.w, p.styles.Hunk.Render(h.Header()))
	for _, l := range h.Lines {
		line := l.Kind.Prefix() + l.Content
		switch l.Kind {
		case store.LineAdded:
			line = p.styles.Added.Render(line)
		case store.LineDeleted:
			line = p.styles.Deleted.Render(line)
		}
		fmt.Fprintln(p.w, line)
	}
}

// changeJSON is the JSON form of a change.
type changeJSON struct {
	Path    string `json:"path"`
	OldPath string `json:"old_path,omitempty"`
	Status  string `json:"status"`
}

func toJSON(changes []change.FileChange) []changeJSON {
	out := make([]changeJSON, 0, len(changes))
	for _, c := range changes {
		out = append(out, changeJSON{Path: c.Path, OldPath: c.OldPath, Status: c.Status.String()})
	}
	return out
}

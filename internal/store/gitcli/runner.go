package gitcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dshills/commitdesk/internal/logging"
)

// CommandError is returned when git exits unsuccessfully.
type CommandError struct {
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	msg := e.Stderr
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("git %s: %s", summarize(e.Args), msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// runner executes git in a fixed directory.
type runner struct {
	bin    string
	dir    string
	logger logging.Logger
}

// call describes one git invocation.
type call struct {
	args  []string
	env   []string
	stdin io.Reader
	// okCodes are non-zero exit codes treated as success.
	okCodes []int
}

func (r *runner) run(ctx context.Context, args ...string) (string, error) {
	return r.do(ctx, call{args: args})
}

func (r *runner) do(ctx context.Context, c call) (string, error) {
	cmd := exec.CommandContext(ctx, r.bin, c.args...)
	cmd.Dir = r.dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	cmd.Env = append(cmd.Env, c.env...)
	if c.stdin != nil {
		cmd.Stdin = c.stdin
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.logger.Debug("git", "args", summarize(c.args), "elapsed", time.Since(start))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		for _, ok := range c.okCodes {
			if code == ok {
				return stdout.String(), nil
			}
		}
		return "", &CommandError{
			Args:     c.args,
			Stderr:   strings.TrimSpace(stderr.String()),
			ExitCode: code,
			Err:      err,
		}
	}

	return stdout.String(), nil
}

// summarize keeps the subcommand and its flags, dropping paths and
// object names.
func summarize(args []string) string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--" {
			break
		}
		if len(out) > 0 && !strings.HasPrefix(a, "-") {
			continue
		}
		out = append(out, a)
	}
	return strings.Join(out, " ")
}

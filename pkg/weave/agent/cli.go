package agent

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CLI is an Agent backed by a subprocess. The task prompt is passed on
// stdin and the trimmed stdout is returned as the result. Use it to
// drive an LLM command-line client or any tool that reads a prompt and
// writes an answer.
type CLI struct {
	path    string
	args    []string
	workdir string
	env     []string
	timeout time.Duration
}

// CLIOption configures a CLI agent.
type CLIOption func(*CLI)

// WithArgs sets extra arguments passed before the prompt.
func WithArgs(args ...string) CLIOption {
	return func(c *CLI) { c.args = args }
}

// WithWorkdir sets the subprocess working directory.
func WithWorkdir(dir string) CLIOption {
	return func(c *CLI) { c.workdir = dir }
}

// WithEnv sets extra environment entries in "KEY=value" form.
func WithEnv(env ...string) CLIOption {
	return func(c *CLI) { c.env = env }
}

// WithTimeout caps a single invocation. Default: 5 minutes.
func WithTimeout(d time.Duration) CLIOption {
	return func(c *CLI) { c.timeout = d }
}

// NewCLI creates a subprocess-backed agent invoking path.
func NewCLI(path string, opts ...CLIOption) *CLI {
	c := &CLI{
		path:    path,
		timeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute implements Agent. It runs the configured binary with the
// task prompt on stdin and returns stdout as a string.
func (c *CLI) Execute(ctx context.Context, task Task, _ map[string]any) (any, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.path, c.args...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}
	if len(c.env) > 0 {
		cmd.Env = append(cmd.Environ(), c.env...)
	}

	cmd.Stdin = strings.NewReader(task.Prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", c.path, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%s: %w", c.path, err)
		}
		return nil, fmt.Errorf("%s: %w: %s", c.path, err, msg)
	}

	return strings.TrimSpace(stdout.String()), nil
}

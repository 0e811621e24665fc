// Package hosting opens pull requests by shelling out to the GitHub CLI.
package hosting

import (
	"context"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/HendryAvila/gitmcp/internal/logging"
	"github.com/HendryAvila/gitmcp/internal/procexec"
	"github.com/HendryAvila/gitmcp/internal/result"
)

// DefaultTimeout bounds gh pr create when the caller passes zero.
const DefaultTimeout = 90 * time.Second

const (
	outputBudget = 4000

	authHint    = "Make sure GitHub CLI is installed and run: gh auth login (in a normal terminal)."
	installHint = "Install GitHub CLI (https://cli.github.com), then run: gh auth login (in a normal terminal)."
)

// Runner executes one command to completion. *procexec.Executor satisfies it.
type Runner interface {
	Run(ctx context.Context, c procexec.Command) procexec.Outcome
}

// PullRequest describes the PR to open.
type PullRequest struct {
	RepoDir string
	Title   string
	Body    string
	Base    string
	Head    string
	Draft   bool
}

// CLI wraps the gh binary.
type CLI struct {
	runner   Runner
	binary   string
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

// Option configures a CLI.
type Option func(*CLI)

// WithBinary overrides the gh executable.
func WithBinary(bin string) Option {
	return func(c *CLI) {
		if bin != "" {
			c.binary = bin
		}
	}
}

// WithLookPath replaces exec.LookPath for locating the binary.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(c *CLI) {
		if fn != nil {
			c.lookPath = fn
		}
	}
}

// WithLogger sets the CLI logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *CLI) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCLI creates a CLI.
func NewCLI(runner Runner, opts ...Option) *CLI {
	c := &CLI{
		runner:   runner,
		binary:   "gh",
		lookPath: exec.LookPath,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether the gh binary can be found.
func (c *CLI) Available() bool {
	_, err := c.lookPath(c.binary)
	return err == nil
}

// CreatePullRequest runs `gh pr create` inside pr.RepoDir. On success the
// envelope carries the command outcome plus the PR url and number when gh
// printed them.
func (c *CLI) CreatePullRequest(ctx context.Context, pr PullRequest, timeout time.Duration) result.Envelope {
	if !c.Available() {
		return result.Fail(result.ErrorInfo{
			Code:    result.CodeHostingCLIMissing,
			Message: "GitHub CLI (" + c.binary + ") was not found on PATH.",
			Hint:    installHint,
			Details: map[string]any{"binary": c.binary},
		})
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	args := []string{
		c.binary, "pr", "create",
		"--title", pr.Title,
		"--base", pr.Base,
		"--head", pr.Head,
		"--body", pr.Body,
	}
	if pr.Draft {
		args = append(args, "--draft")
	}

	out := c.runner.Run(ctx, procexec.Command{
		Args:     args,
		Dir:      pr.RepoDir,
		Timeout:  timeout,
		MaxChars: outputBudget,
	})
	if !out.Succeeded {
		code := result.CodeCommandFailed
		if out.TimedOut() {
			code = result.CodeCommandTimeout
		}
		return result.Fail(result.ErrorInfo{
			Code:    code,
			Message: "Failed to create PR using GitHub CLI.",
			Hint:    authHint,
			Details: out.Map(),
		})
	}

	data := out.Map()
	if url := pullRequestURL(out.Stdout); url != "" {
		data["url"] = url
		if n := pullRequestNumber(url); n > 0 {
			data["number"] = n
		}
	}

	c.logger.Debug("pull request created", "repo_dir", pr.RepoDir, "base", pr.Base, "head", pr.Head, "draft", pr.Draft)
	return result.OK(data)
}

// pullRequestURL returns the last stdout line that looks like a URL.
func pullRequestURL(stdout string) string {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "https://") || strings.HasPrefix(line, "http://") {
			return line
		}
	}
	return ""
}

// pullRequestNumber extracts 123 from .../pull/123.
func pullRequestNumber(url string) int {
	idx := strings.LastIndex(url, "/")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(url[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

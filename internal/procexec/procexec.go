// Package procexec runs external programs to completion for gitmcp.
//
// Every command runs non-interactively: stdin is the null device, git
// credential prompts and editors are disabled through the environment, and
// arguments are passed as a literal vector (never through a shell). A run
// always yields an Outcome; timeouts and start failures are reported in it
// rather than returned as errors.
package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

// Failure reasons reported in Outcome.FailureReason.
const (
	FailureTimeout     = "timeout"
	FailureStartFailed = "start_failed"
	FailureCanceled    = "canceled"
)

// TruncationMarker is appended to output cut at the character budget.
const TruncationMarker = "\n... [truncated]"

const (
	// DefaultMaxChars is the per-stream character budget when Command.MaxChars is zero.
	DefaultMaxChars = 4000

	// DefaultTimeout bounds a command when Command.Timeout is zero.
	DefaultTimeout = 60 * time.Second

	// killWait bounds how long we wait for a killed process to be reaped.
	killWait = time.Second
)

// defaultEnv disables every interactive path git and its credential
// managers know about.
var defaultEnv = map[string]string{
	"GIT_TERMINAL_PROMPT": "0",
	"GCM_INTERACTIVE":     "Never",
	"GIT_EDITOR":          "true",
}

// Command describes one program invocation.
type Command struct {
	// Args is the argument vector; Args[0] is the program.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Timeout is the deadline for the whole run. Zero means DefaultTimeout.
	Timeout time.Duration

	// Env overrides both the inherited environment and the non-interactive
	// defaults.
	Env map[string]string

	// MaxChars is the per-stream character budget. Zero means DefaultMaxChars.
	MaxChars int
}

// Outcome is the immutable record of one run.
type Outcome struct {
	Succeeded       bool
	Invocation      string
	Dir             string
	ExitCode        *int
	ElapsedSec      float64
	Stdout          string
	Stderr          string
	StdoutTruncated bool
	StderrTruncated bool
	FailureReason   string
}

// TimedOut reports whether the run hit its deadline.
func (o Outcome) TimedOut() bool {
	return o.FailureReason == FailureTimeout
}

// Map serializes the outcome for embedding in an envelope's data or details.
func (o Outcome) Map() map[string]any {
	var cwd, code, reason any
	if o.Dir != "" {
		cwd = o.Dir
	}
	if o.ExitCode != nil {
		code = *o.ExitCode
	}
	if o.FailureReason != "" {
		reason = o.FailureReason
	}
	return map[string]any{
		"ok":               o.Succeeded,
		"cmd":              o.Invocation,
		"cwd":              cwd,
		"code":             code,
		"elapsed_sec":      o.ElapsedSec,
		"stdout":           o.Stdout,
		"stderr":           o.Stderr,
		"stdout_truncated": o.StdoutTruncated,
		"stderr_truncated": o.StderrTruncated,
		"error":            reason,
	}
}

// Executor runs commands. The zero value is not usable; use New.
type Executor struct {
	logger  *slog.Logger
	environ func() []string
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for per-run debug records.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEnviron replaces os.Environ as the inherited environment source.
func WithEnviron(fn func() []string) Option {
	return func(e *Executor) {
		if fn != nil {
			e.environ = fn
		}
	}
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes c and blocks until it exits, its timeout elapses, or ctx is
// canceled. The process group is killed on expiry so no child outlives the
// call.
func (e *Executor) Run(ctx context.Context, c Command) Outcome {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxChars := c.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	out := Outcome{
		Invocation: strings.Join(c.Args, " "),
		Dir:        c.Dir,
	}
	if len(c.Args) == 0 {
		out.FailureReason = FailureStartFailed
		out.Stderr = "empty command"
		return out
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(c.Args[0], c.Args[1:]...)
	cmd.Dir = c.Dir
	cmd.Env = mergeEnv(e.environ(), c.Env)
	cmd.Stdin = nil // null device
	cmd.WaitDelay = killWait
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		out.ElapsedSec = elapsed(start)
		out.FailureReason = FailureStartFailed
		out.Stderr = err.Error()
		e.logger.Debug("command failed to start", "cmd", out.Invocation, "dir", c.Dir, "error", err)
		return out
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	select {
	case <-runCtx.Done():
		terminateProcessGroup(cmd)
		select {
		case <-done:
		case <-time.After(killWait):
		}
		out.ElapsedSec = elapsed(start)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			out.FailureReason = FailureTimeout
			out.Stderr = fmt.Sprintf("Command timed out after %s", formatSeconds(timeout))
		} else {
			out.FailureReason = FailureCanceled
			out.Stderr = "Command canceled"
		}
		e.logger.Debug("command interrupted", "cmd", out.Invocation, "dir", c.Dir, "reason", out.FailureReason, "elapsed_sec", out.ElapsedSec)
		return out
	case waitErr = <-done:
	}

	out.ElapsedSec = elapsed(start)

	code := 0
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		code = exitErr.ExitCode()
	case errors.Is(waitErr, exec.ErrWaitDelay) && cmd.ProcessState != nil:
		// A descendant kept the output pipes open after the process exited.
		code = cmd.ProcessState.ExitCode()
	default:
		out.FailureReason = FailureStartFailed
		out.Stderr = waitErr.Error()
		return out
	}
	out.ExitCode = &code
	out.Succeeded = code == 0

	out.Stdout, out.StdoutTruncated = Truncate(decode(stdout.Bytes()), maxChars)
	out.Stderr, out.StderrTruncated = Truncate(decode(stderr.Bytes()), maxChars)

	e.logger.Debug("command finished", "cmd", out.Invocation, "dir", c.Dir, "code", code, "elapsed_sec", out.ElapsedSec)
	return out
}

// Truncate cuts s to maxChars characters and appends TruncationMarker.
// Strings at or under the budget are returned unchanged.
func Truncate(s string, maxChars int) (string, bool) {
	if maxChars < 0 || utf8.RuneCountInString(s) <= maxChars {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:maxChars]) + TruncationMarker, true
}

// decode turns raw process output into trimmed text, replacing invalid
// UTF-8 sequences instead of failing.
func decode(b []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(b), "\uFFFD"))
}

// mergeEnv layers the non-interactive defaults and then overrides on top of
// base. Later layers replace earlier keys.
func mergeEnv(base []string, overrides map[string]string) []string {
	layered := make(map[string]string, len(defaultEnv)+len(overrides))
	for k, v := range defaultEnv {
		layered[k] = v
	}
	for k, v := range overrides {
		layered[k] = v
	}

	env := make([]string, 0, len(base)+len(layered))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, replaced := layered[key]; replaced {
			continue
		}
		env = append(env, kv)
	}
	for k, v := range layered {
		env = append(env, k+"="+v)
	}
	return env
}

func elapsed(start time.Time) float64 {
	return math.Round(time.Since(start).Seconds()*1000) / 1000
}

func formatSeconds(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int(d/time.Second))
	}
	return fmt.Sprintf("%gs", d.Seconds())
}

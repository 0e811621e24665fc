// Package vcs implements the git operations exposed as tools: status, clone,
// diff, commit and push, plus the branch queries the pull-request workflow
// relies on.
//
// Every operation is a sequence of single-shot git invocations through a
// Runner. Failures come back as result envelopes, never as Go errors.
package vcs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HendryAvila/gitmcp/internal/logging"
	"github.com/HendryAvila/gitmcp/internal/paths"
	"github.com/HendryAvila/gitmcp/internal/procexec"
	"github.com/HendryAvila/gitmcp/internal/result"
)

// Default per-operation deadlines.
const (
	DefaultStatusTimeout = 30 * time.Second
	DefaultCloneTimeout  = 60 * time.Second
	DefaultDiffTimeout   = 60 * time.Second
	DefaultCommitTimeout = 60 * time.Second
	DefaultPushTimeout   = 60 * time.Second

	BranchQueryTimeout   = 20 * time.Second
	UpstreamQueryTimeout = 10 * time.Second
)

const (
	// DefaultDiffMaxChars is the diff output budget when DiffOptions.MaxChars is zero.
	DefaultDiffMaxChars = 20000

	outputBudget = 4000
	queryBudget  = 2000
)

// Messages shared with callers and tests.
const (
	MsgNotARepo        = "Not a git repository."
	MsgNothingToCommit = "Nothing to commit (working tree clean)."
	MsgCommitCreated   = "Commit created successfully."

	pushHint  = "This tool is non-interactive. For HTTPS, set credentials ahead of time or use SSH keys."
	cloneHint = "Check repo URL / credentials. This tool is non-interactive (no prompts)."
)

// Runner executes one command to completion. *procexec.Executor satisfies it.
type Runner interface {
	Run(ctx context.Context, c procexec.Command) procexec.Outcome
}

// Service runs git operations through a Runner.
type Service struct {
	runner Runner
	git    string
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithGitBinary overrides the git executable.
func WithGitBinary(bin string) Option {
	return func(s *Service) {
		if bin != "" {
			s.git = bin
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service.
func NewService(runner Runner, opts ...Option) *Service {
	s := &Service{
		runner: runner,
		git:    "git",
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DiffOptions selects the flags passed to git diff.
type DiffOptions struct {
	Staged   bool
	NameOnly bool
	Stat     bool
	MaxChars int
}

// PushOptions selects what git push sends. An empty Branch means the
// current branch; an empty Remote means "origin".
type PushOptions struct {
	Remote      string
	Branch      string
	SetUpstream bool
}

// ─── Operations ─────────────────────────────────────────────────────────────

// Status reports `git status --porcelain` for repoDir.
func (s *Service) Status(ctx context.Context, repoDir string, timeout time.Duration) result.Envelope {
	repoAbs, fail := validateRepo(repoDir)
	if fail != nil {
		return *fail
	}

	out := s.runGit(ctx, repoAbs, timeout, outputBudget, "status", "--porcelain")
	if !out.Succeeded {
		return commandFailure(out, "git status failed.", "", nil)
	}

	return result.OK(map[string]any{
		"repo_dir":         repoAbs,
		"status_porcelain": out.Stdout,
	})
}

// Clone clones repoURL into destDir, which must be missing or empty.
func (s *Service) Clone(ctx context.Context, repoURL, destDir string, timeout time.Duration) result.Envelope {
	if bad := optionLike("repo_url", repoURL); bad != nil {
		return *bad
	}
	destAbs := paths.Normalize(destDir)

	if paths.Exists(destAbs) && !paths.IsDir(destAbs) {
		return result.Fail(result.ErrorInfo{
			Code:    result.CodeDestNotDirectory,
			Message: "Destination exists but is not a directory.",
			Details: map[string]any{"dest_dir": destAbs},
		})
	}
	if paths.IsDir(destAbs) && !paths.IsDirEmpty(destAbs) {
		return result.Fail(result.ErrorInfo{
			Code:    result.CodeDestNotEmpty,
			Message: "Destination directory exists and is not empty.",
			Details: map[string]any{"dest_dir": destAbs},
		})
	}

	if !paths.Exists(destAbs) {
		parent := filepath.Dir(destAbs)
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return result.Fail(result.ErrorInfo{
				Code:    result.CodeNotADirectory,
				Message: "Could not create the destination's parent directory.",
				Details: map[string]any{"dest_dir": destAbs, "parent": parent, "exception": err.Error()},
			})
		}
	}

	out := s.runner.Run(ctx, procexec.Command{
		Args: []string{
			s.git,
			"-c", "core.longpaths=true",
			"-c", "credential.interactive=never",
			"clone", "--", repoURL, destAbs,
		},
		Timeout:  timeout,
		MaxChars: outputBudget,
	})
	if !out.Succeeded {
		return commandFailure(out, "git clone failed.", cloneHint, map[string]any{
			"repo_url": repoURL,
			"dest_dir": destAbs,
		})
	}

	s.logger.Debug("cloned repository", "repo_url", repoURL, "dest_dir", destAbs, "elapsed_sec", out.ElapsedSec)
	return result.OK(map[string]any{
		"repo_url":       repoURL,
		"dest_dir":       destAbs,
		"git_dir_exists": paths.IsRepository(destAbs),
		"elapsed_sec":    out.ElapsedSec,
		"stdout":         out.Stdout,
		"stderr":         out.Stderr,
	})
}

// Diff reports git diff for repoDir, truncated to opts.MaxChars.
func (s *Service) Diff(ctx context.Context, repoDir string, opts DiffOptions, timeout time.Duration) result.Envelope {
	repoAbs, fail := validateRepo(repoDir)
	if fail != nil {
		return *fail
	}

	args := []string{"diff"}
	if opts.Staged {
		args = append(args, "--staged")
	}
	if opts.NameOnly {
		args = append(args, "--name-only")
	}
	if opts.Stat {
		args = append(args, "--stat")
	}

	budget := opts.MaxChars
	if budget <= 0 {
		budget = DefaultDiffMaxChars
	}

	out := s.runGit(ctx, repoAbs, timeout, budget, args...)
	if !out.Succeeded {
		return commandFailure(out, "git diff failed.", "", nil)
	}

	return result.OK(map[string]any{
		"repo_dir":  repoAbs,
		"staged":    opts.Staged,
		"name_only": opts.NameOnly,
		"stat":      opts.Stat,
		"diff":      out.Stdout,
		"stderr":    out.Stderr,
		"truncated": out.StdoutTruncated,
	})
}

// Commit stages everything and commits it with message. A clean working
// tree short-circuits to success without running add or commit.
//
// The status check and the add are separate git invocations, so a change
// landing between them is included in the commit.
func (s *Service) Commit(ctx context.Context, repoDir, message string, timeout time.Duration) result.Envelope {
	repoAbs, fail := validateRepo(repoDir)
	if fail != nil {
		return *fail
	}

	status := s.runGit(ctx, repoAbs, timeout, outputBudget, "status", "--porcelain")
	if !status.Succeeded {
		return commandFailure(status, "git status failed.", "", map[string]any{"step": "status"})
	}
	if strings.TrimSpace(status.Stdout) == "" {
		return result.OK(map[string]any{
			"repo_dir": repoAbs,
			"message":  MsgNothingToCommit,
		})
	}

	add := s.runGit(ctx, repoAbs, timeout, outputBudget, "add", "-A")
	if !add.Succeeded {
		return commandFailure(add, "git add failed.", "", map[string]any{"step": "add"})
	}

	commit := s.runGit(ctx, repoAbs, timeout, outputBudget, "commit", "-m", message, "--no-gpg-sign")
	if !commit.Succeeded {
		return commandFailure(commit, "git commit failed.", "", map[string]any{"step": "commit"})
	}

	s.logger.Debug("commit created", "repo_dir", repoAbs)
	return result.OK(map[string]any{
		"repo_dir":       repoAbs,
		"message":        MsgCommitCreated,
		"commit_message": message,
		"stdout":         commit.Stdout,
		"stderr":         commit.Stderr,
	})
}

// Push pushes a branch to a remote, detecting the current branch when
// opts.Branch is empty.
func (s *Service) Push(ctx context.Context, repoDir string, opts PushOptions, timeout time.Duration) result.Envelope {
	repoAbs, fail := validateRepo(repoDir)
	if fail != nil {
		return *fail
	}

	remote := opts.Remote
	if remote == "" {
		remote = "origin"
	}
	branch := opts.Branch
	if branch == "" {
		branch = s.CurrentBranch(ctx, repoAbs, BranchQueryTimeout)
		if branch == "" {
			return BranchDetectFailed(repoAbs)
		}
	}

	if bad := optionLike("remote", remote); bad != nil {
		return *bad
	}
	if bad := optionLike("branch", branch); bad != nil {
		return *bad
	}

	args := []string{"push"}
	if opts.SetUpstream {
		args = append(args, "-u")
	}
	args = append(args, "--", remote, branch)

	out := s.runGit(ctx, repoAbs, timeout, outputBudget, args...)
	if !out.Succeeded {
		return commandFailure(out, "git push failed.", pushHint, nil)
	}

	s.logger.Debug("pushed branch", "repo_dir", repoAbs, "remote", remote, "branch", branch, "set_upstream", opts.SetUpstream)
	return result.OK(result.Merge(map[string]any{
		"repo_dir": repoAbs,
		"remote":   remote,
		"branch":   branch,
	}, out.Map()))
}

// ─── Queries ────────────────────────────────────────────────────────────────

// CurrentBranch returns the checked-out branch name, or "" when it cannot be
// determined. A detached HEAD reports "HEAD".
func (s *Service) CurrentBranch(ctx context.Context, repoAbs string, timeout time.Duration) string {
	out := s.runGit(ctx, repoAbs, timeout, queryBudget, "rev-parse", "--abbrev-ref", "HEAD")
	if !out.Succeeded {
		return ""
	}
	return strings.TrimSpace(out.Stdout)
}

// HasUpstream reports whether the current branch tracks a remote branch.
func (s *Service) HasUpstream(ctx context.Context, repoAbs string, timeout time.Duration) bool {
	out := s.runGit(ctx, repoAbs, timeout, queryBudget, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	return out.Succeeded
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// NotARepo is the envelope returned when repoAbs fails validation.
func NotARepo(repoAbs string) result.Envelope {
	return result.Fail(result.ErrorInfo{
		Code:    result.CodeNotAGitRepo,
		Message: MsgNotARepo,
		Details: map[string]any{"repo_dir": repoAbs},
	})
}

// BranchDetectFailed is the envelope returned when the current branch
// cannot be determined.
func BranchDetectFailed(repoAbs string) result.Envelope {
	return result.Fail(result.ErrorInfo{
		Code:    result.CodeBranchDetectFailed,
		Message: "Failed to detect current branch.",
		Details: map[string]any{"repo_dir": repoAbs},
	})
}

// optionLike rejects a positional git argument that starts with "-", which
// git would otherwise parse as an option such as --upload-pack.
func optionLike(field, value string) *result.Envelope {
	if !strings.HasPrefix(value, "-") {
		return nil
	}
	env := result.Fail(result.ErrorInfo{
		Code:    result.CodeInvalidInput,
		Message: "Invalid input: " + field + " must not start with \"-\".",
		Details: map[string]any{"field": field, "value": value},
	})
	return &env
}

func validateRepo(repoDir string) (string, *result.Envelope) {
	ok, repoAbs := paths.ValidateRepoDir(repoDir)
	if !ok {
		env := NotARepo(repoAbs)
		return repoAbs, &env
	}
	return repoAbs, nil
}

// runGit runs git with args inside dir.
func (s *Service) runGit(ctx context.Context, dir string, timeout time.Duration, budget int, args ...string) procexec.Outcome {
	return s.runner.Run(ctx, procexec.Command{
		Args:     append([]string{s.git}, args...),
		Dir:      dir,
		Timeout:  timeout,
		MaxChars: budget,
	})
}

// commandFailure converts a failed outcome into an envelope, telling a
// timeout apart from any other failure.
func commandFailure(out procexec.Outcome, message, hint string, extra map[string]any) result.Envelope {
	code := result.CodeCommandFailed
	if out.TimedOut() {
		code = result.CodeCommandTimeout
	}
	return result.Fail(result.ErrorInfo{
		Code:    code,
		Message: message,
		Hint:    hint,
		Details: result.Merge(extra, out.Map()),
	})
}

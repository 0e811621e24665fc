// Package workflow composes git and hosting operations into multi-step
// flows. OpenPR is the only one: validate, detect branch, ensure upstream,
// create the pull request.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/HendryAvila/gitmcp/internal/hosting"
	"github.com/HendryAvila/gitmcp/internal/logging"
	"github.com/HendryAvila/gitmcp/internal/paths"
	"github.com/HendryAvila/gitmcp/internal/result"
	"github.com/HendryAvila/gitmcp/internal/vcs"
)

const (
	DefaultRemote  = "origin"
	DefaultBase    = "master"
	DefaultTimeout = 90 * time.Second
)

// GitOps is the subset of *vcs.Service the workflow needs.
type GitOps interface {
	CurrentBranch(ctx context.Context, repoAbs string, timeout time.Duration) string
	HasUpstream(ctx context.Context, repoAbs string, timeout time.Duration) bool
	Push(ctx context.Context, repoDir string, opts vcs.PushOptions, timeout time.Duration) result.Envelope
}

// PullRequester opens pull requests. *hosting.CLI satisfies it.
type PullRequester interface {
	CreatePullRequest(ctx context.Context, pr hosting.PullRequest, timeout time.Duration) result.Envelope
}

// OpenPRRequest is the input of one workflow run.
type OpenPRRequest struct {
	RepoDir string
	Title   string
	Body    string
	Remote  string
	Base    string
	Draft   bool
	Timeout time.Duration
}

// OpenPR pushes the current branch when it has no upstream and opens a pull
// request from it. There are no retries and no rollback: a push that
// succeeded before a failed PR creation stays pushed.
type OpenPR struct {
	git       GitOps
	hosting   PullRequester
	protected map[string]struct{}
	log       *slog.Logger
}

// Option configures OpenPR.
type Option func(*OpenPR)

// WithProtectedBranches adds branches to the always-protected main/master
// set.
func WithProtectedBranches(branches []string) Option {
	return func(o *OpenPR) {
		for _, b := range branches {
			if b = strings.TrimSpace(b); b != "" {
				o.protected[b] = struct{}{}
			}
		}
	}
}

// WithLogger sets the workflow logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *OpenPR) {
		if l != nil {
			o.log = l
		}
	}
}

// NewOpenPR returns a configured OpenPR workflow.
func NewOpenPR(git GitOps, prs PullRequester, opts ...Option) *OpenPR {
	o := &OpenPR{
		git:       git,
		hosting:   prs,
		protected: map[string]struct{}{"main": {}, "master": {}},
		log:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the workflow, stopping at the first failing step and
// returning that step's envelope unchanged.
func (o *OpenPR) Run(ctx context.Context, req OpenPRRequest) result.Envelope {
	remote := req.Remote
	if remote == "" {
		remote = DefaultRemote
	}
	base := req.Base
	if base == "" {
		base = DefaultBase
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ok, repoAbs := paths.ValidateRepoDir(req.RepoDir)
	if !ok {
		return vcs.NotARepo(repoAbs)
	}

	branch := o.git.CurrentBranch(ctx, repoAbs, vcs.BranchQueryTimeout)
	if branch == "" || branch == "HEAD" {
		// "HEAD" is what rev-parse reports for a detached checkout.
		return vcs.BranchDetectFailed(repoAbs)
	}
	o.log.Debug("open pr: branch detected", "repo_dir", repoAbs, "branch", branch)

	if _, protected := o.protected[branch]; protected || branch == base {
		return result.Fail(result.ErrorInfo{
			Code:    result.CodeOnBaseBranch,
			Message: fmt.Sprintf("You are on '%s'. Switch to a feature branch to open a PR.", branch),
			Details: map[string]any{"current_branch": branch, "base": base},
		})
	}

	if !o.git.HasUpstream(ctx, repoAbs, vcs.UpstreamQueryTimeout) {
		o.log.Debug("open pr: pushing branch with upstream", "repo_dir", repoAbs, "remote", remote, "branch", branch)
		pushed := o.git.Push(ctx, repoAbs, vcs.PushOptions{Remote: remote, Branch: branch, SetUpstream: true}, timeout)
		if !pushed.OK {
			return pushed
		}
	} else {
		o.log.Debug("open pr: upstream exists, skipping push", "repo_dir", repoAbs, "branch", branch)
	}

	return o.hosting.CreatePullRequest(ctx, hosting.PullRequest{
		RepoDir: repoAbs,
		Title:   req.Title,
		Body:    req.Body,
		Base:    base,
		Head:    branch,
		Draft:   req.Draft,
	}, timeout)
}

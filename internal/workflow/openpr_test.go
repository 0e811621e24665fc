package workflow_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/HendryAvila/gitmcp/internal/hosting"
	"github.com/HendryAvila/gitmcp/internal/result"
	"github.com/HendryAvila/gitmcp/internal/vcs"
	"github.com/HendryAvila/gitmcp/internal/workflow"
)

type fakeGit struct {
	branch      string
	hasUpstream bool
	pushReturn  result.Envelope
	calls       []string
	pushInputs  []vcs.PushOptions
}

func (f *fakeGit) CurrentBranch(context.Context, string, time.Duration) string {
	f.calls = append(f.calls, "current_branch")
	return f.branch
}

func (f *fakeGit) HasUpstream(context.Context, string, time.Duration) bool {
	f.calls = append(f.calls, "has_upstream")
	return f.hasUpstream
}

func (f *fakeGit) Push(_ context.Context, _ string, opts vcs.PushOptions, _ time.Duration) result.Envelope {
	f.calls = append(f.calls, "push")
	f.pushInputs = append(f.pushInputs, opts)
	if f.pushReturn.Error == nil && f.pushReturn.Data == nil {
		return result.OK(map[string]any{"branch": opts.Branch})
	}
	return f.pushReturn
}

type fakeHosting struct {
	createReturn result.Envelope
	inputs       []hosting.PullRequest
	timeouts     []time.Duration
}

func (f *fakeHosting) CreatePullRequest(_ context.Context, pr hosting.PullRequest, timeout time.Duration) result.Envelope {
	f.inputs = append(f.inputs, pr)
	f.timeouts = append(f.timeouts, timeout)
	if f.createReturn.Error == nil && f.createReturn.Data == nil {
		return result.OK(map[string]any{"url": "https://github.com/acme/app/pull/1"})
	}
	return f.createReturn
}

var _ = Describe("OpenPR", func() {
	var (
		ctx  context.Context
		repo string
		git  *fakeGit
		host *fakeHosting
	)

	BeforeEach(func() {
		ctx = context.Background()

		dir, err := os.MkdirTemp("", "openpr-")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
		Expect(os.Mkdir(filepath.Join(dir, ".git"), 0o755)).To(Succeed())
		repo = dir

		git = &fakeGit{branch: "feature/login"}
		host = &fakeHosting{}
	})

	It("fails with not_a_git_repo before touching git", func() {
		plain, err := os.MkdirTemp("", "plain-")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, plain)

		env := workflow.NewOpenPR(git, host).Run(ctx, workflow.OpenPRRequest{RepoDir: plain, Title: "x"})

		Expect(env.OK).To(BeFalse())
		Expect(env.Code()).To(Equal(result.CodeNotAGitRepo))
		Expect(env.Error.Details).To(HaveKeyWithValue("repo_dir", plain))
		Expect(git.calls).To(BeEmpty())
		Expect(host.inputs).To(BeEmpty())
	})

	It("fails with branch_detect_failed when the branch is unknown", func() {
		git.branch = ""

		env := workflow.NewOpenPR(git, host).Run(ctx, workflow.OpenPRRequest{RepoDir: repo, Title: "x"})

		Expect(env.Code()).To(Equal(result.CodeBranchDetectFailed))
		Expect(git.calls).To(Equal([]string{"current_branch"}))
		Expect(host.inputs).To(BeEmpty())
	})

	It("treats a detached HEAD as an undetectable branch", func() {
		git.branch = "HEAD"

		env := workflow.NewOpenPR(git, host).Run(ctx, workflow.OpenPRRequest{RepoDir: repo, Title: "x"})

		Expect(env.Code()).To(Equal(result.CodeBranchDetectFailed))
	})

	DescribeTable("rejects protected branches before any push or PR creation",
		func(branch string) {
			git.branch = branch

			env := workflow.NewOpenPR(git, host).Run(ctx, workflow.OpenPRRequest{RepoDir: repo, Title: "x"})

			Expect(env.OK).To(BeFalse())
			Expect(env.Code()).To(Equal(result.CodeOnBaseBranch))
			Expect(env.Error.Message).To(ContainSubstring("'" + branch + "'"))
			Expect(env.Error.Details).To(HaveKeyWithValue("current_branch", branch))
			Expect(git.calls).To(Equal([]string{"current_branch"}))
			Expect(host.inputs).To(BeEmpty())
		},
		Entry("master", "master"),
		Entry("main", "main"),
	)

	It("rejects a branch equal to the requested base", func() {
		git.branch = "develop"

		env := workflow.NewOpenPR(git, host).Run(ctx, workflow.OpenPRRequest{RepoDir: repo, Title: "x", Base: "develop"})

		Expect(env.Code()).To(Equal(result.CodeOnBaseBranch))
	})

	It("adds configured protected branches to main and master", func() {
		wf := workflow.NewOpenPR(git, host, workflow.WithProtectedBranches([]string{"trunk", "release"}))

		for _, branch := range []string{"trunk", "release", "main", "master"} {
			git.branch = branch
			Expect(wf.Run(ctx, workflow.OpenPRRequest{RepoDir: repo, Title: "x"}).Code()).To(Equal(result.CodeOnBaseBranch), branch)
		}
		Expect(host.inputs).To(BeEmpty())

		git.branch = "feature/x"
		Expect(wf.Run(ctx, workflow.OpenPRRequest{RepoDir: repo, Title: "x"}).OK).To(BeTrue())
	})

	It("pushes with upstream creation when no upstream exists, then opens the PR", func() {
		git.hasUpstream = false

		env := workflow.NewOpenPR(git, host).Run(ctx, workflow.OpenPRRequest{
			RepoDir: repo,
			Title:   "Add login",
			Body:    "Closes #4",
			Draft:   true,
			Timeout: 2 * time.Minute,
		})

		Expect(env.OK).To(BeTrue())
		Expect(env.Data).To(HaveKeyWithValue("url", "https://github.com/acme/app/pull/1"))
		Expect(git.calls).To(Equal([]string{"current_branch", "has_upstream", "push"}))
		Expect(git.pushInputs).To(ConsistOf(vcs.PushOptions{Remote: "origin", Branch: "feature/login", SetUpstream: true}))

		Expect(host.inputs).To(HaveLen(1))
		Expect(host.inputs[0]).To(Equal(hosting.PullRequest{
			RepoDir: repo,
			Title:   "Add login",
			Body:    "Closes #4",
			Base:    "master",
			Head:    "feature/login",
			Draft:   true,
		}))
		Expect(host.timeouts).To(ConsistOf(2 * time.Minute))
	})

	It("skips the push entirely when an upstream exists", func() {
		git.hasUpstream = true

		env := workflow.NewOpenPR(git, host).Run(ctx, workflow.OpenPRRequest{RepoDir: repo, Title: "x", Base: "main", Remote: "fork"})

		Expect(env.OK).To(BeTrue())
		Expect(git.calls).To(Equal([]string{"current_branch", "has_upstream"}))
		Expect(git.pushInputs).To(BeEmpty())
		Expect(host.inputs[0].Base).To(Equal("main"))
	})

	It("propagates a push failure verbatim and never creates the PR", func() {
		pushFailure := result.Fail(result.ErrorInfo{
			Code:    result.CodeCommandFailed,
			Message: "git push failed.",
			Hint:    "This tool is non-interactive.",
			Details: map[string]any{"stderr": "permission denied"},
		})
		git.pushReturn = pushFailure

		env := workflow.NewOpenPR(git, host).Run(ctx, workflow.OpenPRRequest{RepoDir: repo, Title: "x"})

		Expect(env).To(Equal(pushFailure))
		Expect(host.inputs).To(BeEmpty())
	})

	It("propagates a PR creation failure verbatim without undoing the push", func() {
		prFailure := result.Fail(result.ErrorInfo{
			Code:    result.CodeCommandFailed,
			Message: "Failed to create PR using GitHub CLI.",
		})
		host.createReturn = prFailure

		env := workflow.NewOpenPR(git, host).Run(ctx, workflow.OpenPRRequest{RepoDir: repo, Title: "x"})

		Expect(env).To(Equal(prFailure))
		Expect(git.calls).To(Equal([]string{"current_branch", "has_upstream", "push"}))
	})
})

package vcs_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/gitmcp/internal/procexec"
	"github.com/HendryAvila/gitmcp/internal/result"
	"github.com/HendryAvila/gitmcp/internal/vcs"
)

// fakeRunner records every command and answers from a script keyed by the
// git subcommand ("status", "add", "commit", ...).
type fakeRunner struct {
	calls   []procexec.Command
	replies map[string]procexec.Outcome
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{replies: map[string]procexec.Outcome{}}
}

func (f *fakeRunner) Run(_ context.Context, c procexec.Command) procexec.Outcome {
	f.calls = append(f.calls, c)
	if out, ok := f.replies[subcommand(c.Args)]; ok {
		return out
	}
	return succeeded("")
}

func (f *fakeRunner) subcommands() []string {
	var subs []string
	for _, c := range f.calls {
		subs = append(subs, subcommand(c.Args))
	}
	return subs
}

// subcommand returns the first git argument that is not a -c option pair.
func subcommand(args []string) string {
	for i := 1; i < len(args); i++ {
		if args[i] == "-c" {
			i++
			continue
		}
		return args[i]
	}
	return ""
}

func succeeded(stdout string) procexec.Outcome {
	code := 0
	return procexec.Outcome{Succeeded: true, ExitCode: &code, Stdout: stdout}
}

func failed(code int, stderr string) procexec.Outcome {
	return procexec.Outcome{ExitCode: &code, Stderr: stderr}
}

func timedOut() procexec.Outcome {
	return procexec.Outcome{FailureReason: procexec.FailureTimeout, Stderr: "Command timed out after 1s"}
}

// fakeRepo creates a directory carrying the repository marker.
func fakeRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatalf("mkdir .git: %v", err)
	}
	return dir
}

func assertCode(t *testing.T, env result.Envelope, want result.Code) {
	t.Helper()
	if env.OK {
		t.Fatalf("expected failure %q, got ok: %v", want, env.Data)
	}
	if env.Code() != want {
		t.Fatalf("code = %q, want %q (message %q)", env.Code(), want, env.Error.Message)
	}
}

// --- Repository validation ---

func TestOperations_RejectNonRepository(t *testing.T) {
	plain := t.TempDir()
	runner := newFakeRunner()
	svc := vcs.NewService(runner)
	ctx := context.Background()

	envs := map[string]result.Envelope{
		"status": svc.Status(ctx, plain, time.Second),
		"diff":   svc.Diff(ctx, plain, vcs.DiffOptions{}, time.Second),
		"commit": svc.Commit(ctx, plain, "msg", time.Second),
		"push":   svc.Push(ctx, plain, vcs.PushOptions{}, time.Second),
	}

	for name, env := range envs {
		t.Run(name, func(t *testing.T) {
			assertCode(t, env, result.CodeNotAGitRepo)
			if env.Error.Details["repo_dir"] != plain {
				t.Errorf("repo_dir detail = %v, want %q", env.Error.Details["repo_dir"], plain)
			}
		})
	}
	if len(runner.calls) != 0 {
		t.Errorf("git ran %d times for invalid repos", len(runner.calls))
	}
}

// --- Status ---

func TestStatus_ReturnsPorcelain(t *testing.T) {
	repo := fakeRepo(t)
	runner := newFakeRunner()
	runner.replies["status"] = succeeded(" M main.go")

	env := vcs.NewService(runner, vcs.WithGitBinary("/opt/git")).Status(context.Background(), repo+"/", 5*time.Second)

	if !env.OK {
		t.Fatalf("Status failed: %+v", env.Error)
	}
	if env.Data["repo_dir"] != repo || env.Data["status_porcelain"] != " M main.go" {
		t.Errorf("data = %v", env.Data)
	}

	c := runner.calls[0]
	if !reflect.DeepEqual(c.Args, []string{"/opt/git", "status", "--porcelain"}) {
		t.Errorf("args = %v", c.Args)
	}
	if c.Dir != repo || c.Timeout != 5*time.Second {
		t.Errorf("dir/timeout = %q/%v", c.Dir, c.Timeout)
	}
}

func TestStatus_TimeoutIsDistinct(t *testing.T) {
	repo := fakeRepo(t)
	runner := newFakeRunner()
	runner.replies["status"] = timedOut()

	env := vcs.NewService(runner).Status(context.Background(), repo, time.Second)
	assertCode(t, env, result.CodeCommandTimeout)

	runner.replies["status"] = failed(128, "fatal")
	env = vcs.NewService(runner).Status(context.Background(), repo, time.Second)
	assertCode(t, env, result.CodeCommandFailed)
	if env.Error.Details["stderr"] != "fatal" {
		t.Errorf("details should embed the outcome, got %v", env.Error.Details)
	}
}

// --- Clone ---

func TestClone_DestinationNotEmpty(t *testing.T) {
	dest := t.TempDir()
	if err := os.WriteFile(filepath.Join(dest, "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	runner := newFakeRunner()

	env := vcs.NewService(runner).Clone(context.Background(), "https://example.com/r.git", dest, time.Second)

	assertCode(t, env, result.CodeDestNotEmpty)
	if len(runner.calls) != 0 {
		t.Error("git must not run when the destination is not empty")
	}
}

func TestClone_DestinationIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	runner := newFakeRunner()

	env := vcs.NewService(runner).Clone(context.Background(), "https://example.com/r.git", file, time.Second)

	assertCode(t, env, result.CodeDestNotDirectory)
	if len(runner.calls) != 0 {
		t.Error("git must not run when the destination is a file")
	}
}

func TestClone_CreatesParentAndDisablesPrompts(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a", "b", "repo")
	runner := newFakeRunner()

	env := vcs.NewService(runner).Clone(context.Background(), "https://example.com/r.git", dest, time.Minute)

	if !env.OK {
		t.Fatalf("Clone failed: %+v", env.Error)
	}
	if info, err := os.Stat(filepath.Dir(dest)); err != nil || !info.IsDir() {
		t.Errorf("parent directory was not created: %v", err)
	}
	want := []string{"git", "-c", "core.longpaths=true", "-c", "credential.interactive=never", "clone", "--", "https://example.com/r.git", dest}
	if !reflect.DeepEqual(runner.calls[0].Args, want) {
		t.Errorf("args = %v, want %v", runner.calls[0].Args, want)
	}
	if env.Data["git_dir_exists"] != false {
		t.Errorf("git_dir_exists = %v, want false (fake runner clones nothing)", env.Data["git_dir_exists"])
	}
}

func TestClone_FailureCodes(t *testing.T) {
	tests := []struct {
		name  string
		reply procexec.Outcome
		want  result.Code
	}{
		{"timeout", timedOut(), result.CodeCommandTimeout},
		{"auth failure", failed(128, "Authentication failed"), result.CodeCommandFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner()
			runner.replies["clone"] = tt.reply
			dest := filepath.Join(t.TempDir(), "repo")

			env := vcs.NewService(runner).Clone(context.Background(), "https://example.com/r.git", dest, time.Second)

			assertCode(t, env, tt.want)
			if env.Error.Hint == "" {
				t.Error("clone failure should carry a hint")
			}
			if env.Error.Details["repo_url"] != "https://example.com/r.git" || env.Error.Details["dest_dir"] != dest {
				t.Errorf("details = %v", env.Error.Details)
			}
		})
	}
}

func TestClone_RejectsOptionLikeURL(t *testing.T) {
	runner := newFakeRunner()
	dest := filepath.Join(t.TempDir(), "repo")

	env := vcs.NewService(runner).Clone(context.Background(), "--upload-pack=touch /tmp/x", dest, time.Second)

	assertCode(t, env, result.CodeInvalidInput)
	if len(runner.calls) != 0 {
		t.Errorf("git ran: %v", runner.calls)
	}
}

// --- Diff ---

func TestDiff_FlagsAndBudget(t *testing.T) {
	repo := fakeRepo(t)
	runner := newFakeRunner()
	runner.replies["diff"] = procexec.Outcome{Succeeded: true, Stdout: "cut" + procexec.TruncationMarker, StdoutTruncated: true}

	env := vcs.NewService(runner).Diff(context.Background(), repo, vcs.DiffOptions{Staged: true, Stat: true, MaxChars: 1500}, time.Second)

	if !env.OK {
		t.Fatalf("Diff failed: %+v", env.Error)
	}
	c := runner.calls[0]
	if !reflect.DeepEqual(c.Args, []string{"git", "diff", "--staged", "--stat"}) {
		t.Errorf("args = %v", c.Args)
	}
	if c.MaxChars != 1500 {
		t.Errorf("MaxChars = %d, want 1500", c.MaxChars)
	}
	if env.Data["truncated"] != true || env.Data["staged"] != true || env.Data["name_only"] != false {
		t.Errorf("data = %v", env.Data)
	}
}

func TestDiff_DefaultBudget(t *testing.T) {
	repo := fakeRepo(t)
	runner := newFakeRunner()

	vcs.NewService(runner).Diff(context.Background(), repo, vcs.DiffOptions{NameOnly: true}, time.Second)

	if runner.calls[0].MaxChars != vcs.DefaultDiffMaxChars {
		t.Errorf("MaxChars = %d, want %d", runner.calls[0].MaxChars, vcs.DefaultDiffMaxChars)
	}
}

// --- Commit ---

func TestCommit_CleanTreeSkipsAddAndCommit(t *testing.T) {
	repo := fakeRepo(t)
	runner := newFakeRunner()
	runner.replies["status"] = succeeded("")

	env := vcs.NewService(runner).Commit(context.Background(), repo, "feat: x", time.Second)

	if !env.OK {
		t.Fatalf("Commit failed: %+v", env.Error)
	}
	if env.Data["message"] != vcs.MsgNothingToCommit {
		t.Errorf("message = %v", env.Data["message"])
	}
	if got := runner.subcommands(); !reflect.DeepEqual(got, []string{"status"}) {
		t.Errorf("ran %v, want only status", got)
	}
}

func TestCommit_DirtyTreeStagesThenCommits(t *testing.T) {
	repo := fakeRepo(t)
	runner := newFakeRunner()
	runner.replies["status"] = succeeded("?? new.go")
	runner.replies["commit"] = succeeded("[feature 1a2b3c] feat: add thing")

	env := vcs.NewService(runner).Commit(context.Background(), repo, "feat: add thing", time.Second)

	if !env.OK {
		t.Fatalf("Commit failed: %+v", env.Error)
	}
	if got := runner.subcommands(); !reflect.DeepEqual(got, []string{"status", "add", "commit"}) {
		t.Errorf("ran %v", got)
	}
	if !reflect.DeepEqual(runner.calls[1].Args, []string{"git", "add", "-A"}) {
		t.Errorf("add args = %v", runner.calls[1].Args)
	}
	if !reflect.DeepEqual(runner.calls[2].Args, []string{"git", "commit", "-m", "feat: add thing", "--no-gpg-sign"}) {
		t.Errorf("commit args = %v", runner.calls[2].Args)
	}
	if env.Data["message"] != vcs.MsgCommitCreated || env.Data["commit_message"] != "feat: add thing" {
		t.Errorf("data = %v", env.Data)
	}
}

func TestCommit_StepFailuresAreDistinct(t *testing.T) {
	tests := []struct {
		failing  string
		wantMsg  string
		wantRuns []string
	}{
		{"status", "git status failed.", []string{"status"}},
		{"add", "git add failed.", []string{"status", "add"}},
		{"commit", "git commit failed.", []string{"status", "add", "commit"}},
	}

	for _, tt := range tests {
		t.Run(tt.failing, func(t *testing.T) {
			repo := fakeRepo(t)
			runner := newFakeRunner()
			runner.replies["status"] = succeeded(" M a.go")
			runner.replies[tt.failing] = failed(1, tt.failing+" broke")

			env := vcs.NewService(runner).Commit(context.Background(), repo, "msg", time.Second)

			assertCode(t, env, result.CodeCommandFailed)
			if env.Error.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", env.Error.Message, tt.wantMsg)
			}
			if env.Error.Details["step"] != tt.failing {
				t.Errorf("step = %v, want %q", env.Error.Details["step"], tt.failing)
			}
			if got := runner.subcommands(); !reflect.DeepEqual(got, tt.wantRuns) {
				t.Errorf("ran %v, want %v", got, tt.wantRuns)
			}
		})
	}
}

// --- Push ---

func TestPush_DetectsBranch(t *testing.T) {
	repo := fakeRepo(t)
	runner := newFakeRunner()
	runner.replies["rev-parse"] = succeeded("feature/login\n")

	env := vcs.NewService(runner).Push(context.Background(), repo, vcs.PushOptions{SetUpstream: true}, time.Second)

	if !env.OK {
		t.Fatalf("Push failed: %+v", env.Error)
	}
	want := []string{"git", "push", "-u", "--", "origin", "feature/login"}
	if !reflect.DeepEqual(runner.calls[1].Args, want) {
		t.Errorf("push args = %v, want %v", runner.calls[1].Args, want)
	}
	if env.Data["branch"] != "feature/login" || env.Data["remote"] != "origin" {
		t.Errorf("data = %v", env.Data)
	}
}

func TestPush_ExplicitBranchSkipsDetection(t *testing.T) {
	repo := fakeRepo(t)
	runner := newFakeRunner()

	vcs.NewService(runner).Push(context.Background(), repo, vcs.PushOptions{Remote: "fork", Branch: "fix"}, time.Second)

	if got := runner.subcommands(); !reflect.DeepEqual(got, []string{"push"}) {
		t.Errorf("ran %v, want only push", got)
	}
	if !reflect.DeepEqual(runner.calls[0].Args, []string{"git", "push", "--", "fork", "fix"}) {
		t.Errorf("args = %v", runner.calls[0].Args)
	}
}

func TestPush_BranchDetectFailed(t *testing.T) {
	repo := fakeRepo(t)
	runner := newFakeRunner()
	runner.replies["rev-parse"] = failed(128, "fatal: ambiguous argument 'HEAD'")

	env := vcs.NewService(runner).Push(context.Background(), repo, vcs.PushOptions{}, time.Second)

	assertCode(t, env, result.CodeBranchDetectFailed)
	if got := runner.subcommands(); !reflect.DeepEqual(got, []string{"rev-parse"}) {
		t.Errorf("ran %v, push must not run", got)
	}
}

func TestPush_FailureCarriesHint(t *testing.T) {
	repo := fakeRepo(t)
	runner := newFakeRunner()
	runner.replies["push"] = failed(128, "could not read Username")

	env := vcs.NewService(runner).Push(context.Background(), repo, vcs.PushOptions{Branch: "x"}, time.Second)

	assertCode(t, env, result.CodeCommandFailed)
	if !strings.Contains(env.Error.Hint, "non-interactive") {
		t.Errorf("hint = %q", env.Error.Hint)
	}
}

func TestPush_RejectsOptionLikeArguments(t *testing.T) {
	tests := []struct {
		name  string
		opts  vcs.PushOptions
		reply string
		field string
	}{
		{"remote", vcs.PushOptions{Remote: "--receive-pack=touch /tmp/x; git-receive-pack", Branch: "main"}, "", "remote"},
		{"branch", vcs.PushOptions{Branch: "--mirror"}, "", "branch"},
		{"detected branch", vcs.PushOptions{}, "-weird\n", "branch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := fakeRepo(t)
			runner := newFakeRunner()
			if tt.reply != "" {
				runner.replies["rev-parse"] = succeeded(tt.reply)
			}

			env := vcs.NewService(runner).Push(context.Background(), repo, tt.opts, time.Second)

			assertCode(t, env, result.CodeInvalidInput)
			if env.Error.Details["field"] != tt.field {
				t.Errorf("field = %v, want %q", env.Error.Details["field"], tt.field)
			}
			for _, sub := range runner.subcommands() {
				if sub == "push" {
					t.Fatal("push must not run")
				}
			}
		})
	}
}

// --- Queries ---

func TestCurrentBranch(t *testing.T) {
	runner := newFakeRunner()
	svc := vcs.NewService(runner)

	runner.replies["rev-parse"] = succeeded("  main  ")
	if got := svc.CurrentBranch(context.Background(), "/repo", time.Second); got != "main" {
		t.Errorf("CurrentBranch = %q, want main", got)
	}

	runner.replies["rev-parse"] = failed(128, "fatal")
	if got := svc.CurrentBranch(context.Background(), "/repo", time.Second); got != "" {
		t.Errorf("CurrentBranch = %q, want empty on failure", got)
	}
}

func TestHasUpstream(t *testing.T) {
	runner := newFakeRunner()
	svc := vcs.NewService(runner)

	runner.replies["rev-parse"] = succeeded("origin/feature")
	if !svc.HasUpstream(context.Background(), "/repo", time.Second) {
		t.Error("HasUpstream = false, want true")
	}
	want := []string{"git", "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}"}
	if !reflect.DeepEqual(runner.calls[0].Args, want) {
		t.Errorf("args = %v", runner.calls[0].Args)
	}

	runner.replies["rev-parse"] = failed(128, "no upstream configured")
	if svc.HasUpstream(context.Background(), "/repo", time.Second) {
		t.Error("HasUpstream = true, want false")
	}
}

package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/gitmcp/internal/paths"
	"github.com/HendryAvila/gitmcp/internal/vcs"
	"github.com/HendryAvila/gitmcp/internal/workflow"
)

// PushTool handles the git_push MCP tool.
type PushTool struct {
	git     Git
	journal *Journal
	remote  string
}

// NewPushTool creates a PushTool. remote is the default remote; empty means
// origin.
func NewPushTool(git Git, j *Journal, remote string) *PushTool {
	if remote == "" {
		remote = workflow.DefaultRemote
	}
	return &PushTool{git: git, journal: j, remote: remote}
}

// Definition returns the MCP tool definition for git_push.
func (t *PushTool) Definition() mcp.Tool {
	return mcp.NewTool("git_push",
		mcp.WithDescription(
			"Push the current branch (or the given branch) to a remote. "+
				"Non-interactive: it never opens a login prompt. "+
				"Use set_upstream=true for the first push of a new branch (git push -u).",
		),
		mcp.WithString("repo_dir",
			mcp.Required(),
			mcp.Description("Path to the local repository directory."),
		),
		mcp.WithString("remote",
			mcp.Description("Remote name. Default: "+t.remote+"."),
			mcp.DefaultString(t.remote),
		),
		mcp.WithString("branch",
			mcp.Description("Branch to push. Empty means the current branch."),
		),
		mcp.WithBoolean("set_upstream",
			mcp.Description("Create the upstream tracking link (git push -u)."),
			mcp.DefaultBool(false),
		),
		mcp.WithNumber("timeout_sec",
			mcp.Description("Timeout in seconds (1-600). Default: 60."),
			mcp.DefaultNumber(60),
			mcp.Min(1),
			mcp.Max(maxCommandTimeout),
		),
	)
}

// Handle processes the git_push tool call.
func (t *PushTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := t.journal.clock()
	a := newArgs(req)
	repoDir := a.required("repo_dir")
	opts := vcs.PushOptions{
		Remote:      a.operand("remote", strings.TrimSpace(a.str("remote", t.remote))),
		Branch:      a.operand("branch", strings.TrimSpace(a.str("branch", ""))),
		SetUpstream: a.boolean("set_upstream", false),
	}
	timeout := a.seconds("timeout_sec", 60, maxCommandTimeout)
	target := paths.Normalize(repoDir)
	if bad := a.invalid(); bad != nil {
		return t.journal.finish(ctx, "git_push", target, start, *bad), nil
	}

	env := t.git.Push(ctx, repoDir, opts, timeout)
	return t.journal.finish(ctx, "git_push", target, start, env), nil
}

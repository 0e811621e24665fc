package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/gitmcp/internal/paths"
	"github.com/HendryAvila/gitmcp/internal/workflow"
)

// OpenPRTool handles the open_pr_to_base MCP tool.
type OpenPRTool struct {
	flow    PRWorkflow
	journal *Journal
	remote  string
	base    string
}

// NewOpenPRTool creates an OpenPRTool. Empty remote and base fall back to
// origin and master.
func NewOpenPRTool(flow PRWorkflow, j *Journal, remote, base string) *OpenPRTool {
	if remote == "" {
		remote = workflow.DefaultRemote
	}
	if base == "" {
		base = workflow.DefaultBase
	}
	return &OpenPRTool{flow: flow, journal: j, remote: remote, base: base}
}

// Definition returns the MCP tool definition for open_pr_to_base.
func (t *OpenPRTool) Definition() mcp.Tool {
	return mcp.NewTool("open_pr_to_base",
		mcp.WithDescription(
			"Create a Pull Request from the current branch to a base branch using the GitHub CLI (gh). "+
				"Use it after committing. If the branch has no upstream it is pushed with upstream first. "+
				"Refuses to open a PR from main/master or from the base branch itself. "+
				"On failure the error carries a hint (for example, run 'gh auth login').",
		),
		mcp.WithString("repo_dir",
			mcp.Required(),
			mcp.Description("Path to the local repository directory."),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Pull Request title (1-200 characters)."),
			mcp.MinLength(1),
			mcp.MaxLength(maxTextLen),
		),
		mcp.WithString("body",
			mcp.Description("Pull Request description."),
		),
		mcp.WithString("remote",
			mcp.Description("Remote to push to when the branch has no upstream. Default: "+t.remote+"."),
			mcp.DefaultString(t.remote),
		),
		mcp.WithString("base",
			mcp.Description("Base branch for the PR (e.g. main, master, develop). Default: "+t.base+"."),
			mcp.DefaultString(t.base),
		),
		mcp.WithBoolean("draft",
			mcp.Description("Create a draft Pull Request."),
			mcp.DefaultBool(false),
		),
		mcp.WithNumber("timeout_sec",
			mcp.Description("Timeout in seconds for the push and for gh (1-600). Default: 90."),
			mcp.DefaultNumber(90),
			mcp.Min(1),
			mcp.Max(maxCommandTimeout),
		),
	)
}

// Handle processes the open_pr_to_base tool call.
func (t *OpenPRTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := t.journal.clock()
	a := newArgs(req)
	in := workflow.OpenPRRequest{
		RepoDir: a.required("repo_dir"),
		Title:   a.text("title", maxTextLen),
		Body:    a.str("body", ""),
		Remote:  a.operand("remote", strings.TrimSpace(a.str("remote", t.remote))),
		Base:    a.operand("base", strings.TrimSpace(a.str("base", t.base))),
		Draft:   a.boolean("draft", false),
		Timeout: a.seconds("timeout_sec", 90, maxCommandTimeout),
	}
	target := paths.Normalize(in.RepoDir)
	if bad := a.invalid(); bad != nil {
		return t.journal.finish(ctx, "open_pr_to_base", target, start, *bad), nil
	}

	env := t.flow.Run(ctx, in)
	return t.journal.finish(ctx, "open_pr_to_base", target, start, env), nil
}

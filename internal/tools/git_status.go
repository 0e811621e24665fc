package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/gitmcp/internal/paths"
)

// StatusTool handles the git_status MCP tool.
type StatusTool struct {
	git     Git
	journal *Journal
}

// NewStatusTool creates a StatusTool.
func NewStatusTool(git Git, j *Journal) *StatusTool {
	return &StatusTool{git: git, journal: j}
}

// Definition returns the MCP tool definition for git_status.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("git_status",
		mcp.WithDescription(
			"Return repository status using 'git status --porcelain'. "+
				"Use it to learn whether the working tree is clean, before committing to decide "+
				"whether a commit is needed, or to see which files changed. "+
				"On success data.status_porcelain holds the porcelain output; an empty string means clean.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("repo_dir",
			mcp.Required(),
			mcp.Description("Path to the local repository directory."),
		),
		mcp.WithNumber("timeout_sec",
			mcp.Description("Timeout in seconds (1-300). Default: 30."),
			mcp.DefaultNumber(30),
			mcp.Min(1),
			mcp.Max(maxStatusTimeout),
		),
	)
}

// Handle processes the git_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := t.journal.clock()
	a := newArgs(req)
	repoDir := a.required("repo_dir")
	timeout := a.seconds("timeout_sec", 30, maxStatusTimeout)
	target := paths.Normalize(repoDir)
	if bad := a.invalid(); bad != nil {
		return t.journal.finish(ctx, "git_status", target, start, *bad), nil
	}

	env := t.git.Status(ctx, repoDir, timeout)
	return t.journal.finish(ctx, "git_status", target, start, env), nil
}

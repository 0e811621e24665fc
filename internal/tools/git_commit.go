package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/gitmcp/internal/paths"
)

// CommitTool handles the git_commit MCP tool.
type CommitTool struct {
	git     Git
	journal *Journal
}

// NewCommitTool creates a CommitTool.
func NewCommitTool(git Git, j *Journal) *CommitTool {
	return &CommitTool{git: git, journal: j}
}

// Definition returns the MCP tool definition for git_commit.
func (t *CommitTool) Definition() mcp.Tool {
	return mcp.NewTool("git_commit",
		mcp.WithDescription(
			"Stage all changes and create a git commit (non-interactive, unsigned). "+
				"If the working tree is clean it returns ok=true with the message 'Nothing to commit' "+
				"and creates no commit. A failure reports which step failed in error.details.step.",
		),
		mcp.WithString("repo_dir",
			mcp.Required(),
			mcp.Description("Path to the local repository directory."),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Commit message (1-200 characters)."),
			mcp.MinLength(1),
			mcp.MaxLength(maxTextLen),
		),
		mcp.WithNumber("timeout_sec",
			mcp.Description("Timeout in seconds for each git step (1-600). Default: 60."),
			mcp.DefaultNumber(60),
			mcp.Min(1),
			mcp.Max(maxCommandTimeout),
		),
	)
}

// Handle processes the git_commit tool call.
func (t *CommitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := t.journal.clock()
	a := newArgs(req)
	repoDir := a.required("repo_dir")
	message := a.text("message", maxTextLen)
	timeout := a.seconds("timeout_sec", 60, maxCommandTimeout)
	target := paths.Normalize(repoDir)
	if bad := a.invalid(); bad != nil {
		return t.journal.finish(ctx, "git_commit", target, start, *bad), nil
	}

	env := t.git.Commit(ctx, repoDir, message, timeout)
	return t.journal.finish(ctx, "git_commit", target, start, env), nil
}

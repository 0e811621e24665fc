package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/gitmcp/internal/paths"
)

// CloneTool handles the git_clone MCP tool.
type CloneTool struct {
	git     Git
	journal *Journal
}

// NewCloneTool creates a CloneTool.
func NewCloneTool(git Git, j *Journal) *CloneTool {
	return &CloneTool{git: git, journal: j}
}

// Definition returns the MCP tool definition for git_clone.
func (t *CloneTool) Definition() mcp.Tool {
	return mcp.NewTool("git_clone",
		mcp.WithDescription(
			"Clone a remote Git repository into a local directory (non-interactive). "+
				"The destination must be empty or not exist; missing parent directories are created. "+
				"Credential prompts are disabled, so private repositories need credentials configured beforehand. "+
				"On success data holds dest_dir, elapsed_sec and the (possibly truncated) stdout/stderr.",
		),
		mcp.WithString("repo_url",
			mcp.Required(),
			mcp.Description("Repository URL (https or ssh)."),
		),
		mcp.WithString("dest_dir",
			mcp.Required(),
			mcp.Description("Local destination path for cloning."),
		),
		mcp.WithNumber("timeout_sec",
			mcp.Description("Timeout in seconds (1-600). Default: 60."),
			mcp.DefaultNumber(60),
			mcp.Min(1),
			mcp.Max(maxCommandTimeout),
		),
	)
}

// Handle processes the git_clone tool call.
func (t *CloneTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := t.journal.clock()
	a := newArgs(req)
	repoURL := a.operand("repo_url", a.required("repo_url"))
	destDir := a.required("dest_dir")
	timeout := a.seconds("timeout_sec", 60, maxCommandTimeout)
	target := paths.Normalize(destDir)
	if bad := a.invalid(); bad != nil {
		return t.journal.finish(ctx, "git_clone", target, start, *bad), nil
	}

	env := t.git.Clone(ctx, repoURL, destDir, timeout)
	return t.journal.finish(ctx, "git_clone", target, start, env), nil
}

package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/gitmcp/internal/paths"
	"github.com/HendryAvila/gitmcp/internal/vcs"
)

// DiffTool handles the git_diff MCP tool.
type DiffTool struct {
	git     Git
	journal *Journal
}

// NewDiffTool creates a DiffTool.
func NewDiffTool(git Git, j *Journal) *DiffTool {
	return &DiffTool{git: git, journal: j}
}

// Definition returns the MCP tool definition for git_diff.
func (t *DiffTool) Definition() mcp.Tool {
	return mcp.NewTool("git_diff",
		mcp.WithDescription(
			"Show git diff for a repository. Use it to inspect changes before committing "+
				"and to craft a meaningful commit message from the diff. "+
				"Output longer than max_chars is truncated and data.truncated is set.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("repo_dir",
			mcp.Required(),
			mcp.Description("Path to the local repository directory."),
		),
		mcp.WithBoolean("staged",
			mcp.Description("Show staged changes only (git diff --staged)."),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("name_only",
			mcp.Description("List changed file names only."),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("stat",
			mcp.Description("Show diff stats."),
			mcp.DefaultBool(false),
		),
		mcp.WithNumber("max_chars",
			mcp.Description("Maximum characters of diff output (1000-200000). Default: 20000."),
			mcp.DefaultNumber(vcs.DefaultDiffMaxChars),
			mcp.Min(minDiffChars),
			mcp.Max(maxDiffChars),
		),
		mcp.WithNumber("timeout_sec",
			mcp.Description("Timeout in seconds (1-600). Default: 60."),
			mcp.DefaultNumber(60),
			mcp.Min(1),
			mcp.Max(maxCommandTimeout),
		),
	)
}

// Handle processes the git_diff tool call.
func (t *DiffTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := t.journal.clock()
	a := newArgs(req)
	repoDir := a.required("repo_dir")
	opts := vcs.DiffOptions{
		Staged:   a.boolean("staged", false),
		NameOnly: a.boolean("name_only", false),
		Stat:     a.boolean("stat", false),
		MaxChars: a.integer("max_chars", vcs.DefaultDiffMaxChars, minDiffChars, maxDiffChars),
	}
	timeout := a.seconds("timeout_sec", 60, maxCommandTimeout)
	target := paths.Normalize(repoDir)
	if bad := a.invalid(); bad != nil {
		return t.journal.finish(ctx, "git_diff", target, start, *bad), nil
	}

	env := t.git.Diff(ctx, repoDir, opts, timeout)
	return t.journal.finish(ctx, "git_diff", target, start, env), nil
}

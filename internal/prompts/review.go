package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the review-changes MCP prompt.
// It asks the AI to summarize uncommitted work without changing anything.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("review-changes",
		mcp.WithPromptDescription(
			"Review the uncommitted changes of a repository. "+
				"Read-only: nothing is staged, committed or pushed.",
		),
		mcp.WithArgument("repo_dir",
			mcp.ArgumentDescription("Path to the local repository directory"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the review-changes prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	repoDir := argument(req, "repo_dir", ".")

	return &mcp.GetPromptResult{
		Description: "Review uncommitted changes",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please review the uncommitted changes in `%s`.\n\n"+
						"1. Call `git_status` to list changed files\n"+
						"2. Call `git_diff` for unstaged changes and `git_diff` with staged=true for staged ones\n"+
						"3. Summarize what changed per file, point out anything that looks unfinished or risky\n"+
						"4. Propose a commit message, but do not call `git_commit`", repoDir),
				),
			},
		},
	}, nil
}

// Package prompts implements the MCP prompts of gitmcp.
//
// Prompts are user-triggered workflows (like slash commands) that tell the
// AI which tools to call and in what order. Unlike tools, the user starts
// them.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ShipPrompt handles the ship-change MCP prompt.
// It walks the AI through status, diff, commit, pull request and an
// optional email notification.
type ShipPrompt struct {
	defaultBase string
}

// NewShipPrompt creates a ShipPrompt. defaultBase is used when the user
// gives no base branch.
func NewShipPrompt(defaultBase string) *ShipPrompt {
	if defaultBase == "" {
		defaultBase = "master"
	}
	return &ShipPrompt{defaultBase: defaultBase}
}

// Definition returns the MCP prompt definition for registration.
func (p *ShipPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("ship-change",
		mcp.WithPromptDescription(
			"Ship the local changes of a repository: review them, commit with a "+
				"message derived from the diff, open a pull request and optionally "+
				"email a reviewer.",
		),
		mcp.WithArgument("repo_dir",
			mcp.ArgumentDescription("Path to the local repository directory"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("base",
			mcp.ArgumentDescription("Base branch for the pull request. Default: "+p.defaultBase),
		),
		mcp.WithArgument("notify",
			mcp.ArgumentDescription("Email address to notify once the PR is open (optional)"),
		),
	)
}

// Handle processes the ship-change prompt request.
func (p *ShipPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	repoDir := argument(req, "repo_dir", ".")
	base := argument(req, "base", p.defaultBase)
	notify := argument(req, "notify", "")

	var sb strings.Builder
	fmt.Fprintf(&sb, "Ship the changes in `%s` as a pull request against `%s`.\n\n", repoDir, base)
	sb.WriteString("Follow these steps in order and stop at the first envelope with `ok: false`, ")
	sb.WriteString("reporting `error.code`, `error.message` and any `error.hint` to me:\n\n")
	fmt.Fprintf(&sb, "1. Call `git_status` with repo_dir=`%s`. If `status_porcelain` is empty, tell me there is nothing to ship and stop.\n", repoDir)
	sb.WriteString("2. Call `git_diff` (and `git_diff` with stat=true for large changes) to understand what changed.\n")
	sb.WriteString("3. Write a concise commit message (at most 200 characters) describing the change, then call `git_commit`.\n")
	fmt.Fprintf(&sb, "4. Call `open_pr_to_base` with base=`%s`, a title (at most 200 characters) and a body summarizing the diff. ", base)
	sb.WriteString("If it fails with `on_base_branch`, ask me which feature branch to use instead of switching yourself.\n")
	if notify != "" {
		fmt.Fprintf(&sb, "5. Call `send_email` to `%s` with the PR title as subject and the PR URL plus summary as body.\n", notify)
	}
	sb.WriteString("\nFinish with the PR URL and a one-paragraph summary.")

	return &mcp.GetPromptResult{
		Description: "Ship a change",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(sb.String()),
			},
		},
	}, nil
}

// argument returns a trimmed prompt argument or def when it is absent or
// blank.
func argument(req mcp.GetPromptRequest, key, def string) string {
	if args := req.Params.Arguments; args != nil {
		if v, ok := args[key]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return def
}

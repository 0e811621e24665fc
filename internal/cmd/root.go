// Package cmd implements the CLI commands for gitmcp.
package cmd

import (
	"github.com/spf13/cobra"

	gitserver "github.com/HendryAvila/gitmcp/internal/server"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gitmcp",
	Short: "MCP server for git, pull requests and email",
	Long: `gitmcp is a Model Context Protocol server that lets an AI assistant run
git status, clone, diff, commit and push, open a pull request with the gh CLI
and send a notification email over SMTP.

Every tool answers with a JSON envelope: {"ok": true, "data": ...} on success,
{"ok": false, "error": {"code": ...}} on failure.

Add it to your MCP client configuration:

  {
    "mcpServers": {
      "gitmcp": { "command": "gitmcp", "args": ["serve"] }
    }
  }`,
	Version:       gitserver.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns any error.
func Execute() error {
	return rootCmd.Execute()
}

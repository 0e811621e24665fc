package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/gitmcp/internal/config"
	"github.com/HendryAvila/gitmcp/internal/logging"
	gitserver "github.com/HendryAvila/gitmcp/internal/server"
	"github.com/HendryAvila/gitmcp/internal/updater"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the MCP server using the stdio transport.

The server reads JSON-RPC from stdin and writes responses to stdout. Logs go
to stderr. It is meant to be launched by an MCP client, not run by hand.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// serveStdio is replaced in tests.
var serveStdio = func(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// updateOptions are applied to every release check; tests point them at a
// local server.
var updateOptions []updater.Option

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	if cfg.Source != "" {
		logger.Debug("config loaded", "path", cfg.Source)
	}

	if stdinIsTerminal() {
		logger.Warn("stdin is a terminal; gitmcp serve expects an MCP client on stdio")
	}

	s, cleanup := gitserver.New(cfg, logger)
	defer cleanup()

	if cfg.Updates.Check {
		// Stdout belongs to the MCP transport; the notice goes to the log.
		go checkForUpdates(context.WithoutCancel(cmd.Context()), cfg.Updates.Token, logger)
	}

	logger.Info("gitmcp serving on stdio", "version", gitserver.Version)
	return serveStdio(s)
}

// checkForUpdates logs a notice when a newer release exists. Failures are
// silent.
func checkForUpdates(ctx context.Context, token string, logger *slog.Logger) {
	res := updater.NewChecker(ctx, token, gitserver.Version, updateOptions...).Check(ctx, gitserver.Version)
	if res.UpdateAvailable {
		logger.Info("update available",
			"current", res.CurrentVersion,
			"latest", res.LatestVersion,
			"release", res.ReleaseURL,
		)
	}
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

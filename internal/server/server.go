// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the concrete executor, git
// service, hosting CLI, mailer and journal, and injects them into the tools,
// prompts and resources that depend on narrow interfaces. No business logic
// lives here, only wiring.
package server

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/gitmcp/internal/config"
	"github.com/HendryAvila/gitmcp/internal/hosting"
	"github.com/HendryAvila/gitmcp/internal/journal"
	"github.com/HendryAvila/gitmcp/internal/logging"
	"github.com/HendryAvila/gitmcp/internal/notify"
	"github.com/HendryAvila/gitmcp/internal/procexec"
	"github.com/HendryAvila/gitmcp/internal/prompts"
	"github.com/HendryAvila/gitmcp/internal/resources"
	"github.com/HendryAvila/gitmcp/internal/tools"
	"github.com/HendryAvila/gitmcp/internal/vcs"
	"github.com/HendryAvila/gitmcp/internal/workflow"
)

// Name is the server name announced during MCP initialization.
const Name = "gitmcp"

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with every tool, prompt and resource
// registered.
//
// The returned cleanup function closes the journal database and must be
// called on shutdown. It is always non-nil and safe to call even when the
// journal is disabled or failed to open.
func New(cfg config.Settings, logger *slog.Logger) (*server.MCPServer, func()) {
	if logger == nil {
		logger = logging.Discard()
	}

	// --- Shared dependencies ---

	executor := procexec.New(procexec.WithLogger(logger))
	git := vcs.NewService(executor,
		vcs.WithGitBinary(cfg.GitBinary),
		vcs.WithLogger(logger),
	)
	gh := hosting.NewCLI(executor,
		hosting.WithBinary(cfg.HostingBinary),
		hosting.WithLogger(logger),
	)
	openPR := workflow.NewOpenPR(git, gh,
		workflow.WithProtectedBranches(cfg.Defaults.ProtectedBranches),
		workflow.WithLogger(logger),
	)
	mailer := notify.NewMailer(cfg.SMTP, notify.WithLogger(logger))

	// --- Journal ---
	//
	// The journal is optional: when it is disabled or cannot be opened the
	// tools still run, they just are not recorded and tool_history is not
	// offered. Interfaces stay nil rather than holding a nil *Store.

	cleanup := noop
	var (
		store    *journal.Store
		recorder tools.Recorder
		stats    resources.StatsReader
	)
	if cfg.Journal.Enabled {
		var err error
		store, err = journal.New(journal.Config{Dir: cfg.Journal.Dir})
		if err != nil {
			logger.Warn("journal disabled", "dir", cfg.Journal.Dir, "error", err)
			store = nil
		} else {
			recorder, stats = store, store
			cleanup = func() {
				if err := store.Close(); err != nil {
					logger.Warn("journal close", "error", err)
				}
			}
			logger.Debug("journal opened", "path", store.Path())
		}
	}
	j := tools.NewJournal(recorder, logger)

	// --- MCP server ---

	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Tools ---

	statusTool := tools.NewStatusTool(git, j)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	cloneTool := tools.NewCloneTool(git, j)
	s.AddTool(cloneTool.Definition(), cloneTool.Handle)

	diffTool := tools.NewDiffTool(git, j)
	s.AddTool(diffTool.Definition(), diffTool.Handle)

	commitTool := tools.NewCommitTool(git, j)
	s.AddTool(commitTool.Definition(), commitTool.Handle)

	pushTool := tools.NewPushTool(git, j, cfg.Defaults.Remote)
	s.AddTool(pushTool.Definition(), pushTool.Handle)

	openPRTool := tools.NewOpenPRTool(openPR, j, cfg.Defaults.Remote, cfg.Defaults.Base)
	s.AddTool(openPRTool.Definition(), openPRTool.Handle)

	emailTool := tools.NewSendEmailTool(mailer, j)
	s.AddTool(emailTool.Definition(), emailTool.Handle)

	if store != nil {
		historyTool := tools.NewHistoryTool(store)
		s.AddTool(historyTool.Definition(), historyTool.Handle)
	}

	// --- Prompts ---

	shipPrompt := prompts.NewShipPrompt(cfg.Defaults.Base)
	s.AddPrompt(shipPrompt.Definition(), shipPrompt.Handle)

	reviewPrompt := prompts.NewReviewPrompt()
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)

	// --- Resources ---

	resourceHandler := resources.NewHandler(cfg, stats, Version)
	s.AddResource(resourceHandler.SettingsResource(), resourceHandler.HandleSettings)
	s.AddResource(resourceHandler.StatsResource(), resourceHandler.HandleStats)

	if !gh.Available() {
		logger.Warn("gh CLI not found; open_pr_to_base will fail until it is installed", "binary", cfg.HostingBinary)
	}
	if missing := cfg.SMTP.Missing(); len(missing) > 0 {
		logger.Info("SMTP not configured; send_email is unavailable", "missing", missing)
	}

	return s, cleanup
}

// noop is the cleanup used when no journal is open.
func noop() {}

func serverInstructions() string {
	return `You have access to gitmcp, a server that runs git, opens pull requests and sends email for you.

## RESULTS

Every tool answers with one JSON object:
  {"ok": true,  "data": {...}}
  {"ok": false, "error": {"code": "...", "message": "...", "hint": "...", "details": {...}}}

Branch on "ok" first, then on error.code. The hint tells you what to do
next. Never parse the message text.

## TOOLS

- git_status: porcelain status of a repository. Call it first.
- git_clone: clone a repository into a new directory.
- git_diff: the working tree diff (staged=true for the index). Large
  diffs are truncated at max_chars; details report the truncation.
- git_commit: stage everything and commit with a message of at most 200
  characters. A clean working tree succeeds with "Nothing to commit".
- git_push: push the current branch (or a named one).
- open_pr_to_base: push the current branch and open a pull request with
  the gh CLI. Refuses to run on the base branch or a protected branch.
- send_email: send a plain-text email through the configured SMTP server.
- tool_history: recent tool calls and their outcomes, when the journal
  is enabled.

## TYPICAL FLOW

git_status -> git_diff -> git_commit -> open_pr_to_base -> send_email

Read the diff before committing. Write commit messages and PR titles
that describe the change. Do not commit on the base branch; create a
feature branch first.

## PROMPTS AND RESOURCES

- ship-change: step-by-step guide to commit, open a PR and notify.
- review-changes: read-only review of uncommitted changes.
- gitmcp://server/settings: effective configuration, secrets redacted.
- gitmcp://journal/stats: call counts and failures per tool.`
}

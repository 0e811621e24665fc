package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/gitmcp/internal/journal"
	"github.com/HendryAvila/gitmcp/internal/result"
)

// HistoryTool handles the tool_history MCP tool. It is only registered when
// the journal database opened.
type HistoryTool struct {
	history History
}

// NewHistoryTool creates a HistoryTool.
func NewHistoryTool(h History) *HistoryTool {
	return &HistoryTool{history: h}
}

// Definition returns the MCP tool definition for tool_history.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("tool_history",
		mcp.WithDescription(
			"List recent gitmcp tool calls, newest first, with per-tool totals. "+
				"Use it to check what was already done in this repository (for example, "+
				"whether a push or PR creation already succeeded) before retrying.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("tool",
			mcp.Description("Only show calls of this tool (e.g. git_push)."),
		),
		mcp.WithBoolean("failed_only",
			mcp.Description("Only show failed calls."),
			mcp.DefaultBool(false),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to return (1-200). Default: 20."),
			mcp.DefaultNumber(defaultHistorySize),
			mcp.Min(1),
			mcp.Max(journal.MaxLimit),
		),
	)
}

// Handle processes the tool_history tool call. Its own calls are not
// recorded.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a := newArgs(req)
	filter := journal.Filter{
		Tool:       strings.TrimSpace(a.str("tool", "")),
		FailedOnly: a.boolean("failed_only", false),
		Limit:      a.integer("limit", defaultHistorySize, 1, journal.MaxLimit),
	}
	if bad := a.invalid(); bad != nil {
		return envelopeResult(*bad), nil
	}

	entries, err := t.history.Recent(ctx, filter)
	if err != nil {
		return envelopeResult(journalFailure(err)), nil
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	stats, err := t.history.Stats(ctx)
	if err != nil {
		return envelopeResult(journalFailure(err)), nil
	}

	return envelopeResult(result.OK(map[string]any{
		"entries": entries,
		"stats":   stats,
	})), nil
}

func journalFailure(err error) result.Envelope {
	return result.Fail(result.ErrorInfo{
		Code:    result.CodeCommandFailed,
		Message: "Failed to read the tool journal.",
		Hint:    "Check that the journal directory is readable, or set GITMCP_JOURNAL=false.",
		Details: map[string]any{"error": err.Error()},
	})
}

// Package resources implements the MCP resources of gitmcp.
//
// Resources provide read-only data the host can load for context. They use
// gitmcp:// URIs.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/gitmcp/internal/config"
	"github.com/HendryAvila/gitmcp/internal/journal"
)

// URIs of the resources served by Handler.
const (
	SettingsURI = "gitmcp://server/settings"
	StatsURI    = "gitmcp://journal/stats"
)

// StatsReader reads journal statistics. *journal.Store satisfies it.
type StatsReader interface {
	Stats(ctx context.Context) (*journal.Stats, error)
}

// Handler serves gitmcp resources.
type Handler struct {
	settings config.Settings
	stats    StatsReader
	version  string
}

// NewHandler creates a resource Handler. stats may be nil when the journal
// is unavailable.
func NewHandler(settings config.Settings, stats StatsReader, version string) *Handler {
	return &Handler{settings: settings, stats: stats, version: version}
}

// SettingsResource returns the MCP resource definition for the effective
// settings.
func (h *Handler) SettingsResource() mcp.Resource {
	return mcp.NewResource(
		SettingsURI,
		"gitmcp Settings",
		mcp.WithResourceDescription("Effective server settings with secrets redacted: SMTP, defaults, binaries, journal"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleSettings returns the redacted settings as JSON.
func (h *Handler) HandleSettings(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	doc := h.settings.Redacted()
	doc["version"] = h.version
	doc["journal_available"] = h.stats != nil
	return jsonResource(req.Params.URI, doc)
}

// StatsResource returns the MCP resource definition for journal statistics.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		StatsURI,
		"gitmcp Tool Call Statistics",
		mcp.WithResourceDescription("Per-tool call and failure counts from the invocation journal"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns the journal statistics as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if h.stats == nil {
		return errorResource(req.Params.URI, "journal is disabled or unavailable"), nil
	}
	stats, err := h.stats.Stats(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, stats)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}

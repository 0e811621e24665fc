package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/gitmcp/internal/journal"
	"github.com/HendryAvila/gitmcp/internal/logging"
	"github.com/HendryAvila/gitmcp/internal/result"
)

// Recorder persists tool outcomes. *journal.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (int64, error)
}

// Journal closes out every tool call: it logs the outcome, records it when a
// Recorder is configured, and renders the envelope. A nil *Journal only
// renders.
type Journal struct {
	rec Recorder
	log *slog.Logger
	now func() time.Time
}

// NewJournal creates a Journal. rec may be nil when the journal database is
// unavailable.
func NewJournal(rec Recorder, log *slog.Logger) *Journal {
	if log == nil {
		log = logging.Discard()
	}
	return &Journal{rec: rec, log: log, now: time.Now}
}

// finish records the call that began at start and returns its response.
func (j *Journal) finish(ctx context.Context, tool, target string, start time.Time, env result.Envelope) *mcp.CallToolResult {
	if j == nil {
		return envelopeResult(env)
	}

	elapsed := j.now().Sub(start)
	j.log.Debug("tool call finished",
		"tool", tool,
		"ok", env.OK,
		"code", string(env.Code()),
		"target", target,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	if j.rec != nil {
		// The call's own context may already be past its deadline.
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_, err := j.rec.Record(recCtx, journal.Entry{
			Tool:      tool,
			OK:        env.OK,
			Code:      string(env.Code()),
			Target:    target,
			ElapsedMS: elapsed.Milliseconds(),
			At:        start,
		})
		if err != nil {
			j.log.Warn("journal record failed", "tool", tool, "error", err)
		}
	}

	return envelopeResult(env)
}

// clock returns the start time of a call.
func (j *Journal) clock() time.Time {
	if j == nil {
		return time.Now()
	}
	return j.now()
}

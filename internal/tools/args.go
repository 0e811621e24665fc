// Package tools implements the MCP tool handlers of gitmcp.
//
// Each tool is a struct holding its dependencies behind a narrow interface,
// with Definition() returning the mcp.Tool schema and Handle() running the
// call. Every handler answers with the result envelope rendered as JSON text,
// so an agent branches on "ok" and then on error.code. Input constraints are
// checked here, before any process is spawned or connection opened.
package tools

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/gitmcp/internal/journal"
	"github.com/HendryAvila/gitmcp/internal/notify"
	"github.com/HendryAvila/gitmcp/internal/result"
	"github.com/HendryAvila/gitmcp/internal/vcs"
	"github.com/HendryAvila/gitmcp/internal/workflow"
)

// Input bounds shared by several tools.
const (
	maxTextLen         = 200
	maxStatusTimeout   = 300
	maxCommandTimeout  = 600
	minDiffChars       = 1000
	maxDiffChars       = 200000
	defaultHistorySize = journal.DefaultLimit
)

// ─── Dependencies ────────────────────────────────────────────────────────────

// Git is the version-control surface used by the git_* tools.
// *vcs.Service satisfies it.
type Git interface {
	Status(ctx context.Context, repoDir string, timeout time.Duration) result.Envelope
	Clone(ctx context.Context, repoURL, destDir string, timeout time.Duration) result.Envelope
	Diff(ctx context.Context, repoDir string, opts vcs.DiffOptions, timeout time.Duration) result.Envelope
	Commit(ctx context.Context, repoDir, message string, timeout time.Duration) result.Envelope
	Push(ctx context.Context, repoDir string, opts vcs.PushOptions, timeout time.Duration) result.Envelope
}

// PRWorkflow runs the open-PR flow. *workflow.OpenPR satisfies it.
type PRWorkflow interface {
	Run(ctx context.Context, req workflow.OpenPRRequest) result.Envelope
}

// Mailer sends email. *notify.Mailer satisfies it.
type Mailer interface {
	Send(ctx context.Context, msg notify.Message) result.Envelope
}

// History reads the invocation journal. *journal.Store satisfies it.
type History interface {
	Recent(ctx context.Context, f journal.Filter) ([]journal.Entry, error)
	Stats(ctx context.Context) (*journal.Stats, error)
}

// ─── Arguments ───────────────────────────────────────────────────────────────

// inputError is a failed input constraint.
type inputError struct {
	field string
	value any
	msg   string
}

// args reads tool arguments and keeps the first constraint violation, so a
// handler can read every field and check once.
type args struct {
	raw map[string]any
	err *inputError
}

func newArgs(req mcp.CallToolRequest) *args {
	raw := req.GetArguments()
	if raw == nil {
		raw = map[string]any{}
	}
	return &args{raw: raw}
}

func (a *args) fail(field string, value any, format string, v ...any) {
	if a.err == nil {
		a.err = &inputError{field: field, value: value, msg: fmt.Sprintf(format, v...)}
	}
}

// required returns a string argument that must be present and non-blank.
func (a *args) required(key string) string {
	v, present := a.raw[key]
	s, ok := v.(string)
	switch {
	case !present || v == nil:
		a.fail(key, nil, "%s is required.", key)
	case !ok:
		a.fail(key, v, "%s must be a string.", key)
	case s == "":
		a.fail(key, s, "%s must not be empty.", key)
	}
	return s
}

// text is a required string of at most limit characters.
func (a *args) text(key string, limit int) string {
	s := a.required(key)
	if n := utf8.RuneCountInString(s); s != "" && n > limit {
		a.fail(key, n, "%s must be at most %d characters (got %d).", key, limit, n)
	}
	return s
}

// str is an optional string argument.
func (a *args) str(key, def string) string {
	v, present := a.raw[key]
	if !present || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		a.fail(key, v, "%s must be a string.", key)
		return def
	}
	return s
}

// operand rejects a value git would parse as an option. Remotes, branches
// and URLs are passed positionally and may not start with "-".
func (a *args) operand(key, s string) string {
	if strings.HasPrefix(s, "-") {
		a.fail(key, s, "%s must not start with \"-\".", key)
	}
	return s
}

// boolean is an optional boolean argument.
func (a *args) boolean(key string, def bool) bool {
	v, present := a.raw[key]
	if !present || v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		a.fail(key, v, "%s must be a boolean.", key)
		return def
	}
	return b
}

// integer is an optional whole number in lo..hi. JSON numbers arrive as
// float64.
func (a *args) integer(key string, def, lo, hi int) int {
	v, present := a.raw[key]
	if !present || v == nil {
		return def
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		a.fail(key, v, "%s must be a number.", key)
		return def
	}
	if f != math.Trunc(f) {
		a.fail(key, f, "%s must be a whole number.", key)
		return def
	}
	if f < float64(lo) || f > float64(hi) {
		a.fail(key, f, "%s must be between %d and %d.", key, lo, hi)
		return def
	}
	return int(f)
}

// seconds is integer converted to a duration.
func (a *args) seconds(key string, def, hi int) time.Duration {
	return time.Duration(a.integer(key, def, 1, hi)) * time.Second
}

// invalid returns the invalid_input envelope for the first violation, or
// nil when every argument was acceptable.
func (a *args) invalid() *result.Envelope {
	if a.err == nil {
		return nil
	}
	details := map[string]any{"field": a.err.field}
	if a.err.value != nil {
		details["value"] = a.err.value
	}
	env := result.Fail(result.ErrorInfo{
		Code:    result.CodeInvalidInput,
		Message: "Invalid input: " + a.err.msg,
		Details: details,
	})
	return &env
}

// envelopeResult renders env as the tool response. IsError mirrors !ok.
func envelopeResult(env result.Envelope) *mcp.CallToolResult {
	r := mcp.NewToolResultText(env.JSON())
	r.IsError = !env.OK
	return r
}

// Package result defines the uniform envelope every gitmcp operation returns.
//
// An agent calling any tool gets the same shape back: it branches on "ok",
// then inspects error.code and optionally follows error.hint. Operations
// build envelopes only through OK and Fail so the ok/error invariant holds.
package result

import "encoding/json"

// Code is a stable, machine-readable error identifier.
type Code string

// The closed set of error codes.
const (
	CodeInvalidInput       Code = "invalid_input"
	CodeNotADirectory      Code = "not_a_directory"
	CodeNotAGitRepo        Code = "not_a_git_repo"
	CodeDestNotDirectory   Code = "dest_not_directory"
	CodeDestNotEmpty       Code = "dest_dir_not_empty"
	CodeCommandTimeout     Code = "command_timeout"
	CodeCommandFailed      Code = "command_failed"
	CodeHostingCLIMissing  Code = "gh_not_configured"
	CodeEmailConfigMissing Code = "email_config_missing"
	CodeEmailSendFailed    Code = "email_send_failed"
	CodeBranchDetectFailed Code = "branch_detect_failed"
	CodeOnBaseBranch       Code = "on_base_branch"
)

// Codes lists every error code in declaration order.
var Codes = []Code{
	CodeInvalidInput,
	CodeNotADirectory,
	CodeNotAGitRepo,
	CodeDestNotDirectory,
	CodeDestNotEmpty,
	CodeCommandTimeout,
	CodeCommandFailed,
	CodeHostingCLIMissing,
	CodeEmailConfigMissing,
	CodeEmailSendFailed,
	CodeBranchDetectFailed,
	CodeOnBaseBranch,
}

// ErrorInfo describes a failed operation.
type ErrorInfo struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Details map[string]any `json:"details"`
}

// Envelope is the success/error wrapper returned by every operation.
// Data is only meaningful when OK is true; Error is set iff OK is false.
type Envelope struct {
	OK    bool           `json:"ok"`
	Data  map[string]any `json:"data"`
	Error *ErrorInfo     `json:"error,omitempty"`
}

// OK builds a successful envelope. A nil data map is replaced by an empty one.
func OK(data map[string]any) Envelope {
	if data == nil {
		data = map[string]any{}
	}
	return Envelope{OK: true, Data: data}
}

// Fail builds a failed envelope from info.
func Fail(info ErrorInfo) Envelope {
	if info.Details == nil {
		info.Details = map[string]any{}
	}
	return Envelope{OK: false, Data: map[string]any{}, Error: &info}
}

// Code returns the error code, or "" for a successful envelope.
func (e Envelope) Code() Code {
	if e.Error == nil {
		return ""
	}
	return e.Error.Code
}

// JSON renders the envelope as indented JSON.
func (e Envelope) JSON() string {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		// Data holds values from this module only; fall back to a minimal
		// envelope so the caller always receives the documented shape.
		fallback, _ := json.Marshal(Fail(ErrorInfo{
			Code:    e.Code(),
			Message: "result could not be encoded: " + err.Error(),
		}))
		return string(fallback)
	}
	return string(data)
}

// Merge returns a new map with every key of base overlaid by extra.
// It is used to embed a command outcome next to operation-specific fields.
func Merge(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

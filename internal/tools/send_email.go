package tools

import (
	"context"
	"net/mail"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/gitmcp/internal/notify"
)

// SendEmailTool handles the send_email MCP tool.
type SendEmailTool struct {
	mailer  Mailer
	journal *Journal
}

// NewSendEmailTool creates a SendEmailTool.
func NewSendEmailTool(mailer Mailer, j *Journal) *SendEmailTool {
	return &SendEmailTool{mailer: mailer, journal: j}
}

// Definition returns the MCP tool definition for send_email.
func (t *SendEmailTool) Definition() mcp.Tool {
	return mcp.NewTool("send_email",
		mcp.WithDescription(
			"Send a plain-text email notification over SMTP (STARTTLS). "+
				"Use it after opening a PR to notify a reviewer. "+
				"Fails with email_config_missing when SMTP settings are absent.",
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient email address."),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject (1-200 characters)."),
			mcp.MinLength(1),
			mcp.MaxLength(maxTextLen),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Plain text email content."),
		),
	)
}

// Handle processes the send_email tool call.
func (t *SendEmailTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := t.journal.clock()
	a := newArgs(req)
	to := a.required("to")
	subject := a.text("subject", maxTextLen)
	body := a.str("body", "")
	if _, present := a.raw["body"]; !present {
		a.fail("body", nil, "body is required.")
	}
	if to != "" {
		if _, err := mail.ParseAddress(to); err != nil {
			a.fail("to", to, "to must be a valid email address: %v.", err)
		}
	}
	if bad := a.invalid(); bad != nil {
		return t.journal.finish(ctx, "send_email", to, start, *bad), nil
	}

	env := t.mailer.Send(ctx, notify.Message{To: to, Subject: subject, Body: body})
	return t.journal.finish(ctx, "send_email", to, start, env), nil
}

// Package notify sends plain-text email over SMTP with STARTTLS.
package notify

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/HendryAvila/gitmcp/internal/config"
	"github.com/HendryAvila/gitmcp/internal/logging"
	"github.com/HendryAvila/gitmcp/internal/result"
)

// DefaultTimeout bounds the whole SMTP conversation.
const DefaultTimeout = 30 * time.Second

// MsgSent is the confirmation carried by a successful send.
const MsgSent = "Email sent successfully."

const (
	configHint = "Set the values in .env or environment variables."
	sendHint   = "Verify SMTP_HOST/SMTP_PORT and credentials. If using TLS, ensure the port supports STARTTLS (commonly 587)."
)

// DialFunc opens the TCP connection to the SMTP server.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages through one SMTP relay.
type Mailer struct {
	cfg     config.SMTP
	dial    DialFunc
	tls     *tls.Config
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithDialer replaces the network dialer.
func WithDialer(d DialFunc) Option {
	return func(m *Mailer) {
		if d != nil {
			m.dial = d
		}
	}
}

// WithTLSConfig sets the STARTTLS client config. ServerName defaults to the
// SMTP host.
func WithTLSConfig(c *tls.Config) Option {
	return func(m *Mailer) {
		if c != nil {
			m.tls = c
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Mailer) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithClock replaces time.Now for the Date header.
func WithClock(now func() time.Time) Option {
	return func(m *Mailer) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the mailer logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mailer) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMailer creates a Mailer for cfg.
func NewMailer(cfg config.SMTP, opts ...Option) *Mailer {
	dialer := &net.Dialer{}
	m := &Mailer{
		cfg:     cfg,
		dial:    dialer.DialContext,
		tls:     &tls.Config{MinVersion: tls.VersionTLS12},
		timeout: DefaultTimeout,
		now:     time.Now,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Configured reports whether every required SMTP setting is present.
func (m *Mailer) Configured() bool {
	return len(m.cfg.Missing()) == 0
}

// Send delivers msg. Missing settings fail before any network activity;
// every other failure is reported as email_send_failed with the underlying
// error text.
func (m *Mailer) Send(ctx context.Context, msg Message) result.Envelope {
	if missing := m.cfg.Missing(); len(missing) > 0 {
		return result.Fail(result.ErrorInfo{
			Code:    result.CodeEmailConfigMissing,
			Message: "Email settings are missing (SMTP_HOST/SMTP_USERNAME/SMTP_PASSWORD/FROM_EMAIL).",
			Hint:    configHint,
			Details: map[string]any{"missing": missing},
		})
	}

	if err := m.deliver(ctx, msg); err != nil {
		m.logger.Warn("email delivery failed", "host", m.cfg.Host, "port", m.cfg.Port, "error", err)
		return result.Fail(result.ErrorInfo{
			Code:    result.CodeEmailSendFailed,
			Message: "Failed to send email.",
			Hint:    sendHint,
			Details: map[string]any{"exception": err.Error()},
		})
	}

	m.logger.Debug("email sent", "host", m.cfg.Host, "port", m.cfg.Port)
	return result.OK(map[string]any{
		"to":      msg.To,
		"message": MsgSent,
	})
}

func (m *Mailer) deliver(ctx context.Context, msg Message) error {
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	from, err := mail.ParseAddress(m.cfg.From)
	if err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	port := m.cfg.Port
	if port <= 0 {
		port = config.DefaultSMTPPort
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(port))

	conn, err := m.dial(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp greeting: %w", err)
	}
	defer func() { _ = client.Close() }()

	if ok, _ := client.Extension("STARTTLS"); !ok {
		return errors.New("smtp server does not support STARTTLS")
	}
	tlsCfg := m.tls.Clone()
	if tlsCfg.ServerName == "" {
		tlsCfg.ServerName = m.cfg.Host
	}
	if err := client.StartTLS(tlsCfg); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}

	if err := client.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := client.Mail(from.Address); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to.Address); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(m.compose(from, to, msg)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}

	// The server accepted the message; a failed QUIT does not undo that.
	if err := client.Quit(); err != nil {
		m.logger.Warn("smtp quit after delivery", "host", m.cfg.Host, "error", err)
	}
	return nil
}

// compose renders an RFC 5322 plain-text message with CRLF line endings.
func (m *Mailer) compose(from, to *mail.Address, msg Message) []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}

	header("From", from.String())
	header("To", to.String())
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", m.now().Format(time.RFC1123Z))
	header("Message-ID", messageID(from.Address))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=utf-8")
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\r\n")
	}
	return b.Bytes()
}

func messageID(sender string) string {
	domain := "localhost"
	if at := strings.LastIndex(sender, "@"); at >= 0 && at < len(sender)-1 {
		domain = sender[at+1:]
	}
	var buf [12]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("<%s@%s>", hex.EncodeToString(buf[:]), domain)
}

// Package email implements source.Mail over IMAP for reading and SMTP for
// sending replies.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"go.uber.org/zap"

	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/source"
)

// Adapter reads INBOX over IMAP and replies over SMTP.
type Adapter struct {
	imapClient *IMAPClient
	smtpConfig SMTPConfig
	username   string
	log        *zap.Logger

	send func(cfg SMTPConfig, from, to string, msg []byte) error
	now  func() time.Time
}

var _ source.Mail = (*Adapter)(nil)

// NewAdapter creates a new email adapter.
func NewAdapter(
	imapHost, imapPort string,
	smtpHost, smtpPort string,
	username, password string,
	useTLS bool,
	log *zap.Logger,
) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		imapClient: NewIMAPClient(
			imapHost, imapPort, username, password, useTLS,
		),
		smtpConfig: SMTPConfig{
			Host:     smtpHost,
			Port:     smtpPort,
			Username: username,
			Password: password,
			TLS:      useTLS,
		},
		username: username,
		log:      log,
		send:     sendSMTP,
		now:      time.Now,
	}
}

// ValidateConnection verifies IMAP credentials by connecting,
// authenticating, and selecting INBOX. Returns the username on success.
func (a *Adapter) ValidateConnection(
	ctx context.Context,
) (string, error) {
	client, err := a.imapClient.Connect(ctx)
	if err != nil {
		return "", fmt.Errorf("validating email connection: %w", err)
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return "", fmt.Errorf("selecting INBOX: %w", err)
	}

	return a.username, nil
}

// ListRecent returns up to max inbox messages, newest first.
func (a *Adapter) ListRecent(ctx context.Context, max int) ([]model.EmailMessage, error) {
	messages, err := a.imapClient.FetchRecent(ctx, max)
	if err != nil && len(messages) == 0 {
		return nil, fmt.Errorf("fetching inbox: %w", err)
	}
	if err != nil {
		a.log.Warn("partial inbox fetch", zap.Int("count", len(messages)), zap.Error(err))
	}

	out := make([]model.EmailMessage, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		out = append(out, toEmail(messages[i]))
	}
	return out, nil
}

// SendReply answers original over SMTP and marks it answered.
func (a *Adapter) SendReply(ctx context.Context, original model.EmailMessage, body string) error {
	to, err := source.ReplyAddress(original.From)
	if err != nil {
		return err
	}
	raw, err := source.ComposeReply(a.username, original, body, a.now())
	if err != nil {
		return fmt.Errorf("composing reply to %s: %w", original.ID, err)
	}

	if err := a.send(a.smtpConfig, a.username, to.Address, raw); err != nil {
		return fmt.Errorf("sending reply to %s: %w", original.ID, err)
	}

	uid, err := parseUID(original.ID)
	if err != nil {
		return nil
	}
	if err := a.imapClient.SetFlags(ctx, uid, []imap.Flag{imap.FlagAnswered}, true); err != nil {
		a.log.Warn("marking message answered", zap.String("message_id", original.ID), zap.Error(err))
	}
	return nil
}

// toEmail converts a fetched message. The IMAP UID is the stable id; the
// Message-ID header doubles as the thread key.
func toEmail(m ParsedMessage) model.EmailMessage {
	body := m.TextBody
	if strings.TrimSpace(body) == "" {
		body = stripHTML(m.HTMLBody)
	}

	threadID := m.Envelope.MessageID
	if threadID == "" {
		threadID = "uid-" + sanitizeID(strconv.FormatUint(uint64(m.Envelope.UID), 10))
	}

	return model.EmailMessage{
		ID:         strconv.FormatUint(uint64(m.Envelope.UID), 10),
		ThreadID:   threadID,
		MessageID:  m.Envelope.MessageID,
		From:       m.Envelope.From,
		Subject:    m.Envelope.Subject,
		Body:       source.TruncateBody(strings.TrimSpace(body)),
		ReceivedAt: m.Envelope.Date,
	}
}

func sendSMTP(cfg SMTPConfig, from, to string, msg []byte) error {
	addr := cfg.Host + ":" + cfg.Port
	if cfg.TLS {
		return sendSMTPWithTLS(addr, cfg, from, to, msg)
	}
	return sendSMTPWithStartTLS(addr, cfg, from, to, msg)
}

// sendSMTPWithTLS sends an email over an implicit TLS connection.
func sendSMTPWithTLS(
	addr string, cfg SMTPConfig,
	from, to string, msg []byte,
) error {
	tlsConfig := &tls.Config{ServerName: cfg.Host}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	if err := client.Auth(auth); err != nil {
		return &source.AuthError{Provider: source.ProviderIMAP, Message: fmt.Sprintf("SMTP auth: %v", err)}
	}

	return sendMailViaSMTPClient(client, from, to, msg)
}

// sendSMTPWithStartTLS sends an email using STARTTLS.
func sendSMTPWithStartTLS(
	addr string, cfg SMTPConfig,
	from, to string, msg []byte,
) error {
	conn, err := net.DialTimeout("tcp", addr, 30*time.Second)
	if err != nil {
		return fmt.Errorf("dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: cfg.Host}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("SMTP STARTTLS: %w", err)
	}

	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	if err := client.Auth(auth); err != nil {
		return &source.AuthError{Provider: source.ProviderIMAP, Message: fmt.Sprintf("SMTP auth: %v", err)}
	}

	return sendMailViaSMTPClient(client, from, to, msg)
}

// sendMailViaSMTPClient sends a message using an already-authenticated
// SMTP client.
func sendMailViaSMTPClient(
	client *smtp.Client, from, to string, msg []byte,
) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}

	if _, err := writer.Write(msg); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}

// parseUID converts a message id to an IMAP UID.
func parseUID(id string) (uint32, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid email UID %q: %w", id, err)
	}
	return uint32(uid), nil
}

var idUnsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func sanitizeID(s string) string {
	return idUnsafeChars.ReplaceAllString(s, "_")
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes HTML tags from a string and decodes common
// entities, providing a basic plain-text rendering.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}

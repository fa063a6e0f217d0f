// Package gmail implements source.Mail over the Gmail REST API.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/source"
)

const (
	user = "me"

	// inboxQuery lists inbox messages from every category, skipping drafts.
	inboxQuery = "in:inbox -in:draft"
)

// Client reads the inbox and sends threaded replies.
type Client struct {
	srv *gmail.Service
	log *zap.Logger
	now func() time.Time
}

var _ source.Mail = (*Client)(nil)

// New creates a Gmail client. Pass option.WithHTTPClient with an OAuth2
// client in production.
func New(ctx context.Context, log *zap.Logger, opts ...option.ClientOption) (*Client, error) {
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Gmail service: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{srv: srv, log: log, now: time.Now}, nil
}

// ListRecent returns up to max inbox messages, newest first. Messages that
// fail to load are skipped.
func (c *Client) ListRecent(ctx context.Context, max int) ([]model.EmailMessage, error) {
	call := c.srv.Users.Messages.List(user).Q(inboxQuery).Context(ctx)
	if max > 0 {
		call = call.MaxResults(int64(max))
	}
	list, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	out := make([]model.EmailMessage, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := c.srv.Users.Messages.Get(user, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			c.log.Warn("fetching message", zap.String("message_id", ref.Id), zap.Error(err))
			continue
		}
		out = append(out, toEmail(msg))
	}

	c.log.Debug("listed inbox", zap.Int("count", len(out)))
	return out, nil
}

// SendReply sends body to the sender of original in the same thread.
func (c *Client) SendReply(ctx context.Context, original model.EmailMessage, body string) error {
	raw, err := source.ComposeReply("", original, body, c.now())
	if err != nil {
		return fmt.Errorf("composing reply to %s: %w", original.ID, err)
	}

	msg := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString(raw),
		ThreadId: original.ThreadID,
	}
	if _, err := c.srv.Users.Messages.Send(user, msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sending reply to %s: %w", original.ID, err)
	}

	c.log.Info("reply sent", zap.String("message_id", original.ID), zap.String("thread_id", original.ThreadID))
	return nil
}

func toEmail(msg *gmail.Message) model.EmailMessage {
	e := model.EmailMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
	}
	if msg.InternalDate > 0 {
		e.ReceivedAt = time.UnixMilli(msg.InternalDate).UTC()
	}
	if msg.Payload == nil {
		return e
	}

	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "subject":
			e.Subject = h.Value
		case "from":
			e.From = h.Value
		case "message-id":
			e.MessageID = h.Value
		}
	}
	e.Body = source.TruncateBody(plainTextBody(msg.Payload))
	return e
}

// plainTextBody returns the first text/plain part, searching nested
// multiparts depth first.
func plainTextBody(part *gmail.MessagePart) string {
	if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
		if data, err := decodeBody(part.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, p := range part.Parts {
		if strings.HasPrefix(strings.ToLower(p.MimeType), "text/plain") ||
			strings.HasPrefix(strings.ToLower(p.MimeType), "multipart/") {
			if body := plainTextBody(p); body != "" {
				return body
			}
		}
	}
	return ""
}

// decodeBody accepts padded and unpadded base64url.
func decodeBody(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}

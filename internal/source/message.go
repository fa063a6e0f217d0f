package source

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/smart-inbox/internal/model"
)

// ComposeReply renders an RFC 5322 plain-text reply to original from the
// given sender address. from may be empty when the transport fills it in.
func ComposeReply(from string, original model.EmailMessage, body string, now time.Time) ([]byte, error) {
	to, err := ReplyAddress(original.From)
	if err != nil {
		return nil, err
	}

	var h mail.Header
	h.SetDate(now)
	h.SetSubject(ReplySubject(original.Subject))
	h.SetAddressList("To", []*mail.Address{to})
	if from != "" {
		sender, err := mail.ParseAddress(from)
		if err != nil {
			sender = &mail.Address{Address: from}
		}
		h.SetAddressList("From", []*mail.Address{sender})
	}
	if id := bareMessageID(original.MessageID); id != "" {
		h.SetMsgIDList("In-Reply-To", []string{id})
		h.SetMsgIDList("References", []string{id})
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating reply writer: %w", err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("writing reply body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing reply writer: %w", err)
	}
	return buf.Bytes(), nil
}

// ReplyAddress parses the sender of an email into the reply recipient.
func ReplyAddress(from string) (*mail.Address, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, fmt.Errorf("original message has no sender")
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return &mail.Address{Address: from}, nil
	}
	return addr, nil
}

func bareMessageID(id string) string {
	return strings.Trim(strings.TrimSpace(id), "<>")
}

package email

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/nhle/smart-inbox/internal/model"
)

func TestToEmail(t *testing.T) {
	date := time.Date(2025, 12, 1, 6, 0, 0, 0, time.UTC)
	m := ParsedMessage{
		Envelope: Envelope{
			UID:       42,
			MessageID: "abc@example.com",
			Subject:   "Roadmap",
			From:      `"Alice" <alice@example.com>`,
			Date:      date,
		},
		HTMLBody: "<p>Can we meet &amp; talk?</p>",
	}

	e := toEmail(m)
	if e.ID != "42" || e.ThreadID != "abc@example.com" || e.MessageID != "abc@example.com" {
		t.Fatalf("ids = %+v", e)
	}
	if e.Body != "Can we meet & talk?" {
		t.Fatalf("body = %q", e.Body)
	}
	if !e.ReceivedAt.Equal(date) {
		t.Fatalf("date = %v", e.ReceivedAt)
	}

	m.Envelope.MessageID = ""
	if got := toEmail(m).ThreadID; got != "uid-42" {
		t.Fatalf("thread = %q", got)
	}
}

func TestParseMIMEBody(t *testing.T) {
	raw := strings.Join([]string{
		"From: alice@example.com",
		"Subject: hi",
		`Content-Type: multipart/alternative; boundary="b"`,
		"",
		"--b",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"plain text",
		"--b",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<b>html</b>",
		"--b--",
		"",
	}, "\r\n")

	text, html := parseMIMEBody([]byte(raw))
	if strings.TrimSpace(text) != "plain text" || strings.TrimSpace(html) != "<b>html</b>" {
		t.Fatalf("text=%q html=%q", text, html)
	}
}

func TestSendReply(t *testing.T) {
	a := NewAdapter("imap.example.com", "993", "smtp.example.com", "465", "me@example.com", "pw", true, nil)

	var gotTo string
	var gotMsg []byte
	a.send = func(cfg SMTPConfig, from, to string, msg []byte) error {
		if from != "me@example.com" || cfg.Host != "smtp.example.com" {
			t.Errorf("from=%s host=%s", from, cfg.Host)
		}
		gotTo, gotMsg = to, msg
		return nil
	}

	// A non-numeric id skips the IMAP flag update.
	original := model.EmailMessage{ID: "not-a-uid", From: "Alice <alice@example.com>", Subject: "Roadmap", MessageID: "abc@example.com"}
	if err := a.SendReply(context.Background(), original, "Works for me"); err != nil {
		t.Fatalf("SendReply: %v", err)
	}
	if gotTo != "alice@example.com" {
		t.Fatalf("to = %q", gotTo)
	}
	msg := string(gotMsg)
	for _, want := range []string{"Subject: Re: Roadmap", "In-Reply-To: <abc@example.com>", "Works for me"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message lacks %q:\n%s", want, msg)
		}
	}
}

func TestSendReplyError(t *testing.T) {
	a := NewAdapter("h", "1", "h", "2", "me@example.com", "pw", false, nil)
	a.send = func(SMTPConfig, string, string, []byte) error { return errors.New("connection refused") }

	err := a.SendReply(context.Background(), model.EmailMessage{ID: "1", From: "a@example.com"}, "x")
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("err = %v", err)
	}
}

func TestValidateConnectionUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()

	a := NewAdapter(host, port, host, port, "me@example.com", "secret", true, nil)
	if _, err := a.ValidateConnection(context.Background()); err == nil || !strings.Contains(err.Error(), "validating email connection") {
		t.Fatalf("ValidateConnection = %v", err)
	}
}

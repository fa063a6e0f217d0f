package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/nhle/smart-inbox/internal/model"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func b64(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

func TestListRecent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != inboxQuery || r.URL.Query().Get("maxResults") != "5" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(gmail.ListMessagesResponse{
			Messages: []*gmail.Message{{Id: "m1"}, {Id: "broken"}},
		})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(gmail.Message{
			Id:           "m1",
			ThreadId:     "t1",
			InternalDate: 1764568800000,
			Payload: &gmail.MessagePart{
				MimeType: "multipart/alternative",
				Headers: []*gmail.MessagePartHeader{
					{Name: "Subject", Value: "Roadmap"},
					{Name: "From", Value: "Alice <alice@example.com>"},
					{Name: "Message-ID", Value: "<abc@example.com>"},
				},
				Parts: []*gmail.MessagePart{
					{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>html</p>")}},
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("Can we meet?")}},
				},
			},
		})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"boom"}}`, http.StatusInternalServerError)
	})

	c := newTestClient(t, mux)
	got, err := c.ListRecent(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}
	e := got[0]
	if e.ID != "m1" || e.ThreadID != "t1" || e.Subject != "Roadmap" || e.Body != "Can we meet?" {
		t.Fatalf("email = %+v", e)
	}
	if e.MessageID != "<abc@example.com>" || e.ReceivedAt.IsZero() {
		t.Fatalf("headers = %+v", e)
	}
}

func TestListRecentError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":401,"message":"invalid credentials"}}`))
	}))
	if _, err := c.ListRecent(context.Background(), 10); err == nil {
		t.Fatal("expected error")
	}
}

func TestSendReply(t *testing.T) {
	var sent gmail.Message
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/gmail/v1/users/me/messages/send" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&sent); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		json.NewEncoder(w).Encode(gmail.Message{Id: "sent-1"})
	}))

	original := model.EmailMessage{ID: "m1", ThreadID: "t1", From: "alice@example.com", Subject: "Roadmap"}
	if err := c.SendReply(context.Background(), original, "See you then"); err != nil {
		t.Fatalf("SendReply: %v", err)
	}

	if sent.ThreadId != "t1" {
		t.Fatalf("thread = %q", sent.ThreadId)
	}
	raw, err := base64.URLEncoding.DecodeString(sent.Raw)
	if err != nil {
		t.Fatalf("decoding raw: %v", err)
	}
	msg := string(raw)
	for _, want := range []string{"Subject: Re: Roadmap", "alice@example.com", "See you then"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("raw message lacks %q:\n%s", want, msg)
		}
	}
}

func TestPlainTextBodyUnpadded(t *testing.T) {
	part := &gmail.MessagePart{
		MimeType: "text/plain",
		Body:     &gmail.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte("hi"))},
	}
	if got := plainTextBody(part); got != "hi" {
		t.Fatalf("body = %q", got)
	}
}

package gcal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/nhle/smart-inbox/internal/civiltime"
	"github.com/nhle/smart-inbox/internal/model"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), nil, []option.ClientOption{
		option.WithEndpoint(srv.URL + "/"),
		option.WithHTTPClient(srv.Client()),
	}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestListEvents(t *testing.T) {
	min := time.Date(2025, 12, 27, 4, 30, 0, 0, time.UTC)
	max := min.Add(30 * time.Minute)

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calendars/team@example.com/events" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("timeMin") != "2025-12-27T04:30:00Z" || q.Get("timeMax") != "2025-12-27T05:00:00Z" {
			t.Errorf("window = %s..%s", q.Get("timeMin"), q.Get("timeMax"))
		}
		if q.Get("singleEvents") != "true" || q.Get("orderBy") != "startTime" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(calendar.Events{Items: []*calendar.Event{
			{
				Id:      "e1",
				Summary: "Standup",
				Start:   &calendar.EventDateTime{DateTime: "2025-12-27T10:00:00+05:30"},
				End:     &calendar.EventDateTime{DateTime: "2025-12-27T10:30:00+05:30"},
			},
			{Id: "e2", Status: "cancelled"},
			{
				Id:    "e3",
				Start: &calendar.EventDateTime{Date: "2025-12-27"},
				End:   &calendar.EventDateTime{Date: "2025-12-28"},
			},
		}})
	}), WithCalendarID("team@example.com"), WithLocation(civiltime.IST))

	got, err := c.ListEvents(context.Background(), min, max)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Title != "Standup" || !got[0].Start.Equal(min) || !got[0].End.Equal(max) {
		t.Fatalf("event = %+v", got[0])
	}
	wantDay := time.Date(2025, 12, 26, 18, 30, 0, 0, time.UTC)
	if !got[1].Start.Equal(wantDay) || !got[1].End.Equal(wantDay.Add(24*time.Hour)) {
		t.Fatalf("all-day = %v..%v", got[1].Start, got[1].End)
	}
}

func TestInsertEvent(t *testing.T) {
	var body calendar.Event
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/calendars/primary/events" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("conferenceDataVersion") != "1" {
			t.Errorf("conferenceDataVersion = %q", r.URL.Query().Get("conferenceDataVersion"))
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding: %v", err)
		}
		json.NewEncoder(w).Encode(calendar.Event{
			Id: "evt-1",
			ConferenceData: &calendar.ConferenceData{EntryPoints: []*calendar.EntryPoint{
				{EntryPointType: "phone", Uri: "tel:+1"},
				{EntryPointType: "video", Uri: "https://meet.google.com/abc-defg-hij"},
			}},
		})
	}))

	start := time.Date(2025, 12, 27, 5, 0, 0, 0, time.UTC)
	got, err := c.InsertEvent(context.Background(), model.EventRequest{
		Summary:   "Discussion: Roadmap",
		Attendee:  "Alice <alice@example.com>",
		Start:     start,
		End:       start.Add(30 * time.Minute),
		RequestID: "meet-2025-12-27T05:00:00Z",
	})
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	if got.EventID != "evt-1" || got.ConferenceLink != "https://meet.google.com/abc-defg-hij" {
		t.Fatalf("created = %+v", got)
	}

	if body.Start.DateTime != "2025-12-27T05:00:00Z" || body.End.DateTime != "2025-12-27T05:30:00Z" {
		t.Fatalf("times = %s..%s", body.Start.DateTime, body.End.DateTime)
	}
	if len(body.Attendees) != 1 || body.Attendees[0].Email != "alice@example.com" {
		t.Fatalf("attendees = %+v", body.Attendees)
	}
	cr := body.ConferenceData.CreateRequest
	if cr.RequestId != "meet-2025-12-27T05:00:00Z" || cr.ConferenceSolutionKey.Type != "hangoutsMeet" {
		t.Fatalf("create request = %+v", cr)
	}
}

func TestConferenceLinkPrefersHangoutLink(t *testing.T) {
	ev := &calendar.Event{HangoutLink: "https://meet.google.com/x"}
	if got := conferenceLink(ev); got != "https://meet.google.com/x" {
		t.Fatalf("link = %q", got)
	}
	if got := conferenceLink(&calendar.Event{}); got != "" {
		t.Fatalf("link = %q", got)
	}
}

package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nhle/smart-inbox/internal/model"
)

// FakeCalendar is an in-memory source.Calendar. ListEvents returns events
// overlapping the queried window; InsertEvent records the request and adds
// the booked event so later queries see it.
type FakeCalendar struct {
	mu sync.Mutex

	Events   []model.CalendarEvent
	Inserted []model.EventRequest

	ListErr   error
	InsertErr error

	ListCalls int
}

// NewFakeCalendar returns a calendar holding events.
func NewFakeCalendar(events ...model.CalendarEvent) *FakeCalendar {
	return &FakeCalendar{Events: events}
}

func (c *FakeCalendar) ListEvents(_ context.Context, min, max time.Time) ([]model.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ListCalls++
	if c.ListErr != nil {
		return nil, c.ListErr
	}

	var out []model.CalendarEvent
	for _, ev := range c.Events {
		if ev.Start.Before(max) && ev.End.After(min) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (c *FakeCalendar) InsertEvent(_ context.Context, req model.EventRequest) (*model.CreatedEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.InsertErr != nil {
		return nil, c.InsertErr
	}

	c.Inserted = append(c.Inserted, req)
	id := fmt.Sprintf("evt-%d", len(c.Inserted))
	c.Events = append(c.Events, model.CalendarEvent{
		ID:    id,
		Title: req.Summary,
		Start: req.Start,
		End:   req.End,
	})

	return &model.CreatedEvent{
		EventID:        id,
		ConferenceLink: "https://meet.google.com/" + id,
	}, nil
}

// InsertCount returns how many events were booked.
func (c *FakeCalendar) InsertCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Inserted)
}

// SentReply is one reply captured by FakeMail.
type SentReply struct {
	Original model.EmailMessage
	Body     string
}

// FakeMail is an in-memory source.Mail.
type FakeMail struct {
	mu sync.Mutex

	Inbox   []model.EmailMessage
	Sent    []SentReply
	ListErr error
	SendErr error
}

func (m *FakeMail) ListRecent(_ context.Context, max int) ([]model.EmailMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if max > 0 && len(m.Inbox) > max {
		return append([]model.EmailMessage(nil), m.Inbox[:max]...), nil
	}
	return append([]model.EmailMessage(nil), m.Inbox...), nil
}

func (m *FakeMail) SendReply(_ context.Context, original model.EmailMessage, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendErr != nil {
		return m.SendErr
	}
	m.Sent = append(m.Sent, SentReply{Original: original, Body: body})
	return nil
}

// Event builds a calendar event for [start, start+d).
func Event(title string, start time.Time, d time.Duration) model.CalendarEvent {
	return model.CalendarEvent{Title: title, Start: start, End: start.Add(d)}
}

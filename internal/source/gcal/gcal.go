// Package gcal implements source.Calendar over the Google Calendar API.
package gcal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/source"
)

// PrimaryCalendar is the authenticated user's default calendar.
const PrimaryCalendar = "primary"

const (
	dateLayout     = "2006-01-02"
	meetSolution   = "hangoutsMeet"
	videoEntryType = "video"
)

// Client lists busy time and inserts meetings with a Meet link.
type Client struct {
	srv        *calendar.Service
	calendarID string
	loc        *time.Location
	log        *zap.Logger
}

var _ source.Calendar = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithCalendarID selects a calendar other than the primary one.
func WithCalendarID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.calendarID = id
		}
	}
}

// WithLocation sets the zone used for all-day events.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// New creates a Calendar client.
func New(ctx context.Context, log *zap.Logger, clientOpts []option.ClientOption, opts ...Option) (*Client, error) {
	srv, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating Calendar service: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{srv: srv, calendarID: PrimaryCalendar, loc: time.UTC, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListEvents returns single events overlapping [min, max), ordered by start.
func (c *Client) ListEvents(ctx context.Context, min, max time.Time) ([]model.CalendarEvent, error) {
	var out []model.CalendarEvent

	call := c.srv.Events.List(c.calendarID).
		TimeMin(min.UTC().Format(time.RFC3339)).
		TimeMax(max.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}
			out = append(out, c.toEvent(item))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	c.log.Debug("listed events",
		zap.Time("min", min),
		zap.Time("max", max),
		zap.Int("count", len(out)),
	)
	return out, nil
}

// InsertEvent books req with the attendee invited and a Meet conference
// requested.
func (c *Client) InsertEvent(ctx context.Context, req model.EventRequest) (*model.CreatedEvent, error) {
	ev := &calendar.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start:       &calendar.EventDateTime{DateTime: req.Start.UTC().Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: req.End.UTC().Format(time.RFC3339)},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             req.RequestID,
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: meetSolution},
			},
		},
	}
	if req.Attendee != "" {
		email := req.Attendee
		if addr, err := source.ReplyAddress(req.Attendee); err == nil {
			email = addr.Address
		}
		ev.Attendees = []*calendar.EventAttendee{{Email: email}}
	}

	created, err := c.srv.Events.Insert(c.calendarID, ev).
		ConferenceDataVersion(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("inserting event: %w", err)
	}

	link := conferenceLink(created)
	c.log.Info("event created",
		zap.String("event_id", created.Id),
		zap.String("start", ev.Start.DateTime),
		zap.Bool("has_link", link != ""),
	)
	return &model.CreatedEvent{EventID: created.Id, ConferenceLink: link}, nil
}

func (c *Client) toEvent(item *calendar.Event) model.CalendarEvent {
	return model.CalendarEvent{
		ID:    item.Id,
		Title: item.Summary,
		Start: c.eventTime(item.Start),
		End:   c.eventTime(item.End),
	}
}

// eventTime reads a timed or all-day boundary. Unreadable values give the
// zero time, which conflict checks treat as overlapping.
func (c *Client) eventTime(dt *calendar.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t.UTC()
		}
		return time.Time{}
	}
	if dt.Date != "" {
		if t, err := time.ParseInLocation(dateLayout, dt.Date, c.loc); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func conferenceLink(ev *calendar.Event) string {
	if ev.HangoutLink != "" {
		return ev.HangoutLink
	}
	if ev.ConferenceData == nil {
		return ""
	}
	for _, ep := range ev.ConferenceData.EntryPoints {
		if ep.EntryPointType == videoEntryType && ep.Uri != "" {
			return ep.Uri
		}
	}
	return ""
}

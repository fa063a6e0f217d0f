package model

import (
	"errors"
	"time"
)

// ErrNoPending is returned when no pending conflict exists for a message.
var ErrNoPending = errors.New("no pending conflict for message")

// Slot is a concrete [Start, End) calendar interval in UTC.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the length of the slot.
func (s Slot) Duration() time.Duration { return s.End.Sub(s.Start) }

// StartRef returns the slot start as a UTC reference.
func (s Slot) StartRef() TimeRef { return UTC(s.Start) }

// EndRef returns the slot end as a UTC reference.
func (s Slot) EndRef() TimeRef { return UTC(s.End) }

// SlotRequest is a desired meeting interval whose endpoints may still be in
// local civil time.
type SlotRequest struct {
	Start TimeRef `json:"start"`
	End   TimeRef `json:"end"`
}

// CalendarEvent is an existing calendar entry as seen by conflict checks.
type CalendarEvent struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// EventRequest describes a meeting to insert with a conferencing link.
type EventRequest struct {
	Summary     string
	Description string
	Attendee    string
	Start       time.Time
	End         time.Time

	// RequestID keys the conferencing create request.
	RequestID string
}

// CreatedEvent is what the calendar transport returns after an insert.
type CreatedEvent struct {
	EventID        string `json:"event_id"`
	ConferenceLink string `json:"conference_link"`
}

// ConflictReport describes an occupied requested slot.
type ConflictReport struct {
	HasConflict       bool     `json:"has_conflict"`
	ConflictingEvents []string `json:"conflicting_events"`
	RequestedTime     string   `json:"requested_time"`
	NextAvailable     *Slot    `json:"next_available,omitempty"`
}

// BookingResult is the normalized outcome of one scheduling call. It is
// produced both for booked meetings and for conflicts that stopped short of
// booking.
type BookingResult struct {
	// MeetingLink is empty if and only if nothing was booked.
	MeetingLink string `json:"meeting_link,omitempty"`
	EventID     string `json:"event_id,omitempty"`

	// HasConflict is true whenever a conflict was detected, including
	// conflicts that were auto-resolved.
	HasConflict       bool     `json:"has_conflict"`
	ConflictingEvents []string `json:"conflicting_events"`

	// OriginalTime is the start as requested, before normalization.
	OriginalTime string `json:"original_time"`

	// ScheduledTime is the UTC start of the booked (or requested) slot.
	ScheduledTime string `json:"scheduled_time"`
	ScheduledEnd  string `json:"scheduled_end"`

	// Local display fields for ScheduledTime.
	Date           string `json:"date"`
	DateFormatted  string `json:"date_formatted"`
	StartTimeLocal string `json:"start_time_local"`
	EndTimeLocal   string `json:"end_time_local"`
	DateTimeFull   string `json:"datetime_full"`
}

// Booked reports whether a calendar event was created.
func (b BookingResult) Booked() bool { return b.MeetingLink != "" || b.EventID != "" }

// Conflict returns the conflict view of the result.
func (b BookingResult) Conflict() ConflictReport {
	return ConflictReport{
		HasConflict:       b.HasConflict,
		ConflictingEvents: b.ConflictingEvents,
		RequestedTime:     b.OriginalTime,
	}
}

// PendingConflict is a conflict awaiting a human decision. It is keyed by the
// stable message id of the email it belongs to.
type PendingConflict struct {
	MessageID string       `json:"message_id" db:"message_id"`
	Email     EmailMessage `json:"email" db:"-"`

	// RequestedTime is the human-readable requested slot.
	RequestedTime     string   `json:"requested_time" db:"requested_time"`
	ConflictingEvents []string `json:"conflicting_events" db:"-"`

	// NextStart and NextEnd hold the currently offered free slot in UTC.
	NextStart time.Time `json:"next_start" db:"next_start"`
	NextEnd   time.Time `json:"next_end" db:"next_end"`

	// NextDate and NextTime are local display strings for the offer.
	NextDate string `json:"next_date" db:"next_date"`
	NextTime string `json:"next_time" db:"next_time"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Offer returns the currently offered slot.
func (p PendingConflict) Offer() Slot {
	return Slot{Start: p.NextStart, End: p.NextEnd}
}

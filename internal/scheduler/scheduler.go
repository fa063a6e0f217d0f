// Package scheduler books meetings with a conferencing link, optionally
// checking for and resolving calendar conflicts first.
package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/smart-inbox/internal/civiltime"
	"github.com/nhle/smart-inbox/internal/fault"
	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/slot"
	"github.com/nhle/smart-inbox/internal/source"
)

// DefaultLead is how far ahead a meeting with no usable time is placed.
const DefaultLead = 24 * time.Hour

var errMissingTime = errors.New("no time given")

// Request describes one meeting to schedule.
type Request struct {
	Subject     string
	Description string
	Attendee    string

	// Start and End are optional. A missing or unusable start places the
	// meeting DefaultLead from now; a missing or non-positive end gives it
	// the default duration.
	Start model.TimeRef
	End   model.TimeRef

	CheckConflicts bool
	AutoResolve    bool
}

// Scheduler books meetings on a calendar.
type Scheduler struct {
	cal      source.Calendar
	resolver *slot.Resolver
	norm     *civiltime.Normalizer
	log      *zap.Logger
}

// New returns a Scheduler booking on cal and resolving conflicts with r.
func New(
	cal source.Calendar,
	r *slot.Resolver,
	norm *civiltime.Normalizer,
	log *zap.Logger,
) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if norm == nil {
		norm = civiltime.New(log)
	}
	if r == nil {
		r = slot.NewResolver(cal, norm, log)
	}
	return &Scheduler{cal: cal, resolver: r, norm: norm, log: log}
}

// Schedule books req and returns the normalized result. With CheckConflicts
// and without AutoResolve, a busy slot returns HasConflict and an empty
// MeetingLink without touching the calendar. The only error is a failed
// insert, classified as a *fault.Error.
func (s *Scheduler) Schedule(ctx context.Context, req Request) (model.BookingResult, error) {
	requested := s.requestedSlot(req)
	original := req.Start.String()
	if original == "" {
		original = requested.Start.Format(model.UTCLayout)
	}

	log := s.log.With(
		zap.String("subject", req.Subject),
		zap.Time("start", requested.Start),
		zap.Time("end", requested.End),
	)

	final := requested
	var conflicts []string

	if req.CheckConflicts {
		res := s.resolver.Resolve(ctx, requested, req.AutoResolve)
		conflicts = res.ConflictingEvents

		switch res.State {
		case slot.ConflictPending:
			log.Info("slot busy, not booking", zap.Strings("conflicts", conflicts))
			return s.result(original, requested, "", "", conflicts), nil
		case slot.ConflictAutoResolved:
			log.Info("slot busy, rescheduled",
				zap.Strings("conflicts", conflicts),
				zap.Time("rescheduled_start", res.Slot.Start),
			)
			final = res.Slot
		}
	}

	created, err := s.book(ctx, req, final)
	if err != nil {
		log.Error("booking failed", zap.Error(err))
		return model.BookingResult{}, err
	}

	log.Info("meeting booked", zap.String("event_id", created.EventID))
	return s.result(original, final, created.ConferenceLink, created.EventID, conflicts), nil
}

// Book inserts slot directly, skipping any availability check.
func (s *Scheduler) Book(
	ctx context.Context,
	req Request,
	booked model.Slot,
	hadConflict []string,
) (model.BookingResult, error) {
	created, err := s.book(ctx, req, booked)
	if err != nil {
		return model.BookingResult{}, err
	}
	original := req.Start.String()
	if original == "" {
		original = booked.Start.Format(model.UTCLayout)
	}
	return s.result(original, booked, created.ConferenceLink, created.EventID, hadConflict), nil
}

func (s *Scheduler) book(ctx context.Context, req Request, booked model.Slot) (*model.CreatedEvent, error) {
	startUTC := booked.Start.UTC().Format(model.UTCLayout)

	created, err := s.cal.InsertEvent(ctx, model.EventRequest{
		Summary:     "Discussion: " + req.Subject,
		Description: req.Description,
		Attendee:    req.Attendee,
		Start:       booked.Start.UTC(),
		End:         booked.End.UTC(),
		RequestID:   "meet-" + startUTC,
	})
	if err != nil {
		return nil, fault.Classify("insert event", err)
	}
	return created, nil
}

// requestedSlot applies the default-time policy to req.
func (s *Scheduler) requestedSlot(req Request) model.Slot {
	start, err := s.resolve(req.Start)
	if err != nil {
		start = s.resolver.Now().Add(DefaultLead)
		return model.Slot{Start: start, End: start.Add(s.resolver.DefaultDuration())}
	}

	end, err := s.resolve(req.End)
	if err != nil || !end.After(start) {
		end = start.Add(s.resolver.DefaultDuration())
	}
	return model.Slot{Start: start, End: end}
}

// resolve normalizes ref through the UTC wire form, so civil and UTC input
// follow the same path.
func (s *Scheduler) resolve(ref model.TimeRef) (time.Time, error) {
	if ref.IsZero() {
		return time.Time{}, fault.New(fault.InvalidTime, "resolve time", errMissingTime)
	}
	t, err := civiltime.ParseUTC(s.norm.LocalToUTC(ref))
	if err != nil {
		s.log.Warn("unusable meeting time, using default",
			zap.String("input", ref.String()),
			zap.Error(err),
		)
		return time.Time{}, fault.New(fault.InvalidTime, "resolve time", err)
	}
	return t, nil
}

func (s *Scheduler) result(
	original string,
	sl model.Slot,
	link string,
	eventID string,
	conflicts []string,
) model.BookingResult {
	d := s.norm.DisplayTime(sl.Start)
	if conflicts == nil {
		conflicts = []string{}
	}
	return model.BookingResult{
		MeetingLink:       link,
		EventID:           eventID,
		HasConflict:       len(conflicts) > 0,
		ConflictingEvents: conflicts,
		OriginalTime:      original,
		ScheduledTime:     sl.Start.UTC().Format(model.UTCLayout),
		ScheduledEnd:      sl.End.UTC().Format(model.UTCLayout),
		Date:              d.Date,
		DateFormatted:     d.DateFormatted,
		StartTimeLocal:    d.Time,
		EndTimeLocal:      s.norm.Clock(sl.End),
		DateTimeFull:      d.FullText,
	}
}
